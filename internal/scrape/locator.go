package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CandidateTable is one <table> of a parsed document: its identity, its
// header-cell text and its body rows.
type CandidateTable struct {
	Index   int      // position among the document's tables
	ID      string   // id attribute
	Classes []string // class attribute tokens
	Headers []string // lower-cased, trimmed header cell text in document order
	Rows    *goquery.Selection
	Matcher string // name of the matcher that selected this table

	headerSet map[string]bool
}

// HasHeaders reports whether every token appears among the header cells.
// Tokens are compared case-insensitively.
func (c *CandidateTable) HasHeaders(tokens ...string) bool {
	for _, tok := range tokens {
		if !c.headerSet[normalizeHeader(tok)] {
			return false
		}
	}
	return true
}

// HasClass reports whether the table carries the given class.
func (c *CandidateTable) HasClass(class string) bool {
	for _, cl := range c.Classes {
		if cl == class {
			return true
		}
	}
	return false
}

// TableMatcher is one table-discovery strategy.
type TableMatcher interface {
	Name() string
	Match(c *CandidateTable) bool
}

// ByID selects the table with the given id attribute. When Required is set
// the table must also carry those header tokens.
type ByID struct {
	ID       string
	Required []string
}

func (m ByID) Name() string { return "id:" + m.ID }

func (m ByID) Match(c *CandidateTable) bool {
	return c.ID == m.ID && c.HasHeaders(m.Required...)
}

// ByClass selects the first table carrying Class and the Required headers.
type ByClass struct {
	Class    string
	Required []string
}

func (m ByClass) Name() string { return "class:" + m.Class }

func (m ByClass) Match(c *CandidateTable) bool {
	return c.HasClass(m.Class) && c.HasHeaders(m.Required...)
}

// ByHeaders selects the first table whose header set is a superset of Required.
type ByHeaders struct {
	Required []string
}

func (m ByHeaders) Name() string { return "headers:" + strings.Join(m.Required, ",") }

func (m ByHeaders) Match(c *CandidateTable) bool {
	return len(m.Required) > 0 && c.HasHeaders(m.Required...)
}

// Candidates collects every table of the document.
func Candidates(doc *goquery.Document) []*CandidateTable {
	var out []*CandidateTable
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		out = append(out, newCandidate(i, table))
	})
	return out
}

func newCandidate(i int, table *goquery.Selection) *CandidateTable {
	c := &CandidateTable{
		Index:     i,
		ID:        strings.TrimSpace(table.AttrOr("id", "")),
		Classes:   strings.Fields(table.AttrOr("class", "")),
		headerSet: make(map[string]bool),
	}

	rows := table.Find("tr")
	headerCells := table.Find("th")
	skipFirst := false
	if headerCells.Length() == 0 && rows.Length() > 0 {
		// Header-less markup: treat the first row as the header row.
		headerCells = rows.First().Children().Filter("td")
		skipFirst = true
	}
	headerCells.Each(func(_ int, th *goquery.Selection) {
		h := normalizeHeader(th.Text())
		c.Headers = append(c.Headers, h)
		if h != "" {
			c.headerSet[h] = true
		}
	})

	if skipFirst {
		rows = rows.Slice(1, goquery.ToEnd)
	}
	// Rows made only of <th> cells are header rows.
	c.Rows = rows.FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Children().Filter("td").Length() > 0
	})
	return c
}

// Locate returns the first table satisfying a matcher, trying matchers in
// order so that more specific strategies win.
func Locate(doc *goquery.Document, matchers []TableMatcher) (*CandidateTable, error) {
	candidates := Candidates(doc)
	for _, m := range matchers {
		for _, c := range candidates {
			if m.Match(c) {
				c.Matcher = m.Name()
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w (%d tables, %d matchers)", ErrTableNotFound, len(candidates), len(matchers))
}

// LocateHTML parses raw HTML and runs Locate on it. A document that cannot be
// parsed has no tables either.
func LocateHTML(raw []byte, matchers []TableMatcher) (*CandidateTable, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML: %v", ErrTableNotFound, err)
	}
	return Locate(doc, matchers)
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(cleanText(s)), " "))
}
