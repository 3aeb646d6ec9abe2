// Package tenor defines the canonical maturity ordering for forward curves
// and normalises scraped tenor labels against it.
package tenor

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/seenimoa/fxforward/pkg/models"
)

// Canonical is the fixed, totally ordered tenor enumeration, shortest first.
var Canonical = []string{
	"ON", "TN", "SN", "SW", "2W", "3W",
	"1M", "2M", "3M", "4M", "5M", "6M", "7M", "8M", "9M", "10M", "11M",
	"1Y", "15M", "18M", "21M",
	"2Y", "3Y", "4Y", "5Y", "6Y", "7Y", "10Y",
}

var rankOf = func() map[string]int {
	m := make(map[string]int, len(Canonical))
	for i, c := range Canonical {
		m[c] = i
	}
	return m
}()

// Policy decides where labels outside the canonical enumeration go.
type Policy int

const (
	// AppendUnknown places unknown tenors after every known tenor, in the
	// order they were encountered.
	AppendUnknown Policy = iota
	// RejectUnknown fails the whole series on the first unknown tenor.
	RejectUnknown
)

// ParsePolicy converts a config string ("append" or "reject") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return AppendUnknown, nil
	case "reject":
		return RejectUnknown, nil
	}
	return AppendUnknown, fmt.Errorf("unknown tenor policy %q (want append or reject)", s)
}

func (p Policy) String() string {
	if p == RejectUnknown {
		return "reject"
	}
	return "append"
}

// ErrUnknownTenor is wrapped by UnknownTenorError.
var ErrUnknownTenor = errors.New("unknown tenor")

// UnknownTenorError reports a label that is not in the canonical enumeration.
type UnknownTenorError struct {
	Label string
}

func (e *UnknownTenorError) Error() string {
	return fmt.Sprintf("unknown tenor %q", e.Label)
}

func (e *UnknownTenorError) Unwrap() error { return ErrUnknownTenor }

// Rank returns the position of a canonical code in the enumeration.
func Rank(code string) (int, bool) {
	r, ok := rankOf[code]
	return r, ok
}

// phrases is checked in order; longer phrases come before their prefixes.
var phrases = []struct{ phrase, code string }{
	{"TOMORROW NEXT", "TN"},
	{"OVERNIGHT", "ON"},
	{"TOM NEXT", "TN"},
	{"SPOT NEXT", "SN"},
	{"SPOT WEEK", "SW"},
	{"ONE WEEK", "SW"},
	{"O/N", "ON"},
	{"T/N", "TN"},
	{"S/N", "SN"},
	{"S/W", "SW"},
}

var periodRe = regexp.MustCompile(`(\d+)\s*(WEEKS?|WKS?|W|MONTHS?|MTHS?|MOS?|M|YEARS?|YRS?|Y)\b`)

// Parse maps a scraped label to its canonical code. It accepts bare codes
// ("6M"), codes embedded in instrument names ("USDMXN 6M FWD") and English
// forms ("Tom Next", "6 Months", "1 Year").
func Parse(label string) (string, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(label, "\u00a0", " ")), " "))
	if s == "" {
		return "", false
	}
	if _, ok := rankOf[s]; ok {
		return s, true
	}
	for _, ph := range phrases {
		if strings.Contains(s, ph.phrase) {
			return ph.code, true
		}
	}
	for _, tok := range strings.Fields(s) {
		if _, ok := rankOf[tok]; ok {
			return tok, true
		}
	}
	m := periodRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	var code string
	switch m[2][0] {
	case 'W':
		if n == 1 {
			code = "SW"
		} else {
			code = strconv.Itoa(n) + "W"
		}
	case 'M':
		if n%12 == 0 {
			code = strconv.Itoa(n/12) + "Y"
		} else {
			code = strconv.Itoa(n) + "M"
		}
	case 'Y':
		code = strconv.Itoa(n) + "Y"
	}
	if _, ok := rankOf[code]; !ok {
		return "", false
	}
	return code, true
}

// Normalize returns a new slice of points sorted by canonical tenor rank.
// Recognised labels have their Tenor rewritten to the canonical code. The
// input slice is not modified. Normalising an already normalised series is a
// no-op.
func Normalize(points []models.ForwardRatePoint, policy Policy) ([]models.ForwardRatePoint, error) {
	out := make([]models.ForwardRatePoint, len(points))
	ranks := make([]int, len(points))
	unknown := len(Canonical)

	for i, p := range points {
		out[i] = p
		code, ok := Parse(p.Tenor)
		if !ok {
			if policy == RejectUnknown {
				return nil, &UnknownTenorError{Label: p.Tenor}
			}
			ranks[i] = unknown
			continue
		}
		out[i].Tenor = code
		ranks[i] = rankOf[code]
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ranks[idx[a]] < ranks[idx[b]]
	})

	sorted := make([]models.ForwardRatePoint, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted, nil
}
