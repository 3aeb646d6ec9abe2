package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multiTableHTML holds three tables; only the second quotes bid/ask/mid.
const multiTableHTML = `<html><body>
<table class="overview">
  <thead><tr><th>Name</th><th>Price</th><th>Change</th></tr></thead>
  <tbody><tr><td>USD/MXN</td><td>17.10</td><td>+0.02</td></tr></tbody>
</table>
<table class="forwards">
  <thead><tr><th>Expiration</th><th>Bid</th><th>Ask</th><th> MID </th><th>Points</th></tr></thead>
  <tbody>
    <tr><td>1 Month</td><td>17.1500</td><td>17.1700</td><td>17.1600</td><td>+560.00</td></tr>
    <tr><td>3 Months</td><td>17.3500</td><td>17.3900</td><td>17.3700</td><td>2,560.00</td></tr>
  </tbody>
</table>
<table id="news"><tr><td>Headline</td><td>Time</td></tr><tr><td>Peso rallies</td><td>10:00</td></tr></table>
</body></html>`

// investingHTML mimics a layout without a mid column where the
// instrument name sits in the second cell.
const investingHTML = `<html><body>
<table id="curr_table" class="genTbl closedTbl">
  <thead><tr><th></th><th>Name</th><th>Bid</th><th>Ask</th><th>High</th><th>Low</th><th>Chg.</th><th>Time</th></tr></thead>
  <tbody>
    <tr><td>flag</td><td>USDMXN ON FWD</td><td>0.0021</td><td>0.0031</td><td>-</td><td>-</td><td>0</td><td>10:00</td></tr>
    <tr><td>flag</td><td>USDMXN TN FWD</td><td>0.0064</td><td>0.0094</td><td>-</td><td>-</td><td>0</td><td>10:00</td></tr>
    <tr><td>flag</td><td>USDMXN 1M FWD</td><td>5.1200</td><td>5.2800</td><td>-</td><td>-</td><td>0</td><td>10:00</td></tr>
    <tr><td>flag</td><td>USDMXN 1Y FWD</td><td>1,020.50</td><td>1,030.50</td><td>-</td><td>-</td><td>0</td><td>10:00</td></tr>
  </tbody>
</table>
</body></html>`

var investingLayout = Layout{MinCells: 4, Tenor: 1, Bid: 2, Ask: 3, Mid: Absent, Points: Absent}

var fxempireLayout = Layout{MinCells: 5, Tenor: 0, Bid: 1, Ask: 2, Mid: 3, Points: 4}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

// --- ParseNumber ---

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"17.15", 17.15, true},
		{" 1,020.50 ", 1020.5, true},
		{"+560.00", 560, true},
		{"-0.45", -0.45, true},
		{"\u221212.5", -12.5, true},
		{"1 234.5", 1234.5, true},
		{"N/A", 0, false},
		{"-", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

// --- Locator ---

func TestLocateSelectsOnlyBidAskMidTable(t *testing.T) {
	doc := mustDoc(t, multiTableHTML)
	table, err := Locate(doc, []TableMatcher{ByHeaders{Required: []string{"bid", "ask", "mid"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Index)
	assert.True(t, table.HasClass("forwards"))
	assert.Equal(t, []string{"expiration", "bid", "ask", "mid", "points"}, table.Headers)
	assert.Equal(t, 2, table.Rows.Length())
	assert.Equal(t, "headers:bid,ask,mid", table.Matcher)
}

func TestLocateTriesMatchersInOrder(t *testing.T) {
	doc := mustDoc(t, investingHTML)
	matchers := []TableMatcher{
		ByID{ID: "missing"},
		ByClass{Class: "genTbl", Required: []string{"bid", "ask"}},
		ByHeaders{Required: []string{"bid", "ask"}},
	}
	table, err := Locate(doc, matchers)
	require.NoError(t, err)
	assert.Equal(t, "class:genTbl", table.Matcher)
	assert.Equal(t, "curr_table", table.ID)
}

func TestLocateByIDRequiresHeaders(t *testing.T) {
	doc := mustDoc(t, investingHTML)
	_, err := Locate(doc, []TableMatcher{ByID{ID: "curr_table", Required: []string{"mid"}}})
	assert.ErrorIs(t, err, ErrTableNotFound)

	table, err := Locate(doc, []TableMatcher{ByID{ID: "curr_table"}})
	require.NoError(t, err)
	assert.Equal(t, 4, table.Rows.Length())
}

func TestLocateHeaderlessTableUsesFirstRow(t *testing.T) {
	doc := mustDoc(t, multiTableHTML)
	table, err := Locate(doc, []TableMatcher{ByHeaders{Required: []string{"headline", "time"}}})
	require.NoError(t, err)
	assert.Equal(t, "news", table.ID)
	assert.Equal(t, 1, table.Rows.Length())
}

func TestLocateEmptyOrMalformedDocument(t *testing.T) {
	matchers := []TableMatcher{ByHeaders{Required: []string{"bid", "ask"}}}
	for name, html := range map[string]string{
		"empty":      "",
		"no tables":  "<html><body><p>maintenance</p></body></html>",
		"no match":   "<table><tr><th>Name</th></tr><tr><td>x</td></tr></table>",
		"truncated":  "<table><thead><tr><th>Bid",
		"plain text": "Access denied",
	} {
		t.Run(name, func(t *testing.T) {
			table, err := LocateHTML([]byte(html), matchers)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, ErrTableNotFound)
		})
	}
}

// --- Row parser ---

func TestParseRowsDerivesMidFromBidAsk(t *testing.T) {
	doc := mustDoc(t, investingHTML)
	table, err := Locate(doc, []TableMatcher{ByID{ID: "curr_table"}})
	require.NoError(t, err)

	res := ParseRows(table, investingLayout)
	require.Len(t, res.Points, 4)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, 4, res.Total)

	for _, p := range res.Points {
		require.NotNil(t, p.Bid)
		require.NotNil(t, p.Ask)
		assert.InDelta(t, (*p.Bid+*p.Ask)/2, p.Mid, 1e-12, p.Tenor)
		assert.Nil(t, p.Points)
	}
	assert.Equal(t, "USDMXN ON FWD", res.Points[0].Tenor)
	assert.InDelta(t, 1025.5, res.Points[3].Mid, 1e-9)
}

func TestParseRowsExplicitMidAndPoints(t *testing.T) {
	doc := mustDoc(t, multiTableHTML)
	table, err := Locate(doc, []TableMatcher{ByHeaders{Required: []string{"expiration", "bid", "mid"}}})
	require.NoError(t, err)

	res := ParseRows(table, fxempireLayout)
	require.Len(t, res.Points, 2)
	assert.Equal(t, "3 Months", res.Points[1].Label)
	assert.InDelta(t, 17.37, res.Points[1].Mid, 1e-12)
	require.NotNil(t, res.Points[1].Points)
	assert.InDelta(t, 2560, *res.Points[1].Points, 1e-12)
}

func TestParseRowsSkipsMalformedRows(t *testing.T) {
	html := `<table><thead><tr><th>Expiration</th><th>Bid</th><th>Ask</th><th>Mid</th><th>Points</th></tr></thead><tbody>
<tr><td>1 Month</td><td>N/A</td><td>17.17</td><td>17.16</td><td>1</td></tr>
<tr><td>2 Months</td><td>17.25</td><td>17.27</td><td>17.26</td><td>2</td></tr>
<tr><td>3 Months</td><td>17.35</td></tr>
<tr><td></td><td>17.45</td><td>17.47</td><td>17.46</td><td>4</td></tr>
<tr><td>6 Months</td><td>17.65</td><td>17.69</td><td>--</td><td>n/a</td></tr>
</tbody></table>`
	table, err := LocateHTML([]byte(html), []TableMatcher{ByHeaders{Required: []string{"bid", "ask"}}})
	require.NoError(t, err)

	res := ParseRows(table, fxempireLayout)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Points, 1)
	assert.Equal(t, "2 Months", res.Points[0].Tenor)

	require.Len(t, res.Dropped, 4)
	for _, d := range res.Dropped {
		assert.ErrorIs(t, d, ErrParse)
	}
	assert.Equal(t, 1, res.Dropped[0].Column)
	assert.Equal(t, "N/A", res.Dropped[0].Value)
	assert.Equal(t, -1, res.Dropped[1].Column)
	assert.Equal(t, 0, res.Dropped[2].Column)
	// A quoted but unparseable mid drops the row even though bid and ask parse.
	assert.Equal(t, 4, res.Dropped[3].Row)
	assert.Equal(t, 3, res.Dropped[3].Column)
	assert.Equal(t, "--", res.Dropped[3].Value)
}

func TestParseRowsBadMidIsNotAveraged(t *testing.T) {
	html := `<table><tr><th>Expiration</th><th>Bid</th><th>Ask</th><th>Mid</th><th>Points</th></tr>
<tr><td>6 Months</td><td>17.65</td><td>17.69</td><td>N/A</td><td>garbage</td></tr>
<tr><td>9 Months</td><td>17.85</td><td>17.89</td><td>17.87</td><td>garbage</td></tr>
</table>`
	table, err := LocateHTML([]byte(html), []TableMatcher{ByHeaders{Required: []string{"bid", "ask", "mid"}}})
	require.NoError(t, err)

	res := ParseRows(table, fxempireLayout)
	require.Len(t, res.Points, 1)
	assert.Equal(t, "9 Months", res.Points[0].Tenor)
	assert.InDelta(t, 17.87, res.Points[0].Mid, 1e-12)
	// An unparseable points cell only clears the optional field.
	assert.Nil(t, res.Points[0].Points)

	require.Len(t, res.Dropped, 1)
	assert.Equal(t, 0, res.Dropped[0].Row)
	assert.Equal(t, fxempireLayout.Mid, res.Dropped[0].Column)
	assert.Equal(t, "N/A", res.Dropped[0].Value)
}

func TestParseRowsMidOnlyLayout(t *testing.T) {
	html := `<table><tr><th>Tenor</th><th>Mid</th></tr><tr><td>1M</td><td>1.5</td></tr><tr><td>2M</td><td>x</td></tr></table>`
	table, err := LocateHTML([]byte(html), []TableMatcher{ByHeaders{Required: []string{"mid"}}})
	require.NoError(t, err)

	res := ParseRows(table, Layout{MinCells: 2, Tenor: 0, Bid: Absent, Ask: Absent, Mid: 1, Points: Absent})
	require.Len(t, res.Points, 1)
	assert.InDelta(t, 1.5, res.Points[0].Mid, 1e-12)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, 1, res.Dropped[0].Column)
	assert.Equal(t, "x", res.Dropped[0].Value)
}

func TestParseRowsNilTable(t *testing.T) {
	res := ParseRows(nil, fxempireLayout)
	assert.Empty(t, res.Points)
	assert.Zero(t, res.Total)
}

// --- Fetcher ---

func TestFetcherSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(multiTableHTML))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "fxforward-test/1.0"})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "forwards")
	assert.Equal(t, "fxforward-test/1.0", gotUA)
}

func TestFetcherDefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	_, err := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetcherNonSuccessStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var httpErr *ErrHTTP
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, 1, hits, "a failed fetch must not be retried")
}

func TestFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(FetcherConfig{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetcherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(FetcherConfig{Timeout: time.Second}).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrNetwork)
}
