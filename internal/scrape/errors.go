// Package scrape turns a forward-rates web page into forward-rate points.
// It fetches the page with a single timed GET, locates the quote table with
// an ordered list of TableMatcher strategies, and parses its rows while
// discarding the malformed ones.
package scrape

import (
	"errors"
	"fmt"
)

// --- Sentinel errors ---

// ErrNetwork covers non-success statuses, timeouts and connection failures.
var ErrNetwork = errors.New("network error")

// ErrTableNotFound is returned when no table satisfies any matcher.
var ErrTableNotFound = errors.New("forward rate table not found")

// ErrParse is wrapped by RowError.
var ErrParse = errors.New("row parse error")

// ErrHTTP wraps a non-success HTTP response.
type ErrHTTP struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.URL)
}

func (e *ErrHTTP) Unwrap() error { return ErrNetwork }

// RowError describes a table row that was dropped.
type RowError struct {
	Row    int    // zero-based body row index
	Column int    // offending cell, -1 when the row as a whole was rejected
	Value  string // offending cell text
	Reason string
}

func (e *RowError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d col %d (%q): %s", e.Row, e.Column, e.Value, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrParse }
