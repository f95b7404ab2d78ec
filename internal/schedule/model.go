// Package schedule ingests a broadcast schedule published as a Google Sheets
// CSV and normalizes it into calendar events.
//
// The sheet is a human-edited document with two known layouts: a flat table
// (one header row, one event per row) and a "matrix" calendar (date cells as
// column headers, free-text entries below). Both are handled defensively;
// rows that cannot produce a dated event are dropped, never errored.
package schedule

import "fmt"

// FeedSource identifies the feed format in API payloads.
const FeedSource = "google-sheets-csv"

// SheetRow maps a normalized header key to the trimmed cell value of one
// data row. Used only by the flat-table path.
type SheetRow map[string]string

// Event is the canonical normalized schedule entry.
//
// Start is always a KST timestamp with an explicit +09:00 offset; rows for
// which no date can be derived are excluded from the output entirely rather
// than emitted with an empty Start.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Description string `json:"description,omitempty"`

	// Raw preserves the original (or synthesized) field values the event
	// was derived from, for debugging and audit.
	Raw map[string]string `json:"raw,omitempty"`
}

// SourceType records where the effective CSV URL came from.
type SourceType string

const (
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// SourceInfo describes how the effective CSV URL was derived from the
// configured value, for diagnostics.
type SourceInfo struct {
	Source       SourceType `json:"source"`
	OriginURL    string     `json:"originUrl"`
	CSVURL       string     `json:"csvUrl"`
	SheetID      string     `json:"sheetId,omitempty"`
	GID          string     `json:"gid,omitempty"`
	WasConverted bool       `json:"wasConverted"`
	Notes        []string   `json:"notes"`
}

// Feed is the top-level response envelope. It is constructed fresh per
// fetch and never persisted.
type Feed struct {
	Source     string      `json:"source"`
	CSVURL     string      `json:"csvUrl"`
	FetchedAt  string      `json:"fetchedAt"`
	Events     []Event     `json:"events"`
	Rows       []SheetRow  `json:"rows"`
	RawRows    [][]string  `json:"rawRows"`
	SourceInfo *SourceInfo `json:"sourceInfo,omitempty"`
}

// SourceError is the classified pipeline error. Status is an HTTP status
// code recommendation for the transport layer: 502 for an unreachable or
// rejecting upstream, 500 for internal resolution failures.
type SourceError struct {
	Message string
	Status  int
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SourceError) Unwrap() error { return e.Cause }

func newSourceError(message string, status int, cause error) *SourceError {
	return &SourceError{Message: message, Status: status, Cause: cause}
}
