package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// matrixState carries the scan state of the matrix-layout builder across
// rows: the per-column date assignment from the last header row, the
// year-rollover context, and the pending multi-line cell buffers. It is
// threaded explicitly so single-row transitions stay testable.
type matrixState struct {
	context     DateContext
	columnDates []*ColumnDate
	pending     map[int][]string
	events      []Event
}

func newMatrixState(baseYear int) *matrixState {
	return &matrixState{
		context: DateContext{CurrentYear: baseYear},
		pending: make(map[int][]string),
	}
}

// EventsFromMatrix builds events from a calendar-style sheet where date
// cells head each column and the cells below hold free-text entries. Used
// when the flat-table path yields nothing.
func EventsFromMatrix(rows [][]string) []Event {
	if len(rows) == 0 {
		return nil
	}

	baseYear, ok := InferBaseYear(rows)
	if !ok {
		baseYear = time.Now().In(kst).Year()
	}

	state := newMatrixState(baseYear)
	for _, row := range rows {
		state.consumeRow(row)
	}
	state.flushAll()

	return state.events
}

// consumeRow advances the state machine by one raw row.
func (s *matrixState) consumeRow(row []string) {
	trimmed := make([]string, len(row))
	for i, cell := range row {
		trimmed[i] = strings.TrimSpace(cell)
	}

	// A date-header row closes every open buffer and rebinds the columns.
	if columnDates, ctx, ok := ParseDateHeaderRow(trimmed, s.context); ok {
		s.flushAll()
		s.columnDates = columnDates
		s.context = ctx
		return
	}

	// A fully blank row is a day/event separator.
	blank := true
	for _, cell := range trimmed {
		if cell != "" {
			blank = false
			break
		}
	}
	if blank {
		s.flushAll()
		return
	}

	for col, cell := range trimmed {
		if col >= len(s.columnDates) || s.columnDates[col] == nil {
			continue
		}
		if cell != "" {
			s.pending[col] = append(s.pending[col], cell)
		} else if _, open := s.pending[col]; open {
			s.flushColumn(col)
		}
	}
}

// flushColumn completes one column's buffered lines into an event.
func (s *matrixState) flushColumn(col int) {
	lines := s.pending[col]
	delete(s.pending, col)

	if col >= len(s.columnDates) || s.columnDates[col] == nil {
		return
	}

	sanitized := make([]string, 0, len(lines))
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" {
			sanitized = append(sanitized, t)
		}
	}
	if len(sanitized) == 0 {
		return
	}

	if ev, ok := eventFromLines(s.columnDates[col], sanitized, len(s.events)); ok {
		s.events = append(s.events, ev)
	}
}

// flushAll closes every open buffer in ascending column order.
func (s *matrixState) flushAll() {
	cols := make([]int, 0, len(s.pending))
	for col := range s.pending {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	for _, col := range cols {
		s.flushColumn(col)
	}
}

// eventFromLines assembles one event from a column's accumulated lines. The
// first time-bearing line supplies the time range; its remainder and the
// other lines form the title/description pool. Without any time the event
// starts at 00:00.
func eventFromLines(date *ColumnDate, lines []string, index int) (Event, bool) {
	if len(lines) == 0 {
		return Event{}, false
	}

	tr, details := extractTimeFromLines(lines)

	cleaned := make([]string, 0, len(details))
	for _, line := range details {
		if t := strings.TrimSpace(line); t != "" {
			cleaned = append(cleaned, t)
		}
	}

	title := date.Label + " 방송"
	if len(cleaned) > 0 {
		title = cleaned[0]
	}
	description := ""
	if len(cleaned) > 1 {
		description = strings.TrimSpace(strings.Join(cleaned[1:], "\n"))
	}
	platform := DetectPlatform(strings.Join(cleaned, " "))

	startISO := FormatDate(date.Year, date.Month, date.Day)
	if tr != nil {
		startISO = FormatDateTime(date.Year, date.Month, date.Day, tr.StartHour, tr.StartMinute)
	}
	endISO := ""
	if tr != nil && tr.HasEnd {
		endISO = FormatDateTime(date.Year, date.Month, date.Day, tr.EndHour, tr.EndMinute)
	}

	raw := map[string]string{"date": date.ISODate}
	for i, value := range cleaned {
		raw[fmt.Sprintf("detail_%d", i+1)] = value
	}
	if tr != nil {
		raw["time"] = fmt.Sprintf("%02d:%02d", tr.StartHour, tr.StartMinute)
		if tr.HasEnd {
			raw["timeRange"] = fmt.Sprintf("%02d:%02d~%02d:%02d", tr.StartHour, tr.StartMinute, tr.EndHour, tr.EndMinute)
		}
	}

	event := Event{
		ID:    EventID(startISO, title, index),
		Title: title,
		Start: startISO,
		Raw:   raw,
	}
	if endISO != "" && endISO != startISO {
		event.End = endISO
	}
	if platform != "" {
		event.Platform = platform
	}
	if description != "" {
		event.Description = description
	}

	return event, true
}

// extractTimeFromLines scans lines in order for the first one carrying time
// data; failing that it retries against the joined text. Lines that did not
// supply the time are returned as detail text, remainder first.
func extractTimeFromLines(lines []string) (*TimeRange, []string) {
	for i, line := range lines {
		tr, remainder := ExtractTime(line)
		if tr == nil {
			continue
		}
		details := make([]string, 0, len(lines))
		if remainder != "" {
			details = append(details, remainder)
		}
		for j, other := range lines {
			if j != i {
				details = append(details, other)
			}
		}
		return tr, details
	}

	combined := strings.Join(lines, " ")
	if tr, remainder := ExtractTime(combined); tr != nil {
		if remainder != "" {
			return tr, []string{remainder}
		}
		return tr, nil
	}

	return nil, lines
}
