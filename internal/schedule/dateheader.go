package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnDate is a calendar date parsed out of a matrix header cell,
// associated with one spreadsheet column. It stays bound to the column until
// the next header row redefines it.
type ColumnDate struct {
	Label   string
	Year    int
	Month   int
	Day     int
	ISODate string
}

// DateContext threads year-rollover inference across consecutive header
// parses. The sheet is assumed chronologically ascending: when a bare M/D
// header's month drops below the last seen month, the year increments.
type DateContext struct {
	CurrentYear int
	LastMonth   int
}

var (
	// Cells matching these are labels, not dates ("Weekly", "TO DO").
	nonDateHeaderRe = regexp.MustCompile(`(?i)weekly|to\s*do`)

	// 'YY/M/D or YYYY/M/D with an optional leading quote mark.
	explicitDateRe = regexp.MustCompile(`^['’` + "`" + `]?([0-9]{2,4})\s*/\s*([0-9]{1,2})\s*/\s*([0-9]{1,2})`)

	// Bare M/D.
	bareDateRe = regexp.MustCompile(`([0-9]{1,2})\s*/\s*([0-9]{1,2})`)

	// Base-year literals scanned ahead of matrix processing.
	yearLiteralRe      = regexp.MustCompile(`(20\d{2})\s*년`)
	shortYearLiteralRe = regexp.MustCompile(`'\s*(\d{2})\s*/\s*\d{1,2}\s*/\s*\d{1,2}`)
)

// ParseDateHeaderRow tests whether a row is a matrix date-header row: at
// least two cells must parse as dates. On success it returns the per-column
// dates (nil for non-date columns) and the advanced context.
//
// The two-cell threshold keeps ordinary content rows that happen to contain
// one date-like fragment from being misread as headers.
func ParseDateHeaderRow(row []string, ctx DateContext) ([]*ColumnDate, DateContext, bool) {
	columnDates := make([]*ColumnDate, len(row))
	headerCount := 0
	working := ctx

	for i, cell := range row {
		date, next, ok := parseDateHeaderCell(cell, working)
		if ok {
			columnDates[i] = date
			working = next
			headerCount++
		}
	}

	if headerCount >= 2 {
		return columnDates, working, true
	}
	return nil, ctx, false
}

func parseDateHeaderCell(cell string, ctx DateContext) (*ColumnDate, DateContext, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil, ctx, false
	}
	if nonDateHeaderRe.MatchString(trimmed) {
		return nil, ctx, false
	}

	year := ctx.CurrentYear
	var month, day int

	if m := explicitDateRe.FindStringSubmatch(trimmed); m != nil {
		rawYear, _ := strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		if rawYear >= 100 {
			year = rawYear
		} else {
			year = 2000 + rawYear
		}
	} else {
		m := bareDateRe.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, ctx, false
		}
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		if ctx.LastMonth > 0 && month < ctx.LastMonth {
			year = ctx.CurrentYear + 1
		}
	}

	if month == 0 || day == 0 {
		return nil, ctx, false
	}

	date := &ColumnDate{
		Label:   trimmed,
		Year:    year,
		Month:   month,
		Day:     day,
		ISODate: FormatDate(year, month, day),
	}
	return date, DateContext{CurrentYear: year, LastMonth: month}, true
}

// InferBaseYear scans the whole sheet for an explicit year literal
// ("2025년" or "'25/3/10") to seed the matrix date context before
// processing; ok is false when no literal appears anywhere.
func InferBaseYear(rows [][]string) (int, bool) {
	for _, row := range rows {
		for _, cell := range row {
			trimmed := strings.TrimSpace(cell)
			if trimmed == "" {
				continue
			}
			if m := yearLiteralRe.FindStringSubmatch(trimmed); m != nil {
				year, _ := strconv.Atoi(m[1])
				return year, true
			}
			if m := shortYearLiteralRe.FindStringSubmatch(trimmed); m != nil {
				short, _ := strconv.Atoi(m[1])
				return 2000 + short, true
			}
		}
	}
	return 0, false
}
