package schedule

import (
	"fmt"
	"strings"
)

// StripBOM removes a leading UTF-8 byte-order mark, which Google Sheets
// prepends to CSV exports.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// ParseCSV tokenizes a full CSV document into rows of raw (untrimmed) cells.
//
// It is a single left-to-right scan with an inside-quotes flag rather than
// encoding/csv because the upstream sheet export is not guaranteed to be
// well-formed: unterminated quotes, ragged rows and a missing trailing
// newline must all tokenize instead of failing.
func ParseCSV(input string) [][]string {
	var (
		rows       [][]string
		currentRow []string
		field      strings.Builder
		inQuotes   bool
	)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if ch == '"' {
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				// Doubled-quote escape inside a quoted field.
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			continue
		}

		if !inQuotes && (ch == '\n' || ch == '\r') {
			if ch == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			currentRow = append(currentRow, field.String())
			rows = append(rows, currentRow)
			field.Reset()
			currentRow = nil
			continue
		}

		if !inQuotes && ch == ',' {
			currentRow = append(currentRow, field.String())
			field.Reset()
			continue
		}

		field.WriteRune(ch)
	}

	// Flush a pending field/row when the document lacks a trailing newline.
	if field.Len() > 0 || len(currentRow) > 0 {
		currentRow = append(currentRow, field.String())
		rows = append(rows, currentRow)
	}

	return rows
}

// HeaderKeys turns a raw header row into unique, stable field keys.
//
// Cells are trimmed and internal whitespace runs collapse to one space;
// empty cells become column_<n> (1-based). Duplicates after normalization
// get _2, _3, ... suffixes in order of appearance, the first occurrence
// keeping the bare name.
func HeaderKeys(headerRow []string) []string {
	seen := make(map[string]int, len(headerRow))
	keys := make([]string, len(headerRow))

	for i, header := range headerRow {
		base := strings.Join(strings.Fields(header), " ")
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}

		count := seen[base]
		seen[base] = count + 1
		if count == 0 {
			keys[i] = base
		} else {
			keys[i] = fmt.Sprintf("%s_%d", base, count+1)
		}
	}

	return keys
}

// RowsToObjects maps data rows onto the normalized header keys of the first
// row, trimming cell values. Rows whose cells are all empty are skipped.
func RowsToObjects(rows [][]string) []SheetRow {
	if len(rows) == 0 {
		return nil
	}

	keys := HeaderKeys(rows[0])
	out := make([]SheetRow, 0, len(rows)-1)

	for _, row := range rows[1:] {
		record := make(SheetRow, len(keys))
		hasContent := false
		for i, key := range keys {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			record[key] = value
			if value != "" {
				hasContent = true
			}
		}
		if hasContent {
			out = append(out, record)
		}
	}

	return out
}
