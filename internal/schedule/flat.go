package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Header-name synonyms recognized per semantic field, in priority order.
var (
	dateKeys        = []string{"date", "날짜"}
	startKeys       = []string{"start", "starttime", "시작", "시간"}
	endKeys         = []string{"end", "endtime", "종료", "끝"}
	titleKeys       = []string{"title", "제목", "방송명", "event"}
	descriptionKeys = []string{"description", "설명", "비고", "메모"}
	platformKeys    = []string{"platform", "플랫폼", "채널", "service"}
)

// EventsFromRows builds events from flat-table rows, one event per row at
// most. Rows lacking a derivable date are dropped; that is the expected
// shape of separator and note rows in a human-maintained sheet.
func EventsFromRows(rows []SheetRow) []Event {
	events := make([]Event, 0, len(rows))
	for i, row := range rows {
		if ev, ok := EventFromRow(row, i); ok {
			events = append(events, ev)
		}
	}
	return events
}

// EventFromRow derives zero or one event from a flat-table row using
// tolerant fuzzy header lookup.
func EventFromRow(row SheetRow, index int) (Event, bool) {
	lookup := buildLookup(row)

	dateValue := pickValue(row, lookup, dateKeys)
	startTime := pickValue(row, lookup, startKeys)
	endTime := pickValue(row, lookup, endKeys)
	title := pickValue(row, lookup, titleKeys)
	if title == "" {
		title = fmt.Sprintf("Event %d", index+1)
	}
	description := pickValue(row, lookup, descriptionKeys)
	platform := pickValue(row, lookup, platformKeys)

	startISO, ok := ParseDateTime(dateValue, startTime)
	if !ok {
		return Event{}, false
	}

	event := Event{
		ID:    EventID(startISO, title, index),
		Title: title,
		Start: startISO,
		Raw:   map[string]string(row),
	}

	if endTime != "" {
		if endISO, ok := ParseDateTime(dateValue, endTime); ok && endISO != startISO {
			event.End = endISO
		}
	}
	if detected := DetectPlatform(platform); detected != "" {
		event.Platform = detected
	}
	if description != "" {
		event.Description = description
	}

	return event, true
}

var fuzzyKeyStripRe = regexp.MustCompile(`[^a-z0-9가-힣]`)

// normalizeKey folds a header key for fuzzy comparison: lowercase, with
// whitespace and punctuation removed.
func normalizeKey(input string) string {
	return fuzzyKeyStripRe.ReplaceAllString(strings.ToLower(input), "")
}

// buildLookup indexes the row's non-empty values by normalized key. Keys are
// visited in sorted order so that collisions resolve deterministically.
func buildLookup(row SheetRow) map[string]string {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lookup := make(map[string]string, len(row))
	for _, key := range keys {
		value := strings.TrimSpace(row[key])
		if value == "" {
			continue
		}
		normalized := normalizeKey(key)
		if _, exists := lookup[normalized]; !exists {
			lookup[normalized] = value
		}
	}
	return lookup
}

// pickValue searches the row for the first candidate header name that
// resolves, trying exact keys first and the fuzzy lookup as fallback.
func pickValue(row SheetRow, lookup map[string]string, candidates []string) string {
	for _, candidate := range candidates {
		if direct := strings.TrimSpace(row[candidate]); direct != "" {
			return direct
		}
		if fuzzy := strings.TrimSpace(lookup[normalizeKey(candidate)]); fuzzy != "" {
			return fuzzy
		}
	}
	return ""
}

// ParseDateTime combines a date cell and an optional time cell into a KST
// timestamp. Both values are normalized from their Korean/dotted forms and
// tried in a small set of layout variants; the first that parses wins. Source
// cell formats are not schema-enforced, hence the tolerance.
func ParseDateTime(dateValue, timeValue string) (string, bool) {
	if strings.TrimSpace(dateValue) == "" {
		return "", false
	}

	normalizedDate := normalizeDateValue(dateValue)
	if normalizedDate == "" {
		return "", false
	}
	normalizedTime := normalizeTimeValue(timeValue)

	var variants []string
	if normalizedTime != "" {
		variants = []string{
			normalizedDate + " " + normalizedTime,
			normalizedDate + "T" + normalizedTime,
		}
	} else {
		variants = []string{
			normalizedDate,
			normalizedDate + "T00:00:00",
		}
	}

	for _, variant := range variants {
		if t, ok := parseKSTVariant(variant); ok {
			return t.Format(time.RFC3339), true
		}
	}
	return "", false
}

var (
	dateKoreanReplacer = strings.NewReplacer("년", "-", "/", "-", "월", "-", "일", "")
	dotsRe             = regexp.MustCompile(`\.+`)
	spacesRe           = regexp.MustCompile(`\s+`)
	dashRunsRe         = regexp.MustCompile(`-{2,}`)
)

// normalizeDateValue maps Korean date separators (년/월/일), slashes and
// dots onto dashes: "2025년 3월 14일" and "2025.3.14" both become "2025-3-14".
func normalizeDateValue(value string) string {
	s := dateKoreanReplacer.Replace(strings.TrimSpace(value))
	s = dotsRe.ReplaceAllString(s, "-")
	s = spacesRe.ReplaceAllString(s, "-")
	s = dashRunsRe.ReplaceAllString(s, "-")
	return strings.TrimSuffix(s, "-")
}

var timeFragmentRe = regexp.MustCompile(`^(?:(AM|PM)\s*)?(\d{1,2})(?::\s*(\d{1,2}))?`)

// normalizeTimeValue canonicalizes a time cell to HH:MM:SS. Korean markers
// map to their Latin equivalents first (오전→AM, 오후→PM, 시→':', 분
// removed), then the hour/minute fragment is extracted and the meridiem
// applied.
func normalizeTimeValue(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "오전", "AM ")
	s = strings.ReplaceAll(s, "오후", "PM ")
	s = strings.ReplaceAll(s, "시", ":")
	s = strings.ReplaceAll(s, "분", "")
	s = spacesRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	m := timeFragmentRe.FindStringSubmatch(s)
	if m == nil {
		// A trailing "AM 8" style cell: retry with the marker moved past.
		if idx := strings.IndexAny(s, "0123456789"); idx > 0 {
			m = timeFragmentRe.FindStringSubmatch(s[idx:])
			if m != nil {
				m[1] = meridiemMarker(s[:idx])
			}
		}
		if m == nil {
			return ""
		}
	}

	hour, _ := strconv.Atoi(m[2])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	hour, minute = applyMeridiem(hour, minute, m[1])

	return fmt.Sprintf("%02d:%02d:00", hour, minute)
}

func meridiemMarker(s string) string {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "PM"):
		return "PM"
	case strings.Contains(upper, "AM"):
		return "AM"
	default:
		return ""
	}
}

var kstLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2T15:04:05",
	"2006-1-2 15:04",
	"2006-1-2T15:04",
	"2006-1-2",
}

func parseKSTVariant(variant string) (time.Time, bool) {
	for _, layout := range kstLayouts {
		if t, err := time.ParseInLocation(layout, variant, kst); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
