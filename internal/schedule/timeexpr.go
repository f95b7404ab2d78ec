package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

// TimeRange is a time-of-day or start/end range extracted from free text.
type TimeRange struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	HasEnd      bool
}

// timeRangeRe matches expressions like "오후 3시", "21:00", "8시 30분",
// "20:00~22:00", "PM 8 - 10". An optional meridiem marker may precede each
// side; minutes may be separated by ':' or '시' and carry a trailing '분';
// ranges use '-', '~' or '–'. The end side's meridiem defaults to the
// start's when omitted, so "11시~1시" reads as 11:00-13:00 rather than an
// overnight range.
var timeRangeRe = regexp.MustCompile(
	`(?:(오전|오후|AM|PM)\s*)?(\d{1,2})(?:[:시]\s*(\d{1,2}))?\s*(?:분)?\s*(?:[-~–]\s*(?:(오전|오후|AM|PM)\s*)?(\d{1,2})(?:[:시]\s*(\d{1,2}))?\s*(?:분)?)?`,
)

// ExtractTime parses the first time expression found in input. It returns
// the time data (nil when input carries none) and the unmatched remainder,
// trimmed, for downstream title/description assembly.
func ExtractTime(input string) (*TimeRange, string) {
	loc := timeRangeRe.FindStringSubmatchIndex(input)
	if loc == nil {
		return nil, strings.TrimSpace(input)
	}

	group := func(n int) string {
		start, end := loc[2*n], loc[2*n+1]
		if start < 0 {
			return ""
		}
		return input[start:end]
	}

	startMeridiem := group(1)
	startHour, _ := strconv.Atoi(group(2))
	startMinute := 0
	if m := group(3); m != "" {
		startMinute, _ = strconv.Atoi(m)
	}
	startHour, startMinute = applyMeridiem(startHour, startMinute, startMeridiem)

	tr := &TimeRange{
		StartHour:   startHour,
		StartMinute: startMinute,
	}

	if endRaw := group(5); endRaw != "" {
		endHour, _ := strconv.Atoi(endRaw)
		endMinute := 0
		if m := group(6); m != "" {
			endMinute, _ = strconv.Atoi(m)
		}
		endMeridiem := group(4)
		if endMeridiem == "" {
			endMeridiem = startMeridiem
		}
		tr.EndHour, tr.EndMinute = applyMeridiem(endHour, endMinute, endMeridiem)
		tr.HasEnd = true
	}

	remainder := strings.TrimSpace(input[:loc[0]] + input[loc[1]:])
	return tr, remainder
}

// applyMeridiem normalizes a 12-hour clock value. PM/오후 adds 12 to the
// hour's 1-12 form; AM/오전 maps 12 to 0; no marker leaves the hour as
// given, modulo 24.
func applyMeridiem(hour, minute int, meridiem string) (int, int) {
	if meridiem == "" {
		return hour % 24, minute
	}

	marker := strings.ToLower(meridiem)
	isPM := strings.Contains(marker, "pm") || strings.Contains(marker, "오후")
	isAM := strings.Contains(marker, "am") || strings.Contains(marker, "오전")

	adjusted := hour % 12
	if isPM {
		adjusted += 12
	}
	if isAM && adjusted == 12 {
		adjusted = 0
	}
	return adjusted, minute
}
