package schedule

import "testing"

func TestEventFromRowEndToEnd(t *testing.T) {
	rawRows := ParseCSV("날짜,시작,제목\n2025-03-14,20:00,생일방송\n")
	rows := RowsToObjects(rawRows)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	events := EventsFromRows(rows)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}

	ev := events[0]
	if ev.Start != "2025-03-14T20:00:00+09:00" {
		t.Fatalf("start = %q", ev.Start)
	}
	if ev.Title != "생일방송" {
		t.Fatalf("title = %q", ev.Title)
	}
	if ev.End != "" {
		t.Fatalf("end = %q, want absent", ev.End)
	}
	if ev.Raw["제목"] != "생일방송" {
		t.Fatalf("raw audit trail missing: %v", ev.Raw)
	}
}

func TestEventFromRowFields(t *testing.T) {
	row := SheetRow{
		"날짜":  "2025-03-14",
		"시작":  "20:00",
		"종료":  "22:00",
		"제목":  "합방",
		"플랫폼": "치지직",
		"메모":  "게스트 있음",
	}

	ev, ok := EventFromRow(row, 0)
	if !ok {
		t.Fatalf("row did not produce an event")
	}
	if ev.End != "2025-03-14T22:00:00+09:00" {
		t.Fatalf("end = %q", ev.End)
	}
	if ev.Platform != PlatformChzzk {
		t.Fatalf("platform = %q, want %q", ev.Platform, PlatformChzzk)
	}
	if ev.Description != "게스트 있음" {
		t.Fatalf("description = %q", ev.Description)
	}
}

func TestEventFromRowPlatformNormalized(t *testing.T) {
	tests := []struct {
		cell string
		want string
	}{
		{"치지직", PlatformChzzk},
		{"유튜브", PlatformYouTube},
		{"Twitch 방송", PlatformTwitch},
		{"아프리카", ""},
	}

	for _, tt := range tests {
		row := SheetRow{"날짜": "2025-03-14", "제목": "방송", "플랫폼": tt.cell}
		ev, ok := EventFromRow(row, 0)
		if !ok {
			t.Fatalf("row with platform %q did not produce an event", tt.cell)
		}
		if ev.Platform != tt.want {
			t.Fatalf("platform cell %q -> %q, want %q", tt.cell, ev.Platform, tt.want)
		}
	}
}

func TestEventFromRowDropsUndatedRows(t *testing.T) {
	for _, row := range []SheetRow{
		{"제목": "공지만 있는 행"},
		{"날짜": "", "시작": "20:00"},
		{"날짜": "이번 주말쯤?", "제목": "미정"},
	} {
		if _, ok := EventFromRow(row, 0); ok {
			t.Fatalf("row %v produced an event", row)
		}
	}
}

func TestEventFromRowTitleFallback(t *testing.T) {
	ev, ok := EventFromRow(SheetRow{"날짜": "2025-03-14"}, 2)
	if !ok {
		t.Fatalf("row did not produce an event")
	}
	if ev.Title != "Event 3" {
		t.Fatalf("title = %q, want Event 3", ev.Title)
	}
	if ev.Start != "2025-03-14T00:00:00+09:00" {
		t.Fatalf("start = %q", ev.Start)
	}
}

func TestEventFromRowFuzzyHeaderLookup(t *testing.T) {
	row := SheetRow{
		"Date":       "2025-03-14",
		"Start Time": "21:30",
		"Title":      "Stream",
	}

	ev, ok := EventFromRow(row, 0)
	if !ok {
		t.Fatalf("fuzzy lookup failed to resolve the row")
	}
	if ev.Start != "2025-03-14T21:30:00+09:00" {
		t.Fatalf("start = %q", ev.Start)
	}
}

func TestEventFromRowEndEqualStartOmitted(t *testing.T) {
	row := SheetRow{"날짜": "2025-03-14", "시작": "20:00", "종료": "20:00"}
	ev, ok := EventFromRow(row, 0)
	if !ok {
		t.Fatalf("row did not produce an event")
	}
	if ev.End != "" {
		t.Fatalf("end equal to start not omitted: %q", ev.End)
	}
}

func TestParseDateTimeVariants(t *testing.T) {
	tests := []struct {
		date, time string
		want       string
	}{
		{"2025-03-14", "20:00", "2025-03-14T20:00:00+09:00"},
		{"2025.3.14", "오후 8시", "2025-03-14T20:00:00+09:00"},
		{"2025년 3월 14일", "오전 9시 30분", "2025-03-14T09:30:00+09:00"},
		{"2025/3/14", "", "2025-03-14T00:00:00+09:00"},
		{"2025-3-14", "8", "2025-03-14T08:00:00+09:00"},
	}

	for _, tt := range tests {
		got, ok := ParseDateTime(tt.date, tt.time)
		if !ok {
			t.Fatalf("ParseDateTime(%q, %q) failed", tt.date, tt.time)
		}
		if got != tt.want {
			t.Fatalf("ParseDateTime(%q, %q) = %q, want %q", tt.date, tt.time, got, tt.want)
		}
	}
}

func TestParseDateTimeInvalid(t *testing.T) {
	for _, tt := range []struct{ date, time string }{
		{"", "20:00"},
		{"언젠가", "20:00"},
		{"2025-13-40", "20:00"},
	} {
		if got, ok := ParseDateTime(tt.date, tt.time); ok {
			t.Fatalf("ParseDateTime(%q, %q) = %q, want failure", tt.date, tt.time, got)
		}
	}
}
