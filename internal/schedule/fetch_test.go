package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"moinghub/internal/cache"
)

const flatCSV = "날짜,시작,제목,플랫폼\n2025-03-14,20:00,생일방송,치지직\n2025-03-15,21:00,합방,유튜브\n"

func newCSVServer(t *testing.T, body string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFlatCSV(t *testing.T) {
	srv := newCSVServer(t, flatCSV, nil)
	f := NewFetcher(nil)

	feed, err := f.Fetch(context.Background(), srv.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if feed.Source != FeedSource {
		t.Errorf("source = %q", feed.Source)
	}
	if feed.CSVURL != srv.URL {
		t.Errorf("csvUrl = %q, want %q", feed.CSVURL, srv.URL)
	}
	if len(feed.Events) != 2 {
		t.Fatalf("events = %d, want 2: %+v", len(feed.Events), feed.Events)
	}
	if feed.Events[0].Start != "2025-03-14T20:00:00+09:00" {
		t.Errorf("start = %q", feed.Events[0].Start)
	}
	if feed.Events[1].Platform != PlatformYouTube {
		t.Errorf("platform = %q", feed.Events[1].Platform)
	}
	if len(feed.Rows) != 2 || len(feed.RawRows) != 3 {
		t.Errorf("rows = %d, rawRows = %d", len(feed.Rows), len(feed.RawRows))
	}
	if feed.SourceInfo == nil || feed.SourceInfo.Source != SourceEnv {
		t.Errorf("sourceInfo = %+v", feed.SourceInfo)
	}
}

func TestFetchStripsBOM(t *testing.T) {
	srv := newCSVServer(t, "\uFEFF"+flatCSV, nil)
	f := NewFetcher(nil)

	feed, err := f.Fetch(context.Background(), srv.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feed.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(feed.Events))
	}
	if feed.RawRows[0][0] != "날짜" {
		t.Errorf("first header = %q, want BOM removed", feed.RawRows[0][0])
	}
}

func TestFetchEmptyBodyIsEmptyFeed(t *testing.T) {
	srv := newCSVServer(t, "", nil)
	f := NewFetcher(nil)

	feed, err := f.Fetch(context.Background(), srv.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feed.Events) != 0 {
		t.Errorf("events = %d, want 0", len(feed.Events))
	}
}

func TestFetchUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), srv.URL, FetchOptions{})
	if err == nil {
		t.Fatal("expected error for 404 upstream")
	}
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Status != 502 {
		t.Errorf("status = %d, want 502", se.Status)
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), url, FetchOptions{})
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Status != 502 {
		t.Errorf("status = %d, want 502", se.Status)
	}
	if se.Cause == nil {
		t.Error("cause = nil, want transport error")
	}
}

func TestFetchRevalidateCaching(t *testing.T) {
	var hits atomic.Int64
	srv := newCSVServer(t, flatCSV, &hits)
	f := NewFetcher(cache.New())

	opts := FetchOptions{Revalidate: 600}
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL, opts); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestFetchNoCacheBypasses(t *testing.T) {
	var hits atomic.Int64
	srv := newCSVServer(t, flatCSV, &hits)
	f := NewFetcher(cache.New())

	if _, err := f.Fetch(context.Background(), srv.URL, FetchOptions{Revalidate: 600}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL, FetchOptions{Revalidate: 600, NoCache: true}); err != nil {
		t.Fatalf("Fetch no-cache: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2", hits.Load())
	}
}

func TestWarmCacheForcesRefresh(t *testing.T) {
	var hits atomic.Int64
	srv := newCSVServer(t, flatCSV, &hits)
	f := NewFetcher(cache.New())

	if _, err := f.Fetch(context.Background(), srv.URL, FetchOptions{Revalidate: 600}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := f.WarmCache(context.Background(), srv.URL, 600); err != nil {
		t.Fatalf("WarmCache: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2", hits.Load())
	}

	// The warmed entry serves the next read.
	if _, err := f.Fetch(context.Background(), srv.URL, FetchOptions{Revalidate: 600}); err != nil {
		t.Fatalf("Fetch after warm: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits after warm read = %d, want 2", hits.Load())
	}
}

func TestBuildEventsMatrixFallback(t *testing.T) {
	rawRows := [][]string{
		{"2025년 3월"},
		{"3/10", "3/11"},
		{"21:00 방송", "20:30 합방"},
	}
	rows := RowsToObjects(rawRows)

	events := BuildEvents(rows, rawRows)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2: %+v", len(events), events)
	}
	if events[0].Start != "2025-03-10T21:00:00+09:00" {
		t.Errorf("start = %q", events[0].Start)
	}
}

func TestDiagnoseSuccess(t *testing.T) {
	srv := newCSVServer(t, flatCSV, nil)
	f := NewFetcher(nil)

	d := f.Diagnose(context.Background(), srv.URL, FetchOptions{})
	if !d.OK {
		t.Fatalf("ok = false: %+v", d)
	}
	if d.RunID == "" {
		t.Error("runId empty")
	}
	wantSteps := []string{"resolve-source", "parse-url", "fetch-csv", "parse-csv", "normalize-rows", "build-events"}
	if len(d.Steps) != len(wantSteps) {
		t.Fatalf("steps = %d, want %d", len(d.Steps), len(wantSteps))
	}
	for i, step := range d.Steps {
		if step.ID != wantSteps[i] {
			t.Errorf("step[%d].id = %q, want %q", i, step.ID, wantSteps[i])
		}
		if step.Status != "ok" {
			t.Errorf("step[%d].status = %q", i, step.Status)
		}
	}
	if d.Feed == nil || len(d.Feed.Events) != 2 {
		t.Fatalf("feed = %+v", d.Feed)
	}
	if got := d.Steps[5].Metadata["totalEvents"]; got != 2 {
		t.Errorf("build-events totalEvents = %v", got)
	}
}

func TestDiagnoseServesCachedBody(t *testing.T) {
	var hits atomic.Int64
	srv := newCSVServer(t, flatCSV, &hits)
	f := NewFetcher(cache.New())

	opts := FetchOptions{Revalidate: 600}
	if _, err := f.Fetch(context.Background(), srv.URL, opts); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	d := f.Diagnose(context.Background(), srv.URL, opts)
	if !d.OK {
		t.Fatalf("diagnose failed: %+v", d)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached body reused)", hits.Load())
	}
	if got := d.Steps[2].Metadata["cached"]; got != true {
		t.Errorf("fetch-csv cached metadata = %v, want true", got)
	}

	// NoCache diagnostics always re-fetch.
	d = f.Diagnose(context.Background(), srv.URL, FetchOptions{Revalidate: 600, NoCache: true})
	if !d.OK {
		t.Fatalf("no-cache diagnose failed: %+v", d)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2 after no-cache run", hits.Load())
	}
}

func TestDiagnoseUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	d := f.Diagnose(context.Background(), srv.URL, FetchOptions{})

	if d.OK {
		t.Fatal("ok = true for failing upstream")
	}
	if len(d.Steps) != 3 {
		t.Fatalf("steps = %d, want 3 (stop at fetch-csv): %+v", len(d.Steps), d.Steps)
	}
	if d.Steps[0].Status != "ok" || d.Steps[1].Status != "ok" {
		t.Errorf("early steps should succeed: %+v", d.Steps[:2])
	}
	last := d.Steps[2]
	if last.ID != "fetch-csv" || last.Status != "failed" {
		t.Errorf("failed step = %+v", last)
	}
	if last.Metadata["status"] != 404 {
		t.Errorf("failed step status metadata = %v, want 404", last.Metadata["status"])
	}
	// Diagnostics report the upstream's own status, not a gateway mapping.
	if d.ErrorStatus != 404 {
		t.Errorf("errorStatus = %d, want 404", d.ErrorStatus)
	}
	if d.Feed != nil {
		t.Error("feed present on failed run")
	}
	if d.ErrorMessage == "" {
		t.Error("errorMessage empty")
	}
}
