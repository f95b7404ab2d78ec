package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moinghub/internal/cache"
	"moinghub/internal/config"
	"moinghub/internal/live"
	"moinghub/internal/schedule"
)

const flatCSV = "날짜,시작,제목,플랫폼\n2025-03-14,20:00,생일방송,치지직\n"

func newScheduleServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream error", status)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, csvURL string) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Schedule.CSVURL = csvURL
	return NewServer(cfg, schedule.NewFetcher(nil), nil, nil)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "http://example.invalid/unused")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestScheduleEndpoint(t *testing.T) {
	upstream := newScheduleServer(t, flatCSV, http.StatusOK)
	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.HasPrefix(cc, "s-maxage=") {
		t.Errorf("cache-control = %q", cc)
	}

	var feed schedule.Feed
	if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if feed.Source != schedule.FeedSource {
		t.Errorf("source = %q", feed.Source)
	}
	if len(feed.Events) != 1 || feed.Events[0].Title != "생일방송" {
		t.Errorf("events = %+v", feed.Events)
	}
}

func TestScheduleDebugEnvelope(t *testing.T) {
	upstream := newScheduleServer(t, flatCSV, http.StatusOK)
	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule?debug=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("cache-control = %q", cc)
	}

	var envelope struct {
		Diagnostics *schedule.Diagnostics `json:"diagnostics"`
		Feed        *schedule.Feed        `json:"feed"`
		Hint        string                `json:"hint"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Diagnostics == nil || !envelope.Diagnostics.OK {
		t.Fatalf("diagnostics = %+v", envelope.Diagnostics)
	}
	if len(envelope.Diagnostics.Steps) != 6 {
		t.Errorf("steps = %d", len(envelope.Diagnostics.Steps))
	}
	if envelope.Feed == nil || len(envelope.Feed.Events) != 1 {
		t.Errorf("feed = %+v", envelope.Feed)
	}
	if envelope.Hint != "" {
		t.Errorf("hint = %q, want empty with configured URL", envelope.Hint)
	}
}

func TestScheduleDebugHintWithoutURL(t *testing.T) {
	// 설정된 URL이 없으면 기본 시트 폴백 안내가 포함된다. 기본 시트에는
	// 네트워크로 접근하지 못하므로 진단 실패를 함께 확인한다.
	s := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule?diagnostics=1", nil))

	var envelope struct {
		Hint string `json:"hint"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Hint == "" {
		t.Error("hint missing for default-sheet fallback")
	}
}

func TestScheduleUpstreamFailure(t *testing.T) {
	upstream := newScheduleServer(t, "", http.StatusNotFound)
	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var envelope struct {
		Error       string                `json:"error"`
		Diagnostics *schedule.Diagnostics `json:"diagnostics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Error == "" {
		t.Error("error message missing")
	}
	if envelope.Diagnostics == nil || envelope.Diagnostics.OK {
		t.Errorf("diagnostics = %+v", envelope.Diagnostics)
	}
	if envelope.Diagnostics.ErrorStatus != http.StatusNotFound {
		t.Errorf("diagnostics errorStatus = %d, want upstream 404", envelope.Diagnostics.ErrorStatus)
	}
}

func TestScheduleICS(t *testing.T) {
	upstream := newScheduleServer(t, flatCSV, http.StatusOK)
	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule.ics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content-type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "BEGIN:VEVENT") {
		t.Errorf("body = %q", body)
	}
}

func TestLiveEndpointDegraded(t *testing.T) {
	chzzk := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer chzzk.Close()

	liveClient := live.NewClient("ch1", cache.New())
	liveClient.SetBaseURL(chzzk.URL)

	cfg := config.DefaultConfig()
	s := NewServer(cfg, schedule.NewFetcher(nil), liveClient, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var status live.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.IsLive || status.Error == "" {
		t.Errorf("status = %+v", status)
	}
}

func TestLiveEndpointAbsentWithoutClient(t *testing.T) {
	s := newTestServer(t, "http://example.invalid/unused")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
