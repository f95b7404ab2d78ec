package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"moinghub/internal/config"
	"moinghub/internal/icalfeed"
	"moinghub/internal/live"
	appLog "moinghub/internal/log"
	"moinghub/internal/schedule"
	"moinghub/internal/video"
)

// Server provides the HTTP API: the normalized broadcast schedule (JSON and
// iCalendar), the Chzzk live status, and the latest YouTube uploads.
type Server struct {
	cfg     *config.Config
	fetcher *schedule.Fetcher
	live    *live.Client
	video   *video.Client
	router  *mux.Router
}

// NewServer constructs a Server over the given clients. live and video may
// be nil; their endpoints then answer 404.
func NewServer(cfg *config.Config, fetcher *schedule.Fetcher, liveClient *live.Client, videoClient *video.Client) *Server {
	s := &Server{
		cfg:     cfg,
		fetcher: fetcher,
		live:    liveClient,
		video:   videoClient,
		router:  mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routing handler wrapped with request logging and
// panic recovery.
func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(s.router)
	return handlers.CombinedLoggingHandler(os.Stdout, h)
}

// recoveryLogger adapts the panic recovery middleware to the app logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	appLog.Error("http handler panicked", fmt.Errorf("%v", v))
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/schedule", s.handleSchedule).Methods(http.MethodGet)
	s.router.HandleFunc("/api/schedule.ics", s.handleScheduleICS).Methods(http.MethodGet)
	if s.live != nil {
		s.router.HandleFunc("/api/live", s.handleLive).Methods(http.MethodGet)
	}
	if s.video != nil {
		s.router.HandleFunc("/api/videos", s.handleVideos).Methods(http.MethodGet)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// debugEnvelope is the response shape for ?debug=1 / ?diagnostics=1.
type debugEnvelope struct {
	Diagnostics *schedule.Diagnostics `json:"diagnostics"`
	Feed        *schedule.Feed        `json:"feed"`
	Hint        string                `json:"hint,omitempty"`
}

// errorEnvelope is returned when the normal fetch path fails; it carries a
// fresh diagnostic run so the failure stage is visible without a second
// request.
type errorEnvelope struct {
	Error       string                `json:"error"`
	Diagnostics *schedule.Diagnostics `json:"diagnostics"`
}

// handleSchedule serves the normalized feed.
//
// GET /api/schedule
//   - ?debug=1 또는 ?diagnostics=1 이면 단계별 진단 결과를 함께 반환한다.
//
// 정상 응답은 CSV 재검증 주기만큼 캐시 가능하고, 디버그 응답은 no-store.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	debugMode := q.Get("debug") == "1" || q.Get("diagnostics") == "1"

	csvURL := s.cfg.Schedule.CSVURL
	opts := schedule.FetchOptions{Revalidate: s.cfg.Schedule.RevalidateSeconds}

	if debugMode {
		diagnostics := s.fetcher.Diagnose(ctx, csvURL, opts)
		status := http.StatusOK
		if !diagnostics.OK {
			status = diagnostics.ErrorStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
		}

		envelope := debugEnvelope{
			Diagnostics: diagnostics,
			Feed:        diagnostics.Feed,
		}
		if csvURL == "" {
			envelope.Hint = "스케줄 CSV URL이 비어 있어 기본 구글 시트를 사용했습니다. 다른 시트를 사용하려면 설정 파일이나 환경 변수를 지정하세요."
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, status, envelope)
		return
	}

	feed, err := s.fetcher.Fetch(ctx, csvURL, opts)
	if err != nil {
		appLog.Error("schedule fetch failed", err)
		status := http.StatusInternalServerError
		message := "Failed to load broadcast schedule."
		var se *schedule.SourceError
		if errors.As(err, &se) {
			status = se.Status
			message = se.Message
		}
		// 실패 시에는 진단을 한 번 더 돌려 어느 단계가 죽었는지 같이 내려준다.
		diagnostics := s.fetcher.Diagnose(ctx, csvURL, schedule.FetchOptions{
			Revalidate: opts.Revalidate,
			NoCache:    true,
		})
		writeJSON(w, status, errorEnvelope{Error: message, Diagnostics: diagnostics})
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d", s.cfg.Schedule.RevalidateSeconds))
	writeJSON(w, http.StatusOK, feed)
}

// handleScheduleICS serves the same feed as an iCalendar document for
// calendar subscriptions.
func (s *Server) handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	feed, err := s.fetcher.Fetch(r.Context(), s.cfg.Schedule.CSVURL, schedule.FetchOptions{
		Revalidate: s.cfg.Schedule.RevalidateSeconds,
	})
	if err != nil {
		appLog.Error("schedule fetch failed for ics", err)
		status := http.StatusInternalServerError
		var se *schedule.SourceError
		if errors.As(err, &se) {
			status = se.Status
		}
		writeError(w, status, "failed to load broadcast schedule")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d", s.cfg.Schedule.RevalidateSeconds))
	_, _ = w.Write([]byte(icalfeed.Render(feed)))
}

// handleLive serves the current Chzzk live status. A degraded snapshot
// (upstream unreachable) still carries a body but answers 503.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	status := s.live.Fetch(r.Context())
	code := http.StatusOK
	if status.Error != "" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, code, status)
}

// handleVideos serves the latest uploads per configured channel handle.
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if !s.video.Configured() {
		writeError(w, http.StatusInternalServerError, "YouTube API 키가 설정되어 있지 않습니다.")
		return
	}
	result := s.video.LatestByHandle(r.Context(), s.cfg.YouTube.Handles)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
