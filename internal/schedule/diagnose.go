package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	appLog "moinghub/internal/log"
)

// DiagnosticStep records one pipeline stage of a diagnostic run.
type DiagnosticStep struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Status     string         `json:"status"` // "ok" or "failed"
	StartedAt  string         `json:"startedAt"`
	FinishedAt string         `json:"finishedAt"`
	DurationMs int64          `json:"durationMs"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Diagnostics is the result of a step-by-step pipeline run. It is always
// returned, never an error: overall success is the OK flag, and steps
// recorded before a failure stay in the log.
type Diagnostics struct {
	RunID        string           `json:"runId"`
	OK           bool             `json:"ok"`
	Steps        []DiagnosticStep `json:"steps"`
	Feed         *Feed            `json:"feed,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	ErrorStatus  int              `json:"errorStatus,omitempty"`
}

// Diagnose runs the same pipeline as Fetch with each stage individually
// wrapped, recording timing, status and a small metadata summary per step.
func (f *Fetcher) Diagnose(ctx context.Context, rawURL string, opts FetchOptions) *Diagnostics {
	d := &Diagnostics{
		RunID: uuid.NewString(),
	}

	sourceInfo := ResolveSource(rawURL)
	effectiveURL := sourceInfo.CSVURL

	var (
		body    cachedBody
		rawRows [][]string
		rows    []SheetRow
		events  []Event
	)

	err := func() error {
		if err := d.runStep("resolve-source", "원본 URL 정규화", func() (map[string]any, error) {
			return map[string]any{
				"source":       sourceInfo.Source,
				"originUrl":    sourceInfo.OriginURL,
				"csvUrl":       sourceInfo.CSVURL,
				"sheetId":      sourceInfo.SheetID,
				"gid":          sourceInfo.GID,
				"wasConverted": sourceInfo.WasConverted,
				"notes":        sourceInfo.Notes,
			}, nil
		}); err != nil {
			return err
		}

		if err := d.runStep("parse-url", "CSV URL 구문 분석", func() (map[string]any, error) {
			parsed, err := url.Parse(effectiveURL)
			if err != nil {
				return nil, newSourceError("CSV URL을 해석할 수 없습니다.", 500, err)
			}
			return map[string]any{
				"host":     parsed.Host,
				"pathname": parsed.Path,
			}, nil
		}); err != nil {
			return err
		}

		if err := d.runStep("fetch-csv", "CSV 다운로드", func() (map[string]any, error) {
			useCache := !opts.NoCache && opts.Revalidate > 0 && f.cache != nil
			fromCache := false

			if useCache {
				if v, ok := f.cache.Get(f.cacheKey(effectiveURL)); ok {
					body = v.(cachedBody)
					body.text = StripBOM(body.text)
					fromCache = true
				}
			}
			if !fromCache {
				resp, err := f.client.R().SetContext(ctx).Get(effectiveURL)
				if err != nil {
					return nil, newSourceError("CSV 주소에 접근할 수 없습니다.", 502, err)
				}
				if !resp.IsSuccess() {
					// The diagnostic step carries the upstream's own status.
					return nil, newSourceError(
						fmt.Sprintf("CSV 응답이 실패했습니다. status=%d", resp.StatusCode()),
						resp.StatusCode(), nil,
					)
				}
				body = cachedBody{
					text:        StripBOM(resp.String()),
					status:      resp.StatusCode(),
					contentType: resp.Header().Get("Content-Type"),
				}
				if useCache {
					f.cache.Set(f.cacheKey(effectiveURL), body, time.Duration(opts.Revalidate)*time.Second)
				}
			}

			contentType := body.contentType
			if contentType == "" {
				contentType = "unknown"
			}
			return map[string]any{
				"status":      body.status,
				"contentType": contentType,
				"bytes":       len(body.text),
				"url":         effectiveURL,
				"cached":      fromCache,
			}, nil
		}); err != nil {
			return err
		}

		if err := d.runStep("parse-csv", "CSV 행 파싱", func() (map[string]any, error) {
			rawRows = ParseCSV(body.text)
			return map[string]any{
				"totalRows": len(rawRows),
				"sample":    sampleRows(rawRows, 3),
			}, nil
		}); err != nil {
			return err
		}

		if err := d.runStep("normalize-rows", "헤더 정규화", func() (map[string]any, error) {
			rows = RowsToObjects(rawRows)
			return map[string]any{
				"totalRecords": len(rows),
				"headerKeys":   headerKeysOf(rows),
			}, nil
		}); err != nil {
			return err
		}

		return d.runStep("build-events", "이벤트 생성", func() (map[string]any, error) {
			events = BuildEvents(rows, rawRows)
			return map[string]any{
				"totalEvents": len(events),
				"eventSample": sampleEvents(events, 3),
			}, nil
		})
	}()

	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			d.ErrorMessage = se.Message
			d.ErrorStatus = se.Status
		} else {
			d.ErrorMessage = err.Error()
		}
		appLog.Error("schedule diagnostics failed", err, "run_id", d.RunID)
		return d
	}

	d.OK = true
	d.Feed = &Feed{
		Source:     FeedSource,
		CSVURL:     effectiveURL,
		FetchedAt:  time.Now().In(kst).Format(time.RFC3339),
		Events:     events,
		Rows:       rows,
		RawRows:    rawRows,
		SourceInfo: &sourceInfo,
	}
	return d
}

// runStep executes one stage, appending its record to the step log. The
// returned error propagates so remaining stages are skipped, but the failed
// step (and all prior ones) stay recorded.
func (d *Diagnostics) runStep(id, label string, fn func() (map[string]any, error)) error {
	started := time.Now()
	step := DiagnosticStep{
		ID:        id,
		Label:     label,
		Status:    "ok",
		StartedAt: started.In(kst).Format(time.RFC3339),
	}

	metadata, err := fn()
	finished := time.Now()
	step.FinishedAt = finished.In(kst).Format(time.RFC3339)
	step.DurationMs = finished.Sub(started).Milliseconds()

	if err != nil {
		step.Status = "failed"
		step.Error = err.Error()
		var se *SourceError
		if errors.As(err, &se) {
			step.Error = se.Message
			step.Metadata = map[string]any{"status": se.Status}
			if se.Cause != nil {
				step.Metadata["cause"] = se.Cause.Error()
			}
		}
		d.Steps = append(d.Steps, step)
		return err
	}

	step.Metadata = metadata
	d.Steps = append(d.Steps, step)
	return nil
}

func sampleRows(rows [][]string, n int) [][]string {
	if len(rows) < n {
		n = len(rows)
	}
	return rows[:n]
}

type eventSample struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

func sampleEvents(events []Event, n int) []eventSample {
	if len(events) < n {
		n = len(events)
	}
	out := make([]eventSample, 0, n)
	for _, ev := range events[:n] {
		out = append(out, eventSample{Title: ev.Title, Start: ev.Start, End: ev.End})
	}
	return out
}

func headerKeysOf(rows []SheetRow) []string {
	if len(rows) == 0 {
		return []string{}
	}
	keys := make([]string, 0, len(rows[0]))
	for key := range rows[0] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
