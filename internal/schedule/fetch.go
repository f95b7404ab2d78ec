package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"moinghub/internal/cache"
	appLog "moinghub/internal/log"
)

// FetchOptions control upstream caching for one fetch.
type FetchOptions struct {
	// Revalidate is the CSV body cache lifetime in seconds. Zero disables
	// the read-through cache for this call.
	Revalidate int

	// NoCache bypasses the cache entirely: the body is fetched fresh and
	// not stored.
	NoCache bool
}

// Fetcher drives the end-to-end pipeline: resolve the source URL, fetch the
// CSV, tokenize, and build events. It holds no per-request state; concurrent
// fetches are independent.
type Fetcher struct {
	client *resty.Client
	cache  *cache.Cache
}

// cachedBody is what the read-through cache stores per CSV URL.
type cachedBody struct {
	text        string
	status      int
	contentType string
}

// NewFetcher creates a Fetcher. store may be nil, which disables the
// read-through cache (every call fetches fresh).
func NewFetcher(store *cache.Cache) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(15 * time.Second).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
		cache: store,
	}
}

// Fetch resolves the schedule source, downloads the published CSV and
// normalizes it into a Feed. Fetch/resolve failures surface as *SourceError;
// a sheet that yields zero events is a valid empty feed, not an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Feed, error) {
	sourceInfo := ResolveSource(rawURL)
	if sourceInfo.CSVURL == "" {
		return nil, newSourceError("유효한 CSV URL을 결정할 수 없습니다.", 500, nil)
	}

	body, err := f.fetchCSV(ctx, sourceInfo.CSVURL, opts)
	if err != nil {
		return nil, err
	}

	return f.assembleFeed(sourceInfo, body.text), nil
}

// WarmCache refreshes the cached CSV body for the configured source,
// regardless of the current entry's freshness. Used by the background
// refresh loop.
func (f *Fetcher) WarmCache(ctx context.Context, rawURL string, revalidate int) error {
	sourceInfo := ResolveSource(rawURL)
	if sourceInfo.CSVURL == "" {
		return newSourceError("유효한 CSV URL을 결정할 수 없습니다.", 500, nil)
	}
	_, err := f.fetchFresh(ctx, sourceInfo.CSVURL, revalidate)
	return err
}

func (f *Fetcher) assembleFeed(sourceInfo SourceInfo, csvText string) *Feed {
	rawRows := ParseCSV(StripBOM(csvText))
	rows := RowsToObjects(rawRows)
	events := BuildEvents(rows, rawRows)

	info := sourceInfo
	return &Feed{
		Source:     FeedSource,
		CSVURL:     sourceInfo.CSVURL,
		FetchedAt:  time.Now().In(kst).Format(time.RFC3339),
		Events:     events,
		Rows:       rows,
		RawRows:    rawRows,
		SourceInfo: &info,
	}
}

// BuildEvents tries the flat-table builder first and falls back to the
// matrix-layout builder when it produces nothing. The two builders are
// independent pure functions over the same output type.
func BuildEvents(rows []SheetRow, rawRows [][]string) []Event {
	if events := EventsFromRows(rows); len(events) > 0 {
		return events
	}
	return EventsFromMatrix(rawRows)
}

func (f *Fetcher) cacheKey(csvURL string) string {
	return "schedule:csv:" + csvURL
}

// fetchCSV returns the CSV body, serving from the read-through cache when a
// fresh entry exists and the options allow it.
func (f *Fetcher) fetchCSV(ctx context.Context, csvURL string, opts FetchOptions) (cachedBody, error) {
	useCache := !opts.NoCache && opts.Revalidate > 0 && f.cache != nil
	if useCache {
		if v, ok := f.cache.Get(f.cacheKey(csvURL)); ok {
			body := v.(cachedBody)
			appLog.Debug("schedule csv cache hit", "url", csvURL, "bytes", len(body.text))
			return body, nil
		}
	}

	ttl := 0
	if useCache {
		ttl = opts.Revalidate
	}
	return f.fetchFresh(ctx, csvURL, ttl)
}

// fetchFresh performs one HTTP GET and, when ttl > 0, stores the body.
func (f *Fetcher) fetchFresh(ctx context.Context, csvURL string, ttl int) (cachedBody, error) {
	resp, err := f.client.R().SetContext(ctx).Get(csvURL)
	if err != nil {
		return cachedBody{}, newSourceError("Failed to reach the published CSV source.", 502, err)
	}
	if !resp.IsSuccess() {
		return cachedBody{}, newSourceError(
			fmt.Sprintf("Published CSV responded with %s.", resp.Status()),
			502, nil,
		)
	}

	body := cachedBody{
		text:        resp.String(),
		status:      resp.StatusCode(),
		contentType: resp.Header().Get("Content-Type"),
	}

	if ttl > 0 && f.cache != nil {
		f.cache.Set(f.cacheKey(csvURL), body, time.Duration(ttl)*time.Second)
	}

	appLog.Info("schedule csv fetched", "url", csvURL, "status", body.status, "bytes", len(body.text))
	return body, nil
}
