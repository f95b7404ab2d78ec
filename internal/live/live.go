// Package live checks whether the channel is currently broadcasting on
// Chzzk via the public live-detail endpoint.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"moinghub/internal/cache"
	appLog "moinghub/internal/log"
)

const (
	defaultBaseURL = "https://api.chzzk.naver.com"
	channelBaseURL = "https://chzzk.naver.com"

	// 일부 업스트림 보호는 UA 없는 요청을 403으로 거절한다.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Live state changes quickly, so the cached answer stays short-lived.
	statusTTL = 30 * time.Second

	cacheKey = "live:status"
)

// liveDetailResponse mirrors the Chzzk live-detail payload. Only the fields
// we surface are declared.
type liveDetailResponse struct {
	Content struct {
		Status                   string `json:"status"`
		LiveID                   string `json:"liveId"`
		LiveTitle                string `json:"liveTitle"`
		DefaultThumbnailImageURL string `json:"defaultThumbnailImageUrl"`
		ConcurrentUserCount      *int   `json:"concurrentUserCount"`
		AccumulateCount          *int   `json:"accumulateCount"`
		OpenDate                 string `json:"openDate"`
	} `json:"content"`
}

// Status is the API-facing live snapshot. Error is set (and IsLive forced
// false) when the upstream could not be reached; callers map that to a
// degraded response rather than a failure.
type Status struct {
	ChannelID    string  `json:"channelId"`
	ChannelURL   string  `json:"channelUrl"`
	IsLive       bool    `json:"isLive"`
	Status       string  `json:"status"`
	Title        *string `json:"title"`
	StartedAt    *string `json:"startedAt"`
	Thumbnail    *string `json:"thumbnail"`
	LiveID       *string `json:"liveId"`
	Viewers      *int    `json:"viewers"`
	TotalViewers *int    `json:"totalViewers"`
	Error        string  `json:"error,omitempty"`
}

// Client queries the Chzzk live-detail API for one channel.
type Client struct {
	client    *resty.Client
	cache     *cache.Cache
	channelID string
	baseURL   string
}

// NewClient creates a live-status client. store may be nil to disable
// caching.
func NewClient(channelID string, store *cache.Cache) *Client {
	return &Client{
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", browserUserAgent),
		cache:     store,
		channelID: channelID,
		baseURL:   defaultBaseURL,
	}
}

// SetBaseURL overrides the Chzzk API origin. Tests point this at a local
// server.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Fetch returns the current live status. It never returns an error: an
// unreachable upstream degrades to a not-live snapshot carrying an Error
// marker.
func (c *Client) Fetch(ctx context.Context) *Status {
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v.(*Status)
		}
	}

	status := c.fetchFresh(ctx)
	if c.cache != nil && status.Error == "" {
		c.cache.Set(cacheKey, status, statusTTL)
	}
	return status
}

func (c *Client) fetchFresh(ctx context.Context) *Status {
	out := &Status{
		ChannelID:  c.channelID,
		ChannelURL: fmt.Sprintf("%s/%s", channelBaseURL, c.channelID),
		Status:     "UNKNOWN",
	}

	var payload liveDetailResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&payload).
		ForceContentType("application/json").
		Get(fmt.Sprintf("%s/service/v1/channels/%s/live-detail", c.baseURL, c.channelID))

	if err != nil {
		appLog.Error("chzzk live-detail request failed", err, "channel_id", c.channelID)
		out.Error = "LIVE_STATUS_UNAVAILABLE"
		return out
	}
	if !resp.IsSuccess() {
		appLog.Error("chzzk live-detail bad status", fmt.Errorf("status %d", resp.StatusCode()), "channel_id", c.channelID)
		out.Error = "LIVE_STATUS_UNAVAILABLE"
		return out
	}

	content := payload.Content
	if content.Status != "" {
		out.Status = content.Status
	}
	out.IsLive = content.Status == "OPEN"
	if content.LiveTitle != "" {
		out.Title = &content.LiveTitle
	}
	if content.OpenDate != "" {
		out.StartedAt = &content.OpenDate
	}
	if content.DefaultThumbnailImageURL != "" {
		out.Thumbnail = &content.DefaultThumbnailImageURL
	}
	if content.LiveID != "" {
		out.LiveID = &content.LiveID
	}
	out.Viewers = content.ConcurrentUserCount
	out.TotalViewers = content.AccumulateCount

	return out
}
