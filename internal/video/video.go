// Package video fetches the latest uploads per channel handle from the
// YouTube Data API v3.
package video

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"moinghub/internal/cache"
	appLog "moinghub/internal/log"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// Handle→channelId mappings are effectively static.
	channelIDTTL = time.Hour
	// Upload lists change slowly compared to live state.
	videosTTL = time.Minute
)

// Item is one video in the API response.
type Item struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	PublishedAt  string `json:"publishedAt"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	URL          string `json:"url"`
}

// channelsResponse and searchResponse carry only the YouTube API fields we
// read.
type channelsResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			PublishedAt  string `json:"publishedAt"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Client queries the YouTube Data API.
type Client struct {
	client     *resty.Client
	cache      *cache.Cache
	apiKey     string
	maxResults int
	baseURL    string
}

// NewClient creates a video client. An empty apiKey is allowed; lookups then
// degrade to empty results. store may be nil to disable caching.
func NewClient(apiKey string, maxResults int, store *cache.Cache) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		client:     resty.New().SetTimeout(10 * time.Second),
		cache:      store,
		apiKey:     apiKey,
		maxResults: maxResults,
		baseURL:    defaultBaseURL,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// SetBaseURL overrides the API origin. Tests point this at a local server.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// LatestByHandle returns the newest uploads for each handle, keyed by
// handle. A handle whose lookup fails maps to an empty list; the other
// handles are unaffected.
func (c *Client) LatestByHandle(ctx context.Context, handles []string) map[string][]Item {
	out := make(map[string][]Item, len(handles))
	for _, handle := range handles {
		out[handle] = c.latestForHandle(ctx, handle)
	}
	return out
}

func (c *Client) latestForHandle(ctx context.Context, handle string) []Item {
	channelID, err := c.resolveChannelID(ctx, handle)
	if err != nil {
		appLog.Error("youtube channel lookup failed", err, "handle", handle)
		return []Item{}
	}
	items, err := c.latestVideos(ctx, channelID)
	if err != nil {
		appLog.Error("youtube video lookup failed", err, "handle", handle, "channel_id", channelID)
		return []Item{}
	}
	return items
}

// resolveChannelID maps a @handle to its channel ID via the channels
// endpoint.
func (c *Client) resolveChannelID(ctx context.Context, handle string) (string, error) {
	key := "video:channel:" + handle
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(string), nil
		}
	}

	var payload channelsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":      "id",
			"forHandle": handle,
			"key":       c.apiKey,
		}).
		SetResult(&payload).
		Get(c.baseURL + "/channels")
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("channels API responded with %s", resp.Status())
	}
	if len(payload.Items) == 0 || payload.Items[0].ID == "" {
		return "", fmt.Errorf("no channel found for handle %q", handle)
	}

	channelID := payload.Items[0].ID
	if c.cache != nil {
		c.cache.Set(key, channelID, channelIDTTL)
	}
	return channelID, nil
}

func (c *Client) latestVideos(ctx context.Context, channelID string) ([]Item, error) {
	key := "video:latest:" + channelID
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.([]Item), nil
		}
	}

	var payload searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"channelId":  channelID,
			"part":       "snippet",
			"order":      "date",
			"maxResults": strconv.Itoa(c.maxResults),
			"type":       "video",
			"key":        c.apiKey,
		}).
		SetResult(&payload).
		Get(c.baseURL + "/search")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("search API responded with %s", resp.Status())
	}

	items := make([]Item, 0, len(payload.Items))
	for _, raw := range payload.Items {
		if raw.ID.VideoID == "" || raw.ID.Kind != "youtube#video" {
			continue
		}
		items = append(items, Item{
			VideoID:      raw.ID.VideoID,
			Title:        raw.Snippet.Title,
			PublishedAt:  raw.Snippet.PublishedAt,
			Thumbnail:    raw.Snippet.Thumbnails.Medium.URL,
			ChannelTitle: raw.Snippet.ChannelTitle,
			URL:          "https://www.youtube.com/watch?v=" + raw.ID.VideoID,
		})
	}

	if c.cache != nil {
		c.cache.Set(key, items, videosTTL)
	}
	return items, nil
}
