package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
	"github.com/buzzhunt/buzzflow/pkg/ratelimit/adaptive"
	"github.com/buzzhunt/buzzflow/pkg/ratelimit/quota"
)

// DefaultBaseURL is the YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Unit costs per the YouTube Data API quota model.
const (
	costSearch = 100
	costList   = 1
)

// Channel holds the profile data tracked for a YouTube channel.
type Channel struct {
	ID                string
	Title             string
	Description       string
	CustomURL         string
	UploadsPlaylistID string
	Subscribers       int64
	Views             int64
	VideoCount        int64
	PublishedAt       time.Time
}

// Video holds per-upload statistics.
type Video struct {
	ID          string
	Title       string
	Description string
	PublishedAt time.Time
	Duration    string
	Views       int64
	Likes       int64
	Comments    int64
}

// Config holds YouTube client configuration.
type Config struct {
	// APIKey authenticates with the Data API. Required.
	APIKey string

	// BaseURL overrides the API endpoint, mainly for testing
	BaseURL string

	// HTTPClient overrides the default http.Client
	HTTPClient *http.Client

	// Limiter paces requests. If nil, a limiter with default
	// configuration is created and owned by the client.
	Limiter adaptive.Limiter

	// Quota tracks the daily unit budget. If nil, no budget is enforced.
	Quota quota.Limiter

	// Logger receives request outcomes. If nil, logging is disabled.
	Logger *zap.Logger
}

// Client is a YouTube Data API v3 client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    adaptive.Limiter
	ownLimiter bool
	quota      quota.Limiter
	logger     *zap.Logger
}

// New creates a YouTube client.
func New(cfg Config) (*Client, error) {
	if err := validation.ValidateNotEmpty("youtube", "api_key", cfg.APIKey); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := cfg.Limiter
	ownLimiter := false
	if limiter == nil {
		limiter = adaptive.New()
		ownLimiter = true
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		ownLimiter: ownLimiter,
		quota:      cfg.Quota,
		logger:     logger,
	}, nil
}

// Close releases the client's own limiter, if it created one.
func (c *Client) Close() error {
	if c.ownLimiter {
		return c.limiter.Close()
	}
	return nil
}

// ResolveChannel turns a channel reference into a Channel. The reference may
// be a raw channel ID, an @handle, or free text resolved through search.
// Search costs 100 quota units, the other forms cost 1.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (*Channel, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, bferrors.NewValidationError("youtube", "ref", ref, "cannot be empty")
	}

	switch {
	case strings.HasPrefix(ref, "UC") && len(ref) == 24:
		return c.Channel(ctx, ref)
	case strings.HasPrefix(ref, "@"):
		return c.channelBy(ctx, url.Values{"forHandle": {ref}})
	default:
		id, err := c.searchChannelID(ctx, ref)
		if err != nil {
			return nil, err
		}
		return c.Channel(ctx, id)
	}
}

// Channel fetches a channel by its ID.
func (c *Client) Channel(ctx context.Context, id string) (*Channel, error) {
	return c.channelBy(ctx, url.Values{"id": {id}})
}

func (c *Client) channelBy(ctx context.Context, params url.Values) (*Channel, error) {
	params.Set("part", "snippet,statistics,contentDetails")

	var resp channelListResponse
	if err := c.get(ctx, "channels", costList, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, bferrors.NewOperationError("youtube", "Channel", bferrors.ErrNotFound).
			WithContext("no channel matched " + params.Encode())
	}

	return resp.Items[0].toChannel(), nil
}

// searchChannelID resolves free text to a channel ID via search.
func (c *Client) searchChannelID(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"channel"},
		"q":          {query},
		"maxResults": {"1"},
	}

	var resp searchListResponse
	if err := c.get(ctx, "search", costSearch, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", bferrors.NewOperationError("youtube", "search", bferrors.ErrNotFound).
			WithContext("no channel matched " + query)
	}
	return resp.Items[0].ID.ChannelID, nil
}

// RecentUploads fetches up to limit videos from a channel's uploads
// playlist, newest first, with per-video statistics.
func (c *Client) RecentUploads(ctx context.Context, uploadsPlaylistID string, limit int) ([]Video, error) {
	if err := validation.ValidateNotEmpty("youtube", "playlist_id", uploadsPlaylistID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 25
	}

	videoIDs := make([]string, 0, limit)
	pageToken := ""
	for len(videoIDs) < limit {
		params := url.Values{
			"part":       {"contentDetails"},
			"playlistId": {uploadsPlaylistID},
			"maxResults": {strconv.Itoa(min(limit-len(videoIDs), 50))},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp playlistItemsResponse
		if err := c.get(ctx, "playlistItems", costList, params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			videoIDs = append(videoIDs, item.ContentDetails.VideoID)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return c.videos(ctx, videoIDs)
}

// videos fetches statistics for the given IDs, batched 50 per request.
func (c *Client) videos(ctx context.Context, ids []string) ([]Video, error) {
	out := make([]Video, 0, len(ids))
	for start := 0; start < len(ids); start += 50 {
		end := min(start+50, len(ids))
		params := url.Values{
			"part": {"snippet,statistics,contentDetails"},
			"id":   {strings.Join(ids[start:end], ",")},
		}

		var resp videoListResponse
		if err := c.get(ctx, "videos", costList, params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			out = append(out, item.toVideo())
		}
	}
	return out, nil
}

// get performs one API call through the quota and the limiter.
func (c *Client) get(ctx context.Context, resource string, cost int, params url.Values, out interface{}) error {
	if c.quota != nil && !c.quota.Allow(ctx, cost) {
		return bferrors.NewOperationError("youtube", resource, bferrors.ErrQuotaExhausted).
			WithContext(fmt.Sprintf("%d units requested", cost))
	}

	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, resource, params.Encode())

	start := time.Now()
	body, err := c.limiter.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.fetch(ctx, reqURL)
	})

	if err != nil {
		c.logger.Warn("youtube request failed",
			zap.String("resource", resource),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}

	c.logger.Debug("youtube request",
		zap.String("resource", resource),
		zap.Int("cost", cost),
		zap.Duration("duration", time.Since(start)))

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return bferrors.NewOperationError("youtube", resource, err).
			WithContext("decoding response")
	}
	return nil
}

// fetch performs the HTTP round trip and surfaces non-2xx statuses as
// StatusError so the limiter can classify 429 and 503 as retryable.
func (c *Client) fetch(ctx context.Context, reqURL string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, bferrors.NewStatusError(resp.StatusCode, redactKey(reqURL), apiErrorMessage(body))
	}
	return body, nil
}

// apiErrorMessage extracts the error message from an API error payload.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		return payload.Error.Message
	}
	return ""
}

// redactKey strips the API key from a URL before it reaches errors or logs.
func redactKey(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return reqURL
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
