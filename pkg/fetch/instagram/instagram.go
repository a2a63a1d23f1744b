package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
	"github.com/buzzhunt/buzzflow/pkg/ratelimit/adaptive"
)

// DefaultBaseURL is the Instagram web endpoint.
const DefaultBaseURL = "https://www.instagram.com"

// defaultUserAgent is sent with scrape requests. Instagram serves the open
// graph tags this client parses to ordinary browser agents.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Profile holds the public data scraped from a profile page.
type Profile struct {
	Username  string
	FullName  string
	Biography string
	Followers int64
	Following int64
	Posts     int64
}

// Post holds the public data scraped from a post or reel page.
type Post struct {
	Shortcode    string
	Caption      string
	AuthorName   string
	ThumbnailURL string
}

// shortcodePattern matches post and reel URLs.
var shortcodePattern = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

// ogPattern captures open graph meta tags in either attribute order.
var ogPattern = regexp.MustCompile(`<meta\s+(?:property="og:([^"]+)"\s+content="([^"]*)"|content="([^"]*)"\s+property="og:([^"]+)")`)

// descriptionPattern matches the profile og:description stats prefix, e.g.
// "18.1M Followers, 500 Following, 1,600 Posts - ...".
var descriptionPattern = regexp.MustCompile(`([\d.,]+[KMB]?)\s+Followers,\s+([\d.,]+[KMB]?)\s+Following,\s+([\d.,]+[KMB]?)\s+Posts`)

// ExtractShortcode pulls the shortcode out of a post, reel, or TV URL.
func ExtractShortcode(postURL string) (string, error) {
	m := shortcodePattern.FindStringSubmatch(postURL)
	if m == nil {
		return "", bferrors.NewValidationError("instagram", "url", postURL, "not a post, reel, or tv URL").
			WithHint("expected instagram.com/p/<shortcode> or /reel/<shortcode>")
	}
	return m[1], nil
}

// DefaultOEmbedURL is the Instagram oEmbed endpoint.
const DefaultOEmbedURL = "https://graph.facebook.com/v19.0/instagram_oembed"

// Config holds Instagram client configuration.
type Config struct {
	// BaseURL overrides the web endpoint, mainly for testing
	BaseURL string

	// OEmbedURL overrides the oEmbed endpoint, mainly for testing
	OEmbedURL string

	// AccessToken authenticates oEmbed lookups. When set, Post tries the
	// oEmbed endpoint before falling back to scraping.
	AccessToken string

	// HTTPClient overrides the default http.Client
	HTTPClient *http.Client

	// UserAgent overrides the default browser user agent
	UserAgent string

	// Limiter paces requests. If nil, a limiter with default
	// configuration is created and owned by the client.
	Limiter adaptive.Limiter

	// Logger receives request outcomes. If nil, logging is disabled.
	Logger *zap.Logger
}

// Client scrapes public Instagram profile and post pages.
type Client struct {
	baseURL     string
	oembedURL   string
	accessToken string
	httpClient  *http.Client
	userAgent   string
	limiter     adaptive.Limiter
	ownLimiter  bool
	logger      *zap.Logger
}

// New creates an Instagram client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	oembedURL := cfg.OEmbedURL
	if oembedURL == "" {
		oembedURL = DefaultOEmbedURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
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
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		oembedURL:   oembedURL,
		accessToken: cfg.AccessToken,
		httpClient:  httpClient,
		userAgent:   userAgent,
		limiter:     limiter,
		ownLimiter:  ownLimiter,
		logger:      logger,
	}
}

// Close releases the client's own limiter, if it created one.
func (c *Client) Close() error {
	if c.ownLimiter {
		return c.limiter.Close()
	}
	return nil
}

// Profile scrapes a profile page for public stats.
func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if err := validation.ValidateNotEmpty("instagram", "username", username); err != nil {
		return nil, err
	}

	page, err := c.scrape(ctx, fmt.Sprintf("%s/%s/", c.baseURL, username))
	if err != nil {
		return nil, err
	}

	og := parseOGTags(page)
	profile := &Profile{
		Username: username,
		FullName: fullNameFromTitle(og["title"]),
	}

	if desc := og["description"]; desc != "" {
		if m := descriptionPattern.FindStringSubmatch(desc); m != nil {
			profile.Followers = parseAbbreviatedCount(m[1])
			profile.Following = parseAbbreviatedCount(m[2])
			profile.Posts = parseAbbreviatedCount(m[3])

			// The biography follows the stats prefix after a separator
			if idx := strings.Index(desc, " - "); idx >= 0 {
				profile.Biography = strings.TrimSpace(desc[idx+3:])
			}
		} else {
			profile.Biography = desc
		}
	}

	if og["title"] == "" && og["description"] == "" {
		return nil, bferrors.NewOperationError("instagram", "Profile", bferrors.ErrNotFound).
			WithContext("no open graph tags for " + username)
	}
	return profile, nil
}

// Post scrapes a post or reel page. The argument may be a full URL or a
// bare shortcode.
func (c *Client) Post(ctx context.Context, ref string) (*Post, error) {
	shortcode := ref
	if strings.Contains(ref, "instagram.com/") {
		var err error
		shortcode, err = ExtractShortcode(ref)
		if err != nil {
			return nil, err
		}
	}
	if err := validation.ValidateNotEmpty("instagram", "shortcode", shortcode); err != nil {
		return nil, err
	}

	if c.accessToken != "" {
		p, err := c.OEmbed(ctx, fmt.Sprintf("%s/p/%s/", DefaultBaseURL, shortcode))
		if err == nil {
			p.Shortcode = shortcode
			return p, nil
		}
		c.logger.Debug("oembed lookup failed, falling back to scrape",
			zap.String("shortcode", shortcode),
			zap.Error(err))
	}

	page, err := c.scrape(ctx, fmt.Sprintf("%s/p/%s/", c.baseURL, shortcode))
	if err != nil {
		return nil, err
	}

	og := parseOGTags(page)
	if og["title"] == "" && og["description"] == "" {
		return nil, bferrors.NewOperationError("instagram", "Post", bferrors.ErrNotFound).
			WithContext("no open graph tags for " + shortcode)
	}

	return &Post{
		Shortcode:    shortcode,
		Caption:      og["description"],
		AuthorName:   fullNameFromTitle(og["title"]),
		ThumbnailURL: og["image"],
	}, nil
}

// OEmbed looks a post up through the oEmbed endpoint, which returns richer
// attribution than scraping. Requires an access token.
func (c *Client) OEmbed(ctx context.Context, postURL string) (*Post, error) {
	if c.accessToken == "" {
		return nil, bferrors.NewValidationError("instagram", "access_token", "", "cannot be empty").
			WithHint("oEmbed lookups require an app access token")
	}

	params := url.Values{
		"url":          {postURL},
		"access_token": {c.accessToken},
		"omitscript":   {"true"},
	}
	reqURL := c.oembedURL + "?" + params.Encode()

	body, err := c.limiter.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, bferrors.NewStatusError(resp.StatusCode, c.oembedURL, "")
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		AuthorName   string `json:"author_name"`
		Title        string `json:"title"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.Unmarshal(body.([]byte), &out); err != nil {
		return nil, bferrors.NewOperationError("instagram", "OEmbed", err).
			WithContext("decoding response")
	}

	post := &Post{
		Caption:      out.Title,
		AuthorName:   out.AuthorName,
		ThumbnailURL: out.ThumbnailURL,
	}
	if sc, err := ExtractShortcode(postURL); err == nil {
		post.Shortcode = sc
	}
	return post, nil
}

// scrape fetches a page through the limiter and returns its body.
func (c *Client) scrape(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	body, err := c.limiter.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		page, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, bferrors.NewStatusError(resp.StatusCode, pageURL, "")
		}
		return string(page), nil
	})

	if err != nil {
		c.logger.Warn("instagram scrape failed",
			zap.String("url", pageURL),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	c.logger.Debug("instagram scrape",
		zap.String("url", pageURL),
		zap.Duration("duration", time.Since(start)))
	return body.(string), nil
}

// parseOGTags extracts open graph properties from a page.
func parseOGTags(page string) map[string]string {
	out := make(map[string]string)
	for _, m := range ogPattern.FindAllStringSubmatch(page, -1) {
		if m[1] != "" {
			out[m[1]] = html.UnescapeString(m[2])
		} else {
			out[m[4]] = html.UnescapeString(m[3])
		}
	}
	return out
}

// fullNameFromTitle strips the vendor suffix and handle from an og:title
// such as "NASA (@nasa) • Instagram photos and videos".
func fullNameFromTitle(title string) string {
	if idx := strings.Index(title, " (@"); idx >= 0 {
		return strings.TrimSpace(title[:idx])
	}
	if idx := strings.Index(title, " • "); idx >= 0 {
		return strings.TrimSpace(title[:idx])
	}
	return strings.TrimSpace(title)
}

// parseAbbreviatedCount converts counts like "1,600", "18.1M", or "500K".
func parseAbbreviatedCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	multiplier := float64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1e3
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1e6
		s = s[:len(s)-1]
	case 'B':
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(n * multiplier)
}
