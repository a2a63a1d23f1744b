package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
	"github.com/buzzhunt/buzzflow/pkg/ratelimit/adaptive"
)

// DefaultBaseURL is the AssemblyAI API endpoint.
const DefaultBaseURL = "https://api.assemblyai.com/v2"

// Transcript statuses reported by the API.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Transcript is a transcription job and, once completed, its text.
type Transcript struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	AudioURL string  `json:"audio_url"`
	Text     string  `json:"text"`
	Error    string  `json:"error"`
	Duration float64 `json:"audio_duration"`
}

// Config holds AssemblyAI client configuration.
type Config struct {
	// APIKey authenticates with the API. Required.
	APIKey string

	// BaseURL overrides the API endpoint, mainly for testing
	BaseURL string

	// HTTPClient overrides the default http.Client
	HTTPClient *http.Client

	// PollInterval is the wait between transcript status checks
	// (default: 3s)
	PollInterval time.Duration

	// Limiter paces requests. If nil, a limiter with default
	// configuration is created and owned by the client.
	Limiter adaptive.Limiter

	// Clock provides waits during polling. If nil, system time is used.
	Clock adaptive.Clock

	// Logger receives request outcomes. If nil, logging is disabled.
	Logger *zap.Logger
}

// Client is an AssemblyAI transcription client.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	limiter      adaptive.Limiter
	ownLimiter   bool
	clock        adaptive.Clock
	logger       *zap.Logger
}

// New creates an AssemblyAI client.
func New(cfg Config) (*Client, error) {
	if err := validation.ValidateNotEmpty("assemblyai", "api_key", cfg.APIKey); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = adaptive.SystemClock{}
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
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   httpClient,
		pollInterval: pollInterval,
		limiter:      limiter,
		ownLimiter:   ownLimiter,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Close releases the client's own limiter, if it created one.
func (c *Client) Close() error {
	if c.ownLimiter {
		return c.limiter.Close()
	}
	return nil
}

// Upload streams audio to the API and returns the upload URL to submit for
// transcription.
func (c *Client) Upload(ctx context.Context, audio io.Reader) (string, error) {
	if audio == nil {
		return "", bferrors.NewValidationError("assemblyai", "audio", nil, "cannot be nil")
	}

	// The whole body is read up front so limiter retries can resend it
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", bferrors.NewOperationError("assemblyai", "Upload", err)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	err = c.do(ctx, http.MethodPost, "/upload", "application/octet-stream", func() io.Reader {
		return bytes.NewReader(data)
	}, &out)
	if err != nil {
		return "", err
	}
	return out.UploadURL, nil
}

// Submit starts a transcription of the audio at the given URL.
func (c *Client) Submit(ctx context.Context, audioURL string) (*Transcript, error) {
	if err := validation.ValidateNotEmpty("assemblyai", "audio_url", audioURL); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return nil, bferrors.NewOperationError("assemblyai", "Submit", err)
	}

	var out Transcript
	err = c.do(ctx, http.MethodPost, "/transcript", "application/json", func() io.Reader {
		return bytes.NewReader(payload)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcript fetches the current state of a transcription.
func (c *Client) Transcript(ctx context.Context, id string) (*Transcript, error) {
	if err := validation.ValidateNotEmpty("assemblyai", "id", id); err != nil {
		return nil, err
	}

	var out Transcript
	if err := c.do(ctx, http.MethodGet, "/transcript/"+id, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wait polls a transcription until it completes or fails. A transcript in
// the error state is returned alongside an error carrying its message.
func (c *Client) Wait(ctx context.Context, id string) (*Transcript, error) {
	for {
		t, err := c.Transcript(ctx, id)
		if err != nil {
			return nil, err
		}

		switch t.Status {
		case StatusCompleted:
			return t, nil
		case StatusError:
			return t, bferrors.NewOperationError("assemblyai", "Wait", bferrors.ErrUnavailable).
				WithContext(t.Error)
		}

		select {
		case <-c.clock.After(c.pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Transcribe runs the full pipeline: submit the audio URL, then wait for
// the transcript.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (*Transcript, error) {
	t, err := c.Submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, t.ID)
}

// do performs one API call through the limiter. The body factory is invoked
// per attempt so retries resend from the start.
func (c *Client) do(ctx context.Context, method, path, contentType string, body func() io.Reader, out interface{}) error {
	reqURL := c.baseURL + path

	start := time.Now()
	raw, err := c.limiter.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = body()
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, bferrors.NewStatusError(resp.StatusCode, reqURL, apiErrorMessage(payload))
		}
		return payload, nil
	})

	if err != nil {
		c.logger.Warn("assemblyai request failed",
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}

	c.logger.Debug("assemblyai request",
		zap.String("path", path),
		zap.Duration("duration", time.Since(start)))

	if err := json.Unmarshal(raw.([]byte), out); err != nil {
		return bferrors.NewOperationError("assemblyai", "decode", err).
			WithContext(fmt.Sprintf("%s %s", method, path))
	}
	return nil
}

// apiErrorMessage extracts the error message from an API error payload.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		return payload.Error
	}
	return ""
}
