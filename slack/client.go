// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/metrics"
	"github.com/chatdsj/chatdsj/lib/netutil"
)

const (
	// DefaultBaseURL is the Slack Web API root.
	DefaultBaseURL = "https://slack.com/api"

	// defaultRateLimitRetries is how many times a 429 is retried
	// before the call fails.
	defaultRateLimitRetries = 3

	// defaultRetryAfter is used when a 429 carries no usable
	// Retry-After header.
	defaultRetryAfter = time.Second

	// maxRetryAfter caps how long a single call waits on a 429.
	maxRetryAfter = time.Minute
)

// Config holds configuration for creating a Client.
type Config struct {
	// Token is the bot token (xoxb-...). Required.
	Token string

	// BaseURL is the Web API root. Empty uses DefaultBaseURL.
	BaseURL string

	// HTTPClient is used for all requests. Nil uses a client with a
	// 30 second timeout.
	HTTPClient *http.Client

	// RequestsPerSecond and Burst configure the client-side token
	// bucket. Zero RequestsPerSecond disables client-side limiting.
	RequestsPerSecond float64
	Burst             int

	// RateLimitRetries is how many 429 responses are retried per
	// call. Zero uses 3; negative disables retry.
	RateLimitRetries int

	Metrics *metrics.Registry

	// Clock drives Retry-After waits. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives request failures. Nil uses slog.Default().
	Logger *slog.Logger
}

// Client is a Slack Web API client authenticated as the bot. It is
// safe for concurrent use.
type Client struct {
	baseURL          string
	token            string
	httpClient       *http.Client
	limiter          *rate.Limiter
	rateLimitRetries int
	metrics          *metrics.Registry
	clock            clock.Clock
	logger           *slog.Logger
}

// NewClient creates a Client.
func NewClient(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("slack: Token is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("slack: invalid BaseURL %q: %w", baseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	retries := config.RateLimitRetries
	switch {
	case retries == 0:
		retries = defaultRateLimitRetries
	case retries < 0:
		retries = 0
	}

	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		token:            config.Token,
		httpClient:       httpClient,
		limiter:          limiter,
		rateLimitRetries: retries,
		metrics:          config.Metrics,
		clock:            config.Clock,
		logger:           config.Logger,
	}, nil
}

// envelope is the part of every Web API response the client inspects.
type envelope struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error"`
	Warning          string `json:"warning"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// callForm invokes a read method with form-encoded arguments.
func (client *Client) callForm(ctx context.Context, method string, arguments url.Values, result any) (*envelope, error) {
	encoded := arguments.Encode()
	return client.call(ctx, method, "application/x-www-form-urlencoded", func() io.Reader {
		return strings.NewReader(encoded)
	}, result)
}

// callJSON invokes a write method with a JSON body.
func (client *Client) callJSON(ctx context.Context, method string, body any, result any) (*envelope, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: encoding request: %w", method, err)
	}
	return client.call(ctx, method, "application/json; charset=utf-8", func() io.Reader {
		return bytes.NewReader(encoded)
	}, result)
}

// call performs one Web API call, retrying rate-limited responses. The
// body function is called once per attempt.
func (client *Client) call(ctx context.Context, method, contentType string, body func() io.Reader, result any) (*envelope, error) {
	defer client.metrics.Track("slack_api")()

	for attempt := 0; ; attempt++ {
		if client.limiter != nil {
			if err := client.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("slack: %s: waiting for rate limiter: %w", method, err)
			}
		}

		client.metrics.CountAPICall("slack")
		response, err := client.do(ctx, method, contentType, body(), result)
		if err == nil {
			return response, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRateLimited() || attempt >= client.rateLimitRetries {
			client.metrics.CountError("slack_api")
			return nil, err
		}

		delay := apiErr.RetryAfter
		if delay <= 0 {
			delay = defaultRetryAfter
		}
		delay = min(delay, maxRetryAfter)
		client.logger.Warn("slack rate limited, retrying",
			"method", method,
			"attempt", attempt+1,
			"retry_after", delay,
		)
		if err := clock.Sleep(ctx, client.clock, delay); err != nil {
			return nil, fmt.Errorf("slack: %s: %w", method, err)
		}
	}
}

func (client *Client) do(ctx context.Context, method, contentType string, body io.Reader, result any) (*envelope, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/"+method, body)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: creating request: %w", method, err)
	}
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("Authorization", "Bearer "+client.token)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: %w", method, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, &APIError{
			Method:     method,
			Code:       ErrCodeRateLimited,
			StatusCode: response.StatusCode,
			RetryAfter: netutil.RetryAfter(response.Header.Get("Retry-After"), client.clock.Now()),
		}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &APIError{
			Method:     method,
			Code:       "http_error: " + netutil.ErrorBody(response.Body),
			StatusCode: response.StatusCode,
		}
	}

	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: reading response: %w", method, err)
	}
	var header envelope
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("slack: %s: parsing response: %w", method, err)
	}
	if !header.OK {
		code := header.Error
		if code == "" {
			code = "unknown_error"
		}
		return nil, &APIError{Method: method, Code: code, StatusCode: response.StatusCode}
	}
	if header.Warning != "" {
		client.logger.Debug("slack API warning", "method", method, "warning", header.Warning)
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("slack: %s: parsing response: %w", method, err)
		}
	}
	return &header, nil
}
