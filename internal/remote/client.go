// Package remote is the JSON REST client for the real-estate backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/Kamar-Folarin/propsync/internal/config"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/pkg/utils"
)

// Client performs authenticated JSON requests against the remote API
type Client struct {
	baseURL   *url.URL
	client    *http.Client
	logger    *logrus.Logger
	limiter   *RateLimiter
	breaker   CircuitBreaker
	userAgent string
	// reads are retried in place; writes are retried by the sync queue
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// ClientOption allows configuring the client
type ClientOption func(*Client)

// WithRetryConfig configures in-place retries for GET requests
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithBreaker replaces the circuit breaker
func WithBreaker(b CircuitBreaker) ClientOption {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithHTTPClient replaces the underlying HTTP client. The bearer token is
// not applied to a replaced client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a client for cfg.BaseURL, sending cfg.Token as a bearer token
func NewClient(cfg *config.RemoteConfig, logger *logrus.Logger, opts ...ClientOption) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, apperrors.NewValidationError("remote base URL cannot be empty", nil)
	}
	base, err := utils.ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid remote base URL", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	httpClient := &http.Client{}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = cfg.Timeout

	client := &Client{
		baseURL:        base,
		client:         httpClient,
		logger:         logger,
		limiter:        NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		breaker:        NewCircuitBreaker(cfg.Breaker),
		userAgent:      cfg.UserAgent,
		maxRetries:     2,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}

	// Apply options
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Request describes one API call
type Request struct {
	Method         string
	Path           string
	Body           any
	IdempotencyKey string
}

// Do sends req and decodes a 2xx JSON response into out. Failures are
// returned as transient or terminal application errors wrapping an APIError
// when the server answered.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	attempts := 1
	if req.Method == http.MethodGet {
		attempts += c.maxRetries
	}

	var lastErr error
	backoff := c.initialBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"path":    req.Path,
				"attempt": attempt + 1,
			}).WithError(lastErr).Warn("Retrying remote request")

			select {
			case <-ctx.Done():
				return apperrors.NewTransientError("request cancelled", ctx.Err())
			case <-time.After(backoff):
			}
			backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
		}

		lastErr = c.do(ctx, req, out)
		if lastErr == nil || !apperrors.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewTransientError("rate limiter wait aborted", err)
	}

	err := c.breaker.Execute(func() error {
		return c.roundTrip(ctx, req, out)
	})
	if isBreakerRejection(err) {
		return apperrors.NewTransientError("remote API circuit open", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return apperrors.NewTerminalError("failed to encode request body", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.endpoint(req.Path), body)
	if err != nil {
		return apperrors.NewTerminalError("failed to create request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return apperrors.NewTransientError(fmt.Sprintf("%s %s failed", req.Method, req.Path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTransientError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(NewAPIError(resp.StatusCode, errorMessage(respBody, resp.Status), respBody))
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperrors.NewTerminalError("failed to decode response", err)
		}
	}

	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error body
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fallback
}
