package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/logging"
	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/util"
	"go.uber.org/zap"
)

// retrySleepFunc is overridable in tests
var retrySleepFunc = time.Sleep

const maxAttempts = 3

// RateLimiter throttles outgoing requests per host
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Client talks to the remote persistence API
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    RateLimiter
	logger     *zap.Logger
}

// NewClient creates a persistence API client. limiter may be nil.
func NewClient(baseURL string, cfg model.HTTPConfig, limiter RateLimiter, logger *zap.Logger) *Client {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		logger:     logging.OrNop(logger),
	}
}

// CreateDispute posts a saved dispute. POST is never retried.
func (c *Client) CreateDispute(ctx context.Context, d model.NewDispute) (*model.Dispute, error) {
	if err := ValidateDispute(d); err != nil {
		return nil, err
	}
	var out model.Dispute
	if err := c.do(ctx, http.MethodPost, "/api/disputes", d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus patches a dispute's status; a 404 maps to ErrNotFound
func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*model.Dispute, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}
	var out model.Dispute
	path := "/api/disputes/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, map[string]string{"status": status}, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ListDisputes fetches every dispute
func (c *Client) ListDisputes(ctx context.Context) ([]model.Dispute, error) {
	var out []model.Dispute
	if err := c.do(ctx, http.MethodGet, "/api/disputes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Templates fetches the custom templates for a type and category
func (c *Client) Templates(ctx context.Context, typ, category string) ([]model.Template, error) {
	if err := ValidateTemplateKey(typ, category); err != nil {
		return nil, err
	}
	var out []model.Template
	path := "/api/templates/" + url.PathEscape(typ) + "/" + url.PathEscape(category)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTemplate posts a custom template
func (c *Client) CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error) {
	if err := ValidateTemplate(t); err != nil {
		return nil, err
	}
	var out model.Template
	if err := c.do(ctx, http.MethodPost, "/api/templates", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AIScan posts report data to the scan endpoint and returns violation tags per account id
func (c *Client) AIScan(ctx context.Context, creditData any) (map[string][]string, error) {
	var out map[string][]string
	body := map[string]any{"creditData": creditData}
	if err := c.do(ctx, http.MethodPost, "/api/ai-scan", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do sends one JSON request, retrying idempotent methods on transient failures
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet || method == http.MethodPatch {
		attempts = maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<(attempt-2)) * time.Second
			c.logger.Debug("retrying request",
				zap.String("method", method), zap.String("path", path),
				zap.Int("attempt", attempt), zap.Error(lastErr))
			retrySleepFunc(backoff)
		}

		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	endpoint := c.baseURL + path
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isRetryable reports whether a failure is transient: 429, 5xx or a network error
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
