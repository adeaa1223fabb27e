package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/util"
)

// fetchSleepFunc is the sleep function used between retries (replaceable in tests)
var fetchSleepFunc = time.Sleep

const fetchAttempts = 3

// Loader reads credit report documents from local files or http(s) URLs
type Loader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewLoader creates a loader from the HTTP configuration
func NewLoader(cfg model.HTTPConfig) *Loader {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}
	return &Loader{
		httpClient: util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
	}
}

// FetchMeta records HTTP details of a remote report fetch
type FetchMeta struct {
	StatusCode   int    `json:"status_code"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	ETag         string `json:"etag,omitempty"`
	FinalURL     string `json:"final_url,omitempty"`
}

// LoadResult contains a parsed report and the bytes it came from
type LoadResult struct {
	Document *model.Document
	Raw      []byte
	Source   string
	Meta     FetchMeta
}

// IsRemote reports whether a source is fetched over http(s)
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads and parses a report from a path or URL
func (l *Loader) Load(ctx context.Context, source string) (*LoadResult, error) {
	var (
		raw  []byte
		meta FetchMeta
		err  error
	)
	if IsRemote(source) {
		raw, meta, err = l.FetchWithRetry(ctx, source)
	} else {
		raw, err = l.readFile(source)
	}
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return &LoadResult{Document: doc, Raw: raw, Source: source, Meta: meta}, nil
}

// ParseDocument decodes a report document. A body without CREDIT_RESPONSE is an error.
func ParseDocument(raw []byte) (*model.Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, ok := probe["CREDIT_RESPONSE"]; !ok {
		return nil, fmt.Errorf("missing CREDIT_RESPONSE")
	}

	var doc model.Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &doc, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("report exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}

// FetchWithRetry fetches a report URL, retrying transient failures with backoff
func (l *Loader) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, FetchMeta, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(attempt) * time.Second)
		}
		body, meta, err := l.fetch(ctx, rawURL)
		if err == nil {
			return body, meta, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, FetchMeta{}, lastErr
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, FetchMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, FetchMeta{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, FetchMeta{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	meta := FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		FinalURL:     resp.Request.URL.String(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, meta, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, meta, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > l.maxBytes {
		return nil, meta, fmt.Errorf("read body: report exceeds %d bytes", l.maxBytes)
	}
	return body, meta, nil
}

// isRetryableFetchError reports whether a fetch error is worth retrying:
// 429, 5xx and connection-level failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: ") {
		code := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(code, "429") || strings.HasPrefix(code, "5")
	}
	return strings.HasPrefix(msg, "fetch: ")
}
