package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
)

const tinyReport = `{"CREDIT_RESPONSE":{"@CreditReportIdentifier":"R1"}}`

func testLoader(maxBytes int64) *Loader {
	return NewLoader(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test-agent", MaxBodyBytes: maxBytes})
}

func noSleep(t *testing.T) {
	t.Helper()
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = origSleep })
}

func TestLoad_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, tinyReport)
	}))
	defer server.Close()

	result, err := testLoader(1<<20).Load(context.Background(), server.URL+"/report.json")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Document.Response.ReportID != "R1" {
		t.Errorf("Unexpected report id: %s", result.Document.Response.ReportID)
	}
	if result.Meta.StatusCode != http.StatusOK || result.Meta.ContentType != "application/json" {
		t.Errorf("Unexpected meta: %+v", result.Meta)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, tinyReport)
	}))
	defer server.Close()
	noSleep(t)

	body, _, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != tinyReport {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	_, _, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 must not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	noSleep(t)

	if _, _, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, tinyReport)
	}))
	defer server.Close()

	if _, _, err := testLoader(8).FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Error("Expected error for oversized body")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.json")
	if err := os.WriteFile(path, []byte(tinyReport), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := testLoader(1<<20).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.Source != path || string(result.Raw) != tinyReport {
		t.Errorf("Unexpected result: %+v", result)
	}

	if _, err := testLoader(8).Load(context.Background(), path); err == nil {
		t.Error("Expected error for oversized file")
	}
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", tinyReport, false},
		{"empty response", `{"CREDIT_RESPONSE":{}}`, false},
		{"missing root", `{"REPORT":{}}`, true},
		{"not json", `<html></html>`, true},
		{"array", `[]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDocument(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseDocument_KeepsLargeNumbers(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"CREDIT_RESPONSE":{"CREDIT_LIABILITY":[{"@_AccountIdentifier":12345678901234567}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	got := fmt.Sprint(doc.Response.Liabilities[0]["@_AccountIdentifier"])
	if got != "12345678901234567" {
		t.Errorf("account number lost precision: %s", got)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"unexpected status: 503 Service Unavailable", true},
		{"unexpected status: 500 Internal Server Error", true},
		{"unexpected status: 429 Too Many Requests", true},
		{"unexpected status: 404 Not Found", false},
		{"unexpected status: 401 Unauthorized", false},
		{"fetch: connection refused", true},
		{"create request: invalid URL", false},
		{"read body: unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			got := isRetryableFetchError(fmt.Errorf("%s", tt.err))
			if got != tt.retryable {
				t.Errorf("isRetryableFetchError(%q) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}

	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("https://example.com/r.json") || !IsRemote("http://x") {
		t.Error("http(s) sources are remote")
	}
	if IsRemote("reports/r.json") || IsRemote("ftp://x") {
		t.Error("paths are local")
	}
}
