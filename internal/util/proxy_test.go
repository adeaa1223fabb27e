package util

import (
	"net/http"
	"testing"
	"time"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy", "NO_PROXY", "no_proxy", "REQUEST_METHOD"} {
		t.Setenv(k, "")
	}
}

func TestNewProxyFunc_Explicit(t *testing.T) {
	clearProxyEnv(t)

	fn := NewProxyFunc("http://proxy.internal:3128", "http://secure.internal:3129", "bureau.example.com")

	tests := []struct {
		url  string
		want string
	}{
		{"http://api.example.com/api/disputes", "http://proxy.internal:3128"},
		{"https://api.example.com/api/disputes", "http://secure.internal:3129"},
		{"https://bureau.example.com/report.json", ""},
		{"http://127.0.0.1:8080/api/disputes", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			got, err := fn(req)
			if err != nil {
				t.Fatalf("proxy func: %v", err)
			}
			gotStr := ""
			if got != nil {
				gotStr = got.String()
			}
			if gotStr != tt.want {
				t.Errorf("proxy for %s = %q, want %q", tt.url, gotStr, tt.want)
			}
		})
	}
}

func TestNewProxyFunc_Environment(t *testing.T) {
	clearProxyEnv(t)
	t.Setenv("HTTP_PROXY", "http://env-proxy:8080")

	fn := NewProxyFunc("", "", "")
	req, _ := http.NewRequest(http.MethodGet, "http://api.example.com/", nil)
	got, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if got == nil || got.String() != "http://env-proxy:8080" {
		t.Errorf("expected environment proxy, got %v", got)
	}
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(5*time.Second, "", "", "")
	if client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", client.Timeout)
	}
	if client.Transport == nil {
		t.Fatal("expected a transport")
	}
	via := make([]*http.Request, 3)
	if err := client.CheckRedirect(nil, via); err == nil {
		t.Error("expected redirect limit")
	}
	if err := client.CheckRedirect(nil, via[:2]); err != nil {
		t.Errorf("unexpected redirect error: %v", err)
	}
}
