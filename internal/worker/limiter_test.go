package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://api.example.com/api/disputes"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://other.example.com/api/disputes"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if limiter.Hosts() != 2 {
		t.Errorf("expected 2 hosts, got %d", limiter.Hosts())
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://api.example.com/api/disputes"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is consumed
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("http://other.example.com") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "http://api.example.com"
	if !limiter.Allow(url) {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}

func TestLimiter_LocalSourcesUnlimited(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	for i := 0; i < 5; i++ {
		if !limiter.Allow("testdata/report.json") {
			t.Fatal("local files must never be throttled")
		}
		if err := limiter.Wait(context.Background(), "/tmp/report.json"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if limiter.Hosts() != 0 {
		t.Errorf("expected no host limiters, got %d", limiter.Hosts())
	}
}

func TestLimiter_ZeroRateDisables(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("http://api.example.com") {
			t.Fatalf("request %d throttled with limiting disabled", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	host := "slow.example.com"

	limiter.SetHostRate(host, 0.1, 1)

	if !limiter.Allow("http://" + host) {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("http://" + host) {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("http://fast.example.com") {
		t.Errorf("other host should pass")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://api.example.com:8080/api/disputes")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "api.example.com:8080" {
		t.Errorf("expected api.example.com:8080, got %s", host)
	}

	if host, _ := hostOf("reports/jan.json"); host != "" {
		t.Errorf("expected empty host for a path, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
