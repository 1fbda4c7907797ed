package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dotsalary/dotsalary/internal/cache"
)

type fakeLimiter struct {
	result *cache.RateLimitResult
	err    error

	calls int
	scope string
	ip    string
	rate  float64
	burst int
}

func (f *fakeLimiter) CheckIPRateLimit(_ context.Context, scope, ip string, rate float64, burst int) (*cache.RateLimitResult, error) {
	f.calls++
	f.scope, f.ip, f.rate, f.burst = scope, ip, rate, burst
	return f.result, f.err
}

func runRateLimited(cfg RateLimitConfig, req *http.Request) (*httptest.ResponseRecorder, bool) {
	reached := false
	h := RateLimitIP(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestRateLimitIP_Allowed(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{result: &cache.RateLimitResult{Allowed: true, Limit: 5, Remaining: 4, ResetAt: time.Unix(1700000000, 0)}}
	cfg := RateLimitConfig{
		Logger:        slog.Default(),
		Limiter:       limiter,
		Enabled:       true,
		Scope:         "upload",
		RatePerSecond: 0.5,
		Burst:         5,
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rec, reached := runRateLimited(cfg, req)

	if !reached {
		t.Fatal("handler not reached")
	}
	if limiter.scope != "upload" || limiter.ip != "203.0.113.7" || limiter.rate != 0.5 || limiter.burst != 5 {
		t.Errorf("limiter called with scope=%q ip=%q rate=%v burst=%d", limiter.scope, limiter.ip, limiter.rate, limiter.burst)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "1700000000" {
		t.Errorf("X-RateLimit-Reset = %q, want 1700000000", got)
	}
}

func TestRateLimitIP_Rejected(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	limiter := &fakeLimiter{result: &cache.RateLimitResult{Allowed: false, Limit: 1, RetryAfter: 7 * time.Second}}
	cfg := RateLimitConfig{
		Logger:  slog.New(slog.NewJSONHandler(&buf, nil)),
		Limiter: limiter,
		Enabled: true,
		Scope:   "query",
		Burst:   1,
	}

	rec, reached := runRateLimited(cfg, httptest.NewRequest(http.MethodGet, "/users", nil))

	if reached {
		t.Fatal("handler should not be reached")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "7" {
		t.Errorf("Retry-After = %q, want 7", got)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Rate limit exceeded. Retry after 7 seconds." {
		t.Errorf("error = %q", body["error"])
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"scope":"query"`)) {
		t.Errorf("rejection not logged with scope: %s", buf.String())
	}
}

func TestRateLimitIP_FailOpen(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	limiter := &fakeLimiter{
		result: &cache.RateLimitResult{Allowed: true},
		err:    errors.New("redis: connection refused"),
	}
	cfg := RateLimitConfig{
		Logger:  slog.New(slog.NewJSONHandler(&buf, nil)),
		Limiter: limiter,
		Enabled: true,
		Scope:   "upload",
	}

	_, reached := runRateLimited(cfg, httptest.NewRequest(http.MethodPost, "/upload", nil))

	if !reached {
		t.Error("handler should be reached when the limiter fails")
	}
	if !bytes.Contains(buf.Bytes(), []byte("IP rate limit check failed")) {
		t.Errorf("limiter failure not logged: %s", buf.String())
	}
}

func TestRateLimitIP_Disabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  RateLimitConfig
	}{
		{"disabled", RateLimitConfig{Limiter: &fakeLimiter{}, Enabled: false}},
		{"no limiter", RateLimitConfig{Enabled: true}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, reached := runRateLimited(tt.cfg, httptest.NewRequest(http.MethodGet, "/users", nil))
			if !reached {
				t.Error("handler not reached")
			}
			if l, ok := tt.cfg.Limiter.(*fakeLimiter); ok && l.calls != 0 {
				t.Errorf("limiter called %d times", l.calls)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded for", "198.51.100.1, 10.0.0.1", "", "10.0.0.2:1234", "198.51.100.1"},
		{"single forwarded for", "198.51.100.9", "", "10.0.0.2:1234", "198.51.100.9"},
		{"real ip", "", "198.51.100.2", "10.0.0.2:1234", "198.51.100.2"},
		{"remote addr strips port", "", "", "192.0.2.1:4321", "192.0.2.1"},
		{"remote addr ipv6", "", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", "", "", "192.0.2.5", "192.0.2.5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
