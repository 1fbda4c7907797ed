package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dotsalary/dotsalary/internal/cache"
	"github.com/dotsalary/dotsalary/internal/config"
	"github.com/dotsalary/dotsalary/internal/handler"
	"github.com/dotsalary/dotsalary/internal/middleware"
	"github.com/dotsalary/dotsalary/internal/model"
	"github.com/dotsalary/dotsalary/internal/service"
)

type stubUploader struct{}

func (stubUploader) Upload(context.Context, service.UploadInput) (*service.UploadResult, error) {
	return &service.UploadResult{UploadID: "01J0000000000000000000000", Success: 1}, nil
}

type stubQuerier struct{}

func (stubQuerier) GetUsers(context.Context, service.QueryInput) ([]*model.User, error) {
	return nil, nil
}

type denyAll struct{}

func (denyAll) CheckIPRateLimit(context.Context, string, string, float64, int) (*cache.RateLimitResult, error) {
	return &cache.RateLimitResult{Allowed: false, Limit: 1, RetryAfter: 3 * time.Second}, nil
}

func testRouter(t *testing.T, cfg *config.Config, limiter middleware.IPRateLimiter) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	routes := routeHandlers{
		base:    handler.New("test"),
		health:  handler.NewHealthHandler(nil, nil, nil),
		metrics: handler.NewMetricsHandler(nil),
		upload:  handler.NewUploadHandler(stubUploader{}, logger),
		users:   handler.NewUsersHandler(stubQuerier{}, logger),
	}
	return setupRouter(routes, limiter, cfg, logger)
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		RateLimitEnabled:   true,
		MaxUploadSize:      1 << 20,
		MaxRequestBodySize: 1 << 20,
	}
}

func TestSetupRouter_Routes(t *testing.T) {
	r := testRouter(t, testConfig(), nil)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/users", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusServiceUnavailable},
		{http.MethodGet, "/links", http.StatusNotFound},
		{http.MethodDelete, "/users", http.StatusMethodNotAllowed},
		{http.MethodGet, "/upload", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID not set")
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers not applied")
			}
		})
	}
}

func TestSetupRouter_UploadSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadSize = 16
	r := testRouter(t, cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestSetupRouter_RateLimited(t *testing.T) {
	r := testRouter(t, testConfig(), denyAll{})

	for _, path := range []string{"/users", "/upload"} {
		method := http.MethodGet
		if path == "/upload" {
			method = http.MethodPost
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("%s status = %d, want 429", path, rec.Code)
		}
		if rec.Header().Get("Retry-After") != "3" {
			t.Errorf("%s Retry-After = %q, want 3", path, rec.Header().Get("Retry-After"))
		}
	}

	// Health probes are never rate limited.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"password removed", "postgres://app:s3cret@db:5432/salaries", "postgres://app@db:5432/salaries"},
		{"no credentials", "redis://localhost:6379", "redis://localhost:6379"},
		{"password only", "redis://:s3cret@localhost:6379", "redis://redacted@localhost:6379"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := redactURL(tt.raw); got != tt.want {
				t.Errorf("redactURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://app:s3cret@db:5432/salaries"
	err := errors.New("dial " + dsn + " failed: password=s3cret")

	got := sanitizeError(err, dsn)
	if strings.Contains(got, "s3cret") {
		t.Errorf("sanitizeError leaked the password: %s", got)
	}
	if !strings.Contains(got, "postgres://app@db:5432/salaries") {
		t.Errorf("sanitizeError dropped the redacted URL: %s", got)
	}

	if sanitizeError(nil) != "" {
		t.Error("sanitizeError(nil) should be empty")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}

	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
