// Package main is the entrypoint for the dotsalary API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dotsalary/dotsalary/internal/archive"
	"github.com/dotsalary/dotsalary/internal/cache"
	"github.com/dotsalary/dotsalary/internal/config"
	"github.com/dotsalary/dotsalary/internal/handler"
	"github.com/dotsalary/dotsalary/internal/metrics"
	"github.com/dotsalary/dotsalary/internal/middleware"
	"github.com/dotsalary/dotsalary/internal/repository"
	"github.com/dotsalary/dotsalary/internal/server"
	"github.com/dotsalary/dotsalary/internal/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	// Real environment variables win over .env.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("failed to migrate database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Redis only backs rate limiting, so the service runs without it.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.DefaultPoolConfig())
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	var archiveClient *archive.Client
	if cfg.Archive.Enabled() {
		archiveClient, err = archive.New(ctx, archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			logger.Error("failed to connect to archive storage",
				slog.String("error", err.Error()),
				slog.String("endpoint", cfg.Archive.Endpoint),
			)
			repo.Close()
			os.Exit(1)
		}
		logger.Info("upload archiving enabled", slog.String("bucket", cfg.Archive.Bucket))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	// Typed nil pointers must not leak into the interfaces below.
	var (
		archiver      service.Archiver
		limiter       middleware.IPRateLimiter
		cacheHealth   handler.HealthChecker
		archiveHealth handler.HealthChecker
	)
	if cacheClient != nil {
		limiter = cacheClient
		cacheHealth = cacheClient
	}
	if archiveClient != nil {
		archiver = archiveClient
		archiveHealth = archiveClient
	}

	userService := service.NewUserService(repo, recorder)
	uploadService := service.NewUploadService(userService, archiver, recorder, logger)

	routes := routeHandlers{
		base:    handler.New(version),
		health:  handler.NewHealthHandler(repo, cacheHealth, archiveHealth),
		metrics: handler.NewMetricsHandler(registry),
		upload:  handler.NewUploadHandler(uploadService, logger),
		users:   handler.NewUsersHandler(userService, logger),
	}

	r := setupRouter(routes, limiter, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
		slog.String("version", version),
		slog.Bool("rate_limit", cfg.RateLimitActive()),
		slog.Bool("archive", cfg.Archive.Enabled()),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With(slog.String("service", "dotsalary"))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routeHandlers struct {
	base    *handler.Handler
	health  *handler.HealthHandler
	metrics *handler.MetricsHandler
	upload  *handler.UploadHandler
	users   *handler.UsersHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h routeHandlers, limiter middleware.IPRateLimiter, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)
	r.Get("/", h.base.Hello)

	uploadLimit := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       limiter,
		Enabled:       cfg.RateLimitEnabled,
		Scope:         "upload",
		RatePerSecond: cfg.UploadRatePerSecond(),
		Burst:         cfg.RateLimitUploadBurst,
	}
	queryLimit := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       limiter,
		Enabled:       cfg.RateLimitEnabled,
		Scope:         "query",
		RatePerSecond: cfg.RateLimitQueryRPS,
		Burst:         cfg.RateLimitQueryBurst,
	}

	r.With(
		middleware.RateLimitIP(uploadLimit),
		middleware.MaxBodySize(cfg.MaxUploadSize),
	).Post("/upload", h.upload.Upload)

	r.With(
		middleware.RateLimitIP(queryLimit),
		middleware.MaxBodySize(cfg.MaxRequestBodySize),
	).Get("/users", h.users.List)

	r.NotFound(h.base.NotFound)
	r.MethodNotAllowed(h.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
