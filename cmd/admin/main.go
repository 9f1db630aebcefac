package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/aegis-admin/internal/admin"
	"github.com/af-corp/aegis-admin/internal/auth"
	"github.com/af-corp/aegis-admin/internal/config"
	"github.com/af-corp/aegis-admin/internal/notify"
	"github.com/af-corp/aegis-admin/internal/policy"
	"github.com/af-corp/aegis-admin/internal/providers"
	"github.com/af-corp/aegis-admin/internal/ratelimit"
	"github.com/af-corp/aegis-admin/internal/store"
	"github.com/af-corp/aegis-admin/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	// Bootstrap logger until the configured level is known.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger = newLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Warn("database not reachable (admin API will start but auth will fail)", "error", err)
	} else {
		logger.Info("database connected")
	}

	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (auth cache, rate limits and notification feed disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	providerRegistry := providers.BuildFromConfig(loader.Providers())
	loader.OnReload(func() {
		providerRegistry.Replace(providers.BuildFromConfig(loader.Providers()))
		logger.Info("provider registry reloaded", "providers", len(providerRegistry.List()))
	})

	modelStore, err := newStore(cfg.Backend, dbPool)
	if err != nil {
		logger.Error("failed to configure model backend", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics()

	evaluator := policy.NewEvaluator(func() config.PolicyConfig { return loader.Config().Policy })
	if cfg.Policy.Enabled {
		if err := evaluator.Load(); err != nil {
			logger.Error("failed to load policies", "error", err)
			os.Exit(1)
		}
	}
	loader.OnReload(func() {
		if !loader.Config().Policy.Enabled {
			return
		}
		if err := evaluator.Load(); err != nil {
			logger.Error("failed to reload policies", "error", err)
		}
	})

	feed := notify.NewRedisSink(rdb, cfg.Notifications.FeedKey, cfg.Notifications.FeedSize)
	reporter := notify.NewReporter(metrics, notify.NewLogSink(logger), feed)

	handler := admin.NewHandler(admin.Deps{
		Providers: providerRegistry,
		Reporter:  reporter,
		Feed:      feed,
		Store:     modelStore,
		Policy:    evaluator,
		Config:    loader.Config,
		Metrics:   metrics,
	})

	keyStore := auth.NewCachedKeyStore(dbPool, rdb)
	limiter := ratelimit.NewLimiter(rdb, "aegis:admin:rl")

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Unauthenticated routes
	r.Get("/aegis/admin/v1/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(auth.Middleware(keyStore))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleViewer))
			r.Post("/models/compile", handler.CompileModels)
			r.Get("/providers", handler.ListProviders)
			r.Get("/notifications", handler.ListNotifications)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Use(ratelimit.SubmitMiddleware(limiter, func() int { return loader.Config().RateLimit.SubmitRPM }, metrics))
			r.Post("/models", handler.SubmitModels)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin API starting", "addr", addr, "version", version, "backend", modelStore.Backend())
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("admin API stopped")
}

func newStore(cfg config.BackendConfig, db *pgxpool.Pool) (store.Store, error) {
	switch cfg.Kind {
	case "postgres":
		return store.NewPostgresStore(db), nil
	default:
		return store.NewHTTPStore(cfg.BaseURL, store.HTTPOptions{
			APIKey:     cfg.APIKey,
			CreatePath: cfg.CreatePath,
			Timeout:    cfg.Timeout,
			Breaker:    store.NewCircuitBreaker(cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.RecoveryInterval),
		})
	}
}

func newLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
