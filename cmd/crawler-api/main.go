package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/storefront-crawler/internal/api"
	"github.com/maltedev/storefront-crawler/internal/browser"
	"github.com/maltedev/storefront-crawler/internal/cache"
	"github.com/maltedev/storefront-crawler/internal/config"
	"github.com/maltedev/storefront-crawler/internal/crawler"
	"github.com/maltedev/storefront-crawler/internal/database"
	"github.com/maltedev/storefront-crawler/internal/metrics"
	"github.com/maltedev/storefront-crawler/internal/sites"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := cfg.Logging.Logger()
	slog.SetDefault(logger)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []crawler.Option{
		crawler.WithRetryPolicy(crawler.RetryPolicy{
			MaxRetries: cfg.Crawler.MaxRetries,
			BaseDelay:  cfg.Crawler.BackoffBase,
		}),
		crawler.WithLimits(cfg.Crawler.DefaultLimit, cfg.Crawler.MaxLimit),
		crawler.WithMetrics(m),
	}

	var checks []namedCheck

	// Optional result cache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		opts = append(opts, crawler.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, logger)))
		checks = append(checks, namedCheck{"redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		logger.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	// Site registry
	var store sites.Store
	switch cfg.Sites.Store {
	case "postgres":
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
		pgStore := sites.NewPostgresStore(db)
		if err := pgStore.Seed(ctx); err != nil {
			logger.Error("failed to seed sites", "error", err)
			os.Exit(1)
		}
		store = pgStore
		checks = append(checks, namedCheck{"postgres", db.Ping})
	default:
		fileStore, err := sites.NewFileStore(cfg.Sites.File)
		if err != nil {
			logger.Error("failed to open site registry", "file", cfg.Sites.File, "error", err)
			os.Exit(1)
		}
		store = fileStore
	}

	// Browser launched per crawl request
	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.SettleDelay = cfg.Browser.SettleDelay
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	browserOpts.UserAgent = cfg.Browser.UserAgent
	browserOpts.AcceptLanguage = cfg.Browser.AcceptLanguage
	browserOpts.TimezoneID = cfg.Browser.TimezoneID
	browserOpts.Locale = cfg.Browser.Locale
	browserOpts.ProxyServer = cfg.Browser.ProxyServer
	browserOpts.BlockedResourceTypes = cfg.Browser.BlockedResourceTypes()

	c := crawler.New(browser.Launcher(browserOpts, logger), logger, opts...)

	// Initialize API handlers
	handlers := api.NewHandlers(c, store, logger)
	for _, check := range checks {
		handlers.AddHealthCheck(check.name, check.fn)
	}

	router := api.NewRouter(handlers, m, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr, "sites", cfg.Sites.Store)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

type namedCheck struct {
	name string
	fn   api.HealthCheck
}
