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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lurebay/product-importer/internal/aliexpress"
	"github.com/lurebay/product-importer/internal/api"
	"github.com/lurebay/product-importer/internal/catalog"
	"github.com/lurebay/product-importer/internal/config"
	"github.com/lurebay/product-importer/internal/events"
	"github.com/lurebay/product-importer/internal/extract"
	"github.com/lurebay/product-importer/internal/firecrawl"
	"github.com/lurebay/product-importer/internal/importer"
	"github.com/lurebay/product-importer/internal/metrics"
	"github.com/lurebay/product-importer/internal/ratelimit"
	"github.com/lurebay/product-importer/internal/rehost"
	"github.com/lurebay/product-importer/internal/storage"
)

func main() {
	// No .env is fine; the system environment wins either way.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	resolver := aliexpress.NewResolver(&http.Client{Timeout: cfg.Import.ResolveTimeout}, logger)
	limiter := ratelimit.NewJittered(cfg.Scrape.RateLimitMin, cfg.Scrape.RateLimitMax)
	fetcher := firecrawl.NewClient(firecrawl.Config{
		APIKey:  cfg.Scrape.APIKey,
		BaseURL: cfg.Scrape.BaseURL,
		WaitFor: cfg.Scrape.WaitFor,
		Timeout: cfg.Scrape.Timeout,
	}, limiter, logger)

	importService := importer.NewService(resolver, fetcher, importer.Config{
		MaxChain:    cfg.Import.MaxChain,
		Placeholder: extract.PlaceholderPolicy{Enabled: cfg.Import.PlaceholderStats},
	}, m, logger)

	var rehoster api.Rehoster
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3(ctx, storage.Config{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		rehoster = rehost.New(s3Storage, rehost.Config{
			Concurrency:     cfg.Rehost.Concurrency,
			DownloadTimeout: cfg.Rehost.DownloadTimeout,
			PathPrefix:      cfg.Rehost.PathPrefix,
		}, m, logger)
	} else {
		logger.Warn("S3_BUCKET not set, imported products keep vendor-hosted image URLs")
	}

	var store api.Catalog
	if cfg.Database.Enabled {
		catalogStore, err := catalog.New(ctx, catalog.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: cfg.Database.MaxConns,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer catalogStore.Close()
		store = catalogStore
	}

	var publisher api.EventPublisher
	if cfg.Redis.Enabled {
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
		publisher = events.NewPublisher(redisClient, cfg.Redis.Stream, logger)
	}

	handlers := api.NewHandlers(importService, rehoster, store, publisher, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.BearerAuth(cfg.API.ImportToken))
		r.Post("/products/import", handlers.ImportProduct)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
