// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the site generator server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitegen/internal/ai"
	"sitegen/internal/cache"
	"sitegen/internal/config"
	"sitegen/internal/database"
	"sitegen/internal/engine"
	"sitegen/internal/handlers"
	"sitegen/internal/inject"
	"sitegen/internal/metrics"
	"sitegen/internal/middleware"
	"sitegen/internal/prompt"
	"sitegen/internal/render"
	"sitegen/internal/router"
	"sitegen/internal/schema"
	"sitegen/internal/session"
	"sitegen/internal/storage"
	"sitegen/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(logHandler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"document_store", cfg.DocumentStore,
		"rate_limit_backend", cfg.RateLimitBackend,
	)

	m := metrics.New()

	// Valkey backs the page cache and, when selected, the rate limiter.
	// The server runs without it unless the rate limiter depends on it.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		if cfg.RateLimitBackend == "valkey" {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		slog.Warn("valkey not reachable, page cache and persistent carts disabled", "error", err)
	} else {
		defer valkeyClient.Close()
	}

	var rateStore middleware.RateStore = middleware.NewMemoryRateStore(cfg.RateLimitWindow)
	if cfg.RateLimitBackend == "valkey" {
		rateStore = cache.NewRateStore(valkeyClient, cfg.RateLimitWindow)
	}

	// Visitor carts survive restarts when Valkey is up.
	var pageCache *cache.PageCache
	var carts store.CartStore = store.NewCarts()
	if valkeyClient != nil {
		pageCache = cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
		carts = session.NewStore(valkeyClient, 0)
	}

	// Document persistence: process memory by default, PostgreSQL on request.
	var documents store.Documents = store.NewMemoryDocuments()
	if cfg.DocumentStore == "postgres" {
		var db *sql.DB
		db, err = database.Connect(context.Background(), cfg.DSN())
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		documents = store.NewPostgresDocuments(db)
	}

	// S3-compatible object storage for publishing (optional).
	var publisher handlers.Publisher
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		publisher = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	} else {
		slog.Warn("s3 storage not configured, publishing disabled")
	}

	// Initialize the AI provider registry with all configured providers.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, EliteModel: cfg.OpenAIEliteModel, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, EliteModel: cfg.GeminiEliteModel, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, EliteModel: cfg.ClaudeEliteModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, EliteModel: cfg.MistralEliteModel, BaseURL: cfg.MistralBaseURL},
	})
	if !aiRegistry.HasProvider(cfg.AIProvider) {
		slog.Warn("active ai provider has no API key, generation will fail", "provider", cfg.AIProvider)
	}
	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)

	composer, err := prompt.New()
	if err != nil {
		slog.Error("failed to load prompt templates", "error", err)
		os.Exit(1)
	}
	images, err := schema.NewImagePicker(nil)
	if err != nil {
		slog.Error("failed to load image catalog", "error", err)
		os.Exit(1)
	}
	eng, err := engine.New(m)
	if err != nil {
		slog.Error("failed to initialize block engine", "error", err)
		os.Exit(1)
	}
	shell, err := render.New()
	if err != nil {
		slog.Error("failed to initialize page renderer", "error", err)
		os.Exit(1)
	}
	injector, err := inject.NewRenderer(cfg.InjectionRetryDelays)
	if err != nil {
		slog.Error("failed to load legacy templates", "error", err)
		os.Exit(1)
	}

	// Create handler groups with their dependencies.
	generation := handlers.NewGeneration(
		composer,
		ai.NewClient(aiRegistry, cfg.UpstreamTimeout, cfg.StreamTimeout),
		schema.NewNormalizer(images),
		documents,
		m,
		cfg.IsDev(),
	)
	sites := handlers.NewSites(documents, eng, shell, injector, pageCache, publisher, carts, cfg.PublicBaseURL)

	gate := router.Gate{
		Origins:  middleware.NewOriginPolicy(cfg.AllowedOrigins, cfg.TrustedOriginSuffixes, cfg.PrimaryOrigin),
		Limiter:  middleware.NewRateLimiter(rateStore, cfg.RateLimitMax, cfg.RateLimitWindow, m),
		InFlight: middleware.NewInFlight(m),
	}
	r := router.New(gate, generation, sites, m)

	// WriteTimeout must outlast a whole generation stream.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.StreamTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
