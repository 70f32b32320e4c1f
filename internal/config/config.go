// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. A .env file in the working directory, when present, is loaded
// first; variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host          string
	Port          string
	Env           string // "development", "production", "testing"
	LogLevel      string
	PublicBaseURL string

	// Generation providers. Each provider has a fast (default) and an elite model.
	AIProvider        string
	OpenAIKey         string
	OpenAIModel       string
	OpenAIEliteModel  string
	OpenAIBaseURL     string
	GeminiKey         string
	GeminiModel       string
	GeminiEliteModel  string
	GeminiBaseURL     string
	ClaudeKey         string
	ClaudeModel       string
	ClaudeEliteModel  string
	ClaudeBaseURL     string
	MistralKey        string
	MistralModel      string
	MistralEliteModel string
	MistralBaseURL    string

	// Upstream timeouts. UpstreamTimeout bounds the wait for the response
	// headers; StreamTimeout bounds a whole streamed body.
	UpstreamTimeout time.Duration
	StreamTimeout   time.Duration

	// Admission control
	PrimaryOrigin         string
	AllowedOrigins        []string
	TrustedOriginSuffixes []string
	RateLimitMax          int
	RateLimitWindow       time.Duration
	RateLimitBackend      string // "memory" or "valkey"
	InjectionRetryDelays  []time.Duration

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	PageCacheTTL   time.Duration

	// Document persistence
	DocumentStore string // "memory" or "postgres"
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string

	// S3-compatible object storage for published sites
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

// defaultAllowedOrigins are the local development origins accepted when
// ALLOWED_ORIGINS is not set.
var defaultAllowedOrigins = []string{
	"http://127.0.0.1:8080",
	"http://localhost:8080",
	"http://localhost:8888",
	"http://localhost:5500",
	"http://localhost:3000",
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if a value cannot be
// parsed or if critical values are missing in production mode.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Host:          envOrDefault("APP_HOST", "0.0.0.0"),
		Port:          envOrDefault("APP_PORT", "8080"),
		Env:           envOrDefault("APP_ENV", "development"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		PublicBaseURL: strings.TrimRight(envOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		AIProvider:        envOrDefault("AI_PROVIDER", "openai"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEliteModel:  envOrDefault("OPENAI_MODEL_ELITE", "gpt-4o"),
		OpenAIBaseURL:     envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEliteModel:  envOrDefault("GEMINI_MODEL_ELITE", "gemini-2.5-pro"),
		GeminiBaseURL:     os.Getenv("GEMINI_BASE_URL"),
		ClaudeKey:         os.Getenv("CLAUDE_API_KEY"),
		ClaudeModel:       envOrDefault("CLAUDE_MODEL", "claude-sonnet-4-5"),
		ClaudeEliteModel:  envOrDefault("CLAUDE_MODEL_ELITE", "claude-opus-4-1"),
		ClaudeBaseURL:     envOrDefault("CLAUDE_BASE_URL", "https://api.anthropic.com"),
		MistralKey:        os.Getenv("MISTRAL_API_KEY"),
		MistralModel:      envOrDefault("MISTRAL_MODEL", "mistral-small-latest"),
		MistralEliteModel: envOrDefault("MISTRAL_MODEL_ELITE", "mistral-large-latest"),
		MistralBaseURL:    envOrDefault("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),

		PrimaryOrigin:         os.Getenv("PRIMARY_ORIGIN"),
		AllowedOrigins:        listOrDefault("ALLOWED_ORIGINS", defaultAllowedOrigins),
		TrustedOriginSuffixes: listOrDefault("TRUSTED_ORIGIN_SUFFIXES", []string{".netlify.app", ".vercel.app"}),
		RateLimitBackend:      envOrDefault("RATE_LIMIT_BACKEND", "memory"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		DocumentStore: envOrDefault("DOCUMENT_STORE", "memory"),
		DBHost:        envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:        envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:        envOrDefault("POSTGRES_USER", "sitegen"),
		DBPassword:    envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:        envOrDefault("POSTGRES_DB", "sitegen"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "sitegen-sites"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	var err error
	if cfg.UpstreamTimeout, err = durationOrDefault("UPSTREAM_TIMEOUT", 28*time.Second); err != nil {
		return nil, err
	}
	if cfg.StreamTimeout, err = durationOrDefault("STREAM_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = durationOrDefault("RATE_LIMIT_WINDOW", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.PageCacheTTL, err = durationOrDefault("PAGE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = intOrDefault("RATE_LIMIT_MAX", 10); err != nil {
		return nil, err
	}
	if cfg.InjectionRetryDelays, err = durationsOrDefault("INJECT_RETRY_DELAYS",
		[]time.Duration{800 * time.Millisecond, 2 * time.Second, 4 * time.Second}); err != nil {
		return nil, err
	}

	switch cfg.RateLimitBackend {
	case "memory", "valkey":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or valkey, got %q", cfg.RateLimitBackend)
	}
	switch cfg.DocumentStore {
	case "memory", "postgres":
	default:
		return nil, fmt.Errorf("DOCUMENT_STORE must be memory or postgres, got %q", cfg.DocumentStore)
	}

	if cfg.Env == "production" && cfg.DocumentStore == "postgres" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SlogLevel maps LogLevel to a slog level. Development defaults to debug,
// every other environment to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.IsDev() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// loadDotEnv loads .env into the process environment without overriding
// variables that are already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// listOrDefault reads a comma-separated list, dropping empty items.
func listOrDefault(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func durationsOrDefault(key string, fallback []time.Duration) ([]time.Duration, error) {
	items := listOrDefault(key, nil)
	if items == nil {
		return fallback, nil
	}
	out := make([]time.Duration, 0, len(items))
	for _, item := range items {
		d, err := time.ParseDuration(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}
