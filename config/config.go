// Package config loads polyblog settings from environment variables,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend identifiers.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// Config holds all runtime settings.
type Config struct {
	// Addr is the HTTP listen address (host:port).
	Addr string
	// PostsDir is the directory containing post source files.
	PostsDir string
	// ProfilePath is the YAML file with profile card and project content.
	ProfilePath string

	// DefaultLang is the language served at / redirects.
	DefaultLang string
	// Languages are the site languages, in display order.
	Languages []string
	// PageSize is the number of articles per list page.
	PageSize int

	// CacheBackend selects the translation cache store: "file" or "sqlite".
	CacheBackend string
	// CacheDir is the directory for the file backend.
	CacheDir string
	// CachePath is the database file for the sqlite backend.
	CachePath string

	// TranslateProvider selects the translation backend: "google" or "openai".
	TranslateProvider string
	// TranslateBaseURL overrides the provider endpoint (openai provider).
	TranslateBaseURL string
	// TranslateAPIKey authenticates against the provider (openai provider).
	TranslateAPIKey string
	// TranslateModel is the model identifier (openai provider).
	TranslateModel string
	// TranslateProxy routes provider requests through an HTTP/HTTPS
	// proxy. Empty means honor the standard proxy environment variables.
	TranslateProxy string
	// TranslateTimeout bounds each translation request.
	TranslateTimeout time.Duration
	// TranslateRetries is the retry budget per request on 429/5xx.
	TranslateRetries int
	// TranslateRPS paces outgoing translation calls.
	TranslateRPS float64
	// TranslateConcurrency caps concurrent segment translations per render.
	TranslateConcurrency int
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Addr:        getEnv("ADDR", ":8080"),
		PostsDir:    getEnv("POSTS_DIR", "./posts"),
		ProfilePath: getEnv("PROFILE_PATH", "./profile.yaml"),

		DefaultLang: getEnv("DEFAULT_LANG", "en"),
		Languages:   splitList(getEnv("LANGUAGES", "en,zh")),
		PageSize:    getEnvInt("PAGE_SIZE", 10),

		CacheBackend: getEnv("CACHE_BACKEND", CacheBackendFile),
		CacheDir:     getEnv("CACHE_DIR", "./.translation-cache"),
		CachePath:    getEnv("CACHE_PATH", "./.translation-cache/translations.db"),

		TranslateProvider:    getEnv("TRANSLATE_PROVIDER", "google"),
		TranslateBaseURL:     getEnv("TRANSLATE_BASE_URL", ""),
		TranslateAPIKey:      getEnv("TRANSLATE_API_KEY", ""),
		TranslateModel:       getEnv("TRANSLATE_MODEL", ""),
		TranslateProxy:       getEnv("TRANSLATE_PROXY", ""),
		TranslateTimeout:     getEnvDuration("TRANSLATE_TIMEOUT", 15*time.Second),
		TranslateRetries:     getEnvInt("TRANSLATE_RETRIES", 2),
		TranslateRPS:         getEnvFloat("TRANSLATE_RPS", 5),
		TranslateConcurrency: getEnvInt("TRANSLATE_CONCURRENCY", 4),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case CacheBackendFile, CacheBackendSQLite:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want %q or %q)",
			c.CacheBackend, CacheBackendFile, CacheBackendSQLite)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("LANGUAGES must name at least one language")
	}
	if !c.HasLanguage(c.DefaultLang) {
		return fmt.Errorf("DEFAULT_LANG %q is not in LANGUAGES %v", c.DefaultLang, c.Languages)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	return nil
}

// HasLanguage reports whether lang is one of the configured site languages.
func (c *Config) HasLanguage(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
