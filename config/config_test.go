package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ADDR", "POSTS_DIR", "PROFILE_PATH", "DEFAULT_LANG", "LANGUAGES",
		"PAGE_SIZE", "CACHE_BACKEND", "CACHE_DIR", "CACHE_PATH",
		"TRANSLATE_PROVIDER", "TRANSLATE_PROXY", "TRANSLATE_TIMEOUT",
		"TRANSLATE_RETRIES", "TRANSLATE_RPS", "TRANSLATE_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DefaultLang != "en" {
		t.Errorf("DefaultLang = %q, want en", cfg.DefaultLang)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[0] != "en" || cfg.Languages[1] != "zh" {
		t.Errorf("Languages = %v, want [en zh]", cfg.Languages)
	}
	if cfg.CacheBackend != CacheBackendFile {
		t.Errorf("CacheBackend = %q, want file", cfg.CacheBackend)
	}
	if cfg.TranslateTimeout != 15*time.Second {
		t.Errorf("TranslateTimeout = %v, want 15s", cfg.TranslateTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LANGUAGES", "zh, en ,ja")
	t.Setenv("DEFAULT_LANG", "zh")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("TRANSLATE_TIMEOUT", "30s")
	t.Setenv("TRANSLATE_RETRIES", "5")
	t.Setenv("TRANSLATE_PROXY", "http://proxy.internal:3128")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Languages) != 3 {
		t.Fatalf("Languages = %v, want 3 entries", cfg.Languages)
	}
	if cfg.DefaultLang != "zh" {
		t.Errorf("DefaultLang = %q, want zh", cfg.DefaultLang)
	}
	if cfg.CacheBackend != CacheBackendSQLite {
		t.Errorf("CacheBackend = %q, want sqlite", cfg.CacheBackend)
	}
	if cfg.TranslateTimeout != 30*time.Second {
		t.Errorf("TranslateTimeout = %v, want 30s", cfg.TranslateTimeout)
	}
	if cfg.TranslateRetries != 5 {
		t.Errorf("TranslateRetries = %d, want 5", cfg.TranslateRetries)
	}
	if cfg.TranslateProxy != "http://proxy.internal:3128" {
		t.Errorf("TranslateProxy = %q", cfg.TranslateProxy)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown cache backend", "CACHE_BACKEND", "redis"},
		{"default lang not listed", "DEFAULT_LANG", "fr"},
		{"non-positive page size", "PAGE_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s, want error", tt.key, tt.val)
			}
		})
	}
}

func TestHasLanguage(t *testing.T) {
	cfg := &Config{Languages: []string{"en", "zh"}}
	if !cfg.HasLanguage("zh") {
		t.Error("HasLanguage(zh) = false, want true")
	}
	if cfg.HasLanguage("fr") {
		t.Error("HasLanguage(fr) = true, want false")
	}
}
