package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("RATE_LIMIT_REQUESTS", "")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitRequests != 100 {
		t.Fatalf("RateLimitRequests = %d, want 100", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("RateLimitWindow = %s, want 1m", cfg.RateLimitWindow)
	}
	if cfg.CacheTTLActiveJob != 10*time.Second {
		t.Fatalf("CacheTTLActiveJob = %s, want 10s", cfg.CacheTTLActiveJob)
	}
	if cfg.CacheTTLCompletedJob != time.Hour {
		t.Fatalf("CacheTTLCompletedJob = %s, want 1h", cfg.CacheTTLCompletedJob)
	}
	if cfg.LLMTimeout != 120*time.Second {
		t.Fatalf("LLMTimeout = %s, want 2m", cfg.LLMTimeout)
	}
	if cfg.StorageBackend != "filesystem" {
		t.Fatalf("StorageBackend = %q, want filesystem", cfg.StorageBackend)
	}
	if cfg.CodegenLanguage != "python" {
		t.Fatalf("CodegenLanguage = %q, want python", cfg.CodegenLanguage)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRejectsUnknownStorageBackend(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "ftp")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unsupported storage backend")
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("LLM_MAX_RPS", "2.5")
	t.Setenv("LLM_CACHE_ENABLED", "false")
	t.Setenv("WORKER_CONCURRENCY", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBackend != "s3" {
		t.Fatalf("StorageBackend = %q, want s3", cfg.StorageBackend)
	}
	if cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("rate limit = %d/%s, want 10/30s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.LLMMaxRPS != 2.5 {
		t.Fatalf("LLMMaxRPS = %v, want 2.5", cfg.LLMMaxRPS)
	}
	if cfg.LLMCacheEnabled {
		t.Fatalf("LLMCacheEnabled should be false")
	}
	if cfg.WorkerConcurrency != 1 {
		t.Fatalf("WorkerConcurrency = %d, want 1", cfg.WorkerConcurrency)
	}
}
