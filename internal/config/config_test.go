package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Upload.MaxFileSize != 50*1024*1024 {
		t.Fatalf("unexpected max file size: %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Upload.PresignExpiry != 15*time.Minute {
		t.Fatalf("unexpected presign expiry: %s", cfg.Upload.PresignExpiry)
	}
	if cfg.Cleanup.PendingMaxAge != 30*time.Minute {
		t.Fatalf("unexpected pending max age: %s", cfg.Cleanup.PendingMaxAge)
	}
	if cfg.Cleanup.FailedMaxAge != 7*24*time.Hour {
		t.Fatalf("unexpected failed max age: %s", cfg.Cleanup.FailedMaxAge)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MEDIAHOST_API_PORT", "9090")
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "1048576")
	t.Setenv("QUOTA_CACHE_TTL", "30s")
	t.Setenv("MINIO_USE_SSL", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address())
	}
	if cfg.Upload.MaxFileSize != 1048576 {
		t.Fatalf("unexpected max file size: %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Quota.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected cache ttl: %s", cfg.Quota.CacheTTL)
	}
	if !cfg.MinIO.UseSSL {
		t.Fatalf("expected MINIO_USE_SSL to be parsed as true")
	}
}

func TestLoadRejectsNonPositiveMaxFileSize(t *testing.T) {
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero max file size")
	}
}
