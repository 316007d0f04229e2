package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithMemoryStore(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.ServiceName != "fellowship" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OutboxPollInterval != time.Second || cfg.OutboxBatchSize != 100 {
		t.Fatalf("unexpected outbox defaults: %+v", cfg)
	}
	if cfg.EventDedupTTL != 7*24*time.Hour || !cfg.EnablePresenceConsumer {
		t.Fatalf("unexpected consumer defaults: %+v", cfg)
	}
}

func TestLoadReadsEnvFileWithoutOverridingEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "STORE_DRIVER=memory\nHTTP_PORT=9090\nOUTBOX_BATCH_SIZE=25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("HTTP_PORT", "7070")
	// Registered through t.Setenv so the values loaded from the file are
	// restored after the test.
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("OUTBOX_BATCH_SIZE", "")
	os.Unsetenv("STORE_DRIVER")
	os.Unsetenv("OUTBOX_BATCH_SIZE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "7070" {
		t.Fatalf("expected environment to win, got %s", cfg.HTTPPort)
	}
	if cfg.StoreDriver != StoreDriverMemory || cfg.OutboxBatchSize != 25 {
		t.Fatalf("expected env file values, got %+v", cfg)
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func TestLoadRejectsUnknownBroadcastDriver(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("BROADCAST_DRIVER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected unsupported broadcast driver error")
	}
}
