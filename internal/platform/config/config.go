package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"

	BroadcastDriverMemory   = "memory"
	BroadcastDriverPGNotify = "pgnotify"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName        string        `envconfig:"SERVICE_NAME" default:"fellowship"`
	HTTPPort           string        `envconfig:"HTTP_PORT" default:"8080"`
	StoreDriver        string        `envconfig:"STORE_DRIVER" default:"postgres"`
	PostgresDSN        string        `envconfig:"POSTGRES_DSN"`
	BroadcastDriver    string        `envconfig:"BROADCAST_DRIVER" default:"memory"`
	BroadcastChannel   string        `envconfig:"BROADCAST_CHANNEL" default:"election_events"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"1s"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	EventDedupTTL      time.Duration `envconfig:"EVENT_DEDUP_TTL" default:"168h"`

	EnablePresenceConsumer bool `envconfig:"ENABLE_PRESENCE_CONSUMER" default:"true"`
}

// Load reads an optional .env file (ENV_FILE overrides the path) and then the
// process environment. Values already set in the environment win.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", path, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.BroadcastDriver = strings.ToLower(strings.TrimSpace(cfg.BroadcastDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.BroadcastDriver {
	case BroadcastDriverMemory:
	case BroadcastDriverPGNotify:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required when BROADCAST_DRIVER=pgnotify")
		}
	default:
		return fmt.Errorf("unsupported BROADCAST_DRIVER %q", c.BroadcastDriver)
	}
	if c.OutboxBatchSize <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}
