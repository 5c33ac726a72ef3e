package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	ReturnSignalVisibility = "visibility"
	ReturnSignalManual     = "manual"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	APIHost        string `env:"API_HOST,default=127.0.0.1"`
	APIPort        int    `env:"API_PORT,default=8080"`
	StoreDriver    string `env:"STORE_DRIVER,default=sqlite"`
	SQLitePath     string `env:"SQLITE_PATH,default=data/message-scheduler.db"`
	DatabaseDSN    string `env:"DATABASE_DSN"`
	RedisURL       string `env:"REDIS_URL"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX,default=message-scheduler:"`
	LinkBaseURL    string `env:"LINK_BASE_URL,default=https://wa.me"`
	ReturnSignal   string `env:"RETURN_SIGNAL,default=visibility"`
	ContactsURL    string `env:"CONTACTS_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.ReturnSignal = strings.ToLower(strings.TrimSpace(cfg.ReturnSignal))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the selected store driver depends on.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid config: API_PORT %d out of range", c.APIPort)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("invalid config: SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("invalid config: DATABASE_DSN is required for the postgres store")
		}
	case StoreRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("invalid config: REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("invalid config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.ReturnSignal {
	case ReturnSignalVisibility, ReturnSignalManual:
	default:
		return fmt.Errorf("invalid config: unknown RETURN_SIGNAL %q", c.ReturnSignal)
	}

	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}
