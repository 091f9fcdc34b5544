package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config gathers the process settings, read from the environment (and .env if present)
type Config struct {
	HTTPAddr string
	DB       DBConfig
	// RedisAddr enables pub/sub notification publishing when set
	RedisAddr     string
	RedisPassword string
	RedisChannel  string
	// MaxCommitAttempts bounds the re-read/re-validate loop when a price compare-and-swap is lost
	MaxCommitAttempts int
	MigrationsPath    string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Enabled reports whether a Postgres database was configured, the in-memory store is used otherwise
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// DSN builds the postgres url
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	attempts, err := intEnv("LEDGER_MAX_COMMIT_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, fmt.Errorf("config: LEDGER_MAX_COMMIT_ATTEMPTS must be at least 1, got %d", attempts)
	}

	return &Config{
		HTTPAddr: stringEnv("HTTP_ADDR", ":9000"),
		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     stringEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  stringEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:         os.Getenv("REDIS_ADDRESS"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisChannel:      stringEnv("REDIS_CHANNEL", "auction_notifications"),
		MaxCommitAttempts: attempts,
		MigrationsPath:    stringEnv("MIGRATIONS_PATH", "file://internal/shared/db/migrations/sql"),
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
