// Package config loads runtime settings for the library CLI from an optional
// .env file and LIBRARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "LIBRARY_"

// Storage backends understood by [Config.Storage].
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Password hashers understood by [App.PasswordHasher].
const (
	HasherBcrypt   = "bcrypt"
	HasherChecksum = "checksum"
)

// Validation errors returned by [Config.Validate].
var (
	// ErrInvalidStorageConfig indicates an unknown backend or a missing
	// path/address for the selected one.
	ErrInvalidStorageConfig = errors.New("invalid storage configuration")
	// ErrInvalidAppConfig indicates out-of-range lending rules or an
	// unknown password hasher.
	ErrInvalidAppConfig = errors.New("invalid app configuration")
)

// Config is the top-level configuration.
type Config struct {
	Storage Storage `envPrefix:"STORAGE_"`
	App     App     `envPrefix:"APP_"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// Storage selects and configures the key-value backend.
type Storage struct {
	// Backend is one of sqlite, redis or memory.
	Backend string `env:"BACKEND" envDefault:"sqlite"`

	// SQLiteDriver is the database/sql driver name: sqlite3 (cgo,
	// mattn/go-sqlite3) or sqlite (pure Go, modernc.org/sqlite).
	SQLiteDriver string `env:"SQLITE_DRIVER" envDefault:"sqlite3"`
	DBPath       string `env:"DB_PATH" envDefault:"library.db"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"library:"`
}

// App holds lending rules and account settings.
type App struct {
	PasswordHasher string `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"10"`

	BorrowQuota   int   `env:"BORROW_QUOTA" envDefault:"5"`
	PenaltyPerDay int64 `env:"PENALTY_PER_DAY" envDefault:"2000"`

	// MaxBorrowDays bounds the duration the CLI accepts. The ledger itself
	// takes any positive value.
	MaxBorrowDays int `env:"MAX_BORROW_DAYS" envDefault:"7"`

	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"30s"`
}

// Load reads envFile (if it exists) into the process environment and then
// parses LIBRARY_* variables. A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields that the CLI cannot recover from.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.DBPath) == "" {
			return fmt.Errorf("%w: empty db path", ErrInvalidStorageConfig)
		}
		if c.Storage.SQLiteDriver != "sqlite3" && c.Storage.SQLiteDriver != "sqlite" {
			return fmt.Errorf("%w: unknown sqlite driver %q", ErrInvalidStorageConfig, c.Storage.SQLiteDriver)
		}
	case BackendRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("%w: empty redis address", ErrInvalidStorageConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidStorageConfig, c.Storage.Backend)
	}

	if c.App.PasswordHasher != HasherBcrypt && c.App.PasswordHasher != HasherChecksum {
		return fmt.Errorf("%w: unknown password hasher %q", ErrInvalidAppConfig, c.App.PasswordHasher)
	}
	if c.App.BorrowQuota <= 0 {
		return fmt.Errorf("%w: borrow quota must be positive", ErrInvalidAppConfig)
	}
	if c.App.PenaltyPerDay < 0 {
		return fmt.Errorf("%w: negative penalty rate", ErrInvalidAppConfig)
	}
	if c.App.MaxBorrowDays <= 0 {
		return fmt.Errorf("%w: max borrow days must be positive", ErrInvalidAppConfig)
	}
	return nil
}
