package library

import (
	"context"
	"fmt"

	"library-catalog/internal/config"
	"library-catalog/internal/logger"
)

// OpenStore builds the Store selected by cfg. It logs through the logger
// attached to ctx, if any.
func OpenStore(ctx context.Context, cfg config.Storage) (Store, error) {
	log := logger.FromContext(ctx)
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := NewDatabase(cfg.SQLiteDriver, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("driver", cfg.SQLiteDriver).Str("path", cfg.DBPath).Msg("sqlite store opened")
		return db, nil
	case config.BackendRedis:
		rs, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		log.Debug().Str("addr", cfg.RedisAddr).Msg("redis store opened")
		return rs, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidStorageConfig, cfg.Backend)
	}
}

// NewHasher returns the password hasher named in cfg.
func NewHasher(cfg config.App) (PasswordHasher, error) {
	switch cfg.PasswordHasher {
	case config.HasherBcrypt, "":
		return BcryptHasher{Cost: cfg.BcryptCost}, nil
	case config.HasherChecksum:
		return ChecksumHasher{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown password hasher %q", config.ErrInvalidAppConfig, cfg.PasswordHasher)
	}
}

// Open is the one-stop constructor used by the binaries: store, hasher and
// manager built from a validated Config.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*LibraryManager, error) {
	store, err := OpenStore(log.WithContext(ctx), cfg.Storage)
	if err != nil {
		return nil, err
	}
	hasher, err := NewHasher(cfg.App)
	if err != nil {
		store.Close()
		return nil, err
	}
	return NewLibraryManager(store, Options{
		Hasher:          hasher,
		Quota:           cfg.App.BorrowQuota,
		PenaltyPerDay:   &cfg.App.PenaltyPerDay,
		DownloadTimeout: cfg.App.DownloadTimeout,
		Logger:          log,
	}), nil
}
