package store

import (
	"context"
	"fmt"

	"github.com/tabslayer/tabslayer-server/internal/config"
	"github.com/tabslayer/tabslayer-server/internal/logger"
)

// Open returns the key/value backend selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (KV, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.DatabaseURL)
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, log)
	case config.BackendMemory:
		log.Warn("using in-memory storage, the vault will not survive a restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
