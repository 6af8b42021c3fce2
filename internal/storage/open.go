package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/existflow/stockdash/internal/config"
	"github.com/existflow/stockdash/internal/db"
)

// Open builds the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil

	case "", "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file storage requires a directory")
		}
		return NewFileStore(filepath.Join(cfg.Dir, "session.json"), cfg.Passphrase), nil

	case "sqlite":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite storage requires a directory")
		}
		database, err := db.OpenSQLite(ctx, db.DefaultSQLitePath(cfg.Dir))
		if err != nil {
			return nil, err
		}
		return NewSQLStore(database, cfg.Profile), nil

	case "postgres":
		database, err := db.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(database, cfg.Profile), nil

	case "redis":
		client, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Profile), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
