package storage

import (
	"context"
	"fmt"
	"time"

	"guildkeeper/internal/config"
	"guildkeeper/internal/leveling"
	"guildkeeper/internal/storage/gormstore"
	"guildkeeper/internal/storage/jsonstore"
	"guildkeeper/internal/storage/pgstore"

	"go.uber.org/zap"
)

// Backend is the selected home of user level rows. Guild settings and the
// audit log always stay in the sqlite store.
type Backend struct {
	Driver string
	Levels leveling.Store
	flush  func() error
	close  func() error
}

// Flush pushes buffered writes to disk. Only the json driver buffers.
func (b *Backend) Flush() error {
	if b.flush == nil {
		return nil
	}
	return b.flush()
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func OpenBackend(ctx context.Context, cfg config.StorageConfig, primary *Store, logger *zap.Logger) (*Backend, error) {
	switch cfg.Driver {
	case "json":
		store, err := jsonstore.Open(cfg.JSONPath, time.Duration(cfg.JSONFlushMs)*time.Millisecond, logger)
		if err != nil {
			return nil, fmt.Errorf("open json store: %w", err)
		}
		return &Backend{Driver: cfg.Driver, Levels: store, flush: store.Flush, close: store.Close}, nil
	case "mysql":
		store, err := gormstore.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql store: %w", err)
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate mysql store: %w", err)
		}
		return &Backend{Driver: cfg.Driver, Levels: store, close: func() error { store.Close(); return nil }}, nil
	case "postgres":
		store, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return &Backend{Driver: cfg.Driver, Levels: store, close: func() error { store.Close(); return nil }}, nil
	default:
		return &Backend{Driver: "sqlite", Levels: primary}, nil
	}
}
