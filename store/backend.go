// Package store opens the configured property store backend.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/landbank/compliance-engine/compliance"
	memstore "github.com/landbank/compliance-engine/compliance/store"
	"github.com/landbank/compliance-engine/config"
	"github.com/landbank/compliance-engine/store/postgres"
	"github.com/landbank/compliance-engine/store/sqlite"
)

// Backend is everything the server and CLI need from a store.
type Backend interface {
	compliance.PropertyStore
	compliance.PropertyWriter
	compliance.RunStore
	Reset(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*postgres.Store)(nil)
	_ Backend = (*memstore.Memory)(nil)
)

// Open returns the backend selected by cfg.Store.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	case config.StoreMemory:
		return memstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
