package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/storefront/internal/catalog"
	"github.com/memohai/storefront/internal/config"
	"github.com/memohai/storefront/internal/db"
)

type catalogStore interface {
	catalog.Store
	catalog.Writer
}

// openStore opens the configured catalog backend. The returned func releases it.
func openStore(ctx context.Context, log *slog.Logger, cfg config.Config) (catalogStore, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Catalog.Driver)) {
	case config.DriverSQLite:
		store, err := catalog.OpenSQLiteStore(ctx, log, cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.DriverPostgres, "":
		pool, err := db.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		return catalog.NewPostgresStore(log, pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q (use %s or %s)", cfg.Catalog.Driver, config.DriverPostgres, config.DriverSQLite)
	}
}
