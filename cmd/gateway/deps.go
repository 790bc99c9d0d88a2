package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goGate/identity"
	"github.com/MrEthical07/goGate/internal/config"
	"go.uber.org/zap"
)

// storeHandle is an opened identity store with its lifecycle hooks.
type storeHandle struct {
	identity.Store
	migrate func(context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (*storeHandle, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := identity.OpenPostgres(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return &storeHandle{Store: pg, migrate: pg.Migrate, close: pg.Close}, nil
	case "sqlite":
		lite, err := identity.OpenSQLite(cfg.URL)
		if err != nil {
			return nil, err
		}
		return &storeHandle{
			Store:   lite,
			migrate: lite.Migrate,
			close:   func() { _ = lite.Close() },
		}, nil
	case "memory":
		return &storeHandle{
			Store:   identity.NewMemory(),
			migrate: func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
