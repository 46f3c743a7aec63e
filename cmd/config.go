package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"wp-pump/internal/dialect"
	"wp-pump/internal/store"
	"wp-pump/internal/store/sqlstore"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type StoreConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

// GetActiveStoreConfig returns the active entry of "stores". Without a
// list, or when --driver is given, store.driver and store.dsn are used.
func GetActiveStoreConfig() (*StoreConfig, error) {
	var configs []StoreConfig
	if err := viper.UnmarshalKey("stores", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse stores config: %w", err)
	}

	if len(configs) == 0 || RootCmd.PersistentFlags().Changed("driver") {
		return &StoreConfig{
			Name:   "default",
			Driver: viper.GetString("store.driver"),
			DSN:    viper.GetString("store.dsn"),
			Active: true,
		}, nil
	}

	var active *StoreConfig
	count := 0
	for i := range configs {
		if configs[i].Active {
			active = &configs[i]
			count++
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("no active store found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active stores found (only one can be active)")
	}
	return active, nil
}

// openSQLStore connects to a database-backed store. With migrate set the
// store tables are created when missing.
func openSQLStore(ctx context.Context, cfg *StoreConfig, migrate bool) (*sqlstore.Store, *sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil, fmt.Errorf("store %s: dsn is required for driver %s", cfg.Name, cfg.Driver)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	s := sqlstore.New(db, dialect.GetDialect(cfg.Driver), nil)
	if migrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	logrus.WithFields(logrus.Fields{"store": cfg.Name, "driver": cfg.Driver}).Info("store ready")
	return s, db, nil
}

// openStore returns the configured store and a function releasing it.
// A dry run never changes the database schema: when the store tables do
// not exist yet it reads from an empty in-memory store instead.
func openStore(ctx context.Context, cfg *StoreConfig, dryRun bool) (store.Store, func() error, error) {
	noop := func() error { return nil }
	if cfg.Driver == "" || cfg.Driver == "memory" {
		return store.NewMemory(nil), noop, nil
	}
	s, db, err := openSQLStore(ctx, cfg, !dryRun)
	if err != nil {
		return nil, nil, err
	}
	if dryRun && !s.Migrated(ctx) {
		logrus.WithField("store", cfg.Name).Info("store tables missing, dry run starts from an empty store")
		db.Close()
		return store.NewMemory(nil), noop, nil
	}
	return s, db.Close, nil
}
