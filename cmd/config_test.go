package cmd

import (
	"testing"
	"time"

	"wp-pump/internal/engine"
	"wp-pump/internal/store"
	"wp-pump/internal/store/sqlstore"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func withStores(t *testing.T, stores []map[string]any) {
	t.Helper()
	viper.Set("stores", stores)
	t.Cleanup(func() { viper.Set("stores", nil) })
}

func TestGetActiveStoreConfig_Default(t *testing.T) {
	withStores(t, nil)
	cfg, err := GetActiveStoreConfig()
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "wp-pump.db", cfg.DSN)
}

func TestGetActiveStoreConfig_List(t *testing.T) {
	withStores(t, []map[string]any{
		{"name": "local", "driver": "sqlite", "dsn": "a.db", "active": false},
		{"name": "staging", "driver": "postgres", "dsn": "postgres://x", "active": true},
	})
	cfg, err := GetActiveStoreConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Name)
	assert.Equal(t, "postgres", cfg.Driver)
}

func TestGetActiveStoreConfig_Errors(t *testing.T) {
	withStores(t, []map[string]any{
		{"name": "a", "driver": "sqlite", "dsn": "a.db"},
	})
	_, err := GetActiveStoreConfig()
	assert.ErrorContains(t, err, "no active store")

	withStores(t, []map[string]any{
		{"name": "a", "driver": "sqlite", "dsn": "a.db", "active": true},
		{"name": "b", "driver": "sqlite", "dsn": "b.db", "active": true},
	})
	_, err = GetActiveStoreConfig()
	assert.ErrorContains(t, err, "multiple active stores")
}

func TestImportOptions_Defaults(t *testing.T) {
	opts := importOptions()
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, 30*time.Second, opts.StoreTimeout)
	assert.Equal(t, 1, opts.MinCoreTables)
	assert.Equal(t, "/media/", opts.MediaURL)
	assert.Equal(t, engine.DefaultRoutes(), opts.Routes)
	assert.Equal(t, engine.DefaultSEOKeys(), opts.SEO)
}

func TestImportOptions_Overrides(t *testing.T) {
	viper.Set("routes.post", "/blog/{slug}/")
	viper.Set("import.workers", 9)
	t.Cleanup(func() {
		viper.Set("routes.post", engine.DefaultRoutes().Post)
		viper.Set("import.workers", 4)
	})

	opts := importOptions()
	assert.Equal(t, "/blog/{slug}/", opts.Routes.Post)
	assert.Equal(t, "/{slug}/", opts.Routes.Page)
	assert.Equal(t, 9, opts.Workers)
}

func TestOpenStore_Memory(t *testing.T) {
	st, closeStore, err := openStore(t.Context(), &StoreConfig{Name: "mem", Driver: "memory"}, false)
	require.NoError(t, err)
	assert.NotNil(t, st)
	assert.NoError(t, closeStore())
}

func TestOpenStore_Sqlite(t *testing.T) {
	cfg := &StoreConfig{Name: "file", Driver: "sqlite", DSN: t.TempDir() + "/store.db"}
	st, closeStore, err := openStore(t.Context(), cfg, false)
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, st)
	assert.NoError(t, closeStore())
}

func TestOpenStore_DryRunLeavesSchemaAlone(t *testing.T) {
	cfg := &StoreConfig{Name: "file", Driver: "sqlite", DSN: t.TempDir() + "/store.db"}

	st, closeStore, err := openStore(t.Context(), cfg, true)
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, st)
	require.NoError(t, closeStore())

	s, db, err := openSQLStore(t.Context(), cfg, false)
	require.NoError(t, err)
	assert.False(t, s.Migrated(t.Context()), "dry run created store tables")
	require.NoError(t, db.Close())

	// Once migrated, dry runs read the existing store.
	_, closeStore, err = openStore(t.Context(), cfg, false)
	require.NoError(t, err)
	require.NoError(t, closeStore())
	st, closeStore, err = openStore(t.Context(), cfg, true)
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, st)
	assert.NoError(t, closeStore())
}
