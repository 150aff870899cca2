package datastore

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/logger"
)

// newTestStore opens a migrated SQLite store in a temp directory
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.Type = conf.DatabaseSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "db", "birds.sqlite3")
	settings.Database.SQLite.BusyTimeout = 5000

	store, err := New(settings, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	sqliteStore, ok := store.(*SQLiteStore)
	require.True(t, ok)
	return sqliteStore
}

func strPtr(s string) *string { return &s }
