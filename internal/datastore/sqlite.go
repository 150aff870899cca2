package datastore

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// sqliteDSN builds the go-sqlite3 DSN: WAL journal, busy timeout, foreign keys and immediate
// write transactions so concurrent writers queue on the busy timeout instead of failing on a
// lock upgrade.
func sqliteDSN(s *conf.SQLiteSettings) string {
	params := url.Values{}
	journal := strings.ToUpper(s.JournalMode)
	if journal == "" {
		journal = "WAL"
	}
	params.Set("_journal_mode", journal)
	busy := s.BusyTimeout
	if busy <= 0 {
		busy = 5000
	}
	params.Set("_busy_timeout", fmt.Sprint(busy))
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	return "file:" + s.Path + "?" + params.Encode()
}

// Open opens the SQLite database and migrates the schema
func (store *SQLiteStore) Open() error {
	path := store.Settings.Database.SQLite.Path
	if path == "" {
		return errors.Newf("sqlite path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, dir, 0)
		}
	}

	gormLogger := logger.NewGormLoggerAdapter(store.log, store.Settings.Database.SlowThreshold)
	db, err := gorm.Open(sqlite.Open(sqliteDSN(&store.Settings.Database.SQLite)), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return dbError(err, "open").Context("db_type", "sqlite").Context("file_path", path).Build()
	}

	store.DB = db
	return performAutoMigration(db, store.log, conf.DatabaseSQLite)
}
