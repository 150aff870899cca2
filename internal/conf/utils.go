// conf/utils.go
package conf

import (
	"os"
	"path/filepath"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
)

// GetLogger returns the package logger. It is fetched from the global logger each time so it
// follows the central logger installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}

// GetDefaultConfigPaths returns the directories searched for config.yaml: the working directory
// and the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "birddeck"),
	}, nil
}

// ResolveLockFile returns the lock file path. Relative paths are placed next to the SQLite database.
func (s *Settings) ResolveLockFile() string {
	if filepath.IsAbs(s.LockFile) || s.Database.Type != DatabaseSQLite {
		return s.LockFile
	}
	return filepath.Join(filepath.Dir(s.Database.SQLite.Path), s.LockFile)
}
