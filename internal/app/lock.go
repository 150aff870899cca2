package app

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
)

// Lock takes the advisory stage lock without waiting. The returned function releases it.
// An empty lock file setting disables locking.
func (c *Context) Lock() (func(), error) {
	path := c.Settings.ResolveLockFile()
	if path == "" {
		return func() {}, nil
	}
	return acquireLock(path, c.Logger("app"))
}

func acquireLock(path string, log logger.Logger) (func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileError(err, path, 0)
		}
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			Context("lock_file", path).
			Build()
	}
	if !ok {
		return nil, errors.Newf("another birddeck stage is running (lock %s is held)", path).
			Component("app").
			Category(errors.CategoryConflict).
			Context("lock_file", path).
			Build()
	}

	log.Debug("Acquired stage lock", logger.String("path", path))
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("Failed to release stage lock", logger.String("path", path), logger.Error(err))
		}
	}, nil
}
