package datastore

import "github.com/tphakala/birddeck/internal/logger"

// GetLogger returns the datastore module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
