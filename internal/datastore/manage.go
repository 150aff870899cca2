package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/birddeck/internal/logger"
)

// performAutoMigration creates or updates the species, images and sounds tables. Idempotent.
func performAutoMigration(db *gorm.DB, log logger.Logger, dbType string) error {
	migrationStart := time.Now()
	migrationLogger := log.With(logger.String("db_type", dbType))

	migrationLogger.Debug("Starting database migration")

	if err := db.AutoMigrate(&Species{}, &Image{}, &Sound{}); err != nil {
		migrationLogger.Error("Database migration failed", logger.Error(err))
		return dbError(err, "migrate").Context("db_type", dbType).Build()
	}

	migrationLogger.Debug("Database migration completed successfully",
		logger.Duration("total_duration", time.Since(migrationStart)),
		logger.Int("tables_migrated", 3))
	return nil
}
