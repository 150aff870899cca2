package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// mysqlDSN builds the go-sql-driver DSN for settings
func mysqlDSN(s *conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.Username, s.Password, s.Host, s.Port, s.Database)
}

// Open connects to MySQL and migrates the schema
func (store *MySQLStore) Open() error {
	return store.openDSN(mysqlDSN(&store.Settings.Database.MySQL))
}

func (store *MySQLStore) openDSN(dsn string) error {
	gormLogger := logger.NewGormLoggerAdapter(store.log, store.Settings.Database.SlowThreshold)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		store.log.Error("Failed to open MySQL database",
			logger.String("host", store.Settings.Database.MySQL.Host),
			logger.String("port", store.Settings.Database.MySQL.Port),
			logger.String("database", store.Settings.Database.MySQL.Database),
			logger.Error(err))
		return dbError(err, "open").Context("db_type", "mysql").Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open").Context("db_type", "mysql").Build()
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store.DB = db
	return performAutoMigration(db, store.log, conf.DatabaseMySQL)
}
