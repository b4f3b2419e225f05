// Package db provides database connection and migration functionality.
package db

import (
	"fmt"
	stdlog "log"
	"os"

	"pooled-raffle/internal/config"
	"pooled-raffle/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a database connection using the provided configuration.
// It returns a nil DB when no database is configured.
func Open(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDialect == "" || cfg.DBDsn == "" {
		return nil, nil
	}
	return OpenDialect(cfg.DBDialect, cfg.DBDsn)
}

// OpenDialect opens a database for an explicit dialect and DSN.
func OpenDialect(dialect, dsn string) (*gorm.DB, error) {
	// Configure GORM logger (Silent to avoid cluttering output; only errors will be logged)
	newLogger := logger.New(
		stdlog.New(os.Stdout, "", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	switch dialect {
	case config.DatabaseSchemePostgres:
		return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger})
	case config.DatabaseSchemeSQLite:
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newLogger})
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers; a single connection avoids "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT: %s", dialect)
	}
}

// AutoMigrate runs database migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&models.Account{},
		&models.Entry{},
		&models.DrawRequest{},
		&models.Winner{},
	)
}
