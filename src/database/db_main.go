package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smatrader/src/database/migrations"
	"smatrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteDSNParams = "?_journal_mode=WAL&_busy_timeout=5000"

func gormConfig(logLevel int) *gorm.Config {
	if logLevel < int(gormlogger.Silent) || logLevel > int(gormlogger.Info) {
		logLevel = int(gormlogger.Warn)
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.LogLevel(logLevel)),
	}
}

// OpenSQLite opens (and creates if needed) the embedded database file in WAL mode.
// The pool is pinned to one connection so writers never contend on the file lock.
func OpenSQLite(path string, gormLogLevel int) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+sqliteDSNParams), gormConfig(gormLogLevel))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger.WithField("path", path).Info("[database] sqlite connection established")
	return db, nil
}

func OpenPostgres(dsn string, gormLogLevel int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(gormLogLevel))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("[database] postgres connection established")
	return db, nil
}

// Open connects to the backend selected by cfg.
func Open(cfg Config) (*gorm.DB, string, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, "", err
	}

	var db *gorm.DB
	switch backend {
	case BackendPostgres:
		db, err = OpenPostgres(cfg.DatabaseURL, cfg.GormLogLevel)
	default:
		db, err = OpenSQLite(cfg.SQLitePath, cfg.GormLogLevel)
	}
	if err != nil {
		return nil, "", err
	}
	return db, backend, nil
}

// Migrate brings the schema up to date: legacy column prep, AutoMigrate, then data migrations.
func Migrate(db *gorm.DB) error {
	if err := migrations.PrepareLegacyStateColumns(db); err != nil {
		return fmt.Errorf("failed to prepare legacy state columns: %w", err)
	}

	if err := db.AutoMigrate(
		&model.TradeRecord{},
		&model.SystemState{},
		&migrations.DataMigration{},
	); err != nil {
		return fmt.Errorf("failed to run schema migrations: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations: %w", err)
	}

	logger.Debug("[database] migrations completed")
	return nil
}
