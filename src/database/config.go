package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"debug"` // Expected to hold values like "debug", "info", "warn", "error"
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"` // Expected to hold values like "json" or "text"
	// StoreBackend picks the state store implementation. When empty the
	// backend is postgres if DATABASE_URL is set, sqlite otherwise.
	StoreBackend string `envconfig:"STORE_BACKEND" default:""`
	DatabaseURL  string `envconfig:"DATABASE_URL" default:""`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"data/trading.db"`
	GormLogLevel int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Backend resolves the effective store backend.
func (c Config) Backend() (string, error) {
	switch c.StoreBackend {
	case "":
		if c.DatabaseURL != "" {
			return BackendPostgres, nil
		}
		return BackendSQLite, nil
	case BackendSQLite:
		return BackendSQLite, nil
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return "", fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unknown STORE_BACKEND %q (expected sqlite or postgres)", c.StoreBackend)
	}
}
