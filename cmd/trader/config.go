package trader

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ConnectionTest checks server time and a small klines fetch before serving.
	ConnectionTest bool `envconfig:"CONNECTION_TEST" default:"true"`
	// AutoStart begins trading right after restore instead of waiting for /api/trade/start.
	AutoStart bool `envconfig:"AUTO_START" default:"false"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
