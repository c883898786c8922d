package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"5000"`
	HealthTimeout   time.Duration `envconfig:"HEALTH_TIMEOUT" default:"10s"`
	StreamInterval  time.Duration `envconfig:"STREAM_INTERVAL" default:"2s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
