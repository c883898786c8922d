package keys

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BinanceAPIKeyEnc    string `envconfig:"BINANCE_API_KEY_ENC" default:""`
	BinanceSecretKeyEnc string `envconfig:"BINANCE_SECRET_KEY_ENC" default:""`
	BinanceMode         string `envconfig:"BINANCE_MODE" default:"test"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
