package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ModeTest = "test"
	ModeLive = "live"

	TestnetBaseURL = "https://testnet.binance.vision"
	LiveBaseURL    = "https://api.binance.com"
)

type Config struct {
	BinanceMode string `envconfig:"BINANCE_MODE" default:"test"` // "test" (testnet) or "live"
	// BinanceBaseURL overrides the endpoint picked by BinanceMode.
	BinanceBaseURL string `envconfig:"BINANCE_BASE_URL" default:""`

	BinanceAPIKey       string `envconfig:"BINANCE_API_KEY" default:""`
	BinanceSecretKey    string `envconfig:"BINANCE_SECRET_KEY" default:""`
	BinanceAPIKeyEnc    string `envconfig:"BINANCE_API_KEY_ENC" default:""`
	BinanceSecretKeyEnc string `envconfig:"BINANCE_SECRET_KEY_ENC" default:""`

	// OrderValidateOnly sends orders to /api/v3/order/test, which validates without executing.
	OrderValidateOnly bool          `envconfig:"ORDER_VALIDATE_ONLY" default:"false"`
	HTTPTimeout       time.Duration `envconfig:"BINANCE_HTTP_TIMEOUT" default:"15s"`
	RecvWindow        int64         `envconfig:"BINANCE_RECV_WINDOW" default:"5000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// BaseURL returns the REST endpoint for the configured mode.
func (c Config) BaseURL() (string, error) {
	if c.BinanceBaseURL != "" {
		return c.BinanceBaseURL, nil
	}
	switch c.BinanceMode {
	case ModeTest, "":
		return TestnetBaseURL, nil
	case ModeLive:
		return LiveBaseURL, nil
	default:
		return "", fmt.Errorf("unknown BINANCE_MODE %q (expected test or live)", c.BinanceMode)
	}
}
