package executors

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smatrader/src/model"
	"smatrader/src/utils"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseAsset     string  `envconfig:"BASE_ASSET" default:"BTC"`
	QuoteAsset    string  `envconfig:"QUOTE_ASSET" default:"USDT"`
	KlineInterval string  `envconfig:"KLINE_INTERVAL" default:"1m"`
	OrderQuantity float64 `envconfig:"ORDER_QUANTITY" default:"0.001"`
	ShortWindow   int     `envconfig:"SHORT_WINDOW" default:"5"`
	LongWindow    int     `envconfig:"LONG_WINDOW" default:"10"`

	LoopPeriod    time.Duration `envconfig:"LOOP_PERIOD" default:"30s"`
	DataGapPeriod time.Duration `envconfig:"DATA_GAP_PERIOD" default:"10s"`

	FetchMaxAttempts   int           `envconfig:"FETCH_MAX_ATTEMPTS" default:"3"`
	FetchRetryDelay    time.Duration `envconfig:"FETCH_RETRY_DELAY" default:"5s"`
	PersistMaxAttempts int           `envconfig:"PERSIST_MAX_ATTEMPTS" default:"3"`
	PersistRetryDelay  time.Duration `envconfig:"PERSIST_RETRY_DELAY" default:"1s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BaseAsset) == "" || strings.TrimSpace(c.QuoteAsset) == "" {
		errs = append(errs, errors.New("BASE_ASSET and QUOTE_ASSET are required"))
	}
	if _, err := utils.IntervalDuration(c.KlineInterval); err != nil {
		errs = append(errs, err)
	}
	if c.OrderQuantity <= 0 {
		errs = append(errs, fmt.Errorf("ORDER_QUANTITY must be positive, got %v", c.OrderQuantity))
	}
	if c.ShortWindow <= 0 || c.LongWindow <= c.ShortWindow {
		errs = append(errs, fmt.Errorf("need 0 < SHORT_WINDOW < LONG_WINDOW, got %d and %d", c.ShortWindow, c.LongWindow))
	}
	if c.LoopPeriod <= 0 || c.DataGapPeriod <= 0 {
		errs = append(errs, errors.New("LOOP_PERIOD and DATA_GAP_PERIOD must be positive"))
	}
	if c.FetchMaxAttempts < 1 || c.PersistMaxAttempts < 1 {
		errs = append(errs, errors.New("FETCH_MAX_ATTEMPTS and PERSIST_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

func (c Config) Symbol() model.Symbol {
	return model.Symbol{
		Base:  strings.ToUpper(strings.TrimSpace(c.BaseAsset)),
		Quote: strings.ToUpper(strings.TrimSpace(c.QuoteAsset)),
	}
}

func (c Config) Quantity() decimal.Decimal {
	return decimal.NewFromFloat(c.OrderQuantity)
}
