package signal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"smatrader/src/connectors"
	"smatrader/src/executors"
	"smatrader/src/model"
	"smatrader/src/strategy"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

type closesFetcher interface {
	FetchCloses(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]decimal.Decimal, error)
}

// Signal evaluates the crossover on live klines once, without trading.
type Signal struct {
	Log *logger.Entry
	Out io.Writer
}

func (s *Signal) Start() error {
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Log == nil {
		s.Log = logger.WithField("cmd", "signal")
	}
	cfg := executors.GetConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// klines are public, no credentials needed
	connector, err := connectors.NewBinanceConnector(connectors.GetConfig(), "", "")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return Evaluate(ctx, s.Out, connector, cfg)
}

func Evaluate(ctx context.Context, out io.Writer, fetcher closesFetcher, cfg executors.Config) error {
	crossover, err := strategy.NewCrossover(cfg.ShortWindow, cfg.LongWindow)
	if err != nil {
		return err
	}

	symbol := cfg.Symbol()
	closes, err := fetcher.FetchCloses(ctx, symbol, cfg.KlineInterval, cfg.LongWindow+1)
	if err != nil {
		return fmt.Errorf("fetch closes: %w", err)
	}

	ev := crossover.Evaluate(closes)
	fmt.Fprintf(out, "%s %s, %d closes\n", symbol, cfg.KlineInterval, len(closes))
	if !ev.Defined {
		fmt.Fprintf(out, "not enough data for SMA(%d)\n", cfg.LongWindow)
		return nil
	}
	fmt.Fprintf(out, "last close: %s\n", ev.LastClose.String())
	fmt.Fprintf(out, "SMA(%d): %s\n", cfg.ShortWindow, ev.SMAShort.StringFixed(4))
	fmt.Fprintf(out, "SMA(%d): %s\n", cfg.LongWindow, ev.SMALong.StringFixed(4))
	fmt.Fprintf(out, "signal: %s\n", ev.Signal)
	return nil
}
