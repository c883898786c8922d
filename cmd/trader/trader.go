package trader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smatrader/src/connectors"
	"smatrader/src/database"
	"smatrader/src/executors"
	"smatrader/src/handler"
	"smatrader/src/model"
	"smatrader/src/repository"
	"smatrader/src/security"
	"smatrader/src/server"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const connectionTestKlines = 5

type Trader struct {
	Log *logger.Entry
}

type connectionProbe interface {
	Ping(ctx context.Context) (time.Duration, error)
	FetchCloses(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]decimal.Decimal, error)
}

// testConnection fails fast when the exchange cannot be reached before the
// control surface is exposed.
func testConnection(ctx context.Context, log *logger.Entry, probe connectionProbe, symbol model.Symbol, interval string) error {
	skew, err := probe.Ping(ctx)
	if err != nil {
		return fmt.Errorf("server time: %w", err)
	}
	log.WithField("clock_skew", skew.String()).Info("Exchange server time OK")

	closes, err := probe.FetchCloses(ctx, symbol, interval, connectionTestKlines)
	if err != nil {
		return fmt.Errorf("klines: %w", err)
	}
	log.WithField("klines", len(closes)).Info("Exchange klines OK")
	return nil
}

func resolveCredentials(cfg connectors.Config) (string, string, error) {
	apiKey, err := security.ResolveSecret(cfg.BinanceAPIKey, cfg.BinanceAPIKeyEnc)
	if err != nil {
		return "", "", fmt.Errorf("BINANCE_API_KEY: %w", err)
	}
	secret, err := security.ResolveSecret(cfg.BinanceSecretKey, cfg.BinanceSecretKeyEnc)
	if err != nil {
		return "", "", fmt.Errorf("BINANCE_SECRET_KEY: %w", err)
	}
	if apiKey == "" || secret == "" {
		return "", "", errors.New("BINANCE_API_KEY and BINANCE_SECRET_KEY (or their _ENC variants) are required")
	}
	return apiKey, secret, nil
}

func (t *Trader) Start() error {
	if t.Log == nil {
		t.Log = logger.WithField("cmd", "trader")
	}
	config := GetConfig()
	engineConfig := executors.GetConfig()
	if err := engineConfig.Validate(); err != nil {
		return err
	}

	exchangeConfig := connectors.GetConfig()
	apiKey, secret, err := resolveCredentials(exchangeConfig)
	if err != nil {
		return err
	}
	if exchangeConfig.BinanceMode == connectors.ModeLive {
		t.Log.Warn("Using Binance LIVE - real trading mode")
	} else {
		t.Log.Info("Using Binance TESTNET - no real money involved")
	}

	connector, err := connectors.NewBinanceConnector(exchangeConfig, apiKey, secret)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if config.ConnectionTest {
		if err := testConnection(ctx, t.Log, connector, engineConfig.Symbol(), engineConfig.KlineInterval); err != nil {
			t.Log.WithError(err).Error("Connection test failed")
			return fmt.Errorf("cannot reach binance: %w", err)
		}
	}

	store, err := repository.OpenStateStore(ctx, database.GetConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Log.WithError(err).Warn("Failed to close state store")
		}
	}()
	t.Log.WithField("backend", store.Backend()).Info("State store ready")

	engine, err := executors.NewEngine(engineConfig, connector, store)
	if err != nil {
		return err
	}
	if err := engine.Restore(ctx); err != nil {
		return err
	}
	if config.AutoStart {
		if err := engine.Start(); err != nil {
			return err
		}
	}

	serverConfig := server.GetConfig()
	stream := handler.NewStatusStream(engine, serverConfig.StreamInterval)
	router := server.NewRouter(server.Routes{
		Symbol:        engineConfig.Symbol().String(),
		Engine:        engine,
		Stats:         store,
		Probe:         connector,
		Stream:        stream,
		HealthTimeout: serverConfig.HealthTimeout,
	})

	serveErr := server.Run(ctx, serverConfig.Port, router, serverConfig.ShutdownTimeout)
	stream.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		t.Log.WithError(err).Error("Trading loop did not stop cleanly")
	}

	return serveErr
}
