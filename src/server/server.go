package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smatrader/src/handler"
	"smatrader/src/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
)

type statisticsReader interface {
	GetStatistics(ctx context.Context) (model.Statistics, error)
}

// Routes bundles what the control surface talks to.
type Routes struct {
	Symbol        string
	Engine        handler.TradeController
	Stats         statisticsReader
	Probe         handler.ExchangeProbe
	Stream        http.Handler
	HealthTimeout time.Duration
}

func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Pages
	r.Get("/", handler.IndexHandler(routes.Symbol))
	r.Get("/trade", handler.TradePageHandler(routes.Symbol))

	r.Get("/health", handler.HealthHandler(routes.Probe, routes.HealthTimeout))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/trade", func(r chi.Router) {
		r.Post("/start", handler.StartTradingHandler(routes.Engine))
		r.Post("/stop", handler.StopTradingHandler(routes.Engine))
		r.Get("/status", handler.TradeStatusHandler(routes.Engine))
		r.Get("/stats", handler.TradeStatsHandler(routes.Stats))
		if routes.Stream != nil {
			r.Get("/stream", routes.Stream.ServeHTTP)
		}
	})

	return r
}

// Run serves h on port until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, port string, h http.Handler, shutdownTimeout time.Duration) error {
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
