package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"smatrader/src/executors"
	"smatrader/src/model"

	logger "github.com/sirupsen/logrus"
)

// TradeController is the part of the engine the control surface drives.
type TradeController interface {
	Start() error
	Stop() (<-chan struct{}, error)
	Status() executors.Status
}

type statisticsReader interface {
	GetStatistics(ctx context.Context) (model.Statistics, error)
}

type actionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// StartTradingHandler launches the trading loop. It answers before the first cycle runs.
func StartTradingHandler(engine TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := engine.Start()
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, actionResponse{Status: "success", Message: "Trading started."})
		case errors.Is(err, executors.ErrAlreadyRunning):
			writeJSON(w, http.StatusBadRequest, actionResponse{Status: "error", Message: "Trading already running."})
		case errors.Is(err, executors.ErrStopping):
			writeJSON(w, http.StatusConflict, actionResponse{Status: "error", Message: "Trading is stopping, try again shortly."})
		default:
			logger.WithError(err).Error("failed to start trading")
			writeJSON(w, http.StatusServiceUnavailable, actionResponse{Status: "error", Message: "Trading engine is not ready."})
		}
	}
}

// StopTradingHandler requests the loop to stop. The current cycle, if any, still completes.
func StopTradingHandler(engine TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := engine.Stop(); err != nil {
			if !errors.Is(err, executors.ErrNotRunning) {
				logger.WithError(err).Error("failed to stop trading")
			}
			writeJSON(w, http.StatusBadRequest, actionResponse{Status: "error", Message: "Trading is not running."})
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{Status: "success", Message: "Trading stopped."})
	}
}

func TradeStatusHandler(engine TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engine.Status())
	}
}

// TradeStatsHandler reports win rate and realised PnL over closed trades.
func TradeStatsHandler(store statisticsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetStatistics(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to read trade statistics")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
