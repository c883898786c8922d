package handler

import (
	"context"
	"net/http"
	"time"
)

// ExchangeProbe checks connectivity and credentials against the exchange.
type ExchangeProbe interface {
	GetServerTime(ctx context.Context) (time.Time, error)
	CheckCredentials(ctx context.Context) error
}

type healthResponse struct {
	Status       string `json:"status"`
	BinanceAPI   string `json:"binance_api"`
	APIKeyStatus string `json:"api_key_status"`
}

func probeResult(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// HealthHandler always answers 200; exchange problems are reported in the body.
func HealthHandler(probe ExchangeProbe, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		_, timeErr := probe.GetServerTime(ctx)
		keyErr := probe.CheckCredentials(ctx)

		writeJSON(w, http.StatusOK, healthResponse{
			Status:       "OK",
			BinanceAPI:   probeResult(timeErr),
			APIKeyStatus: probeResult(keyErr),
		})
	}
}
