package signal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"smatrader/src/connectors"
	"smatrader/src/executors"
	"smatrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	closes []float64
	err    error
	limit  int
}

func (s *stubFetcher) FetchCloses(_ context.Context, _ model.Symbol, _ string, limit int) ([]decimal.Decimal, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	out := make([]decimal.Decimal, 0, len(s.closes))
	for _, c := range s.closes {
		out = append(out, decimal.NewFromFloat(c))
	}
	return out, nil
}

func engineConfig() executors.Config {
	return executors.Config{
		BaseAsset: "BTC", QuoteAsset: "USDT", KlineInterval: "1m", OrderQuantity: 1,
		ShortWindow: 5, LongWindow: 10, LoopPeriod: time.Second, DataGapPeriod: time.Second,
		FetchMaxAttempts: 1, PersistMaxAttempts: 1,
	}
}

func TestEvaluateEnterLong(t *testing.T) {
	fetcher := &stubFetcher{closes: []float64{9, 9, 9, 9, 9, 9, 9, 9, 9, 11}}
	var out bytes.Buffer
	require.NoError(t, Evaluate(context.Background(), &out, fetcher, engineConfig()))

	assert.Equal(t, 11, fetcher.limit)
	assert.Contains(t, out.String(), "BTCUSDT 1m, 10 closes")
	assert.Contains(t, out.String(), "SMA(5): 9.4000")
	assert.Contains(t, out.String(), "SMA(10): 9.2000")
	assert.Contains(t, out.String(), "signal: ENTER_LONG")
}

func TestEvaluateNotEnoughData(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Evaluate(context.Background(), &out, &stubFetcher{closes: []float64{1, 2, 3}}, engineConfig()))
	assert.Contains(t, out.String(), "not enough data")
}

func TestEvaluateFetchError(t *testing.T) {
	var out bytes.Buffer
	err := Evaluate(context.Background(), &out, &stubFetcher{err: connectors.ErrNetwork}, engineConfig())
	assert.ErrorIs(t, err, connectors.ErrNetwork)
}
