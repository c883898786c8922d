package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smatrader_cycles_total",
		Help: "Engine cycles by outcome",
	}, []string{"result"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smatrader_cycle_duration_seconds",
		Help:    "Duration of one engine cycle",
		Buckets: prometheus.DefBuckets,
	})

	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smatrader_orders_total",
		Help: "Market orders submitted by side and result",
	}, []string{"side", "result"})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smatrader_persist_failures_total",
		Help: "Transitions whose commit failed after all retries",
	})

	EngineRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smatrader_engine_running",
		Help: "1 while the trading loop is active",
	})

	PositionLong = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smatrader_position_long",
		Help: "1 while holding a long position",
	})

	RunningPnl = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smatrader_running_pnl",
		Help: "Realised PnL accumulated across all closed trades",
	})

	PendingCommit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smatrader_pending_commit",
		Help: "1 while an executed transition waits to be persisted",
	})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smatrader_stream_clients",
		Help: "Connected status stream websocket clients",
	})
)

func BoolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
