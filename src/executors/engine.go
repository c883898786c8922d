package executors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smatrader/src/connectors"
	"smatrader/src/metrics"
	"smatrader/src/model"
	"smatrader/src/repository"
	"smatrader/src/strategy"
	"smatrader/src/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRunning = errors.New("trading already running")
	ErrNotRunning     = errors.New("trading is not running")
	ErrStopping       = errors.New("trading is stopping")
	ErrPendingCommit  = errors.New("an executed trade is still waiting to be persisted")
	ErrNotRestored    = errors.New("engine state not restored")
	ErrDataGap        = errors.New("not enough price data")
)

// Exchange is what the engine needs from a trading venue.
type Exchange interface {
	FetchCloses(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]decimal.Decimal, error)
	SubmitMarketOrder(ctx context.Context, symbol model.Symbol, side model.Side, quantity decimal.Decimal) (*connectors.OrderResult, error)
}

// Status is the externally visible engine state. It reflects the last
// persisted snapshot, never an executed-but-unsaved transition.
type Status struct {
	Active        bool           `json:"active"`
	Position      model.Position `json:"position"`
	Positions     []string       `json:"positions"`
	EntryPrice    float64        `json:"entry_price"`
	Pnl           float64        `json:"pnl"`
	Symbol        string         `json:"symbol"`
	LastCycleAt   *time.Time     `json:"last_cycle_at,omitempty"`
	PendingCommit bool           `json:"pending_commit"`
}

// transition is an executed order together with the state it leads to.
type transition struct {
	trade model.TradeRecord
	state model.SystemState
}

// Engine runs the crossover strategy for one symbol and owns its position state.
type Engine struct {
	cfg      Config
	symbol   model.Symbol
	quantity decimal.Decimal
	exchange Exchange
	store    repository.StateStore
	strategy *strategy.Crossover

	fetchRetry   utils.RetryPolicy
	persistRetry utils.RetryPolicy

	log *logger.Entry
	now func() time.Time

	mu            sync.Mutex
	restored      bool
	running       bool
	stopRequested bool
	stopCh        chan struct{}
	doneCh        chan struct{}
	state         model.SystemState
	pending       *transition
	lastCycleAt   time.Time
}

func NewEngine(cfg Config, exchange Exchange, store repository.StateStore) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if exchange == nil || store == nil {
		return nil, errors.New("engine needs an exchange and a state store")
	}

	crossover, err := strategy.NewCrossover(cfg.ShortWindow, cfg.LongWindow)
	if err != nil {
		return nil, err
	}

	symbol := cfg.Symbol()
	return &Engine{
		cfg:      cfg,
		symbol:   symbol,
		quantity: cfg.Quantity(),
		exchange: exchange,
		store:    store,
		strategy: crossover,
		fetchRetry: utils.RetryPolicy{
			Name:        "fetch_closes",
			MaxAttempts: cfg.FetchMaxAttempts,
			Delay:       cfg.FetchRetryDelay,
			Retryable:   connectors.IsRetryable,
		},
		persistRetry: utils.RetryPolicy{
			Name:        "commit_transition",
			MaxAttempts: cfg.PersistMaxAttempts,
			Delay:       cfg.PersistRetryDelay,
		},
		log:   logger.WithFields(logger.Fields{"component": "engine", "symbol": symbol.String()}),
		now:   time.Now,
		state: model.NewFlatState(),
	}, nil
}

// Restore loads the persisted snapshot. A missing snapshot means a fresh FLAT engine.
func (e *Engine) Restore(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	if e.pending != nil {
		e.mu.Unlock()
		return ErrPendingCommit
	}
	e.mu.Unlock()

	snapshot, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	state := model.NewFlatState()
	if snapshot != nil {
		state = *snapshot
	}
	e.checkHistory(ctx, state)

	e.mu.Lock()
	e.state = state
	e.restored = true
	e.mu.Unlock()

	e.publishState(state)
	e.log.WithFields(logger.Fields{
		"position":    state.Position,
		"entry_price": state.EntryPrice.String(),
		"running_pnl": utils.FormatPnl(state.RunningPnl),
		"found":       snapshot != nil,
	}).Info("Engine state restored")
	return nil
}

// checkHistory warns when the last recorded trade disagrees with the snapshot,
// which happens if the process died between an order and its commit.
func (e *Engine) checkHistory(ctx context.Context, state model.SystemState) {
	last, err := e.store.LastTrade(ctx)
	if err != nil {
		e.log.WithError(err).Warn("Could not read trade history to cross-check the snapshot")
		return
	}
	if last == nil {
		return
	}

	consistent := (last.Action == model.SideBuy && state.Position == model.PositionLong) ||
		(last.Action == model.SideSell && state.Position == model.PositionFlat)
	if !consistent {
		e.log.WithFields(logger.Fields{
			"last_trade_id":     last.TradeID,
			"last_trade_action": last.Action,
			"snapshot_position": state.Position,
		}).Warn("Snapshot disagrees with the last recorded trade; keeping the snapshot, check the exchange account manually")
	}
}

// Start launches the trading loop and returns immediately.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.restored {
		return ErrNotRestored
	}
	if e.running && e.stopRequested {
		return ErrStopping
	}
	if e.running {
		return ErrAlreadyRunning
	}

	e.running = true
	e.stopRequested = false
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	go e.loop(e.stopCh, e.doneCh)

	metrics.EngineRunning.Set(1)
	e.log.Info("Trading started")
	return nil
}

// Stop asks the loop to exit at its next cycle boundary. The returned channel
// is closed once the loop has exited.
func (e *Engine) Stop() (<-chan struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.stopRequested {
		return nil, ErrNotRunning
	}
	e.stopRequested = true
	close(e.stopCh)

	e.log.Info("Trading stop requested")
	return e.doneCh, nil
}

// Shutdown stops the loop if needed and waits for it, bounded by ctx.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	if !e.stopRequested {
		e.stopRequested = true
		close(e.stopCh)
	}
	done := e.doneCh
	e.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine did not stop in time: %w", ctx.Err())
	}
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Active:        e.running && !e.stopRequested,
		Position:      e.state.Position,
		Positions:     []string{},
		EntryPrice:    e.state.EntryPrice.InexactFloat64(),
		Pnl:           e.state.RunningPnl.InexactFloat64(),
		Symbol:        e.symbol.String(),
		PendingCommit: e.pending != nil,
	}
	if e.state.Position.IsLong() {
		s.Positions = append(s.Positions, string(e.state.Position))
	}
	if !e.lastCycleAt.IsZero() {
		t := e.lastCycleAt
		s.LastCycleAt = &t
	}
	return s
}

// decide maps the current position and signal to the order to place, if any.
func decide(position model.Position, signal strategy.Signal) (model.Side, bool) {
	switch {
	case position == model.PositionFlat && signal == strategy.SignalEnterLong:
		return model.SideBuy, true
	case position == model.PositionLong && signal == strategy.SignalExitLong:
		return model.SideSell, true
	default:
		return "", false
	}
}

// nextTransition builds the trade record and resulting state for an executed order.
func (e *Engine) nextTransition(current model.SystemState, side model.Side, ev strategy.Evaluation, order *connectors.OrderResult) transition {
	price := ev.LastClose
	rec := model.TradeRecord{
		TradeID:   e.tradeID(order),
		Timestamp: e.now().UTC(),
		Action:    side,
		Symbol:    e.symbol.String(),
		Price:     price,
		Quantity:  e.quantity,
		SMAShort:  ev.SMAShort.Round(8),
		SMALong:   ev.SMALong.Round(8),
	}
	if order != nil {
		rec.OrderID = order.OrderID
	}

	next := model.SystemState{ID: model.SystemStateID, RunningPnl: current.RunningPnl}
	switch side {
	case model.SideBuy:
		next.Position = model.PositionLong
		next.EntryPrice = price
	case model.SideSell:
		pnl := price.Sub(current.EntryPrice).Mul(e.quantity)
		rec.Pnl = decimal.NewNullDecimal(pnl)
		next.Position = model.PositionFlat
		next.EntryPrice = decimal.Zero
		next.RunningPnl = current.RunningPnl.Add(pnl)
	}
	return transition{trade: rec, state: next}
}

// tradeID is derived from the exchange order id so a replayed commit hits the unique key.
func (e *Engine) tradeID(order *connectors.OrderResult) string {
	if order != nil && order.OrderID != "" {
		return e.symbol.String() + "-" + order.OrderID
	}
	return e.symbol.String() + "-" + uuid.NewString()
}

func (e *Engine) commit(ctx context.Context, t *transition) error {
	return e.persistRetry.Do(ctx, func(ctx context.Context) error {
		rec := t.trade
		rec.ID = 0
		return e.store.CommitTransition(ctx, &rec, t.state)
	})
}

// apply makes a committed state the current one.
func (e *Engine) apply(state model.SystemState) {
	e.mu.Lock()
	e.state = state
	e.pending = nil
	e.mu.Unlock()
	metrics.PendingCommit.Set(0)
	e.publishState(state)
}

func (e *Engine) publishState(state model.SystemState) {
	metrics.BoolGauge(metrics.PositionLong, state.Position.IsLong())
	metrics.RunningPnl.Set(state.RunningPnl.InexactFloat64())
}
