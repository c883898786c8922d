package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smatrader/src/metrics"
	"smatrader/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// loop runs cycles until stop is closed. Sleeps are interruptible; a cycle
// in progress always finishes.
func (e *Engine) loop(stop <-chan struct{}, done chan struct{}) {
	defer func() {
		e.drainPending()

		e.mu.Lock()
		e.running = false
		e.stopRequested = false
		e.mu.Unlock()
		metrics.EngineRunning.Set(0)
		close(done)
		e.log.Info("Trading loop stopped")
	}()

	e.log.Info("Trading loop started")
	for {
		select {
		case <-stop:
			return
		default:
		}

		wait := e.safeCycle()

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// safeCycle runs one cycle, never lets an error or panic escape, and returns
// how long to sleep before the next one.
func (e *Engine) safeCycle() (wait time.Duration) {
	wait = e.cfg.LoopPeriod
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.log.WithError(fmt.Errorf("%+v", r)).Error("Cycle panicked")
			metrics.CyclesTotal.WithLabelValues("panic").Inc()
			wait = e.cfg.LoopPeriod
		}
		metrics.CycleDuration.Observe(time.Since(started).Seconds())

		e.mu.Lock()
		e.lastCycleAt = e.now().UTC()
		e.mu.Unlock()
	}()

	// network calls are not tied to the stop signal
	err := e.runCycle(context.Background())
	switch {
	case err == nil:
		metrics.CyclesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrDataGap):
		e.log.WithError(err).Warn("Skipping cycle")
		metrics.CyclesTotal.WithLabelValues("data_gap").Inc()
		wait = e.cfg.DataGapPeriod
	default:
		e.log.WithError(err).Error("Cycle failed")
		metrics.CyclesTotal.WithLabelValues("error").Inc()
	}
	return wait
}

// runCycle performs fetch, evaluate, decide, order and persist once.
func (e *Engine) runCycle(ctx context.Context) error {
	if err := e.flushPending(ctx); err != nil {
		return err
	}

	limit := e.cfg.LongWindow + 1
	closes, err := utils.Retry(ctx, e.fetchRetry, func(ctx context.Context) ([]decimal.Decimal, error) {
		return e.exchange.FetchCloses(ctx, e.symbol, e.cfg.KlineInterval, limit)
	})
	if err != nil {
		return fmt.Errorf("fetch closes: %w", err)
	}
	if len(closes) < e.cfg.LongWindow {
		return fmt.Errorf("%w: got %d closes, need %d", ErrDataGap, len(closes), e.cfg.LongWindow)
	}

	ev := e.strategy.Evaluate(closes)

	e.mu.Lock()
	current := e.state
	e.mu.Unlock()

	entry := e.log.WithFields(logger.Fields{
		"price":     ev.LastClose.String(),
		"sma_short": ev.SMAShort.StringFixed(4),
		"sma_long":  ev.SMALong.StringFixed(4),
		"signal":    ev.Signal,
		"position":  current.Position,
	})

	side, act := decide(current.Position, ev.Signal)
	if !act {
		entry.Debug("No transition")
		return nil
	}

	order, err := e.exchange.SubmitMarketOrder(ctx, e.symbol, side, e.quantity)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(side), "failed").Inc()
		return fmt.Errorf("submit %s order: %w", side, err)
	}
	metrics.OrdersTotal.WithLabelValues(string(side), "filled").Inc()

	t := e.nextTransition(current, side, ev, order)
	if err := e.commit(ctx, &t); err != nil {
		e.mu.Lock()
		e.pending = &t
		e.mu.Unlock()
		metrics.PendingCommit.Set(1)
		metrics.PersistFailures.Inc()
		return fmt.Errorf("persist %s %s, holding it as pending: %w", side, t.trade.TradeID, err)
	}
	e.apply(t.state)

	fields := logger.Fields{"trade_id": t.trade.TradeID, "running_pnl": utils.FormatPnl(t.state.RunningPnl)}
	if t.trade.Pnl.Valid {
		fields["pnl"] = utils.FormatPnl(t.trade.Pnl.Decimal)
	}
	entry.WithFields(fields).Infof("%s %s at %s", side, e.symbol, ev.LastClose)
	return nil
}

// drainPending makes a last attempt to persist a held transition before the
// loop exits. If it still fails the trade is logged in full for manual
// reconciliation; it also stays in memory and is flushed by the next cycle.
func (e *Engine) drainPending() {
	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()
	if pending == nil {
		return
	}

	if err := e.flushPending(context.Background()); err != nil {
		e.log.WithError(err).WithFields(logger.Fields{
			"trade_id":           pending.trade.TradeID,
			"order_id":           pending.trade.OrderID,
			"side":               pending.trade.Action,
			"price":              pending.trade.Price.String(),
			"quantity":           pending.trade.Quantity.String(),
			"pnl":                pending.trade.Pnl.Decimal.String(),
			"target_position":    pending.state.Position,
			"target_entry_price": pending.state.EntryPrice.String(),
			"target_running_pnl": pending.state.RunningPnl.String(),
		}).Error("Executed trade was not persisted before the loop stopped; reconcile it with the exchange")
	}
}

// flushPending re-attempts the commit of an executed transition. No new
// order is placed until it lands.
func (e *Engine) flushPending(ctx context.Context) error {
	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()
	if pending == nil {
		return nil
	}

	if err := e.commit(ctx, pending); err != nil {
		return fmt.Errorf("pending transition %s still not persisted: %w", pending.trade.TradeID, err)
	}
	e.apply(pending.state)
	e.log.WithField("trade_id", pending.trade.TradeID).Info("Pending transition persisted")
	return nil
}
