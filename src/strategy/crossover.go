package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Signal is the trade trigger derived from one price window.
type Signal string

const (
	SignalNone      Signal = "NONE"
	SignalEnterLong Signal = "ENTER_LONG"
	SignalExitLong  Signal = "EXIT_LONG"
)

// SMA returns the simple moving average of the last window closes.
// ok is false when fewer than window samples are available.
func SMA(closes []decimal.Decimal, window int) (avg decimal.Decimal, ok bool) {
	if window <= 0 || len(closes) < window {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for _, c := range closes[len(closes)-window:] {
		sum = sum.Add(c)
	}
	return sum.Div(decimal.NewFromInt(int64(window))), true
}

// Evaluation is the outcome of one pass over a price window.
type Evaluation struct {
	Signal    Signal
	SMAShort  decimal.Decimal
	SMALong   decimal.Decimal
	LastClose decimal.Decimal
	Defined   bool // both averages had enough samples
}

// Crossover is the SMA crossover evaluator. It holds no state between calls.
type Crossover struct {
	ShortWindow int
	LongWindow  int
}

func NewCrossover(shortWindow, longWindow int) (*Crossover, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return nil, fmt.Errorf("windows must be positive, got short=%d long=%d", shortWindow, longWindow)
	}
	if shortWindow >= longWindow {
		return nil, fmt.Errorf("short window %d must be smaller than long window %d", shortWindow, longWindow)
	}
	return &Crossover{ShortWindow: shortWindow, LongWindow: longWindow}, nil
}

// Evaluate computes both averages over closes (most recent last).
// Equal averages are inert and yield SignalNone.
func (c *Crossover) Evaluate(closes []decimal.Decimal) Evaluation {
	ev := Evaluation{Signal: SignalNone}
	if len(closes) > 0 {
		ev.LastClose = closes[len(closes)-1]
	}

	short, okShort := SMA(closes, c.ShortWindow)
	long, okLong := SMA(closes, c.LongWindow)
	if !okShort || !okLong {
		return ev
	}

	ev.Defined = true
	ev.SMAShort = short
	ev.SMALong = long

	switch short.Cmp(long) {
	case 1:
		ev.Signal = SignalEnterLong
	case -1:
		ev.Signal = SignalExitLong
	}
	return ev
}

func (c *Crossover) ShouldEnter(closes []decimal.Decimal) bool {
	return c.Evaluate(closes).Signal == SignalEnterLong
}

func (c *Crossover) ShouldExit(closes []decimal.Decimal) bool {
	return c.Evaluate(closes).Signal == SignalExitLong
}
