package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closes(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, decimal.NewFromFloat(v))
	}
	return out
}

func TestNewCrossoverValidation(t *testing.T) {
	cases := []struct {
		name        string
		short, long int
		wantErr     bool
	}{
		{name: "valid", short: 5, long: 10},
		{name: "equal windows", short: 10, long: 10, wantErr: true},
		{name: "inverted windows", short: 10, long: 5, wantErr: true},
		{name: "zero short", short: 0, long: 5, wantErr: true},
		{name: "negative long", short: 2, long: -1, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewCrossover(tc.short, tc.long)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.short, c.ShortWindow)
			assert.Equal(t, tc.long, c.LongWindow)
		})
	}
}

func TestSMA(t *testing.T) {
	avg, ok := SMA(closes(1, 2, 3, 4), 2)
	require.True(t, ok)
	assert.True(t, avg.Equal(decimal.NewFromFloat(3.5)), "got %s", avg)

	_, ok = SMA(closes(1, 2), 3)
	assert.False(t, ok, "window larger than sample count must be undefined")

	_, ok = SMA(closes(1, 2), 0)
	assert.False(t, ok)
}

func TestEvaluateShortSequencesYieldNoSignal(t *testing.T) {
	c, err := NewCrossover(5, 10)
	require.NoError(t, err)

	for n := 0; n < 10; n++ {
		seq := make([]decimal.Decimal, 0, n)
		for i := 0; i < n; i++ {
			// strongly trending so a signal would fire if windows were defined
			seq = append(seq, decimal.NewFromInt(int64(i*i+1)))
		}
		ev := c.Evaluate(seq)
		assert.Equal(t, SignalNone, ev.Signal, "n=%d", n)
		assert.False(t, ev.Defined, "n=%d", n)
		assert.False(t, c.ShouldEnter(seq))
		assert.False(t, c.ShouldExit(seq))
	}
}

func TestEvaluateTieIsInert(t *testing.T) {
	c, err := NewCrossover(2, 4)
	require.NoError(t, err)

	flat := closes(7, 7, 7, 7, 7)
	ev := c.Evaluate(flat)
	assert.True(t, ev.Defined)
	assert.True(t, ev.SMAShort.Equal(ev.SMALong))
	assert.Equal(t, SignalNone, ev.Signal)

	// short (3+5)/2 = 4, long (2+6+3+5)/4 = 4
	mixed := closes(2, 6, 3, 5)
	ev = c.Evaluate(mixed)
	assert.Equal(t, SignalNone, ev.Signal)
	assert.False(t, c.ShouldEnter(mixed))
	assert.False(t, c.ShouldExit(mixed))
}

func TestEvaluateDowntrendTail(t *testing.T) {
	c, err := NewCrossover(5, 10)
	require.NoError(t, err)

	seq := closes(10, 10, 10, 10, 10, 10, 10, 10, 10, 9)
	ev := c.Evaluate(seq)

	assert.True(t, ev.SMAShort.Equal(decimal.NewFromFloat(9.8)), "short=%s", ev.SMAShort)
	assert.True(t, ev.SMALong.Equal(decimal.NewFromFloat(9.9)), "long=%s", ev.SMALong)
	assert.Equal(t, SignalExitLong, ev.Signal)
	assert.True(t, c.ShouldExit(seq))
	assert.False(t, c.ShouldEnter(seq))
}

func TestEvaluateUptrendTail(t *testing.T) {
	c, err := NewCrossover(5, 10)
	require.NoError(t, err)

	seq := closes(9, 9, 9, 9, 9, 9, 9, 9, 9, 11)
	ev := c.Evaluate(seq)

	assert.True(t, ev.SMAShort.Equal(decimal.NewFromFloat(9.4)), "short=%s", ev.SMAShort)
	assert.True(t, ev.SMALong.Equal(decimal.NewFromFloat(9.2)), "long=%s", ev.SMALong)
	assert.True(t, ev.LastClose.Equal(decimal.NewFromInt(11)))
	assert.Equal(t, SignalEnterLong, ev.Signal)
}

func TestEvaluateUsesOnlyTrailingWindow(t *testing.T) {
	c, err := NewCrossover(2, 3)
	require.NoError(t, err)

	// leading noise must not influence the result
	a := c.Evaluate(closes(1000, -50, 1, 2, 3))
	b := c.Evaluate(closes(1, 2, 3))
	assert.Equal(t, b.Signal, a.Signal)
	assert.True(t, a.SMAShort.Equal(b.SMAShort))
	assert.True(t, a.SMALong.Equal(b.SMALong))
}

func TestEvaluateDeterministic(t *testing.T) {
	c, err := NewCrossover(3, 6)
	require.NoError(t, err)

	seq := closes(1.1, 1.3, 1.2, 1.5, 1.4, 1.6, 1.55)
	first := c.Evaluate(seq)
	for i := 0; i < 5; i++ {
		again := c.Evaluate(seq)
		assert.Equal(t, first.Signal, again.Signal)
		assert.True(t, first.SMAShort.Equal(again.SMAShort))
	}
}
