package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"smatrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sellTrade(id string, pnl float64) *model.TradeRecord {
	return &model.TradeRecord{
		TradeID:   id,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Action:    model.SideSell,
		Symbol:    "BTCUSDT",
		Price:     decimal.NewFromInt(100),
		Quantity:  decimal.NewFromInt(1),
		Pnl:       decimal.NewNullDecimal(decimal.NewFromFloat(pnl)),
		SMAShort:  decimal.NewFromFloat(99.5),
		SMALong:   decimal.NewFromInt(100),
		OrderID:   id,
	}
}

func buyTrade(id string, price float64) *model.TradeRecord {
	return &model.TradeRecord{
		TradeID:   id,
		Timestamp: time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		Action:    model.SideBuy,
		Symbol:    "BTCUSDT",
		Price:     decimal.NewFromFloat(price),
		Quantity:  decimal.NewFromInt(1),
		SMAShort:  decimal.NewFromInt(101),
		SMALong:   decimal.NewFromInt(100),
		OrderID:   id,
	}
}

func countTrades(t *testing.T, store StateStore) int {
	t.Helper()
	trades, err := store.RecentTrades(context.Background(), 1000)
	require.NoError(t, err)
	return len(trades)
}

// runStateStoreContract exercises behaviour every backend must share.
// newStore must return an empty, migrated store.
func runStateStoreContract(t *testing.T, newStore func(t *testing.T) StateStore) {
	ctx := context.Background()

	t.Run("load on empty store", func(t *testing.T) {
		store := newStore(t)
		state, err := store.LoadSnapshot(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)

		last, err := store.LastTrade(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		store := newStore(t)
		want := model.SystemState{
			Position:   model.PositionLong,
			EntryPrice: decimal.RequireFromString("43210.12345678"),
			RunningPnl: decimal.RequireFromString("-12.5"),
		}
		require.NoError(t, store.SaveSnapshot(ctx, want))

		got, err := store.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.PositionLong, got.Position)
		assert.True(t, want.EntryPrice.Equal(got.EntryPrice), "entry %s", got.EntryPrice)
		assert.True(t, want.RunningPnl.Equal(got.RunningPnl), "pnl %s", got.RunningPnl)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("snapshot is a singleton", func(t *testing.T) {
		store := newStore(t)
		long := model.SystemState{Position: model.PositionLong, EntryPrice: decimal.NewFromInt(10)}
		require.NoError(t, store.SaveSnapshot(ctx, long))

		flat := model.NewFlatState()
		flat.RunningPnl = decimal.NewFromInt(4)
		require.NoError(t, store.SaveSnapshot(ctx, flat))

		got, err := store.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.PositionFlat, got.Position)
		assert.True(t, got.EntryPrice.IsZero())
		assert.True(t, got.RunningPnl.Equal(decimal.NewFromInt(4)))
	})

	t.Run("inconsistent snapshot rejected", func(t *testing.T) {
		store := newStore(t)
		err := store.SaveSnapshot(ctx, model.SystemState{Position: model.PositionLong})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPersistence))

		state, err := store.LoadSnapshot(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("insert trade is idempotent", func(t *testing.T) {
		store := newStore(t)
		rec := buyTrade("BTCUSDT-1", 100)

		id, err := store.InsertTrade(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, "BTCUSDT-1", id)

		id, err = store.InsertTrade(ctx, buyTrade("BTCUSDT-1", 100))
		require.NoError(t, err)
		assert.Equal(t, "BTCUSDT-1", id)

		assert.Equal(t, 1, countTrades(t, store))
	})

	t.Run("invalid trade rejected", func(t *testing.T) {
		store := newStore(t)
		_, err := store.InsertTrade(ctx, &model.TradeRecord{Action: model.SideBuy})
		assert.True(t, errors.Is(err, ErrPersistence))

		bad := buyTrade("BTCUSDT-2", 100)
		bad.Pnl = decimal.NewNullDecimal(decimal.NewFromInt(1))
		_, err = store.InsertTrade(ctx, bad)
		assert.True(t, errors.Is(err, ErrPersistence))
		assert.Equal(t, 0, countTrades(t, store))
	})

	t.Run("statistics over sells", func(t *testing.T) {
		store := newStore(t)
		_, err := store.InsertTrade(ctx, buyTrade("BTCUSDT-b1", 100))
		require.NoError(t, err)
		for i, pnl := range []float64{5, -2, 3} {
			_, err := store.InsertTrade(ctx, sellTrade(fmt.Sprintf("BTCUSDT-s%d", i), pnl))
			require.NoError(t, err)
		}

		stats, err := store.GetStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalTrades)
		assert.Equal(t, int64(2), stats.WinningTrades)
		assert.Equal(t, 66.67, stats.WinRate)
		assert.Equal(t, 6.0, stats.TotalPnl)
	})

	t.Run("statistics on empty store", func(t *testing.T) {
		store := newStore(t)
		stats, err := store.GetStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.Statistics{}, stats)
	})

	t.Run("commit transition writes both", func(t *testing.T) {
		store := newStore(t)
		buy := buyTrade("BTCUSDT-10", 11)
		long := model.SystemState{Position: model.PositionLong, EntryPrice: decimal.NewFromInt(11)}
		require.NoError(t, store.CommitTransition(ctx, buy, long))

		sell := sellTrade("BTCUSDT-11", 2)
		flat := model.NewFlatState()
		flat.RunningPnl = decimal.NewFromInt(2)
		require.NoError(t, store.CommitTransition(ctx, sell, flat))

		// replaying the same commit changes nothing
		require.NoError(t, store.CommitTransition(ctx, sellTrade("BTCUSDT-11", 2), flat))

		trades, err := store.RecentTrades(ctx, 10)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, "BTCUSDT-11", trades[0].TradeID)
		assert.Equal(t, "BTCUSDT-10", trades[1].TradeID)
		assert.True(t, trades[0].Pnl.Valid)
		assert.False(t, trades[1].Pnl.Valid)

		last, err := store.LastTrade(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, model.SideSell, last.Action)

		state, err := store.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, model.PositionFlat, state.Position)
		assert.True(t, state.RunningPnl.Equal(decimal.NewFromInt(2)))
	})

	t.Run("commit with invalid snapshot writes nothing", func(t *testing.T) {
		store := newStore(t)
		err := store.CommitTransition(ctx, buyTrade("BTCUSDT-20", 5), model.SystemState{Position: model.PositionLong})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPersistence))
		assert.Equal(t, 0, countTrades(t, store))
	})

	t.Run("ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(ctx))
	})
}

func longState(entry float64) model.SystemState {
	return model.SystemState{Position: model.PositionLong, EntryPrice: decimal.NewFromFloat(entry)}
}
