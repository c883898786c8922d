package executors

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"smatrader/src/connectors"
	"smatrader/src/model"
	"smatrader/src/repository"

	"github.com/shopspring/decimal"
)

type fakeExchange struct {
	mu sync.Mutex

	closes       []decimal.Decimal
	fetchErrs    []error // consumed one per call before closes are returned
	fetchCalls   int
	panicOnFetch bool
	gate         chan struct{} // when set, fetches block until it is closed

	orderErr  error
	orders    []model.Side
	nextOrder int
}

func (f *fakeExchange) setCloses(values ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = f.closes[:0]
	for _, v := range values {
		f.closes = append(f.closes, decimal.NewFromFloat(v))
	}
}

func (f *fakeExchange) FetchCloses(_ context.Context, _ model.Symbol, _ string, limit int) ([]decimal.Decimal, error) {
	f.mu.Lock()
	f.fetchCalls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnFetch {
		panic("exchange exploded")
	}
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return nil, err
	}
	out := append([]decimal.Decimal(nil), f.closes...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeExchange) SubmitMarketOrder(_ context.Context, _ model.Symbol, side model.Side, _ decimal.Decimal) (*connectors.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.nextOrder++
	f.orders = append(f.orders, side)
	return &connectors.OrderResult{OrderID: strconv.Itoa(f.nextOrder), Status: "FILLED"}, nil
}

func (f *fakeExchange) calls() (fetches int, orders int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, len(f.orders)
}

// memStore is an in-memory StateStore with failure injection.
type memStore struct {
	mu sync.Mutex

	snapshot  *model.SystemState
	trades    []model.TradeRecord
	commitErr error
	loadErr   error
	commits   int
}

var _ repository.StateStore = (*memStore)(nil)

func (s *memStore) InitSchema(context.Context) error { return nil }

func (s *memStore) InsertTrade(_ context.Context, rec *model.TradeRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(*rec)
	return rec.TradeID, nil
}

func (s *memStore) insertLocked(rec model.TradeRecord) {
	for _, t := range s.trades {
		if t.TradeID == rec.TradeID {
			return
		}
	}
	rec.ID = uint(len(s.trades) + 1)
	s.trades = append(s.trades, rec)
}

func (s *memStore) SaveSnapshot(_ context.Context, state model.SystemState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &state
	return nil
}

func (s *memStore) LoadSnapshot(context.Context) (*model.SystemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snapshot == nil {
		return nil, nil
	}
	cp := *s.snapshot
	return &cp, nil
}

func (s *memStore) GetStatistics(context.Context) (model.Statistics, error) {
	return model.Statistics{}, nil
}

func (s *memStore) CommitTransition(_ context.Context, rec *model.TradeRecord, state model.SystemState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	if s.commitErr != nil {
		return fmt.Errorf("%w: %w", repository.ErrPersistence, s.commitErr)
	}
	if rec != nil {
		s.insertLocked(*rec)
	}
	s.snapshot = &state
	return nil
}

func (s *memStore) RecentTrades(_ context.Context, limit int) ([]model.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TradeRecord
	for i := len(s.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.trades[i])
	}
	return out, nil
}

func (s *memStore) LastTrade(ctx context.Context) (*model.TradeRecord, error) {
	trades, _ := s.RecentTrades(ctx, 1)
	if len(trades) == 0 {
		return nil, nil
	}
	return &trades[0], nil
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }
func (s *memStore) Backend() string            { return "memory" }

func (s *memStore) setCommitErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

func (s *memStore) tradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}
