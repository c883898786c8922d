package repository

import (
	"context"
	"errors"
	"fmt"

	"smatrader/src/database"
	"smatrader/src/model"

	"gorm.io/gorm"
)

// ErrPersistence marks every failure reported by a StateStore.
var ErrPersistence = errors.New("persistence error")

// StateStore is the durable home of trade history and the engine snapshot.
type StateStore interface {
	// InitSchema creates or upgrades the tables. Safe to call repeatedly.
	InitSchema(ctx context.Context) error
	// InsertTrade stores rec unless a row with the same trade_id exists.
	InsertTrade(ctx context.Context, rec *model.TradeRecord) (string, error)
	SaveSnapshot(ctx context.Context, state model.SystemState) error
	// LoadSnapshot returns nil, nil when no snapshot was ever saved.
	LoadSnapshot(ctx context.Context) (*model.SystemState, error)
	GetStatistics(ctx context.Context) (model.Statistics, error)
	// CommitTransition writes rec and state in one transaction.
	CommitTransition(ctx context.Context, rec *model.TradeRecord, state model.SystemState) error
	RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error)
	LastTrade(ctx context.Context) (*model.TradeRecord, error)
	Ping(ctx context.Context) error
	Close() error
	Backend() string
}

// NewStateStore builds the store implementation matching backend.
func NewStateStore(db *gorm.DB, backend string) (StateStore, error) {
	switch backend {
	case database.BackendSQLite:
		return NewSQLiteStateStore(db), nil
	case database.BackendPostgres:
		return NewPostgresStateStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", backend)
	}
}

// OpenStateStore connects according to cfg, migrates and returns the store.
func OpenStateStore(ctx context.Context, cfg database.Config) (StateStore, error) {
	db, backend, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	store, err := NewStateStore(db, backend)
	if err != nil {
		return nil, err
	}

	if err := store.InitSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
