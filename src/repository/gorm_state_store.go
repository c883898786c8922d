package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smatrader/src/database"
	"smatrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStateStore holds the dialect-neutral queries. Backends differ only in
// the clauses used to make inserts idempotent.
type gormStateStore struct {
	db      *gorm.DB
	backend string

	insertTradeClause func() clause.Expression
	upsertStateClause func() clause.Expression
}

func (s *gormStateStore) Backend() string {
	return s.backend
}

func (s *gormStateStore) log(op string) *logger.Entry {
	return logger.WithFields(map[string]interface{}{
		"repo":    "StateStore",
		"backend": s.backend,
		"op":      op,
	})
}

func (s *gormStateStore) InitSchema(ctx context.Context) error {
	if err := database.Migrate(s.db.WithContext(ctx)); err != nil {
		s.log("InitSchema").WithError(err).Error("Failed to initialise schema")
		return persistenceErr("init schema", err)
	}
	s.log("InitSchema").Info("Schema ready")
	return nil
}

func (s *gormStateStore) InsertTrade(ctx context.Context, rec *model.TradeRecord) (string, error) {
	if err := validateTrade(rec); err != nil {
		return "", persistenceErr("insert trade", err)
	}

	inserted, err := s.insertTrade(s.db.WithContext(ctx), rec)
	if err != nil {
		s.log("InsertTrade").WithError(err).WithField("trade_id", rec.TradeID).Error("Failed to insert trade")
		return "", persistenceErr("insert trade", err)
	}

	s.log("InsertTrade").WithFields(map[string]interface{}{
		"trade_id": rec.TradeID,
		"inserted": inserted,
	}).Debug("Trade recorded")
	return rec.TradeID, nil
}

func (s *gormStateStore) insertTrade(tx *gorm.DB, rec *model.TradeRecord) (bool, error) {
	res := tx.Clauses(s.insertTradeClause()).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStateStore) SaveSnapshot(ctx context.Context, state model.SystemState) error {
	if err := s.saveSnapshot(s.db.WithContext(ctx), &state); err != nil {
		s.log("SaveSnapshot").WithError(err).Error("Failed to save snapshot")
		return persistenceErr("save snapshot", err)
	}
	return nil
}

func (s *gormStateStore) saveSnapshot(tx *gorm.DB, state *model.SystemState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state.ID = model.SystemStateID
	state.UpdatedAt = time.Now().UTC()
	return tx.Clauses(s.upsertStateClause()).Create(state).Error
}

func (s *gormStateStore) LoadSnapshot(ctx context.Context) (*model.SystemState, error) {
	var state model.SystemState
	err := s.db.WithContext(ctx).First(&state, model.SystemStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log("LoadSnapshot").Info("No snapshot stored yet")
		return nil, nil
	}
	if err != nil {
		s.log("LoadSnapshot").WithError(err).Error("Failed to load snapshot")
		return nil, persistenceErr("load snapshot", err)
	}

	position, err := model.ParsePosition(string(state.Position))
	if err != nil {
		return nil, persistenceErr("load snapshot", err)
	}
	state.Position = position
	if err := state.Validate(); err != nil {
		return nil, persistenceErr("load snapshot", fmt.Errorf("stored snapshot is inconsistent: %w", err))
	}
	return &state, nil
}

func (s *gormStateStore) GetStatistics(ctx context.Context) (model.Statistics, error) {
	var stats model.Statistics
	db := s.db.WithContext(ctx)

	sells := func() *gorm.DB {
		return db.Model(&model.TradeRecord{}).Where("action = ?", model.SideSell)
	}

	if err := sells().Count(&stats.TotalTrades).Error; err != nil {
		return stats, persistenceErr("count trades", err)
	}
	if err := sells().Where("pnl > 0").Count(&stats.WinningTrades).Error; err != nil {
		return stats, persistenceErr("count winning trades", err)
	}

	var total decimal.Decimal
	if err := sells().Select("COALESCE(SUM(pnl), 0)").Row().Scan(&total); err != nil {
		return stats, persistenceErr("sum pnl", err)
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = decimal.NewFromInt(stats.WinningTrades).
			Div(decimal.NewFromInt(stats.TotalTrades)).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			InexactFloat64()
	}
	stats.TotalPnl = total.Round(4).InexactFloat64()
	return stats, nil
}

func (s *gormStateStore) CommitTransition(ctx context.Context, rec *model.TradeRecord, state model.SystemState) error {
	if rec != nil {
		if err := validateTrade(rec); err != nil {
			return persistenceErr("commit transition", err)
		}
	}
	if err := state.Validate(); err != nil {
		return persistenceErr("commit transition", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec != nil {
			if _, err := s.insertTrade(tx, rec); err != nil {
				return fmt.Errorf("insert trade %s: %w", rec.TradeID, err)
			}
		}
		if err := s.saveSnapshot(tx, &state); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log("CommitTransition").WithError(err).Error("Transition rolled back")
		return persistenceErr("commit transition", err)
	}

	entry := s.log("CommitTransition").WithField("position", state.Position)
	if rec != nil {
		entry = entry.WithField("trade_id", rec.TradeID)
	}
	entry.Info("Transition committed")
	return nil
}

func (s *gormStateStore) RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var trades []model.TradeRecord
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&trades).Error; err != nil {
		return nil, persistenceErr("recent trades", err)
	}
	return trades, nil
}

// LastTrade returns nil, nil on an empty history.
func (s *gormStateStore) LastTrade(ctx context.Context) (*model.TradeRecord, error) {
	trades, err := s.RecentTrades(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	return &trades[0], nil
}

func (s *gormStateStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return persistenceErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return persistenceErr("ping", err)
	}
	return nil
}

func (s *gormStateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func validateTrade(rec *model.TradeRecord) error {
	if rec == nil {
		return fmt.Errorf("trade record is nil")
	}
	if rec.TradeID == "" {
		return fmt.Errorf("trade record has no trade_id")
	}
	switch rec.Action {
	case model.SideBuy:
		if rec.Pnl.Valid {
			return fmt.Errorf("buy trade %s carries pnl", rec.TradeID)
		}
	case model.SideSell:
	default:
		return fmt.Errorf("trade %s has unknown action %q", rec.TradeID, rec.Action)
	}
	return nil
}
