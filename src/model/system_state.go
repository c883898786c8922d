package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SystemStateID is the fixed key of the single snapshot row.
const SystemStateID uint = 1

// SystemState is the engine snapshot, overwritten on every transition.
// It is the only thing read back on startup. See TradeRecord for the
// precision of decimal columns on SQLite.
type SystemState struct {
	ID         uint            `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Position   Position        `gorm:"size:10;not null" json:"position"`
	EntryPrice decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"entry_price"`
	RunningPnl decimal.Decimal `gorm:"column:running_pnl;type:decimal(20,8);not null" json:"running_pnl"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (SystemState) TableName() string {
	return "system_state"
}

// NewFlatState is the state of an engine that never traded.
func NewFlatState() SystemState {
	return SystemState{
		ID:         SystemStateID,
		Position:   PositionFlat,
		EntryPrice: decimal.Zero,
		RunningPnl: decimal.Zero,
	}
}

// Validate checks that entry price is non-zero if and only if the position is LONG.
func (s SystemState) Validate() error {
	switch s.Position {
	case PositionLong:
		if s.EntryPrice.IsZero() {
			return fmt.Errorf("long position without entry price")
		}
	case PositionFlat:
		if !s.EntryPrice.IsZero() {
			return fmt.Errorf("flat position with entry price %s", s.EntryPrice)
		}
	default:
		return fmt.Errorf("unknown position %q", s.Position)
	}
	return nil
}
