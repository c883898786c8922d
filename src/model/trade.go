package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the append-only audit entry written once per executed order.
// Rows are never updated or deleted.
//
// Decimal columns are exact NUMERIC on Postgres. SQLite stores them as REAL,
// which holds about 15 significant digits: enough for prices and quantities
// with eight decimals below 10^7, not for arbitrary decimal(20,8) values.
type TradeRecord struct {
	ID uint `gorm:"primaryKey" json:"-"`

	// TradeID is unique so that re-applying the same logical trade is a no-op.
	TradeID   string    `gorm:"size:100;not null;uniqueIndex:idx_trades_trade_id" json:"trade_id"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Action    Side      `gorm:"size:10;not null;index" json:"action"`
	Symbol    string    `gorm:"size:20;not null" json:"symbol"`

	Price    decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"price"`
	Quantity decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"quantity"`
	Pnl      decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"pnl"` // set on SELL only

	SMAShort decimal.Decimal `gorm:"column:sma_short;type:decimal(20,8)" json:"sma_short"`
	SMALong  decimal.Decimal `gorm:"column:sma_long;type:decimal(20,8)" json:"sma_long"`

	OrderID string `gorm:"size:100" json:"order_id"` // ID returned by the exchange
}

// TableName keeps the table name shared with the reporting tools.
func (TradeRecord) TableName() string {
	return "trades"
}
