package repository

import (
	"smatrader/src/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStateStore keeps state in a networked PostgreSQL database.
type PostgresStateStore struct {
	*gormStateStore
}

func NewPostgresStateStore(db *gorm.DB) *PostgresStateStore {
	return &PostgresStateStore{
		gormStateStore: &gormStateStore{
			db:      db,
			backend: database.BackendPostgres,
			insertTradeClause: func() clause.Expression {
				return clause.OnConflict{
					Columns:   []clause.Column{{Name: "trade_id"}},
					DoNothing: true,
				}
			},
			upsertStateClause: func() clause.Expression {
				return clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{"position", "entry_price", "running_pnl", "updated_at"}),
				}
			},
		},
	}
}
