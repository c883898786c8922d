package repository

import (
	"smatrader/src/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLiteStateStore keeps state in an embedded database file.
type SQLiteStateStore struct {
	*gormStateStore
}

func NewSQLiteStateStore(db *gorm.DB) *SQLiteStateStore {
	return &SQLiteStateStore{
		gormStateStore: &gormStateStore{
			db:      db,
			backend: database.BackendSQLite,
			insertTradeClause: func() clause.Expression {
				return clause.Insert{Modifier: "OR IGNORE"}
			},
			upsertStateClause: func() clause.Expression {
				return clause.Insert{Modifier: "OR REPLACE"}
			},
		},
	}
}
