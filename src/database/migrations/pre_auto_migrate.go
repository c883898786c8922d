package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	stateTable  = "system_state"
	tradesTable = "trades"
)

// PrepareLegacyStateColumns upgrades system_state tables written before the
// running_pnl column existed, so AutoMigrate does not have to add a NOT NULL
// column to a populated table. The running total is rebuilt from SELL rows.
func PrepareLegacyStateColumns(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(stateTable) {
		return nil
	}

	if !m.HasColumn(stateTable, "running_pnl") {
		if err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN running_pnl decimal(20,8) NOT NULL DEFAULT 0", stateTable)).Error; err != nil {
			return fmt.Errorf("add running_pnl to %s: %w", stateTable, err)
		}

		if m.HasTable(tradesTable) {
			backfill := fmt.Sprintf(
				"UPDATE %s SET running_pnl = (SELECT COALESCE(SUM(pnl), 0) FROM %s WHERE action = 'SELL')",
				stateTable, tradesTable,
			)
			if err := db.Exec(backfill).Error; err != nil {
				return fmt.Errorf("backfill running_pnl on %s: %w", stateTable, err)
			}
		}
	}

	if m.HasColumn(stateTable, "position") {
		if err := db.Exec(fmt.Sprintf("UPDATE %s SET position = 'FLAT' WHERE position IS NULL OR position = ''", stateTable)).Error; err != nil {
			return fmt.Errorf("normalize position on %s: %w", stateTable, err)
		}
	}

	return nil
}
