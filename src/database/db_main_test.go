package database

import (
	"path/filepath"
	"testing"

	"smatrader/src/database/migrations"
	"smatrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestConfigBackend(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{name: "default sqlite", cfg: Config{}, want: BackendSQLite},
		{name: "database url implies postgres", cfg: Config{DatabaseURL: "postgres://x"}, want: BackendPostgres},
		{name: "explicit sqlite wins over url", cfg: Config{StoreBackend: "sqlite", DatabaseURL: "postgres://x"}, want: BackendSQLite},
		{name: "postgres without url", cfg: Config{StoreBackend: "postgres"}, wantErr: true},
		{name: "unknown backend", cfg: Config{StoreBackend: "mysql"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Backend()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOpenSQLiteCreatesDirectoryAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trading.db")

	db, err := OpenSQLite(path, int(gormlogger.Silent))
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	// a second run must be a no-op
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable("trades"))
	assert.True(t, db.Migrator().HasTable("system_state"))

	var applied int64
	require.NoError(t, db.Model(&migrations.DataMigration{}).Count(&applied).Error)
	assert.Equal(t, int64(1), applied)
}

func TestMigratePreparesLegacyStateTable(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "legacy.db"), int(gormlogger.Silent))
	require.NoError(t, err)

	// schema of the first release: no running_pnl, empty position for FLAT
	require.NoError(t, db.Exec(`CREATE TABLE system_state (
		id integer PRIMARY KEY,
		position text NOT NULL,
		entry_price decimal(20,8) NOT NULL,
		updated_at datetime
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO system_state (id, position, entry_price) VALUES (1, '', 105.5)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE trades (
		id integer PRIMARY KEY AUTOINCREMENT,
		trade_id text NOT NULL,
		timestamp datetime NOT NULL,
		action text NOT NULL,
		symbol text NOT NULL,
		price decimal(20,8) NOT NULL,
		quantity decimal(20,8) NOT NULL,
		pnl decimal(20,8)
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO trades (trade_id, timestamp, action, symbol, price, quantity, pnl) VALUES
		('a', '2024-01-01 00:00:00', 'BUY', 'BTCUSDT', 100, 1, NULL),
		('b', '2024-01-01 00:01:00', 'SELL', 'BTCUSDT', 105, 1, 5),
		('c', '2024-01-01 00:02:00', 'SELL', 'BTCUSDT', 98, 1, -2)`).Error)

	require.NoError(t, Migrate(db))

	var state model.SystemState
	require.NoError(t, db.First(&state, model.SystemStateID).Error)
	assert.Equal(t, model.PositionFlat, state.Position)
	assert.True(t, state.EntryPrice.IsZero(), "flat entry price reset, got %s", state.EntryPrice)
	assert.True(t, state.RunningPnl.Equal(decimal.NewFromInt(3)), "running pnl backfilled, got %s", state.RunningPnl)
	assert.NoError(t, state.Validate())

	assert.True(t, db.Migrator().HasColumn(&model.TradeRecord{}, "sma_short"))
	assert.True(t, db.Migrator().HasColumn(&model.TradeRecord{}, "order_id"))
}
