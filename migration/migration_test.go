package migration_test

import (
	"testing"

	"milestoneamm/config"
	"milestoneamm/migration"
	_ "milestoneamm/migration/migrations"
	"milestoneamm/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRunAppliesOnce(t *testing.T) {
	db, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, migration.Run(db, zap.NewNop()))
	require.NoError(t, migration.Run(db, zap.NewNop()))

	var applied []migration.SchemaMigration
	require.NoError(t, db.Order("name").Find(&applied).Error)
	require.Len(t, applied, len(migration.Registered()))
	require.Equal(t, "20261001_amm_core", applied[0].Name)

	for _, table := range []string{"markets", "positions", "trades", "accounts", "ledger_entries", "events"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	require.Error(t, migration.Register("20261001_amm_core", func(*gorm.DB) error { return nil }))
	require.Error(t, migration.Register("", nil))
}
