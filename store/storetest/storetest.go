// Package storetest opens migrated in-memory databases for tests.
package storetest

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

// NewDB returns an empty, fully migrated sqlite database that is closed when
// the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db, zap.NewNop()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
