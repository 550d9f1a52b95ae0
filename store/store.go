// Package store persists markets, positions, trade history and telemetry
// events with gorm. Postgres serves production and sqlite serves local runs
// and tests.
package store

import (
	"strings"

	"milestoneamm/config"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", cfg.Driver)
	}

	// Every connection to an in-memory sqlite database sees its own empty
	// database, so the pool is pinned to one.
	if cfg.Driver == "sqlite" && isMemoryDSN(cfg.DSN) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "store: sql handle")
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Store groups the repositories sharing one gorm handle.
type Store struct {
	DB        *gorm.DB
	Markets   MarketRepository
	Positions PositionRepository
	Trades    TradeRepository
	Events    EventRepository
}

// New builds the repositories over db.
func New(db *gorm.DB) *Store {
	return &Store{
		DB:        db,
		Markets:   NewMarketRepository(db),
		Positions: NewPositionRepository(db),
		Trades:    NewTradeRepository(db),
		Events:    NewEventRepository(db),
	}
}

// WithTx returns a Store whose repositories run inside tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return New(tx)
}

func pageBounds(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
