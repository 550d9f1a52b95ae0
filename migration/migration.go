// Package migration keeps a registry of named schema migrations and applies
// the pending ones in name order.
package migration

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Func applies one migration inside a transaction.
type Func func(db *gorm.DB) error

// SchemaMigration records an applied migration.
type SchemaMigration struct {
	Name      string    `gorm:"primaryKey;size:128"`
	AppliedAt time.Time `gorm:"not null"`
}

var (
	mu       sync.Mutex
	registry = map[string]Func{}
)

// Register adds a migration. Names must be unique and sort in apply order.
func Register(name string, fn Func) error {
	mu.Lock()
	defer mu.Unlock()

	if name == "" || fn == nil {
		return errors.New("migration: name and func are required")
	}
	if _, ok := registry[name]; ok {
		return errors.Errorf("migration: %s already registered", name)
	}
	registry[name] = fn
	return nil
}

// Registered returns the registered names in apply order.
func Registered() []string {
	mu.Lock()
	defer mu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run applies every registered migration not yet recorded in
// schema_migrations. Each one commits together with its record.
func Run(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return errors.Wrap(err, "migration: create schema_migrations")
	}

	var applied []SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return errors.Wrap(err, "migration: list applied")
	}
	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.Name] = true
	}

	for _, name := range Registered() {
		if done[name] {
			continue
		}
		mu.Lock()
		fn := registry[name]
		mu.Unlock()

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Name: name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return errors.Wrapf(err, "migration %s", name)
		}
		log.Info("applied migration", zap.String("name", name))
	}
	return nil
}
