package migrations

import (
	"log"
	"time"

	"milestoneamm/migration"

	"gorm.io/gorm"
)

func init() {
	if err := migration.Register("20261002_escrow_ledger", Migration20261002EscrowLedger); err != nil {
		log.Fatalf("Failed to register migration 20261002_escrow_ledger: %v", err)
	}
}

// Account model for migration
type Account struct {
	ID        string `gorm:"primaryKey;size:64"`
	Owner     string `gorm:"not null;index;size:128"`
	Asset     string `gorm:"not null;size:64"`
	BalanceFP int64  `gorm:"column:balance_fp;not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry model for migration
type LedgerEntry struct {
	ID        string `gorm:"primaryKey;size:36"`
	FromID    *string `gorm:"size:64;index"`
	ToID      string  `gorm:"not null;size:64;index"`
	Authority string  `gorm:"not null;size:128"`
	AmountFP  int64   `gorm:"column:amount_fp;not null"`
	Memo      string  `gorm:"size:64"`
	CreatedAt time.Time
}

// Migration20261002EscrowLedger creates the collateral accounts and the
// append-only journal of transfers between them
func Migration20261002EscrowLedger(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}); err != nil {
		return err
	}
	return db.AutoMigrate(&LedgerEntry{})
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
