package models

import "time"

// Account is an escrow ledger account holding one collateral asset.
// Vault accounts are owned by their market key.
type Account struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Owner     string    `json:"owner" gorm:"not null;index;size:128"`
	Asset     string    `json:"asset" gorm:"not null;size:64"`
	BalanceFP int64     `json:"balanceFp" gorm:"column:balance_fp;not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountRef is the identity part of an account that the market core checks
// before it asks the ledger to move funds.
type AccountRef struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Asset string `json:"asset"`
}

// Ref returns the identity part of a.
func (a Account) Ref() AccountRef {
	return AccountRef{ID: a.ID, Owner: a.Owner, Asset: a.Asset}
}

// Transfer is one requested movement of funds between ledger accounts.
// Authority is the identity that must own From.
type Transfer struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Authority string `json:"authority"`
	AmountFP  int64  `json:"amountFp"`
}
