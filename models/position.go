package models

import "time"

// Position holds one user's share balances in one market.
type Position struct {
	ID           int64     `json:"id" gorm:"primary_key"`
	Key          string    `json:"key" gorm:"uniqueIndex;not null;size:64"`
	Owner        string    `json:"owner" gorm:"not null;index;size:128"`
	Market       string    `json:"market" gorm:"not null;index;size:64"`
	HitSharesFP  int64     `json:"hitSharesFp" gorm:"column:hit_shares_fp;not null;default:0"`
	MissSharesFP int64     `json:"missSharesFp" gorm:"column:miss_shares_fp;not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Shares returns the balance held on side.
func (p Position) Shares(side Side) int64 {
	switch side {
	case SideHit:
		return p.HitSharesFP
	case SideMiss:
		return p.MissSharesFP
	}
	return 0
}

// IsEmpty reports whether both balances are zero.
func (p Position) IsEmpty() bool {
	return p.HitSharesFP == 0 && p.MissSharesFP == 0
}
