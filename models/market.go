package models

import (
	"time"
)

// Market is the aggregate record of one milestone market. Quantities with an
// FP suffix are fixed-point integers scaled by 1,000,000.
type Market struct {
	ID              int64   `json:"id" gorm:"primary_key"`
	Key             string  `json:"key" gorm:"uniqueIndex;not null;size:64"`
	Authority       string  `json:"authority" gorm:"not null;index;size:128"`
	CollateralAsset string  `json:"collateralAsset" gorm:"not null;size:64"`
	Vault           string  `json:"vault" gorm:"not null;size:64"`
	MilestoneID     []byte  `json:"milestoneId" gorm:"not null"`
	BFP             int64   `json:"bFp" gorm:"column:b_fp;not null"`
	FeeBps          uint16  `json:"feeBps" gorm:"not null"`
	DeadlineTS      int64   `json:"deadlineTs" gorm:"column:deadline_ts;not null"`
	GracePeriodSecs int64   `json:"gracePeriodSecs" gorm:"not null"`
	Outcome         Outcome `json:"outcome" gorm:"not null;size:16;default:unresolved"`
	QHitFP          int64   `json:"qHitFp" gorm:"column:q_hit_fp;not null;default:0"`
	QMissFP         int64   `json:"qMissFp" gorm:"column:q_miss_fp;not null;default:0"`
	Paused          bool    `json:"paused" gorm:"not null;default:false"`

	// Risk caps
	MaxTradeUsdcFP      int64 `json:"maxTradeUsdcFp" gorm:"column:max_trade_usdc_fp;not null"`
	MaxPositionSharesFP int64 `json:"maxPositionSharesFp" gorm:"column:max_position_shares_fp;not null"`

	// Treasury is the ledger account receiving fees; fees stay in the vault when nil.
	Treasury     *string `json:"treasury,omitempty" gorm:"size:64"`
	OracleSigner *string `json:"oracleSigner,omitempty" gorm:"size:128"`

	LiquidityUsdcFP int64 `json:"liquidityUsdcFp" gorm:"column:liquidity_usdc_fp;not null;default:0"`

	// Display metadata, sanitized before it is stored.
	Title       string `json:"title" gorm:"size:160"`
	Description string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so pure handlers never alias the caller's record.
func (m Market) Clone() Market {
	c := m
	if m.MilestoneID != nil {
		c.MilestoneID = append([]byte(nil), m.MilestoneID...)
	}
	if m.Treasury != nil {
		t := *m.Treasury
		c.Treasury = &t
	}
	if m.OracleSigner != nil {
		o := *m.OracleSigner
		c.OracleSigner = &o
	}
	return c
}

// Quantity returns the aggregate outstanding shares of side.
func (m Market) Quantity(side Side) int64 {
	switch side {
	case SideHit:
		return m.QHitFP
	case SideMiss:
		return m.QMissFP
	}
	return 0
}
