package models

import "time"

// Trade is the persisted history row of a committed buy or sell.
type Trade struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Market        string    `json:"market" gorm:"not null;index;size:64"`
	User          string    `json:"user" gorm:"not null;index;size:128"`
	Side          Side      `json:"side" gorm:"not null;size:8"`
	Direction     Direction `json:"direction" gorm:"not null;size:8"`
	UsdcFP        int64     `json:"usdcFp" gorm:"column:usdc_fp;not null"`
	SharesFP      int64     `json:"sharesFp" gorm:"column:shares_fp;not null"`
	FeeFP         int64     `json:"feeFp" gorm:"column:fee_fp;not null"`
	SurplusFP     int64     `json:"surplusFp" gorm:"column:surplus_fp;not null;default:0"`
	PriceHitMilli int64     `json:"priceHitMilli" gorm:"not null"`
	ExecutedAt    time.Time `json:"executedAt" gorm:"not null;index"`
}

// TradeFromRecord converts a committed trade record into its history row.
func TradeFromRecord(r Record) Trade {
	return Trade{
		ID:            r.ID,
		Market:        r.Market,
		User:          r.User,
		Side:          r.Side,
		Direction:     r.Direction,
		UsdcFP:        r.UsdcFP,
		SharesFP:      r.SharesFP,
		FeeFP:         r.FeeFP,
		SurplusFP:     r.SurplusFP,
		PriceHitMilli: r.PriceHitMilli,
		ExecutedAt:    time.Unix(r.Timestamp, 0).UTC(),
	}
}
