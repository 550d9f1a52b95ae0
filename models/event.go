package models

import "time"

// RecordKind names a telemetry record.
type RecordKind string

const (
	RecordMarketCreated   RecordKind = "market_created"
	RecordLiquiditySeeded RecordKind = "liquidity_seeded"
	RecordTrade           RecordKind = "trade"
	RecordSettled         RecordKind = "settled"
	RecordRedeemed        RecordKind = "redeemed"
	RecordPaused          RecordKind = "paused"
	RecordParamsUpdated   RecordKind = "params_updated"
)

// Record is a fire-and-forget telemetry record. The market core fills in
// everything but ID, which the host assigns when the operation commits.
type Record struct {
	ID        string     `json:"id"`
	Kind      RecordKind `json:"kind"`
	Market    string     `json:"market"`
	User      string     `json:"user,omitempty"`
	Timestamp int64      `json:"ts"`

	// trades
	Side          Side      `json:"side,omitempty"`
	Direction     Direction `json:"direction,omitempty"`
	UsdcFP        int64     `json:"usdcFp,omitempty"`
	SharesFP      int64     `json:"sharesFp,omitempty"`
	FeeFP         int64     `json:"feeFp,omitempty"`
	SurplusFP     int64     `json:"surplusFp,omitempty"`
	PriceHitMilli int64     `json:"priceHitMilli,omitempty"`

	// lifecycle
	Outcome    Outcome `json:"outcome,omitempty"`
	Paused     *bool   `json:"paused,omitempty"`
	AmountFP   int64   `json:"amountFp,omitempty"`
	BFP        int64   `json:"bFp,omitempty"`
	FeeBps     uint16  `json:"feeBps,omitempty"`
	DeadlineTS int64   `json:"deadlineTs,omitempty"`
}

// Event is the persisted form of a Record.
type Event struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Kind      RecordKind `json:"kind" gorm:"not null;index;size:32"`
	Market    string     `json:"market" gorm:"not null;index;size:64"`
	Payload   string     `json:"payload" gorm:"type:text"`
	CreatedAt time.Time  `json:"createdAt"`
}
