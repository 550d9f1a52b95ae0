package migrations

import (
	"log"
	"time"

	"milestoneamm/migration"

	"gorm.io/gorm"
)

func init() {
	if err := migration.Register("20261001_amm_core", Migration20261001AMMCore); err != nil {
		log.Fatalf("Failed to register migration 20261001_amm_core: %v", err)
	}
}

// Market model for migration
type Market struct {
	ID              int64  `gorm:"primary_key"`
	Key             string `gorm:"uniqueIndex;not null;size:64"`
	Authority       string `gorm:"not null;index;size:128"`
	CollateralAsset string `gorm:"not null;size:64"`
	Vault           string `gorm:"not null;size:64"`
	MilestoneID     []byte `gorm:"not null"`
	BFP             int64  `gorm:"column:b_fp;not null"`
	FeeBps          uint16 `gorm:"not null"`
	DeadlineTS      int64  `gorm:"column:deadline_ts;not null"`
	GracePeriodSecs int64  `gorm:"not null"`
	Outcome         string `gorm:"not null;size:16;default:unresolved"`
	QHitFP          int64  `gorm:"column:q_hit_fp;not null;default:0"`
	QMissFP         int64  `gorm:"column:q_miss_fp;not null;default:0"`
	Paused          bool   `gorm:"not null;default:false"`

	// Risk caps
	MaxTradeUsdcFP      int64 `gorm:"column:max_trade_usdc_fp;not null"`
	MaxPositionSharesFP int64 `gorm:"column:max_position_shares_fp;not null"`

	Treasury        *string `gorm:"size:64"`
	OracleSigner    *string `gorm:"size:128"`
	LiquidityUsdcFP int64   `gorm:"column:liquidity_usdc_fp;not null;default:0"`

	Title       string `gorm:"size:160"`
	Description string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position model for migration
type Position struct {
	ID           int64  `gorm:"primary_key"`
	Key          string `gorm:"uniqueIndex;not null;size:64"`
	Owner        string `gorm:"not null;index;size:128"`
	Market       string `gorm:"not null;index;size:64"`
	HitSharesFP  int64  `gorm:"column:hit_shares_fp;not null;default:0"`
	MissSharesFP int64  `gorm:"column:miss_shares_fp;not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Trade model for migration
type Trade struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Market        string    `gorm:"not null;index;size:64"`
	User          string    `gorm:"not null;index;size:128"`
	Side          string    `gorm:"not null;size:8"`
	Direction     string    `gorm:"not null;size:8"`
	UsdcFP        int64     `gorm:"column:usdc_fp;not null"`
	SharesFP      int64     `gorm:"column:shares_fp;not null"`
	FeeFP         int64     `gorm:"column:fee_fp;not null"`
	SurplusFP     int64     `gorm:"column:surplus_fp;not null;default:0"`
	PriceHitMilli int64     `gorm:"not null"`
	ExecutedAt    time.Time `gorm:"not null;index"`
}

// Migration20261001AMMCore creates the market, position and trade tables
func Migration20261001AMMCore(db *gorm.DB) error {
	if err := db.AutoMigrate(&Market{}, &Position{}, &Trade{}); err != nil {
		return err
	}

	// Trade history is read newest first per market
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_trades_market_executed ON trades(market, executed_at DESC)").Error
}

// TableName specifies the table name for Market
func (Market) TableName() string {
	return "markets"
}

// TableName specifies the table name for Position
func (Position) TableName() string {
	return "positions"
}

// TableName specifies the table name for Trade
func (Trade) TableName() string {
	return "trades"
}
