package amm

import "milestoneamm/models"

// Request is one of the closed set of market operations accepted by Handle.
type Request interface {
	// Op names the operation for logs and metrics.
	Op() string
	request()
}

// InitMarketRequest creates a market owned by the caller. VaultID is the id
// the host allocated for the market's new vault account.
type InitMarketRequest struct {
	MilestoneID         []byte
	CollateralAsset     string
	VaultID             string
	BFP                 int64
	FeeBps              uint16
	DeadlineTS          int64
	GracePeriodSecs     int64
	MaxTradeUsdcFP      int64
	MaxPositionSharesFP int64
	Treasury            *models.AccountRef
	OracleSigner        *string
	Title               string
	Description         string
}

// SeedLiquidityRequest moves authority funds into the vault.
type SeedLiquidityRequest struct {
	AmountFP int64
	Source   models.AccountRef
	Vault    models.AccountRef
}

// BuyRequest spends up to UsdcInFP of collateral on Side.
type BuyRequest struct {
	Side           models.Side
	UsdcInFP       int64
	MinSharesOutFP int64
	User           models.AccountRef
	Vault          models.AccountRef
	Treasury       *models.AccountRef
}

// SellRequest returns SharesInFP of Side to the market maker.
type SellRequest struct {
	Side         models.Side
	SharesInFP   int64
	MinUsdcOutFP int64
	User         models.AccountRef
	Vault        models.AccountRef
	Treasury     *models.AccountRef
}

// SettleRequest resolves the market.
type SettleRequest struct {
	Outcome models.Outcome
}

// RedeemRequest closes the caller's position after settlement.
type RedeemRequest struct {
	User  models.AccountRef
	Vault models.AccountRef
}

// SetPausedRequest toggles trading.
type SetPausedRequest struct {
	Paused bool
}

// UpdateParamsRequest is a partial update; nil fields are left unchanged.
type UpdateParamsRequest struct {
	BFP                 *int64
	FeeBps              *uint16
	DeadlineTS          *int64
	GracePeriodSecs     *int64
	MaxTradeUsdcFP      *int64
	MaxPositionSharesFP *int64
	Treasury            *models.AccountRef
	OracleSigner        *string
}

func (InitMarketRequest) Op() string    { return "init_market" }
func (SeedLiquidityRequest) Op() string { return "seed_liquidity" }
func (BuyRequest) Op() string           { return "buy" }
func (SellRequest) Op() string          { return "sell" }
func (SettleRequest) Op() string        { return "settle" }
func (RedeemRequest) Op() string        { return "redeem" }
func (SetPausedRequest) Op() string     { return "set_paused" }
func (UpdateParamsRequest) Op() string  { return "update_params" }

func (InitMarketRequest) request()    {}
func (SeedLiquidityRequest) request() {}
func (BuyRequest) request()           {}
func (SellRequest) request()          {}
func (SettleRequest) request()        {}
func (RedeemRequest) request()        {}
func (SetPausedRequest) request()     {}
func (UpdateParamsRequest) request()  {}
