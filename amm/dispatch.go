// Package amm is the market core: pure handlers that turn a market snapshot
// and a request into the next snapshot plus the fund movements and telemetry
// records the host must apply. Handlers never perform I/O and never mutate
// their input, so a returned error means nothing happened.
package amm

import (
	"milestoneamm/models"

	"github.com/pkg/errors"
)

// Env is what the host knows about the invocation: the single clock reading
// for the operation, the program namespace and the verified caller identity.
type Env struct {
	Now       int64
	ProgramID string
	Caller    string
}

// State is the pair of records an operation may touch. Market is nil only
// before InitMarket; Position is nil when the caller has none yet.
type State struct {
	Market   *models.Market
	Position *models.Position
}

// Clone deep-copies st.
func (st State) Clone() State {
	var c State
	if st.Market != nil {
		m := st.Market.Clone()
		c.Market = &m
	}
	if st.Position != nil {
		p := *st.Position
		c.Position = &p
	}
	return c
}

// Effects lists what the host must apply, in order, for a successful request.
type Effects struct {
	// Accounts to open before any transfer.
	Accounts  []models.AccountRef
	Transfers []models.Transfer
	Records   []models.Record
}

func (fx *Effects) transfer(from, to, authority string, amount int64) {
	fx.Transfers = append(fx.Transfers, models.Transfer{
		From:      from,
		To:        to,
		Authority: authority,
		AmountFP:  amount,
	})
}

func (fx *Effects) record(r models.Record) {
	fx.Records = append(fx.Records, r)
}

// Handle dispatches req against st.
func Handle(env Env, st State, req Request) (State, Effects, error) {
	next := st.Clone()

	if _, ok := req.(InitMarketRequest); !ok && next.Market == nil {
		return st, Effects{}, models.ErrMarketNotFound
	}

	var (
		fx  Effects
		err error
	)
	switch r := req.(type) {
	case InitMarketRequest:
		fx, err = initMarket(env, &next, r)
	case SeedLiquidityRequest:
		fx, err = seedLiquidity(env, &next, r)
	case BuyRequest:
		fx, err = buy(env, &next, r)
	case SellRequest:
		fx, err = sell(env, &next, r)
	case SettleRequest:
		fx, err = settle(env, &next, r)
	case RedeemRequest:
		fx, err = redeem(env, &next, r)
	case SetPausedRequest:
		fx, err = setPaused(env, &next, r)
	case UpdateParamsRequest:
		fx, err = updateParams(env, &next, r)
	default:
		err = errors.Wrapf(models.ErrInvalidParams, "unsupported request %T", req)
	}
	if err != nil {
		return st, Effects{}, err
	}
	return next, fx, nil
}

// requireAuthority fails unless the caller administers m.
func requireAuthority(env Env, m *models.Market) error {
	if env.Caller != m.Authority {
		return models.ErrUnauthorized
	}
	return nil
}

// checkCollateral verifies that acc holds the market's collateral asset.
func checkCollateral(m *models.Market, acc models.AccountRef) error {
	if acc.Asset != m.CollateralAsset {
		return models.ErrWrongCollateral
	}
	return nil
}

// checkUserAccount verifies that acc belongs to the caller and holds the
// market's collateral.
func checkUserAccount(env Env, m *models.Market, acc models.AccountRef) error {
	if acc.Owner != env.Caller {
		return models.ErrInvalidOwner
	}
	return checkCollateral(m, acc)
}

func checkVault(m *models.Market, vault models.AccountRef) error {
	if vault.ID != m.Vault {
		return models.ErrWrongVault
	}
	return checkCollateral(m, vault)
}

// checkTreasury requires the configured treasury account whenever the market
// routes fees.
func checkTreasury(m *models.Market, treasury *models.AccountRef) error {
	if m.Treasury == nil {
		return nil
	}
	if treasury == nil || treasury.ID != *m.Treasury {
		return models.ErrWrongTreasury
	}
	return checkCollateral(m, *treasury)
}
