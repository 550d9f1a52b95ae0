package service

import (
	"context"

	"milestoneamm/amm"
	"milestoneamm/handlers/math/probabilities/lmsr"
	"milestoneamm/models"
	"milestoneamm/security"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreateMarketInput describes a new market. Amounts are fixed point.
type CreateMarketInput struct {
	MilestoneID         string
	BFP                 int64
	FeeBps              uint16
	DeadlineTS          int64
	GracePeriodSecs     int64
	MaxTradeUsdcFP      int64
	MaxPositionSharesFP int64
	TreasuryID          *string
	OracleSigner        *string
	Title               string
	Description         string
}

// CreateMarket creates a market administered by caller together with its
// vault account.
func (s *MarketService) CreateMarket(ctx context.Context, caller string, in CreateMarketInput) (*models.Market, error) {
	meta, err := s.security.ValidateAndSanitizeMarketInput(security.MarketInput{
		Title:       in.Title,
		Description: in.Description,
	})
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidParams, err.Error())
	}

	milestone := []byte(in.MilestoneID)
	key := amm.MarketKey(s.opts.ProgramID, caller, milestone)
	res, err := s.execute(ctx, caller, operation{
		market:  key,
		creates: true,
		build: func(sc scope) (amm.Request, error) {
			req := amm.InitMarketRequest{
				MilestoneID:         milestone,
				CollateralAsset:     s.opts.CollateralAsset,
				VaultID:             "vault-" + uuid.NewString(),
				BFP:                 in.BFP,
				FeeBps:              in.FeeBps,
				DeadlineTS:          in.DeadlineTS,
				GracePeriodSecs:     in.GracePeriodSecs,
				MaxTradeUsdcFP:      in.MaxTradeUsdcFP,
				MaxPositionSharesFP: in.MaxPositionSharesFP,
				OracleSigner:        in.OracleSigner,
				Title:               meta.Title,
				Description:         meta.Description,
			}
			if in.TreasuryID != nil {
				ref, err := sc.ref(*in.TreasuryID)
				if err != nil {
					return nil, err
				}
				req.Treasury = &ref
			}
			return req, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return res.state.Market, nil
}

// SeedLiquidity moves amount from the caller's source account into the vault.
func (s *MarketService) SeedLiquidity(ctx context.Context, caller, key, sourceID string, amount int64) (*models.Market, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		build: func(sc scope) (amm.Request, error) {
			source, err := sc.ref(sourceID)
			if err != nil {
				return nil, err
			}
			vault, err := sc.vault()
			if err != nil {
				return nil, err
			}
			return amm.SeedLiquidityRequest{AmountFP: amount, Source: source, Vault: vault}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return res.state.Market, nil
}

// Settle resolves the market to outcome.
func (s *MarketService) Settle(ctx context.Context, caller, key string, outcome models.Outcome) (*models.Market, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		build: func(scope) (amm.Request, error) {
			return amm.SettleRequest{Outcome: outcome}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return res.state.Market, nil
}

// SetPaused toggles trading.
func (s *MarketService) SetPaused(ctx context.Context, caller, key string, paused bool) (*models.Market, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		build: func(scope) (amm.Request, error) {
			return amm.SetPausedRequest{Paused: paused}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return res.state.Market, nil
}

// ParamsUpdate is a partial parameter update; nil fields are unchanged.
type ParamsUpdate struct {
	BFP                 *int64
	FeeBps              *uint16
	DeadlineTS          *int64
	GracePeriodSecs     *int64
	MaxTradeUsdcFP      *int64
	MaxPositionSharesFP *int64
	TreasuryID          *string
	OracleSigner        *string
}

// UpdateParams applies an authority parameter update.
func (s *MarketService) UpdateParams(ctx context.Context, caller, key string, up ParamsUpdate) (*models.Market, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		build: func(sc scope) (amm.Request, error) {
			req := amm.UpdateParamsRequest{
				BFP:                 up.BFP,
				FeeBps:              up.FeeBps,
				DeadlineTS:          up.DeadlineTS,
				GracePeriodSecs:     up.GracePeriodSecs,
				MaxTradeUsdcFP:      up.MaxTradeUsdcFP,
				MaxPositionSharesFP: up.MaxPositionSharesFP,
				OracleSigner:        up.OracleSigner,
			}
			if up.TreasuryID != nil {
				ref, err := sc.ref(*up.TreasuryID)
				if err != nil {
					return nil, err
				}
				req.Treasury = &ref
			}
			return req, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return res.state.Market, nil
}

// GetMarket loads one market.
func (s *MarketService) GetMarket(ctx context.Context, key string) (*models.Market, error) {
	return s.store.Markets.Get(ctx, key)
}

// ListMarkets pages through markets, newest first.
func (s *MarketService) ListMarkets(ctx context.Context, page, pageSize int) ([]*models.Market, int64, error) {
	return s.store.Markets.List(ctx, page, pageSize)
}

// MarketView is a market with its current prices.
type MarketView struct {
	Market *models.Market    `json:"market"`
	State  lmsr.MarketState `json:"state"`
}

// GetMarketView loads a market and prices it.
func (s *MarketService) GetMarketView(ctx context.Context, key string) (MarketView, error) {
	m, err := s.store.Markets.Get(ctx, key)
	if err != nil {
		return MarketView{}, err
	}
	st, err := lmsr.State(m.BFP, m.QHitFP, m.QMissFP)
	if err != nil {
		return MarketView{}, err
	}
	return MarketView{Market: m, State: st}, nil
}

// QuoteBuy simulates a buy without changing anything. When owner is set the
// owner's current position counts against the position cap.
func (s *MarketService) QuoteBuy(ctx context.Context, key, owner string, side models.Side, usdcIn int64) (lmsr.BuySimulation, error) {
	if !side.Valid() {
		return lmsr.BuySimulation{}, models.ErrInvalidSide
	}
	if usdcIn <= 0 {
		return lmsr.BuySimulation{}, models.ErrInvalidAmount
	}
	m, err := s.store.Markets.Get(ctx, key)
	if err != nil {
		return lmsr.BuySimulation{}, err
	}
	var cur int64
	if owner != "" {
		pos, err := s.store.Positions.Get(ctx, amm.PositionKey(key, owner))
		switch {
		case err == nil:
			cur = pos.Shares(side)
		case !errors.Is(err, models.ErrPositionNotFound):
			return lmsr.BuySimulation{}, err
		}
	}
	return lmsr.SimulateBuy(m.BFP, m.QHitFP, m.QMissFP, side, usdcIn, m.FeeBps, m.MaxPositionSharesFP, cur)
}

// QuoteSell simulates selling shares back without changing anything.
func (s *MarketService) QuoteSell(ctx context.Context, key string, side models.Side, shares int64) (lmsr.SellSimulation, error) {
	if !side.Valid() {
		return lmsr.SellSimulation{}, models.ErrInvalidSide
	}
	if shares <= 0 {
		return lmsr.SellSimulation{}, models.ErrInvalidAmount
	}
	m, err := s.store.Markets.Get(ctx, key)
	if err != nil {
		return lmsr.SellSimulation{}, err
	}
	if shares > m.Quantity(side) {
		return lmsr.SellSimulation{}, models.ErrInsufficientBalance
	}
	return lmsr.SimulateSell(m.BFP, m.QHitFP, m.QMissFP, side, shares, m.FeeBps)
}
