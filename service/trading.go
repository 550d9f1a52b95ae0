package service

import (
	"context"

	"milestoneamm/amm"
	"milestoneamm/models"

	"github.com/pkg/errors"
)

// TradeResult is the outcome of a committed buy or sell.
type TradeResult struct {
	Market   *models.Market   `json:"market"`
	Position *models.Position `json:"position"`
	Trade    models.Record    `json:"trade"`
}

// BuyInput spends UsdcInFP from AccountID on Side.
type BuyInput struct {
	Side           models.Side
	UsdcInFP       int64
	MinSharesOutFP int64
	AccountID      string
}

// Buy buys shares for caller.
func (s *MarketService) Buy(ctx context.Context, caller, key string, in BuyInput) (TradeResult, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		owner:  caller,
		build: func(sc scope) (amm.Request, error) {
			user, vault, treasury, err := tradeAccounts(sc, in.AccountID)
			if err != nil {
				return nil, err
			}
			return amm.BuyRequest{
				Side:           in.Side,
				UsdcInFP:       in.UsdcInFP,
				MinSharesOutFP: in.MinSharesOutFP,
				User:           user,
				Vault:          vault,
				Treasury:       treasury,
			}, nil
		},
	})
	if err != nil {
		return TradeResult{}, err
	}
	return tradeResult(res), nil
}

// SellInput returns SharesInFP of Side, paying out to AccountID.
type SellInput struct {
	Side         models.Side
	SharesInFP   int64
	MinUsdcOutFP int64
	AccountID    string
}

// Sell sells caller's shares back to the market maker.
func (s *MarketService) Sell(ctx context.Context, caller, key string, in SellInput) (TradeResult, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		owner:  caller,
		build: func(sc scope) (amm.Request, error) {
			user, vault, treasury, err := tradeAccounts(sc, in.AccountID)
			if err != nil {
				return nil, err
			}
			return amm.SellRequest{
				Side:         in.Side,
				SharesInFP:   in.SharesInFP,
				MinUsdcOutFP: in.MinUsdcOutFP,
				User:         user,
				Vault:        vault,
				Treasury:     treasury,
			}, nil
		},
	})
	if err != nil {
		return TradeResult{}, err
	}
	return tradeResult(res), nil
}

func tradeAccounts(sc scope, accountID string) (models.AccountRef, models.AccountRef, *models.AccountRef, error) {
	user, err := sc.ref(accountID)
	if err != nil {
		return models.AccountRef{}, models.AccountRef{}, nil, err
	}
	vault, err := sc.vault()
	if err != nil {
		return models.AccountRef{}, models.AccountRef{}, nil, err
	}
	treasury, err := sc.treasury()
	if err != nil {
		return models.AccountRef{}, models.AccountRef{}, nil, err
	}
	return user, vault, treasury, nil
}

func tradeResult(res result) TradeResult {
	rec, _ := findRecord(res.effects.Records, models.RecordTrade)
	return TradeResult{
		Market:   res.state.Market,
		Position: res.state.Position,
		Trade:    rec,
	}
}

// RedeemResult is the outcome of a committed redemption.
type RedeemResult struct {
	Position *models.Position `json:"position"`
	PayoutFP int64            `json:"payoutFp"`
}

// Redeem pays caller's winning shares into AccountID and closes the
// position.
func (s *MarketService) Redeem(ctx context.Context, caller, key, accountID string) (RedeemResult, error) {
	res, err := s.execute(ctx, caller, operation{
		market: key,
		owner:  caller,
		build: func(sc scope) (amm.Request, error) {
			user, err := sc.ref(accountID)
			if err != nil {
				return nil, err
			}
			vault, err := sc.vault()
			if err != nil {
				return nil, err
			}
			return amm.RedeemRequest{User: user, Vault: vault}, nil
		},
	})
	if err != nil {
		return RedeemResult{}, err
	}
	out := RedeemResult{Position: res.state.Position}
	if rec, ok := findRecord(res.effects.Records, models.RecordRedeemed); ok {
		out.PayoutFP = rec.AmountFP
	}
	return out, nil
}

// GetPosition loads owner's position in a market.
func (s *MarketService) GetPosition(ctx context.Context, key, owner string) (*models.Position, error) {
	if _, err := s.store.Markets.Get(ctx, key); err != nil {
		return nil, err
	}
	return s.store.Positions.Get(ctx, amm.PositionKey(key, owner))
}

// ListPositions returns every position in a market.
func (s *MarketService) ListPositions(ctx context.Context, key string) ([]*models.Position, error) {
	return s.store.Positions.ListByMarket(ctx, key)
}

// ListTrades pages through a market's trade history, newest first.
func (s *MarketService) ListTrades(ctx context.Context, key string, page, pageSize int) ([]*models.Trade, int64, error) {
	if _, err := s.store.Markets.Get(ctx, key); err != nil {
		return nil, 0, err
	}
	list, total, err := s.store.Trades.ListByMarket(ctx, key, page, pageSize)
	return list, total, errors.Wrap(err, "list trades")
}
