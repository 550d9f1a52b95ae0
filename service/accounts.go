package service

import (
	"context"

	"milestoneamm/escrow"
	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreateAccount opens an empty collateral account owned by owner.
func (s *MarketService) CreateAccount(ctx context.Context, owner string) (models.Account, error) {
	if owner == "" {
		return models.Account{}, errors.Wrap(models.ErrInvalidParams, "owner is required")
	}
	return s.ledger.Open(ctx, models.AccountRef{
		ID:    "acct-" + uuid.NewString(),
		Owner: owner,
		Asset: s.opts.CollateralAsset,
	})
}

// GetAccount loads one account.
func (s *MarketService) GetAccount(ctx context.Context, id string) (models.Account, error) {
	return s.ledger.Get(ctx, id)
}

// AccountEntries lists recent ledger movements of an account.
func (s *MarketService) AccountEntries(ctx context.Context, id string, limit int) ([]escrow.Entry, error) {
	if _, err := s.ledger.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.Entries(ctx, id, limit)
}

// Mint credits demo collateral. A single mint is capped by MaxMintFP.
func (s *MarketService) Mint(ctx context.Context, authority, id string, amount int64) (models.Account, error) {
	if amount <= 0 || amount > s.opts.MaxMintFP {
		return models.Account{}, errors.Wrapf(models.ErrInvalidAmount,
			"mint must be in (0, %s]", fixedpoint.Format(s.opts.MaxMintFP))
	}
	return s.ledger.Mint(ctx, id, authority, amount)
}
