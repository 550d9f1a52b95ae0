package store_test

import (
	"context"
	"testing"
	"time"

	"milestoneamm/models"
	"milestoneamm/store"
	"milestoneamm/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMarkets(t *testing.T) {
	s := store.New(storetest.NewDB(t))
	ctx := context.Background()

	_, err := s.Markets.Get(ctx, "missing")
	require.ErrorIs(t, err, models.ErrMarketNotFound)

	treasury := "treasury-1"
	m := &models.Market{
		Key:                 "mkt-1",
		Authority:           "alice",
		CollateralAsset:     "USDC",
		Vault:               "vault-1",
		MilestoneID:         []byte("ship-v1"),
		BFP:                 100_000_000,
		FeeBps:              50,
		DeadlineTS:          1_700_000_000,
		Outcome:             models.OutcomeUnresolved,
		MaxTradeUsdcFP:      1_000_000_000,
		MaxPositionSharesFP: 5_000_000_000,
		Treasury:            &treasury,
	}
	require.NoError(t, s.Markets.Save(ctx, m))
	require.NotZero(t, m.ID)

	got, err := s.Markets.Get(ctx, "mkt-1")
	require.NoError(t, err)
	require.Equal(t, []byte("ship-v1"), got.MilestoneID)
	require.Equal(t, "treasury-1", *got.Treasury)
	require.Nil(t, got.OracleSigner)

	got.QHitFP = 42
	got.Paused = true
	require.NoError(t, s.Markets.Save(ctx, got))

	again, err := s.Markets.Get(ctx, "mkt-1")
	require.NoError(t, err)
	require.Equal(t, int64(42), again.QHitFP)
	require.True(t, again.Paused)

	list, total, err := s.Markets.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, list, 1)
}

func TestPositions(t *testing.T) {
	s := store.New(storetest.NewDB(t))
	ctx := context.Background()

	_, err := s.Positions.Get(ctx, "pos-1")
	require.ErrorIs(t, err, models.ErrPositionNotFound)

	p := &models.Position{Key: "pos-1", Owner: "bob", Market: "mkt-1", HitSharesFP: 7}
	require.NoError(t, s.Positions.Save(ctx, p))
	p.MissSharesFP = 3
	require.NoError(t, s.Positions.Save(ctx, p))

	got, err := s.Positions.Get(ctx, "pos-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.HitSharesFP)
	require.Equal(t, int64(3), got.MissSharesFP)

	list, err := s.Positions.ListByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestTradesAndEvents(t *testing.T) {
	db := storetest.NewDB(t)
	s := store.New(db)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0).UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Trades.Create(ctx, &models.Trade{
			ID:         uuid.NewString(),
			Market:     "mkt-1",
			User:       "bob",
			Side:       models.SideHit,
			Direction:  models.DirectionBuy,
			UsdcFP:     int64(i+1) * 1_000_000,
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	list, total, err := s.Trades.ListByMarket(ctx, "mkt-1", 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	require.Equal(t, int64(3_000_000), list[0].UsdcFP)

	// A rolled back transaction leaves nothing behind.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.WithTx(tx).Events.Create(ctx, &models.Event{ID: uuid.NewString(), Kind: models.RecordTrade, Market: "mkt-1"}); err != nil {
			return err
		}
		return models.ErrSlippage
	})
	require.ErrorIs(t, err, models.ErrSlippage)

	events, err := s.Events.ListByMarket(ctx, "mkt-1", 0)
	require.NoError(t, err)
	require.Empty(t, events)
}
