package amm

import (
	"testing"

	"milestoneamm/handlers/math/probabilities/lmsr"
	"milestoneamm/models"

	"github.com/stretchr/testify/require"
)

func TestBuy(t *testing.T) {
	st := newMarket(t, withFee(50), withTreasury())
	env := traderEnv(testTrader)

	next, fx := mustHandle(t, env, st, buyRequest(st, testTrader, models.SideHit, 10*usd))

	m, pos := next.Market, next.Position
	require.NotNil(t, pos)
	require.Equal(t, PositionKey(m.Key, testTrader), pos.Key)
	require.Equal(t, testTrader, pos.Owner)
	require.Equal(t, m.Key, pos.Market)
	require.Positive(t, pos.HitSharesFP)
	require.Zero(t, pos.MissSharesFP)
	require.Equal(t, pos.HitSharesFP, m.QHitFP)
	require.Zero(t, m.QMissFP)

	// net estimate floor(10e6*10000/10050) is spent exactly, fee is 0.5% of it
	require.Len(t, fx.Records, 1)
	rec := fx.Records[0]
	require.Equal(t, models.RecordTrade, rec.Kind)
	require.Equal(t, models.DirectionBuy, rec.Direction)
	require.Equal(t, models.SideHit, rec.Side)
	require.Equal(t, int64(9_950_248), rec.UsdcFP)
	require.Equal(t, int64(49_751), rec.FeeFP)
	require.Equal(t, int64(1), rec.SurplusFP)
	require.Equal(t, pos.HitSharesFP, rec.SharesFP)
	require.Greater(t, rec.PriceHitMilli, int64(500))
	require.Equal(t, testNow, rec.Timestamp)

	require.Equal(t, []models.Transfer{
		{From: "acct-" + testTrader, To: testVault, Authority: testTrader, AmountFP: 10 * usd},
		{From: testVault, To: testTreasury, Authority: m.Key, AmountFP: 49_751},
	}, fx.Transfers)
}

func TestBuyWithoutTreasuryKeepsFeeInVault(t *testing.T) {
	st := newMarket(t, withFee(50))
	_, fx := mustHandle(t, traderEnv(testTrader), st, buyRequest(st, testTrader, models.SideMiss, 10*usd))
	require.Len(t, fx.Transfers, 1)
	require.Equal(t, testVault, fx.Transfers[0].To)
	require.Positive(t, fx.Records[0].FeeFP)
}

func TestBuyAccumulatesPosition(t *testing.T) {
	st := newMarket(t)
	env := traderEnv(testTrader)

	st, _ = mustHandle(t, env, st, buyRequest(st, testTrader, models.SideMiss, 10*usd))
	first := st.Position.MissSharesFP
	st, _ = mustHandle(t, env, st, buyRequest(st, testTrader, models.SideMiss, 10*usd))

	// the second buy is priced higher, so it yields fewer shares
	require.Less(t, st.Position.MissSharesFP-first, first)
	require.Equal(t, st.Position.MissSharesFP, st.Market.QMissFP)
}

func TestBuyRejections(t *testing.T) {
	base := newMarket(t, withTreasury(), func(r *InitMarketRequest) {
		r.MaxTradeUsdcFP = 1_000 * usd
		r.MaxPositionSharesFP = 50 * usd
	})
	env := traderEnv(testTrader)

	paused, _ := mustHandle(t, authEnv(), base, SetPausedRequest{Paused: true})
	settledMarket := base.Clone()
	settledMarket.Market.Outcome = models.OutcomeHit

	foreign := base.Clone()
	foreign.Position = &models.Position{Key: "p", Owner: testOther, Market: base.Market.Key}

	otherMarket := base.Clone()
	otherMarket.Position = &models.Position{Key: "p", Owner: testTrader, Market: "another-market"}

	full := base.Clone()
	full.Position = &models.Position{Key: "p", Owner: testTrader, Market: base.Market.Key, HitSharesFP: 50 * usd}

	tests := []struct {
		name string
		env  Env
		st   State
		mut  func(*BuyRequest)
		want error
	}{
		{"paused", env, paused, nil, models.ErrPaused},
		{"settled", env, settledMarket, nil, models.ErrAlreadySettled},
		{"at deadline", Env{Now: testNow + testDay, ProgramID: testProgram, Caller: testTrader}, base, nil, models.ErrAfterDeadline},
		{"unknown side", env, base, func(r *BuyRequest) { r.Side = "maybe" }, models.ErrInvalidSide},
		{"zero amount", env, base, func(r *BuyRequest) { r.UsdcInFP = 0 }, models.ErrInvalidAmount},
		{"trade too large", env, base, func(r *BuyRequest) { r.UsdcInFP = 2_000 * usd }, models.ErrTradeTooLarge},
		{"account of another user", env, base, func(r *BuyRequest) { r.User = account(testOther) }, models.ErrInvalidOwner},
		{"account in other asset", env, base, func(r *BuyRequest) { r.User.Asset = "EURC" }, models.ErrWrongCollateral},
		{"wrong vault", env, base, func(r *BuyRequest) { r.Vault.ID = "vault-2" }, models.ErrWrongVault},
		{"missing treasury", env, base, func(r *BuyRequest) { r.Treasury = nil }, models.ErrWrongTreasury},
		{"wrong treasury", env, base, func(r *BuyRequest) { r.Treasury = &models.AccountRef{ID: "t2", Asset: testAsset} }, models.ErrWrongTreasury},
		{"position of another user", env, foreign, nil, models.ErrUnauthorized},
		{"position of another market", env, otherMarket, nil, models.ErrWrongMarket},
		{"position at cap", env, full, nil, models.ErrPositionTooLarge},
		{"slippage", env, base, func(r *BuyRequest) { r.MinSharesOutFP = 1_000 * usd }, models.ErrSlippage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := buyRequest(tt.st, testTrader, models.SideHit, 5*usd)
			if tt.mut != nil {
				tt.mut(&req)
			}
			next, fx, err := Handle(tt.env, tt.st, req)
			require.ErrorIs(t, err, tt.want)
			require.Empty(t, fx.Transfers)
			require.Empty(t, fx.Records)
			require.Equal(t, tt.st, next)
		})
	}
}

func TestBuyTradeCapFailsBeforeAnyTransfer(t *testing.T) {
	st := newMarket(t, func(r *InitMarketRequest) { r.MaxTradeUsdcFP = 1_000_000_000 })
	_, fx, err := Handle(traderEnv(testTrader), st, buyRequest(st, testTrader, models.SideHit, 2_000_000_000))
	require.ErrorIs(t, err, models.ErrTradeTooLarge)
	require.Empty(t, fx.Transfers)
}

func TestBuyCappedByPositionLimit(t *testing.T) {
	st := newMarket(t, func(r *InitMarketRequest) { r.MaxPositionSharesFP = 3 * usd })

	// 100 USDC would buy far more than 3 shares; the solver stops at the cap
	next, fx := mustHandle(t, traderEnv(testTrader), st, buyRequest(st, testTrader, models.SideHit, 100*usd))
	require.Equal(t, 3*usd, next.Position.HitSharesFP)
	require.Less(t, fx.Records[0].UsdcFP, 100*usd)
	require.Equal(t, 100*usd-fx.Records[0].UsdcFP, fx.Records[0].SurplusFP)

	_, _, err := Handle(traderEnv(testTrader), next, buyRequest(next, testTrader, models.SideHit, usd))
	require.ErrorIs(t, err, models.ErrPositionTooLarge)
}

func TestSell(t *testing.T) {
	st := newMarket(t, withFee(50), withTreasury())
	env := traderEnv(testTrader)
	st, _ = mustHandle(t, env, st, buyRequest(st, testTrader, models.SideHit, 100*usd))
	held := st.Position.HitSharesFP
	half := held / 2

	want, err := lmsr.SimulateSell(st.Market.BFP, st.Market.QHitFP, st.Market.QMissFP, models.SideHit, half, 50)
	require.NoError(t, err)
	require.Positive(t, want.PayoutFP)

	next, fx := mustHandle(t, env, st, sellRequest(st, testTrader, models.SideHit, half))
	require.Equal(t, held-half, next.Position.HitSharesFP)
	require.Equal(t, held-half, next.Market.QHitFP)

	rec := fx.Records[0]
	require.Equal(t, models.DirectionSell, rec.Direction)
	require.Equal(t, want.PayoutFP, rec.UsdcFP)
	require.Equal(t, want.FeeFP, rec.FeeFP)
	require.Equal(t, half, rec.SharesFP)
	require.Less(t, rec.PriceHitMilli, int64(1000))

	require.Equal(t, []models.Transfer{
		{From: testVault, To: "acct-" + testTrader, Authority: st.Market.Key, AmountFP: want.PayoutFP - want.FeeFP},
		{From: testVault, To: testTreasury, Authority: st.Market.Key, AmountFP: want.FeeFP},
	}, fx.Transfers)
}

func TestSellRejections(t *testing.T) {
	st := newMarket(t)
	env := traderEnv(testTrader)
	st, _ = mustHandle(t, env, st, buyRequest(st, testTrader, models.SideHit, 10*usd))
	held := st.Position.HitSharesFP

	noPosition := st.Clone()
	noPosition.Position = nil

	tests := []struct {
		name string
		st   State
		mut  func(*SellRequest)
		want error
	}{
		{"no position", noPosition, nil, models.ErrPositionNotFound},
		{"more than held", st, func(r *SellRequest) { r.SharesInFP = held + 1 }, models.ErrInsufficientBalance},
		{"other side", st, func(r *SellRequest) { r.Side = models.SideMiss }, models.ErrInsufficientBalance},
		{"zero shares", st, func(r *SellRequest) { r.SharesInFP = 0 }, models.ErrInvalidAmount},
		{"slippage", st, func(r *SellRequest) { r.MinUsdcOutFP = 11 * usd }, models.ErrSlippage},
		{"wrong vault", st, func(r *SellRequest) { r.Vault.ID = "vault-2" }, models.ErrWrongVault},
		{"account of another user", st, func(r *SellRequest) { r.User = account(testOther) }, models.ErrInvalidOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sellRequest(tt.st, testTrader, models.SideHit, held)
			if tt.mut != nil {
				tt.mut(&req)
			}
			_, fx, err := Handle(env, tt.st, req)
			require.ErrorIs(t, err, tt.want)
			require.Empty(t, fx.Transfers)
		})
	}

	t.Run("after deadline", func(t *testing.T) {
		late := Env{Now: testNow + testDay, ProgramID: testProgram, Caller: testTrader}
		_, _, err := Handle(late, st, sellRequest(st, testTrader, models.SideHit, held))
		require.ErrorIs(t, err, models.ErrAfterDeadline)
	})
}

func TestZeroFeeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		side   models.Side
		amount int64
		seed   func(*testing.T, State) State
	}{
		{"hit from origin", models.SideHit, 10 * usd, nil},
		{"miss from origin", models.SideMiss, 37_123_457, nil},
		{"hit after other trader", models.SideHit, 250 * usd, func(t *testing.T, st State) State {
			next, _ := mustHandle(t, traderEnv(testOther), st, buyRequest(st, testOther, models.SideMiss, 80*usd))
			next.Position = nil
			return next
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMarket(t)
			if tt.seed != nil {
				st = tt.seed(t, st)
			}
			qh, qm := st.Market.QHitFP, st.Market.QMissFP
			env := traderEnv(testTrader)

			st, _ = mustHandle(t, env, st, buyRequest(st, testTrader, tt.side, tt.amount))
			shares := st.Position.Shares(tt.side)
			require.Positive(t, shares)

			st, fx := mustHandle(t, env, st, sellRequest(st, testTrader, tt.side, shares))
			require.Len(t, fx.Transfers, 1)
			require.Equal(t, tt.amount, fx.Transfers[0].AmountFP)
			require.Equal(t, qh, st.Market.QHitFP)
			require.Equal(t, qm, st.Market.QMissFP)
			require.True(t, st.Position.IsEmpty())
		})
	}
}
