package amm

import (
	"testing"

	"milestoneamm/models"

	"github.com/stretchr/testify/require"
)

func settleEnv(caller string, ts int64) Env {
	return Env{Now: ts, ProgramID: testProgram, Caller: caller}
}

func TestSettle(t *testing.T) {
	oracle := testOracle
	st := newMarket(t, func(r *InitMarketRequest) { r.OracleSigner = &oracle })
	opens := testNow + testDay + testGrace

	tests := []struct {
		name string
		env  Env
		req  SettleRequest
		want error
	}{
		{"before deadline", settleEnv(testAuthority, testNow), SettleRequest{Outcome: models.OutcomeHit}, models.ErrBeforeSettlementWindow},
		{"inside grace", settleEnv(testAuthority, opens-1), SettleRequest{Outcome: models.OutcomeHit}, models.ErrBeforeSettlementWindow},
		{"stranger", settleEnv(testTrader, opens), SettleRequest{Outcome: models.OutcomeHit}, models.ErrUnauthorized},
		{"unresolved outcome", settleEnv(testAuthority, opens), SettleRequest{Outcome: models.OutcomeUnresolved}, models.ErrInvalidOutcome},
		{"unknown outcome", settleEnv(testAuthority, opens), SettleRequest{Outcome: "maybe"}, models.ErrInvalidOutcome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Handle(tt.env, st, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	for _, caller := range []string{testAuthority, testOracle} {
		t.Run("settled by "+caller, func(t *testing.T) {
			next, fx := mustHandle(t, settleEnv(caller, opens), st, SettleRequest{Outcome: models.OutcomeMiss})
			require.Equal(t, models.OutcomeMiss, next.Market.Outcome)
			require.True(t, next.Market.Paused)
			require.Empty(t, fx.Transfers)
			require.Equal(t, models.RecordSettled, fx.Records[0].Kind)
			require.Equal(t, models.OutcomeMiss, fx.Records[0].Outcome)
		})
	}

	t.Run("only once", func(t *testing.T) {
		next, _ := mustHandle(t, settleEnv(testAuthority, opens), st, SettleRequest{Outcome: models.OutcomeHit})
		for _, o := range []models.Outcome{models.OutcomeHit, models.OutcomeMiss} {
			_, _, err := Handle(settleEnv(testAuthority, opens+testDay), next, SettleRequest{Outcome: o})
			require.ErrorIs(t, err, models.ErrAlreadySettled)
		}

		// unpausing a settled market does not reopen trading
		unpaused, _ := mustHandle(t, authEnv(), next, SetPausedRequest{Paused: false})
		_, _, err := Handle(traderEnv(testTrader), unpaused, buyRequest(unpaused, testTrader, models.SideHit, usd))
		require.ErrorIs(t, err, models.ErrAlreadySettled)
	})

	t.Run("oracle not configured", func(t *testing.T) {
		plain := newMarket(t)
		_, _, err := Handle(settleEnv(testOracle, opens), plain, SettleRequest{Outcome: models.OutcomeHit})
		require.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestRedeem(t *testing.T) {
	opens := testNow + testDay + testGrace
	st := newMarket(t)
	st, _ = mustHandle(t, traderEnv(testTrader), st, buyRequest(st, testTrader, models.SideHit, 40*usd))
	st, _ = mustHandle(t, traderEnv(testTrader), st, buyRequest(st, testTrader, models.SideMiss, 15*usd))
	hit, miss := st.Position.HitSharesFP, st.Position.MissSharesFP
	require.Positive(t, hit)
	require.Positive(t, miss)

	redeemReq := RedeemRequest{User: account(testTrader), Vault: vaultRef(st)}
	redeemEnv := settleEnv(testTrader, opens+1)

	t.Run("before settlement", func(t *testing.T) {
		_, _, err := Handle(redeemEnv, st, redeemReq)
		require.ErrorIs(t, err, models.ErrUnsettled)
	})

	settled, _ := mustHandle(t, settleEnv(testAuthority, opens), st, SettleRequest{Outcome: models.OutcomeHit})

	t.Run("winner paid and position closed", func(t *testing.T) {
		next, fx := mustHandle(t, redeemEnv, settled, redeemReq)
		require.True(t, next.Position.IsEmpty())
		require.Equal(t, []models.Transfer{{From: testVault, To: "acct-" + testTrader, Authority: settled.Market.Key, AmountFP: hit}}, fx.Transfers)
		require.Equal(t, models.RecordRedeemed, fx.Records[0].Kind)
		require.Equal(t, hit, fx.Records[0].AmountFP)

		// aggregates are left alone
		require.Equal(t, settled.Market.QHitFP, next.Market.QHitFP)

		again, fx := mustHandle(t, redeemEnv, next, redeemReq)
		require.True(t, again.Position.IsEmpty())
		require.Empty(t, fx.Transfers)
		require.Empty(t, fx.Records)
	})

	t.Run("loser closed without transfer", func(t *testing.T) {
		missSettled, _ := mustHandle(t, settleEnv(testAuthority, opens), st, SettleRequest{Outcome: models.OutcomeMiss})
		loser := missSettled.Clone()
		loser.Position.MissSharesFP = 0
		next, fx := mustHandle(t, redeemEnv, loser, redeemReq)
		require.True(t, next.Position.IsEmpty())
		require.Empty(t, fx.Transfers)
		require.Empty(t, fx.Records)
	})

	t.Run("rejections", func(t *testing.T) {
		foreign := settled.Clone()
		foreign.Position.Owner = testOther
		_, _, err := Handle(redeemEnv, foreign, redeemReq)
		require.ErrorIs(t, err, models.ErrUnauthorized)

		wrongMarket := settled.Clone()
		wrongMarket.Position.Market = "another-market"
		_, _, err = Handle(redeemEnv, wrongMarket, redeemReq)
		require.ErrorIs(t, err, models.ErrWrongMarket)

		none := settled.Clone()
		none.Position = nil
		_, _, err = Handle(redeemEnv, none, redeemReq)
		require.ErrorIs(t, err, models.ErrPositionNotFound)

		bad := redeemReq
		bad.Vault.ID = "vault-2"
		_, _, err = Handle(redeemEnv, settled, bad)
		require.ErrorIs(t, err, models.ErrWrongVault)
	})
}

func TestKeys(t *testing.T) {
	a := MarketKey(testProgram, testAuthority, []byte("m1"))
	require.Equal(t, a, MarketKey(testProgram, testAuthority, []byte("m1")))
	require.Len(t, a, 64)

	require.NotEqual(t, a, MarketKey("other-program", testAuthority, []byte("m1")))
	require.NotEqual(t, a, MarketKey(testProgram, testTrader, []byte("m1")))
	require.NotEqual(t, a, MarketKey(testProgram, testAuthority, []byte("m2")))

	// part boundaries matter
	require.NotEqual(t, MarketKey("p", "ab", []byte("c")), MarketKey("p", "a", []byte("bc")))

	p := PositionKey(a, testTrader)
	require.Equal(t, p, PositionKey(a, testTrader))
	require.NotEqual(t, p, PositionKey(a, testOther))
	require.NotEqual(t, p, a)
}
