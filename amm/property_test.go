package amm

import (
	"testing"

	"milestoneamm/handlers/math/probabilities/lmsr"
	"milestoneamm/models"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestTradingInvariantsProperty drives random buys and sells from two traders
// and checks the record invariants plus vault conservation after each step.
func TestTradingInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.Int64Range(lmsr.MinB, 1_000*usd).Draw(t, "b")
		fee := rapid.Uint16Range(0, 500).Draw(t, "fee")
		maxPos := rapid.Int64Range(usd, 10_000*usd).Draw(t, "maxPos")

		st, _, err := Handle(authEnv(), State{}, InitMarketRequest{
			MilestoneID:         []byte("prop"),
			CollateralAsset:     testAsset,
			VaultID:             testVault,
			BFP:                 b,
			FeeBps:              fee,
			DeadlineTS:          testNow + testDay,
			GracePeriodSecs:     testGrace,
			MaxTradeUsdcFP:      1_000 * usd,
			MaxPositionSharesFP: maxPos,
		})
		require.NoError(t, err)
		c0, err := lmsr.Cost(b, 0, 0)
		require.NoError(t, err)

		positions := map[string]*models.Position{}
		var vault, retained int64

		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			caller := rapid.SampledFrom([]string{testTrader, testOther}).Draw(t, "caller")
			side := rapid.SampledFrom([]models.Side{models.SideHit, models.SideMiss}).Draw(t, "side")
			env := traderEnv(caller)
			in := State{Market: st.Market, Position: positions[caller]}

			var req Request
			if rapid.Bool().Draw(t, "buy") {
				req = buyRequest(in, caller, side, rapid.Int64Range(1, 1_000*usd).Draw(t, "usdc"))
			} else {
				held := int64(0)
				if p := positions[caller]; p != nil {
					held = p.Shares(side)
				}
				if held == 0 {
					continue
				}
				req = sellRequest(in, caller, side, rapid.Int64Range(1, held).Draw(t, "shares"))
			}

			next, fx, err := Handle(env, in, req)
			if err != nil {
				require.Empty(t, fx.Transfers)
				require.Equal(t, in, next)
				continue
			}
			st = State{Market: next.Market}
			positions[caller] = next.Position

			for _, tr := range fx.Transfers {
				if tr.To == testVault {
					vault += tr.AmountFP
				}
				if tr.From == testVault {
					vault -= tr.AmountFP
				}
			}
			for _, rec := range fx.Records {
				retained += rec.FeeFP + rec.SurplusFP
			}

			m := st.Market
			require.GreaterOrEqual(t, m.QHitFP, int64(0))
			require.GreaterOrEqual(t, m.QMissFP, int64(0))

			var sumHit, sumMiss int64
			for _, p := range positions {
				if p == nil {
					continue
				}
				require.LessOrEqual(t, p.HitSharesFP, m.MaxPositionSharesFP)
				require.LessOrEqual(t, p.MissSharesFP, m.MaxPositionSharesFP)
				sumHit += p.HitSharesFP
				sumMiss += p.MissSharesFP
			}
			require.Equal(t, sumHit, m.QHitFP)
			require.Equal(t, sumMiss, m.QMissFP)

			// cost deltas telescope: the vault holds C(q) - C(0) plus fees and surplus
			c, err := lmsr.Cost(b, m.QHitFP, m.QMissFP)
			require.NoError(t, err)
			require.Equal(t, c-c0+retained, vault)
		}
	})
}
