package amm

import (
	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/handlers/math/probabilities/lmsr"
	"milestoneamm/models"
)

// MaxMilestoneIDLen bounds the opaque milestone identifier.
const MaxMilestoneIDLen = 64

func validFee(bps uint16) bool {
	return int64(bps) <= fixedpoint.BpsDenominator
}

func initMarket(env Env, st *State, r InitMarketRequest) (Effects, error) {
	var fx Effects
	if st.Market != nil {
		return fx, models.ErrMarketExists
	}
	if !lmsr.ValidB(r.BFP) {
		return fx, models.ErrInvalidB
	}
	if !validFee(r.FeeBps) {
		return fx, models.ErrInvalidFee
	}
	if r.DeadlineTS <= env.Now {
		return fx, models.ErrAfterDeadline
	}
	if len(r.MilestoneID) == 0 || len(r.MilestoneID) > MaxMilestoneIDLen ||
		r.GracePeriodSecs < 0 || r.MaxTradeUsdcFP <= 0 || r.MaxPositionSharesFP <= 0 ||
		r.CollateralAsset == "" || r.VaultID == "" {
		return fx, models.ErrInvalidParams
	}
	if _, err := fixedpoint.Add(r.DeadlineTS, r.GracePeriodSecs); err != nil {
		return fx, err
	}

	m := &models.Market{
		Key:                 MarketKey(env.ProgramID, env.Caller, r.MilestoneID),
		Authority:           env.Caller,
		CollateralAsset:     r.CollateralAsset,
		Vault:               r.VaultID,
		MilestoneID:         append([]byte(nil), r.MilestoneID...),
		BFP:                 r.BFP,
		FeeBps:              r.FeeBps,
		DeadlineTS:          r.DeadlineTS,
		GracePeriodSecs:     r.GracePeriodSecs,
		Outcome:             models.OutcomeUnresolved,
		MaxTradeUsdcFP:      r.MaxTradeUsdcFP,
		MaxPositionSharesFP: r.MaxPositionSharesFP,
		Title:               r.Title,
		Description:         r.Description,
	}
	if r.Treasury != nil {
		if err := checkCollateral(m, *r.Treasury); err != nil {
			return fx, err
		}
		id := r.Treasury.ID
		m.Treasury = &id
	}
	if r.OracleSigner != nil {
		o := *r.OracleSigner
		m.OracleSigner = &o
	}
	st.Market = m

	fx.Accounts = append(fx.Accounts, models.AccountRef{
		ID:    m.Vault,
		Owner: m.Key,
		Asset: m.CollateralAsset,
	})
	fx.record(models.Record{
		Kind:       models.RecordMarketCreated,
		Market:     m.Key,
		User:       env.Caller,
		Timestamp:  env.Now,
		BFP:        m.BFP,
		FeeBps:     m.FeeBps,
		DeadlineTS: m.DeadlineTS,
	})
	return fx, nil
}

func seedLiquidity(env Env, st *State, r SeedLiquidityRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	if err := requireAuthority(env, m); err != nil {
		return fx, err
	}
	if m.Paused {
		return fx, models.ErrPaused
	}
	if r.AmountFP <= 0 {
		return fx, models.ErrInvalidAmount
	}
	if err := checkUserAccount(env, m, r.Source); err != nil {
		return fx, err
	}
	if err := checkVault(m, r.Vault); err != nil {
		return fx, err
	}
	liq, err := fixedpoint.Add(m.LiquidityUsdcFP, r.AmountFP)
	if err != nil {
		return fx, err
	}
	m.LiquidityUsdcFP = liq

	fx.transfer(r.Source.ID, m.Vault, env.Caller, r.AmountFP)
	fx.record(models.Record{
		Kind:      models.RecordLiquiditySeeded,
		Market:    m.Key,
		User:      env.Caller,
		Timestamp: env.Now,
		AmountFP:  r.AmountFP,
	})
	return fx, nil
}

// canSettle reports whether the caller is the authority or the configured
// oracle signer.
func canSettle(env Env, m *models.Market) bool {
	if env.Caller == m.Authority {
		return true
	}
	return m.OracleSigner != nil && env.Caller == *m.OracleSigner
}

func settle(env Env, st *State, r SettleRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	if m.Outcome != models.OutcomeUnresolved {
		return fx, models.ErrAlreadySettled
	}
	opens, err := fixedpoint.Add(m.DeadlineTS, m.GracePeriodSecs)
	if err != nil {
		return fx, err
	}
	if env.Now < opens {
		return fx, models.ErrBeforeSettlementWindow
	}
	if !canSettle(env, m) {
		return fx, models.ErrUnauthorized
	}
	if !r.Outcome.Resolved() {
		return fx, models.ErrInvalidOutcome
	}

	m.Outcome = r.Outcome
	m.Paused = true

	fx.record(models.Record{
		Kind:      models.RecordSettled,
		Market:    m.Key,
		User:      env.Caller,
		Timestamp: env.Now,
		Outcome:   r.Outcome,
	})
	return fx, nil
}

func setPaused(env Env, st *State, r SetPausedRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	if err := requireAuthority(env, m); err != nil {
		return fx, err
	}
	m.Paused = r.Paused

	paused := r.Paused
	fx.record(models.Record{
		Kind:      models.RecordPaused,
		Market:    m.Key,
		User:      env.Caller,
		Timestamp: env.Now,
		Paused:    &paused,
	})
	return fx, nil
}

func updateParams(env Env, st *State, r UpdateParamsRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	if err := requireAuthority(env, m); err != nil {
		return fx, err
	}
	if r.BFP != nil {
		if !lmsr.ValidB(*r.BFP) {
			return fx, models.ErrInvalidB
		}
		m.BFP = *r.BFP
	}
	if r.FeeBps != nil {
		if !validFee(*r.FeeBps) {
			return fx, models.ErrInvalidFee
		}
		m.FeeBps = *r.FeeBps
	}
	if r.DeadlineTS != nil {
		if *r.DeadlineTS < m.DeadlineTS {
			return fx, models.ErrInvalidUpdate
		}
		m.DeadlineTS = *r.DeadlineTS
	}
	if r.GracePeriodSecs != nil {
		if *r.GracePeriodSecs < 0 {
			return fx, models.ErrInvalidUpdate
		}
		m.GracePeriodSecs = *r.GracePeriodSecs
	}
	if _, err := fixedpoint.Add(m.DeadlineTS, m.GracePeriodSecs); err != nil {
		return fx, err
	}
	if r.MaxTradeUsdcFP != nil {
		if *r.MaxTradeUsdcFP <= 0 {
			return fx, models.ErrInvalidUpdate
		}
		m.MaxTradeUsdcFP = *r.MaxTradeUsdcFP
	}
	if r.MaxPositionSharesFP != nil {
		if *r.MaxPositionSharesFP <= 0 {
			return fx, models.ErrInvalidUpdate
		}
		m.MaxPositionSharesFP = *r.MaxPositionSharesFP
	}
	if r.Treasury != nil {
		if err := checkCollateral(m, *r.Treasury); err != nil {
			return fx, err
		}
		id := r.Treasury.ID
		m.Treasury = &id
	}
	if r.OracleSigner != nil {
		o := *r.OracleSigner
		m.OracleSigner = &o
	}

	fx.record(models.Record{
		Kind:       models.RecordParamsUpdated,
		Market:     m.Key,
		User:       env.Caller,
		Timestamp:  env.Now,
		BFP:        m.BFP,
		FeeBps:     m.FeeBps,
		DeadlineTS: m.DeadlineTS,
	})
	return fx, nil
}
