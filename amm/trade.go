package amm

import (
	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/handlers/math/probabilities/lmsr"
	"milestoneamm/models"
)

// requireTrading checks the gates shared by buys and sells.
func requireTrading(env Env, m *models.Market) error {
	if m.Paused {
		return models.ErrPaused
	}
	if m.Outcome != models.OutcomeUnresolved {
		return models.ErrAlreadySettled
	}
	if env.Now >= m.DeadlineTS {
		return models.ErrAfterDeadline
	}
	return nil
}

// positionFor returns the caller's position, creating a zeroed one when the
// caller has none and create is set.
func positionFor(env Env, m *models.Market, pos *models.Position, create bool) (*models.Position, error) {
	if pos == nil {
		if !create {
			return nil, models.ErrPositionNotFound
		}
		return &models.Position{
			Key:    PositionKey(m.Key, env.Caller),
			Owner:  env.Caller,
			Market: m.Key,
		}, nil
	}
	if pos.Owner != env.Caller {
		return nil, models.ErrUnauthorized
	}
	if pos.Market != m.Key {
		return nil, models.ErrWrongMarket
	}
	return pos, nil
}

// addShares adds delta to side of both the aggregate and the position.
func addShares(m *models.Market, pos *models.Position, side models.Side, delta int64) error {
	var err error
	switch side {
	case models.SideHit:
		if m.QHitFP, err = fixedpoint.Add(m.QHitFP, delta); err != nil {
			return err
		}
		if pos.HitSharesFP, err = fixedpoint.Add(pos.HitSharesFP, delta); err != nil {
			return err
		}
	case models.SideMiss:
		if m.QMissFP, err = fixedpoint.Add(m.QMissFP, delta); err != nil {
			return err
		}
		if pos.MissSharesFP, err = fixedpoint.Add(pos.MissSharesFP, delta); err != nil {
			return err
		}
	default:
		return models.ErrInvalidSide
	}
	if m.QHitFP < 0 || m.QMissFP < 0 || pos.HitSharesFP < 0 || pos.MissSharesFP < 0 {
		return models.ErrMathOverflow
	}
	return nil
}

func tradeRecord(env Env, m *models.Market, side models.Side, dir models.Direction) (models.Record, error) {
	p, err := lmsr.PriceHit(m.BFP, m.QHitFP, m.QMissFP)
	if err != nil {
		return models.Record{}, err
	}
	return models.Record{
		Kind:          models.RecordTrade,
		Market:        m.Key,
		User:          env.Caller,
		Timestamp:     env.Now,
		Side:          side,
		Direction:     dir,
		PriceHitMilli: lmsr.PriceMilli(p),
	}, nil
}

func buy(env Env, st *State, r BuyRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	if err := requireTrading(env, m); err != nil {
		return fx, err
	}
	if !r.Side.Valid() {
		return fx, models.ErrInvalidSide
	}
	if r.UsdcInFP <= 0 || r.MinSharesOutFP < 0 {
		return fx, models.ErrInvalidAmount
	}
	if r.UsdcInFP > m.MaxTradeUsdcFP {
		return fx, models.ErrTradeTooLarge
	}
	if err := checkUserAccount(env, m, r.User); err != nil {
		return fx, err
	}
	if err := checkVault(m, r.Vault); err != nil {
		return fx, err
	}
	if err := checkTreasury(m, r.Treasury); err != nil {
		return fx, err
	}
	pos, err := positionFor(env, m, st.Position, true)
	if err != nil {
		return fx, err
	}

	// Solve and price against the snapshot taken before collection.
	sim, err := lmsr.SimulateBuy(m.BFP, m.QHitFP, m.QMissFP, r.Side, r.UsdcInFP, m.FeeBps,
		m.MaxPositionSharesFP, pos.Shares(r.Side))
	if err != nil {
		return fx, err
	}
	if sim.SharesFP < 0 || sim.SharesFP < r.MinSharesOutFP {
		return fx, models.ErrSlippage
	}
	if !sim.Covered() {
		return fx, models.ErrInsufficientPayment
	}

	if err := addShares(m, pos, r.Side, sim.SharesFP); err != nil {
		return fx, err
	}
	if pos.Shares(r.Side) > m.MaxPositionSharesFP {
		return fx, models.ErrPositionTooLarge
	}
	st.Position = pos

	fx.transfer(r.User.ID, m.Vault, env.Caller, r.UsdcInFP)
	if m.Treasury != nil && sim.FeeFP > 0 {
		fx.transfer(m.Vault, *m.Treasury, m.Key, sim.FeeFP)
	}

	rec, err := tradeRecord(env, m, r.Side, models.DirectionBuy)
	if err != nil {
		return fx, err
	}
	rec.UsdcFP = sim.CostFP
	rec.SharesFP = sim.SharesFP
	rec.FeeFP = sim.FeeFP
	rec.SurplusFP = sim.SurplusFP
	fx.record(rec)
	return fx, nil
}

func sell(env Env, st *State, r SellRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	if err := requireTrading(env, m); err != nil {
		return fx, err
	}
	if !r.Side.Valid() {
		return fx, models.ErrInvalidSide
	}
	if err := checkUserAccount(env, m, r.User); err != nil {
		return fx, err
	}
	if err := checkVault(m, r.Vault); err != nil {
		return fx, err
	}
	if err := checkTreasury(m, r.Treasury); err != nil {
		return fx, err
	}
	pos, err := positionFor(env, m, st.Position, false)
	if err != nil {
		return fx, err
	}
	if r.SharesInFP <= 0 || r.MinUsdcOutFP < 0 {
		return fx, models.ErrInvalidAmount
	}
	if pos.Shares(r.Side) < r.SharesInFP {
		return fx, models.ErrInsufficientBalance
	}

	sim, err := lmsr.SimulateSell(m.BFP, m.QHitFP, m.QMissFP, r.Side, r.SharesInFP, m.FeeBps)
	if err != nil {
		return fx, err
	}
	if sim.NetPayoutFP < r.MinUsdcOutFP {
		return fx, models.ErrSlippage
	}

	if err := addShares(m, pos, r.Side, -r.SharesInFP); err != nil {
		return fx, err
	}
	st.Position = pos

	if sim.NetPayoutFP > 0 {
		fx.transfer(m.Vault, r.User.ID, m.Key, sim.NetPayoutFP)
	}
	if m.Treasury != nil && sim.FeeFP > 0 {
		fx.transfer(m.Vault, *m.Treasury, m.Key, sim.FeeFP)
	}

	rec, err := tradeRecord(env, m, r.Side, models.DirectionSell)
	if err != nil {
		return fx, err
	}
	rec.UsdcFP = sim.PayoutFP
	rec.SharesFP = r.SharesInFP
	rec.FeeFP = sim.FeeFP
	fx.record(rec)
	return fx, nil
}
