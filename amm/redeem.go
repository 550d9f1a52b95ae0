package amm

import "milestoneamm/models"

// redeem pays the winning side 1:1 and closes the position. A position with
// nothing on the winning side is still closed, silently.
func redeem(env Env, st *State, r RedeemRequest) (Effects, error) {
	var fx Effects
	m := st.Market

	win, ok := m.Outcome.WinningSide()
	if !ok {
		return fx, models.ErrUnsettled
	}
	pos, err := positionFor(env, m, st.Position, false)
	if err != nil {
		return fx, err
	}
	if err := checkUserAccount(env, m, r.User); err != nil {
		return fx, err
	}
	if err := checkVault(m, r.Vault); err != nil {
		return fx, err
	}

	amount := pos.Shares(win)
	pos.HitSharesFP = 0
	pos.MissSharesFP = 0
	st.Position = pos

	if amount <= 0 {
		return fx, nil
	}

	fx.transfer(m.Vault, r.User.ID, m.Key, amount)
	fx.record(models.Record{
		Kind:      models.RecordRedeemed,
		Market:    m.Key,
		User:      env.Caller,
		Timestamp: env.Now,
		Side:      win,
		AmountFP:  amount,
	})
	return fx, nil
}
