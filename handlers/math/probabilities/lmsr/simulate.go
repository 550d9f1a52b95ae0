package lmsr

import (
	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/models"
)

// BuySimulation shows what a buy of a given collateral amount would do.
type BuySimulation struct {
	Side            models.Side `json:"side"`
	UsdcInFP        int64       `json:"usdcInFp"`
	NetEstimateFP   int64       `json:"netEstimateFp"`
	SharesFP        int64       `json:"sharesFp"`
	CostFP          int64       `json:"costFp"`
	FeeFP           int64       `json:"feeFp"`
	TotalDueFP      int64       `json:"totalDueFp"`
	SurplusFP       int64       `json:"surplusFp"`
	QHitAfterFP     int64       `json:"qHitAfterFp"`
	QMissAfterFP    int64       `json:"qMissAfterFp"`
	PriceHitBefore  float64     `json:"priceHitBefore"`
	PriceHitAfter   float64     `json:"priceHitAfter"`
	PriceImpact     float64     `json:"priceImpact"`
	AveragePrice    float64     `json:"averagePrice"`
	PotentialPayout int64       `json:"potentialPayoutFp"` // each share pays 1 unit if correct
}

// Covered reports whether usdcIn pays for cost plus fee.
func (s BuySimulation) Covered() bool {
	return s.SurplusFP >= 0
}

// SimulateBuy estimates the spendable amount net of fee, solves for the share
// quantity, then recomputes the exact cost and fee of that quantity. Nothing
// is checked against slippage or payment; callers decide.
func SimulateBuy(bFP, qHit, qMiss int64, side models.Side, usdcIn int64, feeBps uint16, maxPos, curPos int64) (BuySimulation, error) {
	net, err := fixedpoint.NetOfFee(usdcIn, feeBps)
	if err != nil {
		return BuySimulation{}, err
	}
	shares, err := SolveDeltaQ(bFP, qHit, qMiss, side, net, maxPos, curPos)
	if err != nil {
		return BuySimulation{}, err
	}
	cost, err := DeltaCost(bFP, qHit, qMiss, side, shares)
	if err != nil {
		return BuySimulation{}, err
	}
	if cost < 0 {
		return BuySimulation{}, models.ErrMathOverflow
	}
	fee, err := fixedpoint.Fee(cost, feeBps)
	if err != nil {
		return BuySimulation{}, err
	}
	total, err := fixedpoint.Add(cost, fee)
	if err != nil {
		return BuySimulation{}, err
	}
	surplus, err := fixedpoint.Sub(usdcIn, total)
	if err != nil {
		return BuySimulation{}, err
	}
	qh1, qm1, err := Apply(qHit, qMiss, side, shares)
	if err != nil {
		return BuySimulation{}, err
	}
	before, err := PriceHit(bFP, qHit, qMiss)
	if err != nil {
		return BuySimulation{}, err
	}
	after, err := PriceHit(bFP, qh1, qm1)
	if err != nil {
		return BuySimulation{}, err
	}

	sim := BuySimulation{
		Side:            side,
		UsdcInFP:        usdcIn,
		NetEstimateFP:   net,
		SharesFP:        shares,
		CostFP:          cost,
		FeeFP:           fee,
		TotalDueFP:      total,
		SurplusFP:       surplus,
		QHitAfterFP:     qh1,
		QMissAfterFP:    qm1,
		PriceHitBefore:  before,
		PriceHitAfter:   after,
		PriceImpact:     after - before,
		PotentialPayout: shares,
	}
	if shares > 0 {
		sim.AveragePrice = float64(cost) / float64(shares)
	}
	return sim, nil
}

// SellSimulation shows what selling a share quantity back would pay.
type SellSimulation struct {
	Side           models.Side `json:"side"`
	SharesFP       int64       `json:"sharesFp"`
	PayoutFP       int64       `json:"payoutFp"`
	FeeFP          int64       `json:"feeFp"`
	NetPayoutFP    int64       `json:"netPayoutFp"`
	QHitAfterFP    int64       `json:"qHitAfterFp"`
	QMissAfterFP   int64       `json:"qMissAfterFp"`
	PriceHitBefore float64     `json:"priceHitBefore"`
	PriceHitAfter  float64     `json:"priceHitAfter"`
	AveragePrice   float64     `json:"averagePrice"`
}

// SimulateSell computes the cost decrease C(q) - C(q - shares) as the gross
// payout and deducts the fee from it.
func SimulateSell(bFP, qHit, qMiss int64, side models.Side, shares int64, feeBps uint16) (SellSimulation, error) {
	if shares < 0 {
		return SellSimulation{}, models.ErrInvalidAmount
	}
	d, err := DeltaCost(bFP, qHit, qMiss, side, -shares)
	if err != nil {
		return SellSimulation{}, err
	}
	payout, err := fixedpoint.Sub(0, d)
	if err != nil {
		return SellSimulation{}, err
	}
	if payout < 0 {
		return SellSimulation{}, models.ErrMathOverflow
	}
	fee, err := fixedpoint.Fee(payout, feeBps)
	if err != nil {
		return SellSimulation{}, err
	}
	qh1, qm1, err := Apply(qHit, qMiss, side, -shares)
	if err != nil {
		return SellSimulation{}, err
	}
	before, err := PriceHit(bFP, qHit, qMiss)
	if err != nil {
		return SellSimulation{}, err
	}
	after, err := PriceHit(bFP, qh1, qm1)
	if err != nil {
		return SellSimulation{}, err
	}

	sim := SellSimulation{
		Side:           side,
		SharesFP:       shares,
		PayoutFP:       payout,
		FeeFP:          fee,
		NetPayoutFP:    payout - fee,
		QHitAfterFP:    qh1,
		QMissAfterFP:   qm1,
		PriceHitBefore: before,
		PriceHitAfter:  after,
	}
	if shares > 0 {
		sim.AveragePrice = float64(payout) / float64(shares)
	}
	return sim, nil
}
