// Package lmsr prices a two-outcome (Hit/Miss) market with the logarithmic
// market scoring rule.
//
// The cost C(q) = b * ln(exp(qHit/b) + exp(qMiss/b)) is evaluated in
// log-sum-exp form so large aggregates stay finite. A trade costs
// C(q') - C(q), the Hit price is the softmax weight of qHit, and the maker
// can lose at most b * ln 2. SolveDeltaQ inverts the cost by doubling and
// bisection to find the shares a budget buys.
//
// All quantities are fixed-point integers scaled by fixedpoint.Scale. Floating
// point is used only to evaluate exp and ln; results are rounded back to the
// nearest fixed-point integer.
package lmsr

import (
	"math"

	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/models"
)

const (
	// MinB and MaxB bound the liquidity parameter b_fp.
	MinB int64 = 10_000
	MaxB int64 = 1_000_000_000_000

	// MaxBisectIters bounds the bisection phase of SolveDeltaQ.
	MaxBisectIters = 60
	// MaxBracketDoublings bounds the bracketing phase of SolveDeltaQ.
	MaxBracketDoublings = 20
	// BracketMultiplier seeds the upper bracket at BracketMultiplier * target.
	BracketMultiplier int64 = 1000
)

// ValidB reports whether bFP is inside [MinB, MaxB].
func ValidB(bFP int64) bool {
	return bFP >= MinB && bFP <= MaxB
}

// ratios descales the aggregates against b and returns the log-sum-exp terms
// shifted by their maximum so neither exponent can overflow.
func ratios(bFP, qHit, qMiss int64) (m, ex, ey float64, err error) {
	b := float64(bFP) / float64(fixedpoint.Scale)
	x := float64(qHit) / float64(fixedpoint.Scale) / b
	y := float64(qMiss) / float64(fixedpoint.Scale) / b

	m = math.Max(x, y)
	ex = math.Exp(x - m)
	ey = math.Exp(y - m)
	sum := ex + ey
	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
		return 0, 0, 0, models.ErrMathOverflow
	}
	return m, ex, ey, nil
}

// Cost calculates the cost function C(q) = b * ln(exp(qHit/b) + exp(qMiss/b))
// in fixed point, using the log-sum-exp trick for numerical stability.
func Cost(bFP, qHit, qMiss int64) (int64, error) {
	if bFP <= 0 {
		return 0, models.ErrMathOverflow
	}
	m, ex, ey, err := ratios(bFP, qHit, qMiss)
	if err != nil {
		return 0, err
	}
	b := float64(bFP) / float64(fixedpoint.Scale)
	c := b * (m + math.Log(ex+ey))
	return fixedpoint.FromFloat(c * float64(fixedpoint.Scale))
}

// PriceHit returns the instantaneous price (probability) of the HIT outcome
// Price = dC/dq_hit = exp(q_hit/b) / sum(exp(q_i/b))
func PriceHit(bFP, qHit, qMiss int64) (float64, error) {
	if bFP <= 0 {
		return 0, models.ErrMathOverflow
	}
	_, ex, ey, err := ratios(bFP, qHit, qMiss)
	if err != nil {
		return 0, err
	}
	return ex / (ex + ey), nil
}

// PriceMiss returns the instantaneous price (probability) of the MISS outcome
func PriceMiss(bFP, qHit, qMiss int64) (float64, error) {
	p, err := PriceHit(bFP, qHit, qMiss)
	if err != nil {
		return 0, err
	}
	return 1.0 - p, nil
}

// Price returns the instantaneous price of side.
func Price(bFP, qHit, qMiss int64, side models.Side) (float64, error) {
	switch side {
	case models.SideHit:
		return PriceHit(bFP, qHit, qMiss)
	case models.SideMiss:
		return PriceMiss(bFP, qHit, qMiss)
	}
	return 0, models.ErrInvalidSide
}

// PriceMilli truncates a price in (0,1) to thousandths.
func PriceMilli(p float64) int64 {
	return int64(p * float64(fixedpoint.MilliScale))
}

// Apply returns the aggregates after adding delta to side. The new aggregate
// must stay non-negative.
func Apply(qHit, qMiss int64, side models.Side, delta int64) (int64, int64, error) {
	var err error
	switch side {
	case models.SideHit:
		qHit, err = fixedpoint.Add(qHit, delta)
	case models.SideMiss:
		qMiss, err = fixedpoint.Add(qMiss, delta)
	default:
		return 0, 0, models.ErrInvalidSide
	}
	if err != nil {
		return 0, 0, err
	}
	if qHit < 0 || qMiss < 0 {
		return 0, 0, models.ErrMathOverflow
	}
	return qHit, qMiss, nil
}

// DeltaCost calculates C(q + delta on side) - C(q). A positive delta is the
// price of buying, a negative delta the (negated) proceeds of selling.
func DeltaCost(bFP, qHit, qMiss int64, side models.Side, delta int64) (int64, error) {
	qh1, qm1, err := Apply(qHit, qMiss, side, delta)
	if err != nil {
		return 0, err
	}
	c0, err := Cost(bFP, qHit, qMiss)
	if err != nil {
		return 0, err
	}
	c1, err := Cost(bFP, qh1, qm1)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Sub(c1, c0)
}

// SolveDeltaQ finds the smallest share quantity on side whose cost reaches
// target, without letting the position grow past maxPos. When the cap binds
// first the capped quantity is returned and may cost less than target, so
// callers must recompute the cost of the result.
func SolveDeltaQ(bFP, qHit, qMiss int64, side models.Side, target, maxPos, curPos int64) (int64, error) {
	if target < 0 {
		return 0, models.ErrMathOverflow
	}
	if target == 0 {
		return 0, nil
	}
	headroom, err := fixedpoint.Sub(maxPos, curPos)
	if err != nil {
		return 0, err
	}
	if headroom <= 0 {
		return 0, models.ErrPositionTooLarge
	}

	// Exponential search for an upper bound
	var lo int64
	hi := min(headroom, fixedpoint.SaturatingMul(BracketMultiplier, target))
	for i := 0; i < MaxBracketDoublings; i++ {
		dcost, err := DeltaCost(bFP, qHit, qMiss, side, hi)
		if err != nil {
			return 0, err
		}
		if dcost >= target {
			break
		}
		hi = min(fixedpoint.SaturatingMul(hi, 2), headroom)
		if hi == headroom {
			break
		}
	}

	// Bisection
	res := hi
	for i := 0; i < MaxBisectIters; i++ {
		mid := lo + (hi-lo)/2
		dcost, err := DeltaCost(bFP, qHit, qMiss, side, mid)
		if err != nil {
			return 0, err
		}
		if dcost >= target {
			res = mid
			hi = mid
		} else {
			lo = mid + 1
		}
		if hi <= lo {
			res = hi
			break
		}
	}
	return res, nil
}

// MaxLoss returns the maximum possible loss for the market maker
// For binary markets: b * ln(2)
func MaxLoss(bFP int64) (int64, error) {
	return fixedpoint.FromFloat(float64(bFP) * math.Ln2)
}

// MarketState represents the current state of an LMSR market
type MarketState struct {
	QHitFP        int64   `json:"qHitFp"`
	QMissFP       int64   `json:"qMissFp"`
	PriceHit      float64 `json:"priceHit"`
	PriceMiss     float64 `json:"priceMiss"`
	PriceHitMilli int64   `json:"priceHitMilli"`
	CostFP        int64   `json:"costFp"`
	MaxLossFP     int64   `json:"maxLossFp"`
}

// State returns the current state of the market
func State(bFP, qHit, qMiss int64) (MarketState, error) {
	p, err := PriceHit(bFP, qHit, qMiss)
	if err != nil {
		return MarketState{}, err
	}
	c, err := Cost(bFP, qHit, qMiss)
	if err != nil {
		return MarketState{}, err
	}
	ml, err := MaxLoss(bFP)
	if err != nil {
		return MarketState{}, err
	}
	return MarketState{
		QHitFP:        qHit,
		QMissFP:       qMiss,
		PriceHit:      p,
		PriceMiss:     1 - p,
		PriceHitMilli: PriceMilli(p),
		CostFP:        c,
		MaxLossFP:     ml,
	}, nil
}
