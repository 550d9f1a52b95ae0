// Package fixedpoint holds checked integer arithmetic for quantities scaled by
// Scale. Every operation reports models.ErrMathOverflow instead of wrapping.
package fixedpoint

import (
	"math"
	"math/bits"

	"milestoneamm/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// Scale is the fixed-point multiplier for share and collateral amounts.
	Scale int64 = 1_000_000
	// BpsDenominator is 100% expressed in basis points.
	BpsDenominator int64 = 10_000
	// MilliScale is the multiplier for prices reported in thousandths.
	MilliScale int64 = 1_000
)

// Add returns a+b.
func Add(a, b int64) (int64, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, models.ErrMathOverflow
	}
	return s, nil
}

// Sub returns a-b.
func Sub(a, b int64) (int64, error) {
	d := a - b
	if (b > 0 && d > a) || (b < 0 && d < a) {
		return 0, models.ErrMathOverflow
	}
	return d, nil
}

// Mul returns a*b.
func Mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, models.ErrMathOverflow
	}
	return p, nil
}

// MulDiv returns floor(a*b/d) for non-negative operands using a 128-bit
// intermediate, so a*b may exceed int64 as long as the quotient fits.
func MulDiv(a, b, d int64) (int64, error) {
	if a < 0 || b < 0 || d <= 0 {
		return 0, models.ErrMathOverflow
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(d) {
		return 0, models.ErrMathOverflow
	}
	q, _ := bits.Div64(hi, lo, uint64(d))
	if q > math.MaxInt64 {
		return 0, models.ErrMathOverflow
	}
	return int64(q), nil
}

// SaturatingMul returns a*b for non-negative operands, clamped to MaxInt64.
func SaturatingMul(a, b int64) int64 {
	p, err := Mul(a, b)
	if err != nil {
		return math.MaxInt64
	}
	return p
}

// Fee returns floor(amount*bps/10000).
func Fee(amount int64, bps uint16) (int64, error) {
	return MulDiv(amount, int64(bps), BpsDenominator)
}

// NetOfFee estimates the part of gross that remains spendable once a fee of
// bps is added on top: floor(gross*10000/(10000+bps)).
func NetOfFee(gross int64, bps uint16) (int64, error) {
	return MulDiv(gross, BpsDenominator, BpsDenominator+int64(bps))
}

// FromFloat rounds a float quantity to the nearest fixed-point integer.
func FromFloat(f float64) (int64, error) {
	r := math.Round(f)
	if math.IsNaN(r) || math.IsInf(r, 0) || r >= math.MaxInt64 || r < math.MinInt64 {
		return 0, models.ErrMathOverflow
	}
	return int64(r), nil
}

// Parse converts a decimal string such as "12.5" into fixed point. Digits
// beyond the sixth decimal place are truncated.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(models.ErrInvalidAmount, "parse %q", s)
	}
	scaled := d.Shift(6).Truncate(0)
	if !scaled.BigInt().IsInt64() {
		return 0, models.ErrMathOverflow
	}
	return scaled.IntPart(), nil
}

// Format renders a fixed-point amount as a decimal string.
func Format(v int64) string {
	return decimal.New(v, -6).String()
}

// Decimal returns v as a decimal value in whole units.
func Decimal(v int64) decimal.Decimal {
	return decimal.New(v, -6)
}
