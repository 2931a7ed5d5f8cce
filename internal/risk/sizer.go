// Package risk computes order volume from account balance and stop distance.
package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// Defaults used when a Sizer field is left at zero.
const (
	DefaultRiskFraction = 0.01
	DefaultPipValue     = 10.0
	DefaultMinLot       = 0.01
	DefaultMaxLot       = 50.0
	lotPlaces           = 2
)

// Sizer is a fixed-fraction position sizer. It holds no state and every
// method is a pure function of its inputs.
type Sizer struct {
	// RiskFraction is the share of balance put at risk per trade.
	RiskFraction float64
	// PipValue is the account-currency value of one point per lot.
	PipValue float64
	MinLot   float64
	MaxLot   float64
}

// NewSizer returns a Sizer with zero fields replaced by the defaults.
func NewSizer(riskFraction, pipValue, minLot, maxLot float64) Sizer {
	s := Sizer{RiskFraction: riskFraction, PipValue: pipValue, MinLot: minLot, MaxLot: maxLot}
	if s.RiskFraction <= 0 {
		s.RiskFraction = DefaultRiskFraction
	}
	if s.PipValue <= 0 {
		s.PipValue = DefaultPipValue
	}
	if s.MinLot <= 0 {
		s.MinLot = DefaultMinLot
	}
	if s.MaxLot <= 0 {
		s.MaxLot = DefaultMaxLot
	}
	return s
}

// Size returns the lot volume for a trade risking RiskFraction of balance
// between entry and sl. A zero stop distance, a non-positive point or any
// NaN or infinite input yields MinLot. The result is rounded to two decimals, half away from
// zero, and clamped to [MinLot, MaxLot].
func (s Sizer) Size(balance, entry, sl, point float64) float64 {
	if point <= 0 || !finite(balance, entry, sl, point, s.RiskFraction, s.PipValue) {
		return s.MinLot
	}

	pips := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(sl)).Abs().
		Div(decimal.NewFromFloat(point))
	if pips.IsZero() {
		return s.MinLot
	}

	riskAmount := decimal.NewFromFloat(balance).Mul(decimal.NewFromFloat(s.RiskFraction))
	volume, _ := riskAmount.Div(pips.Mul(decimal.NewFromFloat(s.PipValue))).
		Round(lotPlaces).Float64()

	return s.clamp(volume)
}

// RiskAmount returns the account-currency amount risked for balance, or 0
// when balance is not finite.
func (s Sizer) RiskAmount(balance float64) float64 {
	if !finite(balance, s.RiskFraction) {
		return 0
	}
	v, _ := decimal.NewFromFloat(balance).Mul(decimal.NewFromFloat(s.RiskFraction)).Float64()
	return v
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PipDistance returns |entry - sl| expressed in points.
func PipDistance(entry, sl, point float64) float64 {
	if point <= 0 {
		return 0
	}
	return math.Abs(entry-sl) / point
}

// RR returns the reward to risk ratio of a trade, or 0 when risk is zero.
func RR(entry, sl, tp float64) float64 {
	risk := math.Abs(entry - sl)
	if risk == 0 {
		return 0
	}
	return math.Abs(tp-entry) / risk
}

func (s Sizer) clamp(v float64) float64 {
	return math.Max(s.MinLot, math.Min(s.MaxLot, v))
}
