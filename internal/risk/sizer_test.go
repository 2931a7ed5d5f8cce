package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	t.Parallel()

	s := NewSizer(0, 0, 0, 0)

	tests := []struct {
		name    string
		balance float64
		entry   float64
		sl      float64
		point   float64
		want    float64
	}{
		// risk 100, 500 points, 100 / (500*10) = 0.02
		{"eurusd five digit", 10000, 1.1000, 1.0950, 0.00001, 0.02},
		// risk 100, 50 points, 100 / (50*10) = 0.2
		{"eurusd four digit", 10000, 1.1000, 1.0950, 0.0001, 0.2},
		{"sell side distance is absolute", 10000, 1.0950, 1.1000, 0.0001, 0.2},
		{"zero distance falls back to min lot", 10000, 1.1, 1.1, 0.0001, 0.01},
		{"tiny result clamps up", 100, 1.1000, 1.0000, 0.0001, 0.01},
		{"huge result clamps down", 10_000_000, 1.1000, 1.0999, 0.0001, 50},
		{"non-positive balance", -500, 1.1, 1.09, 0.0001, 0.01},
		{"non-positive point", 10000, 1.1, 1.09, 0, 0.01},
		// risk 250, 125 points, 250 / 1250 = 0.2
		{"jpy pair", 25000, 150.00, 148.75, 0.01, 0.2},
		// risk 100, 30 points, 100 / 300 = 0.3333 -> 0.33
		{"rounds to two places", 10000, 1.1030, 1.1000, 0.0001, 0.33},
		// risk 100, 80 points, 100 / 800 = 0.125 -> 0.13
		{"rounds half away from zero", 10000, 1.1080, 1.1000, 0.0001, 0.13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Size(tt.balance, tt.entry, tt.sl, tt.point)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSizeIsDeterministic(t *testing.T) {
	t.Parallel()

	s := NewSizer(0.02, 10, 0.01, 50)
	first := s.Size(12345.67, 1.2734, 1.2688, 0.00001)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, s.Size(12345.67, 1.2734, 1.2688, 0.00001))
	}
}

func TestSizeAlwaysWithinBounds(t *testing.T) {
	t.Parallel()

	s := NewSizer(0, 0, 0, 0)
	balances := []float64{0, 1, 50, 1000, 1e5, 1e9, math.Inf(1), math.Inf(-1), math.NaN()}
	stops := []float64{1.0, 1.09, 1.0999, 1.09999, 1.1, math.NaN(), math.Inf(-1)}
	for _, b := range balances {
		for _, sl := range stops {
			v := s.Size(b, 1.1, sl, 0.00001)
			assert.GreaterOrEqual(t, v, 0.01)
			assert.LessOrEqual(t, v, 50.0)
		}
	}
}

func TestSizeNonFiniteInputsYieldMinLot(t *testing.T) {
	t.Parallel()

	s := NewSizer(0, 0, 0, 0)
	nan, inf := math.NaN(), math.Inf(1)

	tests := map[string][4]float64{
		"inf balance": {inf, 1.1, 1.095, 0.00001},
		"nan balance": {nan, 1.1, 1.095, 0.00001},
		"nan entry":   {10000, nan, 1.095, 0.00001},
		"inf entry":   {10000, inf, 1.095, 0.00001},
		"nan sl":      {10000, 1.1, nan, 0.00001},
		"neg inf sl":  {10000, 1.1, -inf, 0.00001},
		"nan point":   {10000, 1.1, 1.095, nan},
		"inf point":   {10000, 1.1, 1.095, inf},
	}
	for name, in := range tests {
		assert.NotPanics(t, func() {
			assert.Equal(t, 0.01, s.Size(in[0], in[1], in[2], in[3]), name)
		}, name)
	}
	assert.Zero(t, s.RiskAmount(inf))
	assert.Zero(t, s.RiskAmount(nan))
}

func TestNewSizerKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	s := NewSizer(0.005, 1, 0.1, 5)
	assert.Equal(t, Sizer{RiskFraction: 0.005, PipValue: 1, MinLot: 0.1, MaxLot: 5}, s)
	assert.InDelta(t, 50.0, s.RiskAmount(10000), 1e-9)
}

func TestRRAndPipDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RR(1.1000, 1.0950, 1.1100), 1e-9)
	assert.Zero(t, RR(1.1, 1.1, 1.2))
	assert.InDelta(t, 500.0, PipDistance(1.1000, 1.0950, 0.00001), 1e-6)
	assert.Zero(t, PipDistance(1.1, 1.0, 0))
}
