package filter

import (
	"context"
	"strings"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// PositionSource lists the ledger's open positions.
type PositionSource interface {
	OpenPositions() []domain.Position
}

// Correlation limits stacking exposure to a single currency. Each FX pair
// is split into its base and quote legs; a BUY is long the base and short
// the quote. A signal is rejected when either of its legs already has
// MaxSameCurrency open positions on the same side.
type Correlation struct {
	positions       PositionSource
	maxSameCurrency int
}

// NewCorrelation creates the filter. maxSameCurrency <= 0 means 2.
func NewCorrelation(positions PositionSource, maxSameCurrency int) *Correlation {
	if maxSameCurrency <= 0 {
		maxSameCurrency = 2
	}
	return &Correlation{positions: positions, maxSameCurrency: maxSameCurrency}
}

func (c *Correlation) Name() string { return NameCorrelation }

func (c *Correlation) Evaluate(_ context.Context, sig domain.Signal) bool {
	base, quote, ok := splitPair(sig.Symbol)
	if !ok {
		return false
	}

	// exposure[ccy][side] counts open legs; side is +1 long, -1 short.
	exposure := map[string]map[int]int{}
	add := func(ccy string, side int) {
		if exposure[ccy] == nil {
			exposure[ccy] = map[int]int{}
		}
		exposure[ccy][side]++
	}
	for _, p := range c.positions.OpenPositions() {
		b, q, ok := splitPair(p.Symbol)
		if !ok {
			continue
		}
		s := p.Direction.Sign()
		add(b, s)
		add(q, -s)
	}

	s := sig.Direction.Sign()
	return exposure[base][s] < c.maxSameCurrency && exposure[quote][-s] < c.maxSameCurrency
}

// splitPair splits "EURUSD", "eur/usd" or "EURUSD.m" into its currencies.
func splitPair(symbol string) (base, quote string, ok bool) {
	s := strings.ToUpper(strings.NewReplacer("/", "", "_", "", "-", "").Replace(symbol))
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if len(s) != 6 {
		return "", "", false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", "", false
		}
	}
	return s[:3], s[3:], true
}
