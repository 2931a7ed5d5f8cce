package filter

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// CandleSource supplies recent bars for a symbol and timeframe.
type CandleSource interface {
	Candles(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error)
}

// MultiTimeframeConfig tunes the trend agreement check.
type MultiTimeframeConfig struct {
	Timeframes []string
	FastPeriod int
	SlowPeriod int
}

// MultiTimeframe admits a signal when, on every configured timeframe, the
// fast EMA sits on the signal's side of the slow EMA: above for BUY, below
// for SELL.
type MultiTimeframe struct {
	src    CandleSource
	cfg    MultiTimeframeConfig
	logger *slog.Logger
}

// NewMultiTimeframe creates the filter. Zero config fields get defaults
// H1/H4, 9 and 21.
func NewMultiTimeframe(src CandleSource, cfg MultiTimeframeConfig, logger *slog.Logger) *MultiTimeframe {
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = []string{"H1", "H4"}
	}
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = 9
	}
	if cfg.SlowPeriod <= cfg.FastPeriod {
		cfg.SlowPeriod = cfg.FastPeriod + 12
	}
	return &MultiTimeframe{
		src:    src,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "filter"), slog.String("filter", NameMultiTimeframe)),
	}
}

func (m *MultiTimeframe) Name() string { return NameMultiTimeframe }

func (m *MultiTimeframe) Evaluate(ctx context.Context, sig domain.Signal) bool {
	for _, tf := range m.cfg.Timeframes {
		bars, err := m.src.Candles(ctx, sig.Symbol, tf, m.cfg.SlowPeriod*3)
		if err != nil {
			m.logger.DebugContext(ctx, "candles unavailable",
				slog.String("symbol", sig.Symbol),
				slog.String("timeframe", tf),
				slog.String("error", err.Error()),
			)
			return false
		}
		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}
		fast, ok1 := ema(closes, m.cfg.FastPeriod)
		slow, ok2 := ema(closes, m.cfg.SlowPeriod)
		if !ok1 || !ok2 {
			return false
		}
		switch sig.Direction {
		case domain.DirectionBuy:
			if fast <= slow {
				return false
			}
		case domain.DirectionSell:
			if fast >= slow {
				return false
			}
		default:
			return false
		}
	}
	return true
}
