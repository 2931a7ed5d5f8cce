package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Direction is the side of a market order.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection accepts BUY/SELL in any case, plus LONG/SHORT aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return DirectionBuy, nil
	case "SELL", "SHORT":
		return DirectionSell, nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrInvalidSignal, s)
	}
}

// Sign returns +1 for BUY and -1 for SELL.
func (d Direction) Sign() int {
	if d == DirectionSell {
		return -1
	}
	return 1
}

// Signal is a directional trade recommendation from an external source.
// Signals are treated as immutable once produced.
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry"`
	SL         float64   `json:"sl"`
	TP         float64   `json:"tp"`
	Source     string    `json:"source,omitempty"`
	ReceivedAt time.Time `json:"timestamp"`
}

// Validate reports whether the signal is complete enough to be executed.
// An entry equal to the stop loss is allowed; sizing falls back to the
// minimum lot in that case. Prices must be finite and positive.
func (s Signal) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSignal)
	}
	if s.Direction != DirectionBuy && s.Direction != DirectionSell {
		return fmt.Errorf("%w: direction %q", ErrInvalidSignal, s.Direction)
	}
	if !positive(s.Entry) || !positive(s.SL) || !positive(s.TP) {
		return fmt.Errorf("%w: prices must be positive (entry=%v sl=%v tp=%v)",
			ErrInvalidSignal, s.Entry, s.SL, s.TP)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Key identifies a signal by content so the same recommendation scraped on
// consecutive polls is recognised as one.
func (s Signal) Key() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{
		strings.ToUpper(s.Symbol), string(s.Direction), f(s.Entry), f(s.SL), f(s.TP),
	}, "|")
}
