package domain

import "time"

// Credentials identify a trading account on the venue.
type Credentials struct {
	Login    int64
	Password string
	Server   string
}

// SymbolInfo is the venue metadata needed to size an order.
type SymbolInfo struct {
	Symbol     string  `json:"symbol"`
	Point      float64 `json:"point"`
	Digits     int     `json:"digits"`
	VolumeMin  float64 `json:"volume_min"`
	VolumeMax  float64 `json:"volume_max"`
	VolumeStep float64 `json:"volume_step"`
}

// Quote is the latest bid/ask for a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Time   time.Time `json:"time"`
}

// PriceFor returns the price a market order in direction d fills at.
func (q Quote) PriceFor(d Direction) float64 {
	if d == DirectionSell {
		return q.Bid
	}
	return q.Ask
}

// Candle is one OHLC bar.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// AccountSnapshot is read fresh from the venue per use and never cached
// beyond a single operation.
type AccountSnapshot struct {
	Login    int64   `json:"login"`
	Server   string  `json:"server"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Profit   float64 `json:"profit"`
}

// OpenPosition is a position as the venue reports it.
type OpenPosition struct {
	Ticket    string    `json:"ticket"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Volume    float64   `json:"volume"`
	PriceOpen float64   `json:"price_open"`
	Profit    float64   `json:"profit"`
}
