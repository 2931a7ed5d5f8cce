package domain

import "time"

// PositionStatus tracks whether a ledger entry is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is a ledger entry for an order the venue accepted.
type Position struct {
	ID         string         `json:"id"`
	OpenedAt   time.Time      `json:"timestamp"`
	Account    string         `json:"account"`
	Symbol     string         `json:"symbol"`
	Direction  Direction      `json:"direction"`
	EntryPrice float64        `json:"entry_price"`
	SL         float64        `json:"sl"`
	TP         float64        `json:"tp"`
	Volume     float64        `json:"lot_size"`
	OrderID    string         `json:"order_id"`
	Profit     float64        `json:"profit"`
	Status     PositionStatus `json:"status"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`
}

// IsOpen reports whether the position has not been reconciled as closed.
func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}
