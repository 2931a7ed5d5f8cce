// Package ledger records the orders the venue accepted during the process
// lifetime. A Ledger is not safe for concurrent use on its own; the state
// container serialises every access to it.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Stats summarises the ledger for metric computation.
type Stats struct {
	Total          int
	Open           int
	Closed         int
	Winners        int
	RealizedProfit float64
}

// WinRate returns winners/closed*100, or 0 when nothing has closed.
func (s Stats) WinRate() float64 {
	if s.Closed == 0 {
		return 0
	}
	return float64(s.Winners) / float64(s.Closed) * 100
}

// Ledger is an append-only list of positions indexed by venue order id.
// Entries are never removed; closing one only changes its status.
type Ledger struct {
	entries []domain.Position
	byOrder map[string]int
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{byOrder: make(map[string]int)}
}

// Append records an accepted order. An order id may appear only once.
func (l *Ledger) Append(p domain.Position) error {
	if p.OrderID == "" {
		return fmt.Errorf("ledger: append: empty order id")
	}
	if _, ok := l.byOrder[p.OrderID]; ok {
		return fmt.Errorf("ledger: append %s: %w", p.OrderID, domain.ErrAlreadyExists)
	}
	if p.Status == "" {
		p.Status = domain.PositionStatusOpen
	}
	l.byOrder[p.OrderID] = len(l.entries)
	l.entries = append(l.entries, p)
	return nil
}

// Snapshot returns a copy of every entry in append order.
func (l *Ledger) Snapshot() []domain.Position {
	out := make([]domain.Position, len(l.entries))
	for i, p := range l.entries {
		out[i] = clonePosition(p)
	}
	return out
}

// Open returns copies of the entries not yet closed.
func (l *Ledger) Open() []domain.Position {
	var out []domain.Position
	for _, p := range l.entries {
		if p.IsOpen() {
			out = append(out, clonePosition(p))
		}
	}
	return out
}

// Get returns a copy of the entry for orderID.
func (l *Ledger) Get(orderID string) (domain.Position, error) {
	i, ok := l.byOrder[orderID]
	if !ok {
		return domain.Position{}, fmt.Errorf("ledger: get %s: %w", orderID, domain.ErrNotFound)
	}
	return clonePosition(l.entries[i]), nil
}

// MarkClosed sets the realized profit and closed status of an entry.
// Closing an already closed entry leaves it unchanged and reports
// changed=false.
func (l *Ledger) MarkClosed(orderID string, profit float64, at time.Time) (p domain.Position, changed bool, err error) {
	i, ok := l.byOrder[orderID]
	if !ok {
		return domain.Position{}, false, fmt.Errorf("ledger: close %s: %w", orderID, domain.ErrNotFound)
	}
	entry := &l.entries[i]
	if !entry.IsOpen() {
		return clonePosition(*entry), false, nil
	}
	closedAt := at.UTC()
	entry.Profit = profit
	entry.Status = domain.PositionStatusClosed
	entry.ClosedAt = &closedAt
	return clonePosition(*entry), true, nil
}

// Len returns the number of entries ever appended.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Stats computes the summary in one pass.
func (l *Ledger) Stats() Stats {
	st := Stats{Total: len(l.entries)}
	realized := decimal.Zero
	for _, p := range l.entries {
		if p.IsOpen() {
			st.Open++
			continue
		}
		st.Closed++
		if p.Profit > 0 {
			st.Winners++
		}
		realized = realized.Add(decimal.NewFromFloat(p.Profit))
	}
	st.RealizedProfit, _ = realized.Float64()
	return st
}

func clonePosition(p domain.Position) domain.Position {
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		p.ClosedAt = &t
	}
	return p
}
