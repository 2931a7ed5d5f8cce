// Package metrics recomputes performance figures from the ledger and the
// live account. Recompute never fails: whatever the venue cannot supply is
// carried over from the previous computation.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/id"
	"github.com/alanyoungcy/fxscalper/internal/ledger"
)

// Venue is the live account view. It is implemented by *venue.Client.
type Venue interface {
	AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error)
	OpenPositions(ctx context.Context) ([]domain.OpenPosition, error)
	ClosedProfit(ctx context.Context, orderID string) (profit float64, closed bool, err error)
}

// Store is the shared state the aggregator reads and updates. It is
// implemented by *state.Store.
type Store interface {
	OpenPositions() []domain.Position
	MarkClosed(orderID string, profit float64, at time.Time) (domain.Position, bool, error)
	UpdateMetrics(fn func(prev domain.PerformanceMetrics, st ledger.Stats) domain.PerformanceMetrics) domain.PerformanceMetrics
}

// Aggregator owns metric recomputation.
type Aggregator struct {
	venue   Venue
	store   Store
	journal domain.PositionStore
	equity  domain.EquityStore
	events  domain.EventPublisher
	account func() string
	logger  *slog.Logger
	now     func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(v Venue, store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		venue:   v,
		store:   store,
		account: func() string { return "" },
		logger:  logger.With(slog.String("component", "metrics")),
		now:     time.Now,
	}
}

// SetJournal records closures in ps and the equity curve in es. Either may
// be nil.
func (a *Aggregator) SetJournal(ps domain.PositionStore, es domain.EquityStore) {
	a.journal = ps
	a.equity = es
}

// SetPublisher sends metric and closure events to p.
func (a *Aggregator) SetPublisher(p domain.EventPublisher) { a.events = p }

// SetAccountFunc limits reconciliation to ledger entries of the active
// account.
func (a *Aggregator) SetAccountFunc(fn func() string) { a.account = fn }

// Recompute reconciles closed positions and refreshes the metrics.
//
// Win rate and total trades come from the ledger. Drawdown and profit come
// from the account snapshot; when it is unavailable drawdown reports 0 and
// profit keeps its previous value. Exposure is the total open volume at
// the venue and keeps its previous value when positions cannot be read.
func (a *Aggregator) Recompute(ctx context.Context) domain.PerformanceMetrics {
	acct, acctErr := a.venue.AccountSnapshot(ctx)
	if acctErr != nil {
		a.logger.WarnContext(ctx, "account snapshot unavailable", slog.String("error", acctErr.Error()))
	}
	open, posErr := a.venue.OpenPositions(ctx)
	if posErr != nil {
		a.logger.WarnContext(ctx, "open positions unavailable", slog.String("error", posErr.Error()))
	} else {
		a.reconcile(ctx, open)
	}

	now := a.now().UTC()
	m := a.store.UpdateMetrics(func(prev domain.PerformanceMetrics, st ledger.Stats) domain.PerformanceMetrics {
		next := prev
		next.TotalTrades = st.Total
		next.WinRate = st.WinRate()
		next.Drawdown = 0
		if acctErr == nil {
			next.Drawdown = Drawdown(acct.Balance, acct.Equity)
			next.Profit = acct.Profit
		}
		if posErr == nil {
			next.Exposure = Exposure(open)
		}
		next.UpdatedAt = now
		return next
	})

	if acctErr == nil && a.equity != nil {
		snap := domain.EquitySnapshot{
			Time:     now,
			Account:  a.account(),
			Balance:  acct.Balance,
			Equity:   acct.Equity,
			Profit:   acct.Profit,
			Drawdown: m.Drawdown,
		}
		if err := a.equity.RecordEquity(ctx, snap); err != nil {
			a.logger.WarnContext(ctx, "equity snapshot write failed", slog.String("error", err.Error()))
		}
	}
	a.publish(ctx, domain.EventMetrics, m)
	return m
}

// reconcile closes ledger entries whose order no longer appears among the
// venue's open positions and whose closing profit the venue can report.
func (a *Aggregator) reconcile(ctx context.Context, venueOpen []domain.OpenPosition) {
	live := make(map[string]bool, len(venueOpen))
	for _, p := range venueOpen {
		live[p.Ticket] = true
	}
	account := a.account()

	for _, p := range a.store.OpenPositions() {
		if live[p.OrderID] {
			continue
		}
		if account != "" && p.Account != "" && p.Account != account {
			continue
		}
		profit, closed, err := a.venue.ClosedProfit(ctx, p.OrderID)
		if err != nil {
			a.logger.DebugContext(ctx, "closed profit unavailable",
				slog.String("order_id", p.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !closed {
			continue
		}

		at := a.now()
		closedPos, changed, err := a.store.MarkClosed(p.OrderID, profit, at)
		if err != nil || !changed {
			continue
		}
		a.logger.InfoContext(ctx, "position closed",
			slog.String("order_id", p.OrderID),
			slog.String("symbol", p.Symbol),
			slog.Float64("profit", profit),
		)
		if a.journal != nil {
			if err := a.journal.Close(ctx, p.OrderID, profit, at); err != nil {
				a.logger.WarnContext(ctx, "journal close failed",
					slog.String("order_id", p.OrderID),
					slog.String("error", err.Error()),
				)
			}
		}
		a.publish(ctx, domain.EventTradeClosed, closedPos)
	}
}

func (a *Aggregator) publish(ctx context.Context, typ string, data any) {
	if a.events == nil {
		return
	}
	a.events.Publish(ctx, domain.Event{ID: id.NewUUID(), Type: typ, Time: a.now().UTC(), Data: data})
}

// Drawdown returns (balance-equity)/balance*100, or 0 for a non-positive
// balance.
func Drawdown(balance, equity float64) float64 {
	if balance <= 0 {
		return 0
	}
	return (balance - equity) / balance * 100
}

// Exposure sums the volume of open venue positions.
func Exposure(open []domain.OpenPosition) float64 {
	total := 0.0
	for _, p := range open {
		total += p.Volume
	}
	return total
}
