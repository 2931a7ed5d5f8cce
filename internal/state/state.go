// Package state holds the data shared between the control loop and the
// reporting surface behind a single lock.
package state

import (
	"sync"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/ledger"
)

// Store is the single container for shared mutable state: the current
// signal set, the position ledger, performance metrics, news and status.
// Every read returns a copy. No method performs I/O.
type Store struct {
	mu      sync.RWMutex
	signals []domain.Signal
	ledger  *ledger.Ledger
	metrics domain.PerformanceMetrics
	news    []domain.NewsItem
	status  domain.BotStatus
}

// New returns an empty Store with the bot stopped and the venue
// disconnected.
func New() *Store {
	return &Store{
		ledger: ledger.New(),
		status: domain.BotStatus{
			State: domain.BotStateStopped,
			Venue: domain.VenueDisconnected,
		},
	}
}

// ReplaceSignals swaps the whole signal set in one step.
func (s *Store) ReplaceSignals(sigs []domain.Signal) {
	cp := make([]domain.Signal, len(sigs))
	copy(cp, sigs)

	s.mu.Lock()
	s.signals = cp
	s.mu.Unlock()
}

// Signals returns the current signal set.
func (s *Store) Signals() []domain.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Signal, len(s.signals))
	copy(out, s.signals)
	return out
}

// AppendPosition records an accepted order in the ledger.
func (s *Store) AppendPosition(p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Append(p)
}

// Positions returns a snapshot of the ledger.
func (s *Store) Positions() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Snapshot()
}

// OpenPositions returns the ledger entries not yet closed.
func (s *Store) OpenPositions() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Open()
}

// MarkClosed reconciles a ledger entry as closed with its realized profit.
func (s *Store) MarkClosed(orderID string, profit float64, at time.Time) (domain.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.MarkClosed(orderID, profit, at)
}

// TotalTrades returns the ledger length.
func (s *Store) TotalTrades() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Len()
}

// LedgerStats returns the ledger summary.
func (s *Store) LedgerStats() ledger.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Stats()
}

// Metrics returns the last computed metrics.
func (s *Store) Metrics() domain.PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// UpdateMetrics replaces the metrics with fn(previous, ledger stats) while
// holding the lock, so the result is consistent with the ledger at that
// instant. fn must not block.
func (s *Store) UpdateMetrics(fn func(prev domain.PerformanceMetrics, st ledger.Stats) domain.PerformanceMetrics) domain.PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = fn(s.metrics, s.ledger.Stats())
	return s.metrics
}

// SetNews replaces the news list.
func (s *Store) SetNews(items []domain.NewsItem) {
	cp := make([]domain.NewsItem, len(items))
	copy(cp, items)

	s.mu.Lock()
	s.news = cp
	s.mu.Unlock()
}

// News returns the last fetched news list.
func (s *Store) News() []domain.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.NewsItem, len(s.news))
	copy(out, s.news)
	return out
}

// SetVenueStatus records the last venue probe result.
func (s *Store) SetVenueStatus(v domain.VenueStatus) {
	s.mu.Lock()
	s.status.Venue = v
	s.mu.Unlock()
}

// SetBotState records the control loop lifecycle state.
func (s *Store) SetBotState(st domain.BotState) {
	s.mu.Lock()
	s.status.State = st
	s.mu.Unlock()
}

// SetAccount records the selected account key.
func (s *Store) SetAccount(key string) {
	s.mu.Lock()
	s.status.Account = key
	s.mu.Unlock()
}

// RecordIteration stamps the end of a loop iteration. A nil err clears the
// last error.
func (s *Store) RecordIteration(at time.Time, err error) {
	at = at.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastIteration = &at
	s.status.Iterations++
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
}

// Status returns a copy of the bot status.
func (s *Store) Status() domain.BotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.LastIteration != nil {
		t := *st.LastIteration
		st.LastIteration = &t
	}
	return st
}
