package source

import (
	"context"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/id"
)

// StaticSource serves a fixed list of signals, for paper trading against
// the simulated terminal.
type StaticSource struct {
	signals []domain.Signal
	now     func() time.Time
}

// NewStaticSource copies sigs.
func NewStaticSource(sigs []domain.Signal) *StaticSource {
	return &StaticSource{signals: append([]domain.Signal(nil), sigs...), now: time.Now}
}

// Name implements SignalSource.
func (s *StaticSource) Name() string { return "static" }

// Fetch implements SignalSource. Each call stamps fresh ids and receive
// times; the content key stays the same so claims still de-duplicate.
func (s *StaticSource) Fetch(_ context.Context) ([]domain.Signal, error) {
	now := s.now().UTC()
	out := make([]domain.Signal, len(s.signals))
	for i, sig := range s.signals {
		sig.ID = id.NewUUID()
		sig.Source = s.Name()
		sig.ReceivedAt = now
		out[i] = sig
	}
	return out, nil
}
