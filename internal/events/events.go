// Package events fans bot events out to every configured sink.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Fanout forwards each event to all sinks in registration order.
type Fanout struct {
	mu    sync.RWMutex
	sinks []domain.EventPublisher
}

// NewFanout creates a Fanout. Nil sinks are ignored.
func NewFanout(sinks ...domain.EventPublisher) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add registers another sink.
func (f *Fanout) Add(s domain.EventPublisher) {
	if s == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// Publish implements domain.EventPublisher.
func (f *Fanout) Publish(ctx context.Context, ev domain.Event) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(ctx, ev)
	}
}

// Async queues events for a slow sink and delivers them from one
// goroutine. When the queue is full the event is dropped and logged.
type Async struct {
	next   domain.EventPublisher
	queue  chan domain.Event
	logger *slog.Logger
}

// NewAsync wraps next with a queue of size buf (64 when not positive).
func NewAsync(next domain.EventPublisher, buf int, logger *slog.Logger) *Async {
	if buf <= 0 {
		buf = 64
	}
	return &Async{
		next:   next,
		queue:  make(chan domain.Event, buf),
		logger: logger.With(slog.String("component", "events-async")),
	}
}

// Publish implements domain.EventPublisher without blocking.
func (a *Async) Publish(ctx context.Context, ev domain.Event) {
	select {
	case a.queue <- ev:
	default:
		a.logger.WarnContext(ctx, "event dropped", slog.String("type", ev.Type))
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already queued.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-a.queue:
			a.next.Publish(ctx, ev)
		case <-ctx.Done():
			drain := context.WithoutCancel(ctx)
			for {
				select {
				case ev := <-a.queue:
					a.next.Publish(drain, ev)
				default:
					return nil
				}
			}
		}
	}
}
