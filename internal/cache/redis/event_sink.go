package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// EventSink publishes bot events on "<prefix>:events:<type>" and appends
// them to the "<prefix>:events" stream.
type EventSink struct {
	bus     domain.SignalBus
	stream  string
	channel func(typ string) string
	timeout time.Duration
	logger  *slog.Logger
}

// NewEventSink creates an EventSink writing through bus.
func NewEventSink(c *Client, bus domain.SignalBus, logger *slog.Logger) *EventSink {
	return &EventSink{
		bus:     bus,
		stream:  c.Key("events"),
		channel: func(typ string) string { return c.Key("events", typ) },
		timeout: 2 * time.Second,
		logger:  logger.With(slog.String("component", "redis-events")),
	}
}

// Stream returns the stream name events are appended to.
func (s *EventSink) Stream() string { return s.stream }

// Publish implements domain.EventPublisher. Failures are logged.
func (s *EventSink) Publish(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "marshal event", slog.String("type", ev.Type), slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.bus.Publish(ctx, s.channel(ev.Type), payload); err != nil {
		s.logger.WarnContext(ctx, "publish event", slog.String("type", ev.Type), slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, s.stream, payload); err != nil {
		s.logger.WarnContext(ctx, "append event", slog.String("type", ev.Type), slog.String("error", err.Error()))
	}
}

var _ domain.EventPublisher = (*EventSink)(nil)
