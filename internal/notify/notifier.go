// Package notify pushes selected bot events to chat channels (Telegram,
// Discord). Each event type can be allowed or filtered so operators only
// receive the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// DefaultEvents are forwarded when no allow-list is configured.
var DefaultEvents = []string{
	domain.EventTradeExecuted,
	domain.EventTradeRejected,
	domain.EventLoopError,
	domain.EventBotState,
}

// Notifier dispatches events to every Sender. It implements
// domain.EventPublisher; wrap it in events.Async since senders do network
// I/O.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for senders. Only event types in events are
// forwarded; an empty list means DefaultEvents.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	if len(events) == 0 {
		events = DefaultEvents
	}
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Publish implements domain.EventPublisher.
func (n *Notifier) Publish(ctx context.Context, ev domain.Event) {
	if !n.events[ev.Type] {
		return
	}
	title, msg := Format(ev)
	if err := n.dispatch(ctx, title, msg); err != nil {
		n.logger.WarnContext(ctx, "notification failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// NotifyAll sends a message to all senders regardless of the allow-list.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender; one failing sender does not stop the
// others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
