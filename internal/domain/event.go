package domain

import (
	"context"
	"time"
)

// Event types published by the bot.
const (
	EventTradeExecuted = "trade_executed"
	EventTradeRejected = "trade_rejected"
	EventTradeClosed   = "trade_closed"
	EventSignals       = "signals"
	EventMetrics       = "metrics"
	EventBotState      = "bot_state"
	EventLoopError     = "loop_error"
	EventStrategy      = "strategy_updated"
	EventAccount       = "account_switched"
)

// Event is a notification about something the bot did.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"payload,omitempty"`
}

// Rejection is the payload of a trade_rejected event.
type Rejection struct {
	Signal  Signal `json:"signal"`
	RetCode int    `json:"retcode"`
	Reason  string `json:"reason"`
}

// EventPublisher delivers events to an outside sink. Publish must not block
// the caller for long and failures are the sink's to log.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event)
}
