package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	Status PositionStatus
}

// PositionStore persists ledger entries beyond the process lifetime.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Close(ctx context.Context, orderID string, profit float64, closedAt time.Time) error
	List(ctx context.Context, opts ListOpts) ([]Position, error)
}

// EquityStore persists the equity curve.
type EquityStore interface {
	RecordEquity(ctx context.Context, snap EquitySnapshot) error
	ListEquity(ctx context.Context, opts ListOpts) ([]EquitySnapshot, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Journal groups the persistent stores behind one driver.
type Journal interface {
	Positions() PositionStore
	Equity() EquityStore
	Audit() AuditStore
	Close() error
}
