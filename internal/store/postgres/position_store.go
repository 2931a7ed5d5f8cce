package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `id, order_id, account, symbol, direction, entry_price,
	sl, tp, volume, profit, status, opened_at, closed_at`

// Create inserts a ledger entry. A second entry for the same order id fails
// with domain.ErrAlreadyExists.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (` + positionCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	status := p.Status
	if status == "" {
		status = domain.PositionStatusOpen
	}
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.OrderID, p.Account, p.Symbol, string(p.Direction), p.EntryPrice,
		p.SL, p.TP, p.Volume, p.Profit, string(status), p.OpenedAt, p.ClosedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("postgres: create position %s: %w", p.OrderID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create position %s: %w", p.OrderID, err)
	}
	return nil
}

// Close marks the entry for orderID closed. Closing an already closed entry
// is a no-op; an unknown order id is domain.ErrNotFound.
func (s *PositionStore) Close(ctx context.Context, orderID string, profit float64, closedAt time.Time) error {
	const query = `
		UPDATE positions
		SET profit = $2, status = 'closed', closed_at = $3, updated_at = NOW()
		WHERE order_id = $1 AND status = 'open'`
	tag, err := s.pool.Exec(ctx, query, orderID, profit, closedAt)
	if err != nil {
		return fmt.Errorf("postgres: close position %s: %w", orderID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM positions WHERE order_id = $1)`, orderID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: close position %s: %w", orderID, err)
	}
	if !exists {
		return fmt.Errorf("postgres: close position %s: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

// List returns entries newest first.
func (s *PositionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query, args := listQuery(`SELECT `+positionCols+` FROM positions`, "opened_at", "status", opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Position, error) {
		var p domain.Position
		var direction, status string
		err := row.Scan(
			&p.ID, &p.OrderID, &p.Account, &p.Symbol, &direction, &p.EntryPrice,
			&p.SL, &p.TP, &p.Volume, &p.Profit, &status, &p.OpenedAt, &p.ClosedAt,
		)
		p.Direction = domain.Direction(direction)
		p.Status = domain.PositionStatus(status)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return out, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
