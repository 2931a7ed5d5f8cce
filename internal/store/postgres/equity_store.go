package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// EquityStore implements domain.EquityStore using PostgreSQL.
type EquityStore struct {
	pool *pgxpool.Pool
}

// NewEquityStore creates an EquityStore backed by pool.
func NewEquityStore(pool *pgxpool.Pool) *EquityStore {
	return &EquityStore{pool: pool}
}

// RecordEquity appends one point of the equity curve.
func (s *EquityStore) RecordEquity(ctx context.Context, e domain.EquitySnapshot) error {
	const query = `
		INSERT INTO equity_snapshots (time, account, balance, equity, profit, drawdown)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, query, e.Time, e.Account, e.Balance, e.Equity, e.Profit, e.Drawdown); err != nil {
		return fmt.Errorf("postgres: record equity: %w", err)
	}
	return nil
}

// ListEquity returns snapshots newest first.
func (s *EquityStore) ListEquity(ctx context.Context, opts domain.ListOpts) ([]domain.EquitySnapshot, error) {
	query, args := listQuery(
		`SELECT time, account, balance, equity, profit, drawdown FROM equity_snapshots`,
		"time", "", opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list equity: %w", err)
	}
	defer rows.Close()

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.EquitySnapshot, error) {
		var e domain.EquitySnapshot
		err := row.Scan(&e.Time, &e.Account, &e.Balance, &e.Equity, &e.Profit, &e.Drawdown)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan equity: %w", err)
	}
	return out, nil
}

var _ domain.EquityStore = (*EquityStore)(nil)
