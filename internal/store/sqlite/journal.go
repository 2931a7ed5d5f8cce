// Package sqlite is the embedded trade journal: positions, the equity curve
// and the control audit log in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Journal implements domain.Journal and its three stores.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Positions implements domain.Journal.
func (j *Journal) Positions() domain.PositionStore { return positionStore{j} }

// Equity implements domain.Journal.
func (j *Journal) Equity() domain.EquityStore { return equityStore{j} }

// Audit implements domain.Journal.
func (j *Journal) Audit() domain.AuditStore { return auditStore{j} }

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

type positionStore struct{ j *Journal }

func (s positionStore) Create(ctx context.Context, p domain.Position) error {
	status := p.Status
	if status == "" {
		status = domain.PositionStatusOpen
	}
	var closedAt any
	if p.ClosedAt != nil {
		closedAt = p.ClosedAt.UTC()
	}
	_, err := s.j.db.ExecContext(ctx, `
		INSERT INTO positions
		(id, order_id, account, symbol, direction, entry_price, sl, tp, volume, profit, status, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.Account, p.Symbol, string(p.Direction), p.EntryPrice,
		p.SL, p.TP, p.Volume, p.Profit, string(status), p.OpenedAt.UTC(), closedAt,
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("sqlite: create position %s: %w", p.OrderID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("sqlite: create position %s: %w", p.OrderID, err)
	}
	return nil
}

// Close keeps the first result when called twice; an unknown order id is
// domain.ErrNotFound.
func (s positionStore) Close(ctx context.Context, orderID string, profit float64, closedAt time.Time) error {
	res, err := s.j.db.ExecContext(ctx, `
		UPDATE positions SET profit = ?, status = 'closed', closed_at = ?
		WHERE order_id = ? AND status = 'open'`,
		profit, closedAt.UTC(), orderID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: close position %s: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var one int
	err = s.j.db.QueryRowContext(ctx, `SELECT 1 FROM positions WHERE order_id = ?`, orderID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: close position %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite: close position %s: %w", orderID, err)
	}
	return nil
}

func (s positionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query, args := listQuery(`
		SELECT id, order_id, account, symbol, direction, entry_price, sl, tp, volume, profit, status, opened_at, closed_at
		FROM positions`, "opened_at", "status", opts)
	rows, err := s.j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var direction, status string
		var closedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Account, &p.Symbol, &direction, &p.EntryPrice,
			&p.SL, &p.TP, &p.Volume, &p.Profit, &status, &p.OpenedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan position: %w", err)
		}
		p.Direction = domain.Direction(direction)
		p.Status = domain.PositionStatus(status)
		if closedAt.Valid {
			t := closedAt.Time
			p.ClosedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type equityStore struct{ j *Journal }

func (s equityStore) RecordEquity(ctx context.Context, e domain.EquitySnapshot) error {
	_, err := s.j.db.ExecContext(ctx, `
		INSERT INTO equity (time, account, balance, equity, profit, drawdown)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Account, e.Balance, e.Equity, e.Profit, e.Drawdown,
	)
	if err != nil {
		return fmt.Errorf("sqlite: record equity: %w", err)
	}
	return nil
}

func (s equityStore) ListEquity(ctx context.Context, opts domain.ListOpts) ([]domain.EquitySnapshot, error) {
	query, args := listQuery(`SELECT time, account, balance, equity, profit, drawdown FROM equity`, "time", "", opts)
	rows, err := s.j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list equity: %w", err)
	}
	defer rows.Close()

	var out []domain.EquitySnapshot
	for rows.Next() {
		var e domain.EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Account, &e.Balance, &e.Equity, &e.Profit, &e.Drawdown); err != nil {
			return nil, fmt.Errorf("sqlite: scan equity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type auditStore struct{ j *Journal }

func (a auditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("sqlite: marshal audit detail: %w", err)
	}
	_, err = a.j.db.ExecContext(ctx,
		`INSERT INTO audit_log (event, detail, created_at) VALUES (?, ?, ?)`,
		event, string(raw), a.j.now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: log audit event %s: %w", event, err)
	}
	return nil
}

func (a auditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query, args := listQuery(`SELECT id, event, detail, created_at FROM audit_log`, "created_at", "", opts)
	rows, err := a.j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Event, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit entry: %w", err)
		}
		if detail.Valid && detail.String != "" {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func listQuery(base, timeCol, statusCol string, opts domain.ListOpts) (string, []any) {
	query := base + " WHERE 1=1"
	var args []any
	if opts.Since != nil {
		query += " AND " + timeCol + " >= ?"
		args = append(args, opts.Since.UTC())
	}
	if opts.Until != nil {
		query += " AND " + timeCol + " <= ?"
		args = append(args, opts.Until.UTC())
	}
	if statusCol != "" && opts.Status != "" {
		query += " AND " + statusCol + " = ?"
		args = append(args, string(opts.Status))
	}
	query += " ORDER BY " + timeCol + " DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Offset)
	}
	return query, args
}

var (
	_ domain.Journal       = (*Journal)(nil)
	_ domain.PositionStore = positionStore{}
	_ domain.EquityStore   = equityStore{}
	_ domain.AuditStore    = auditStore{}
)
