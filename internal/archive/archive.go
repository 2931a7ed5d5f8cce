// Package archive writes periodic JSON snapshots of the position ledger and
// metrics to object storage under ledger/YYYY/MM/DD/.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/ledger"
)

// Source is the state being archived. It is implemented by *state.Store.
type Source interface {
	Positions() []domain.Position
	Metrics() domain.PerformanceMetrics
	LedgerStats() ledger.Stats
	Status() domain.BotStatus
}

// Snapshot is the archived document.
type Snapshot struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Account     string                    `json:"account"`
	Metrics     domain.PerformanceMetrics `json:"metrics"`
	Stats       ledger.Stats              `json:"stats"`
	Positions   []domain.Position         `json:"positions"`
}

// Archiver uploads snapshots through a BlobWriter.
type Archiver struct {
	writer domain.BlobWriter
	source Source
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Archiver. An empty prefix defaults to "ledger".
func New(w domain.BlobWriter, src Source, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = "ledger"
	}
	return &Archiver{
		writer: w,
		source: src,
		prefix: prefix,
		logger: logger.With(slog.String("component", "archiver")),
		now:    time.Now,
	}
}

// Path returns the object key for a snapshot taken at t.
func (a *Archiver) Path(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/ledger-%s.json",
		a.prefix, t.Year(), t.Month(), t.Day(), t.Format("150405"))
}

// Archive writes one snapshot.
func (a *Archiver) Archive(ctx context.Context) error {
	now := a.now().UTC()
	snap := Snapshot{
		GeneratedAt: now,
		Account:     a.source.Status().Account,
		Metrics:     a.source.Metrics(),
		Stats:       a.source.LedgerStats(),
		Positions:   a.source.Positions(),
	}
	if snap.Positions == nil {
		snap.Positions = []domain.Position{}
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: marshal snapshot: %w", err)
	}
	path := a.Path(now)
	if err := a.writer.Put(ctx, path, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("archive: put %s: %w", path, err)
	}
	a.logger.InfoContext(ctx, "ledger archived",
		slog.String("path", path),
		slog.Int("positions", len(snap.Positions)),
	)
	return nil
}

// RunCron archives on a five-field cron schedule until ctx is cancelled.
func (a *Archiver) RunCron(ctx context.Context, expr string) error {
	sched, err := ParseCron(expr)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	a.logger.Info("archive schedule started", slog.String("cron", expr))

	for {
		next, err := sched.Next(a.now().UTC())
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			if err := a.Archive(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
