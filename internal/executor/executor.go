// Package executor turns admitted signals into market orders: it sizes the
// order from the account balance, submits it inside one venue session, and
// records accepted orders in the ledger.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/id"
	"github.com/alanyoungcy/fxscalper/internal/risk"
	"github.com/alanyoungcy/fxscalper/internal/venue"
)

// Stage is where an execution ended.
type Stage string

const (
	StageExecuted         Stage = "executed"
	StageSymbolNotFound   Stage = "symbol_not_found"
	StageRejected         Stage = "rejected"
	StageConnectionFailed Stage = "connection_failed"
	StageFailed           Stage = "failed"
)

// Venue opens scoped sessions. It is implemented by *venue.Client.
type Venue interface {
	Do(ctx context.Context, fn func(s *venue.Session) error) error
}

// Ledger records accepted orders. It is implemented by *state.Store.
type Ledger interface {
	AppendPosition(p domain.Position) error
}

// Config holds the fixed fields of every market order.
type Config struct {
	Deviation   int
	Magic       int64
	Comment     string
	TimeInForce domain.TimeInForce
	Filling     domain.FillPolicy
}

// DefaultConfig returns deviation 5, magic 123456, comment AutoTrade, GTC
// and IOC.
func DefaultConfig() Config {
	return Config{
		Deviation:   5,
		Magic:       123456,
		Comment:     "AutoTrade",
		TimeInForce: domain.TimeInForceGTC,
		Filling:     domain.FillPolicyIOC,
	}
}

// Outcome describes what happened to one signal.
type Outcome struct {
	Signal   domain.Signal
	Stage    Stage
	Request  domain.OrderRequest
	Result   domain.OrderResult
	Position *domain.Position
	Err      error
}

// Executed reports whether the order was accepted and recorded.
func (o Outcome) Executed() bool { return o.Stage == StageExecuted }

// Executor executes one signal at a time. It holds no per-signal state and
// may be shared.
type Executor struct {
	venue   Venue
	sizer   risk.Sizer
	ledger  Ledger
	cfg     Config
	journal domain.PositionStore
	events  domain.EventPublisher
	account func() string
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Executor.
func New(v Venue, sizer risk.Sizer, ledger Ledger, cfg Config, logger *slog.Logger) *Executor {
	return &Executor{
		venue:   v,
		sizer:   sizer,
		ledger:  ledger,
		cfg:     cfg,
		account: func() string { return "" },
		logger:  logger.With(slog.String("component", "executor")),
		now:     time.Now,
	}
}

// SetJournal persists accepted orders to ps. Journal failures are logged
// and never undo the ledger entry.
func (e *Executor) SetJournal(ps domain.PositionStore) { e.journal = ps }

// SetPublisher sends trade events to p.
func (e *Executor) SetPublisher(p domain.EventPublisher) { e.events = p }

// SetAccountFunc labels ledger entries with the account that placed them.
func (e *Executor) SetAccountFunc(fn func() string) { e.account = fn }

// Execute runs the full protocol for sig inside one venue session: symbol
// metadata, quote, account balance, sizing, submission, and on acceptance a
// ledger append. It never panics on venue errors; the returned Outcome
// carries the stage and error.
func (e *Executor) Execute(ctx context.Context, sig domain.Signal) Outcome {
	log := e.logger.With(
		slog.String("signal_id", sig.ID),
		slog.String("symbol", sig.Symbol),
		slog.String("direction", string(sig.Direction)),
	)
	out := Outcome{Signal: sig}

	err := e.venue.Do(ctx, func(s *venue.Session) error {
		info, err := s.SymbolInfo(ctx, sig.Symbol)
		if err != nil {
			return err
		}
		q, err := s.Quote(ctx, sig.Symbol)
		if err != nil {
			return err
		}
		acct, err := s.AccountSnapshot(ctx)
		if err != nil {
			return err
		}

		price := q.PriceFor(sig.Direction)
		out.Request = domain.OrderRequest{
			Symbol:      sig.Symbol,
			Direction:   sig.Direction,
			Volume:      e.sizer.Size(acct.Balance, sig.Entry, sig.SL, info.Point),
			Price:       price,
			SL:          sig.SL,
			TP:          sig.TP,
			Deviation:   e.cfg.Deviation,
			Magic:       e.cfg.Magic,
			Comment:     e.cfg.Comment,
			TimeInForce: e.cfg.TimeInForce,
			Filling:     e.cfg.Filling,
		}

		res, err := s.Submit(ctx, out.Request)
		if err != nil {
			return err
		}
		out.Result = res
		if !res.Accepted {
			out.Stage = StageRejected
			out.Err = fmt.Errorf("executor: %w: retcode %d: %s", domain.ErrOrderRejected, res.RetCode, res.Reason)
			return nil
		}

		fill := res.FillPrice
		if fill <= 0 {
			fill = price
		}
		now := e.now().UTC()
		pos := domain.Position{
			ID:         id.NewULID(now),
			OpenedAt:   now,
			Account:    e.account(),
			Symbol:     sig.Symbol,
			Direction:  sig.Direction,
			EntryPrice: fill,
			SL:         sig.SL,
			TP:         sig.TP,
			Volume:     out.Request.Volume,
			OrderID:    res.OrderID,
			Status:     domain.PositionStatusOpen,
		}
		if err := e.ledger.AppendPosition(pos); err != nil {
			return fmt.Errorf("executor: record order %s: %w", res.OrderID, err)
		}
		out.Stage = StageExecuted
		out.Position = &pos
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSymbolNotFound):
		out.Stage, out.Err = StageSymbolNotFound, err
		log.WarnContext(ctx, "symbol not found, skipping", slog.String("error", err.Error()))
		return out
	case errors.Is(err, domain.ErrConnection):
		out.Stage, out.Err = StageConnectionFailed, err
		log.ErrorContext(ctx, "venue connection failed", slog.String("error", err.Error()))
		return out
	default:
		out.Stage, out.Err = StageFailed, err
		log.ErrorContext(ctx, "execution failed", slog.String("error", err.Error()))
		return out
	}

	if out.Stage == StageRejected {
		log.WarnContext(ctx, "order rejected",
			slog.Int("retcode", out.Result.RetCode),
			slog.String("reason", out.Result.Reason),
			slog.Float64("volume", out.Request.Volume),
		)
		e.publish(ctx, domain.EventTradeRejected, domain.Rejection{
			Signal:  sig,
			RetCode: out.Result.RetCode,
			Reason:  out.Result.Reason,
		})
		return out
	}

	log.InfoContext(ctx, "order executed",
		slog.String("order_id", out.Position.OrderID),
		slog.Float64("price", out.Position.EntryPrice),
		slog.Float64("volume", out.Position.Volume),
	)
	if e.journal != nil {
		if err := e.journal.Create(ctx, *out.Position); err != nil {
			log.WarnContext(ctx, "journal write failed",
				slog.String("order_id", out.Position.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
	e.publish(ctx, domain.EventTradeExecuted, *out.Position)
	return out
}

func (e *Executor) publish(ctx context.Context, typ string, data any) {
	if e.events == nil {
		return
	}
	e.events.Publish(ctx, domain.Event{
		ID:   id.NewUUID(),
		Type: typ,
		Time: e.now().UTC(),
		Data: data,
	})
}
