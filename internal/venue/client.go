package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// CredentialsFunc returns the credentials to log in with. It is called at
// the start of every session, so a changed account applies to the next
// operation.
type CredentialsFunc func() (domain.Credentials, error)

// Client owns the terminal and hands out one session at a time.
type Client struct {
	term   Terminal
	creds  CredentialsFunc
	mu     sync.Mutex
	logger *slog.Logger
}

// NewClient creates a Client over term.
func NewClient(term Terminal, creds CredentialsFunc, logger *slog.Logger) *Client {
	return &Client{
		term:   term,
		creds:  creds,
		logger: logger.With(slog.String("component", "venue")),
	}
}

// Do opens a session, runs fn and always shuts the session down, whether fn
// returns an error or panics. Failure to open the session is reported as
// domain.ErrConnection, and the terminal is shut down then too so a
// half-initialized login does not linger.
func (c *Client) Do(ctx context.Context, fn func(s *Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	creds, err := c.creds()
	if err != nil {
		return fmt.Errorf("venue: credentials: %w: %v", domain.ErrConnection, err)
	}
	if err := c.term.Initialize(ctx, creds); err != nil {
		c.shutdown(ctx)
		if errors.Is(err, domain.ErrConnection) {
			return fmt.Errorf("venue: initialize login %d: %w", creds.Login, err)
		}
		return fmt.Errorf("venue: initialize login %d: %w: %v", creds.Login, domain.ErrConnection, err)
	}

	s := &Session{term: c.term}
	defer func() {
		s.done = true
		c.shutdown(ctx)
	}()

	if fn == nil {
		return nil
	}
	return fn(s)
}

func (c *Client) shutdown(ctx context.Context) {
	if err := c.term.Shutdown(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("terminal shutdown failed", slog.String("error", err.Error()))
	}
}

// Probe reports whether a session can currently be established.
func (c *Client) Probe(ctx context.Context) bool {
	err := c.Do(ctx, nil)
	if err != nil {
		c.logger.DebugContext(ctx, "venue probe failed", slog.String("error", err.Error()))
	}
	return err == nil
}

// SymbolInfo fetches symbol metadata in its own session.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (info domain.SymbolInfo, err error) {
	err = c.Do(ctx, func(s *Session) error {
		info, err = s.SymbolInfo(ctx, symbol)
		return err
	})
	return info, err
}

// Quote fetches the latest tick in its own session.
func (c *Client) Quote(ctx context.Context, symbol string) (q domain.Quote, err error) {
	err = c.Do(ctx, func(s *Session) error {
		q, err = s.Quote(ctx, symbol)
		return err
	})
	return q, err
}

// AccountSnapshot reads balance, equity and floating profit in its own
// session.
func (c *Client) AccountSnapshot(ctx context.Context) (acct domain.AccountSnapshot, err error) {
	err = c.Do(ctx, func(s *Session) error {
		acct, err = s.AccountSnapshot(ctx)
		return err
	})
	return acct, err
}

// OpenPositions lists the venue's open positions in its own session.
func (c *Client) OpenPositions(ctx context.Context) (pos []domain.OpenPosition, err error) {
	err = c.Do(ctx, func(s *Session) error {
		pos, err = s.OpenPositions(ctx)
		return err
	})
	return pos, err
}

// Candles fetches the most recent count bars of symbol on timeframe.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, count int) (bars []domain.Candle, err error) {
	err = c.Do(ctx, func(s *Session) error {
		bars, err = s.Candles(ctx, symbol, timeframe, count)
		return err
	})
	return bars, err
}

// ClosedProfit asks whether the position opened by orderID has closed and
// with what profit.
func (c *Client) ClosedProfit(ctx context.Context, orderID string) (profit float64, closed bool, err error) {
	err = c.Do(ctx, func(s *Session) error {
		profit, closed, err = s.ClosedProfit(ctx, orderID)
		return err
	})
	return profit, closed, err
}
