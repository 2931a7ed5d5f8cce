package venue

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

var errSessionClosed = errors.New("venue: session already closed")

// Session is valid only inside the Client.Do callback that produced it.
type Session struct {
	term Terminal
	done bool
}

// SymbolInfo returns symbol metadata or an error wrapping
// domain.ErrSymbolNotFound.
func (s *Session) SymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	if s.done {
		return domain.SymbolInfo{}, errSessionClosed
	}
	info, err := s.term.SymbolInfo(ctx, symbol)
	if err != nil {
		return domain.SymbolInfo{}, fmt.Errorf("venue: symbol_info %s: %w", symbol, err)
	}
	if info.Point <= 0 {
		return domain.SymbolInfo{}, fmt.Errorf("venue: symbol_info %s: non-positive point %v: %w",
			symbol, info.Point, domain.ErrSymbolNotFound)
	}
	return info, nil
}

// Quote returns the latest bid and ask.
func (s *Session) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if s.done {
		return domain.Quote{}, errSessionClosed
	}
	q, err := s.term.SymbolTick(ctx, symbol)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("venue: symbol_info_tick %s: %w", symbol, err)
	}
	if q.Bid <= 0 || q.Ask <= 0 {
		return domain.Quote{}, fmt.Errorf("venue: symbol_info_tick %s: empty quote", symbol)
	}
	return q, nil
}

// AccountSnapshot reads the account state.
func (s *Session) AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	if s.done {
		return domain.AccountSnapshot{}, errSessionClosed
	}
	acct, err := s.term.AccountInfo(ctx)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("venue: account_info: %w", err)
	}
	return acct, nil
}

// OpenPositions lists open positions.
func (s *Session) OpenPositions(ctx context.Context) ([]domain.OpenPosition, error) {
	if s.done {
		return nil, errSessionClosed
	}
	pos, err := s.term.PositionsGet(ctx)
	if err != nil {
		return nil, fmt.Errorf("venue: positions_get: %w", err)
	}
	return pos, nil
}

// Candles returns recent bars.
func (s *Session) Candles(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error) {
	if s.done {
		return nil, errSessionClosed
	}
	bars, err := s.term.CopyRates(ctx, symbol, timeframe, count)
	if err != nil {
		return nil, fmt.Errorf("venue: copy_rates %s %s: %w", symbol, timeframe, err)
	}
	return bars, nil
}

// ClosedProfit reports the realized profit for a closed ticket.
func (s *Session) ClosedProfit(ctx context.Context, ticket string) (float64, bool, error) {
	if s.done {
		return 0, false, errSessionClosed
	}
	profit, closed, err := s.term.ClosedProfit(ctx, ticket)
	if err != nil {
		return 0, false, fmt.Errorf("venue: history_deals %s: %w", ticket, err)
	}
	return profit, closed, nil
}

// Submit sends a market order. The error return is reserved for transport
// failures; a rejected order is a normal result.
func (s *Session) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if s.done {
		return domain.OrderResult{}, errSessionClosed
	}
	if req.Volume <= 0 {
		return domain.OrderResult{RetCode: RetcodeInvalid, Reason: "invalid volume"}, nil
	}
	res, err := s.term.OrderSend(ctx, req)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("venue: order_send %s: %w", req.Symbol, err)
	}
	if res.Accepted && res.OrderID == "" {
		return domain.OrderResult{RetCode: res.RetCode, Reason: "accepted without order id"}, nil
	}
	return res, nil
}
