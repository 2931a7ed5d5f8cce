// Package venue wraps a brokerage terminal behind scoped sessions. The
// terminal API is process-global and stateful, so every operation
// initializes it, does its work, and shuts it down again.
package venue

import (
	"context"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// MetaTrader trade server return codes.
const (
	RetcodeRequote = 10004
	RetcodeReject  = 10006
	RetcodeDone    = 10009
	RetcodeInvalid = 10013
	RetcodeNoMoney = 10019
)

// Terminal is the low-level driver for a trading terminal. Implementations
// are not required to be safe for concurrent use; Client serialises access.
type Terminal interface {
	Initialize(ctx context.Context, creds domain.Credentials) error
	Shutdown(ctx context.Context) error

	// SymbolInfo returns domain.ErrSymbolNotFound for unknown symbols.
	SymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error)
	SymbolTick(ctx context.Context, symbol string) (domain.Quote, error)
	// OrderSend returns an error only when the request could not be
	// delivered. Venue rejections come back as OrderResult.Accepted=false.
	OrderSend(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
	AccountInfo(ctx context.Context) (domain.AccountSnapshot, error)
	PositionsGet(ctx context.Context) ([]domain.OpenPosition, error)
	CopyRates(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error)
	// ClosedProfit reports the realized profit of a position ticket once
	// the venue has closed it.
	ClosedProfit(ctx context.Context, ticket string) (profit float64, closed bool, err error)
}
