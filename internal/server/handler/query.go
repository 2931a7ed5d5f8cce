package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// StateReader is the read side of the shared bot state. Every method
// returns a copy.
type StateReader interface {
	Signals() []domain.Signal
	Positions() []domain.Position
	Metrics() domain.PerformanceMetrics
	News() []domain.NewsItem
	Status() domain.BotStatus
}

// StrategyReader exposes the active strategy.
type StrategyReader interface {
	Strategy() domain.StrategyConfig
}

// AccountLister exposes the configured account keys.
type AccountLister interface {
	Keys() []string
	Selected() string
}

// QueryHandler serves the read-only API.
type QueryHandler struct {
	state    StateReader
	strategy StrategyReader
	accounts AccountLister
	journal  domain.Journal
	logger   *slog.Logger
}

// NewQueryHandler creates a QueryHandler. journal may be nil, in which case
// the history endpoints answer 503.
func NewQueryHandler(state StateReader, strategy StrategyReader, accounts AccountLister, journal domain.Journal, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		state:    state,
		strategy: strategy,
		accounts: accounts,
		journal:  journal,
		logger:   logger.With(slog.String("handler", "query")),
	}
}

// GetSignals returns the signal set of the latest iteration.
// GET /api/signals
func (h *QueryHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	sigs := h.state.Signals()
	if sigs == nil {
		sigs = []domain.Signal{}
	}
	writeJSON(w, http.StatusOK, sigs)
}

// GetTrades returns the in-process position ledger.
// GET /api/trades
func (h *QueryHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	pos := h.state.Positions()
	if pos == nil {
		pos = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, pos)
}

// GetPerformance returns the latest metrics.
// GET /api/performance
func (h *QueryHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Metrics())
}

// GetNews returns the cached economic calendar headlines.
// GET /api/news
func (h *QueryHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	news := h.state.News()
	if news == nil {
		news = []domain.NewsItem{}
	}
	writeJSON(w, http.StatusOK, news)
}

type statusResponse struct {
	domain.BotStatus
	Strategy domain.StrategyConfig `json:"strategy"`
}

// GetStatus returns bot and venue state with the active strategy.
// GET /api/status
func (h *QueryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		BotStatus: h.state.Status(),
		Strategy:  h.strategy.Strategy(),
	})
}

// GetStrategy returns the active strategy.
// GET /api/strategy
func (h *QueryHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.strategy.Strategy())
}

// GetAccounts lists the configured accounts and the selected one.
// GET /api/accounts
func (h *QueryHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": h.accounts.Keys(),
		"selected": h.accounts.Selected(),
	})
}

// GetTradeHistory lists journaled positions.
// GET /api/history/trades?limit=&offset=&status=&since=&until=
func (h *QueryHandler) GetTradeHistory(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	out, err := h.journal.Positions().List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if out == nil {
		out = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEquityHistory lists journaled equity snapshots.
// GET /api/history/equity?limit=&offset=&since=&until=
func (h *QueryHandler) GetEquityHistory(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	out, err := h.journal.Equity().ListEquity(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list equity failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list equity")
		return
	}
	if out == nil {
		out = []domain.EquitySnapshot{}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetAuditLog lists journaled control actions.
// GET /api/history/audit?limit=&offset=
func (h *QueryHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	out, err := h.journal.Audit().List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if out == nil {
		out = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, out)
}
