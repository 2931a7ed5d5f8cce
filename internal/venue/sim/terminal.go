// Package sim is an in-memory paper trading terminal. Market orders fill at
// the ask for BUY and the bid for SELL; positions close when a quote update
// crosses their stop loss or take profit.
package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/venue"
)

// DefaultContractSize is the units per standard lot.
const DefaultContractSize = 100_000

// maxBars caps the per-symbol price history.
const maxBars = 500

// Symbol holds the contract details and starting quote of a simulated instrument.
type Symbol struct {
	Point  float64 `toml:"point" yaml:"point"`
	Digits int     `toml:"digits" yaml:"digits"`
	Bid    float64 `toml:"bid" yaml:"bid"`
	Ask    float64 `toml:"ask" yaml:"ask"`
}

// Config seeds a Terminal.
type Config struct {
	Balance      float64
	Currency     string
	ContractSize float64
	Symbols      map[string]Symbol
	// Logins restricts which accounts may log in. Empty accepts any.
	Logins []int64
}

type position struct {
	ticket    string
	symbol    string
	direction domain.Direction
	volume    float64
	openPrice float64
	sl, tp    float64
}

// Terminal implements venue.Terminal in memory.
type Terminal struct {
	mu           sync.Mutex
	connected    bool
	login        int64
	server       string
	currency     string
	contractSize float64
	balance      float64
	logins       map[int64]bool
	symbols      map[string]Symbol
	bars         map[string][]domain.Candle
	open         map[string]*position
	closed       map[string]float64
	nextTicket   int64
	initErr      error
	rejectReason string
	now          func() time.Time
	sessions     int
}

// New creates a Terminal from cfg.
func New(cfg Config) *Terminal {
	t := &Terminal{
		currency:     cfg.Currency,
		contractSize: cfg.ContractSize,
		balance:      cfg.Balance,
		logins:       make(map[int64]bool, len(cfg.Logins)),
		symbols:      make(map[string]Symbol, len(cfg.Symbols)),
		bars:         make(map[string][]domain.Candle),
		open:         make(map[string]*position),
		closed:       make(map[string]float64),
		nextTicket:   100000,
		now:          time.Now,
	}
	if t.currency == "" {
		t.currency = "USD"
	}
	if t.contractSize <= 0 {
		t.contractSize = DefaultContractSize
	}
	for _, l := range cfg.Logins {
		t.logins[l] = true
	}
	for name, s := range cfg.Symbols {
		t.symbols[name] = s
	}
	return t
}

// SetInitError makes every following Initialize fail with err. Pass nil to
// restore normal behaviour.
func (t *Terminal) SetInitError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initErr = err
}

// SetRejectReason makes every following order be rejected with reason.
// An empty reason restores fills.
func (t *Terminal) SetRejectReason(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejectReason = reason
}

// Sessions returns how many sessions have been opened.
func (t *Terminal) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions
}

// Connected reports whether a session is currently open.
func (t *Terminal) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// SetQuote moves the market for symbol, appends a bar to its history, and
// closes any position whose stop loss or take profit was crossed.
func (t *Terminal) SetQuote(symbol string, bid, ask float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.symbols[symbol]
	s.Bid, s.Ask = bid, ask
	t.symbols[symbol] = s

	mid := (bid + ask) / 2
	bars := append(t.bars[symbol], domain.Candle{Time: t.now().UTC(), Open: mid, High: mid, Low: mid, Close: mid})
	if len(bars) > maxBars {
		bars = bars[len(bars)-maxBars:]
	}
	t.bars[symbol] = bars

	for ticket, p := range t.open {
		if p.symbol != symbol {
			continue
		}
		exit := t.exitPriceLocked(p)
		hitSL := p.sl > 0 && ((p.direction == domain.DirectionBuy && exit <= p.sl) ||
			(p.direction == domain.DirectionSell && exit >= p.sl))
		hitTP := p.tp > 0 && ((p.direction == domain.DirectionBuy && exit >= p.tp) ||
			(p.direction == domain.DirectionSell && exit <= p.tp))
		if hitSL || hitTP {
			t.closeLocked(ticket, p)
		}
	}
}

// SetBars replaces the price history of symbol. All timeframes share it.
func (t *Terminal) SetBars(symbol string, bars []domain.Candle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]domain.Candle, len(bars))
	copy(cp, bars)
	t.bars[symbol] = cp
}

// ClosePosition closes ticket at the current market.
func (t *Terminal) ClosePosition(ticket string) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.open[ticket]
	if !ok {
		return 0, fmt.Errorf("sim: close %s: %w", ticket, domain.ErrNotFound)
	}
	return t.closeLocked(ticket, p), nil
}

func (t *Terminal) Initialize(_ context.Context, creds domain.Credentials) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.initErr != nil {
		return t.initErr
	}
	if len(t.logins) > 0 && !t.logins[creds.Login] {
		return fmt.Errorf("sim: login %d: %w", creds.Login, domain.ErrUnauthorized)
	}
	t.connected = true
	t.login = creds.Login
	t.server = creds.Server
	t.sessions++
	return nil
}

func (t *Terminal) Shutdown(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

func (t *Terminal) SymbolInfo(_ context.Context, symbol string) (domain.SymbolInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return domain.SymbolInfo{}, err
	}
	s, ok := t.symbols[symbol]
	if !ok {
		return domain.SymbolInfo{}, fmt.Errorf("sim: %s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return domain.SymbolInfo{
		Symbol:     symbol,
		Point:      s.Point,
		Digits:     s.Digits,
		VolumeMin:  0.01,
		VolumeMax:  100,
		VolumeStep: 0.01,
	}, nil
}

func (t *Terminal) SymbolTick(_ context.Context, symbol string) (domain.Quote, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return domain.Quote{}, err
	}
	s, ok := t.symbols[symbol]
	if !ok {
		return domain.Quote{}, fmt.Errorf("sim: %s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return domain.Quote{Symbol: symbol, Bid: s.Bid, Ask: s.Ask, Time: t.now().UTC()}, nil
}

func (t *Terminal) OrderSend(_ context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return domain.OrderResult{}, err
	}
	if t.rejectReason != "" {
		return domain.OrderResult{RetCode: venue.RetcodeReject, Reason: t.rejectReason}, nil
	}
	s, ok := t.symbols[req.Symbol]
	if !ok {
		return domain.OrderResult{RetCode: venue.RetcodeInvalid, Reason: "unknown symbol"}, nil
	}

	fill := s.Ask
	if req.Direction == domain.DirectionSell {
		fill = s.Bid
	}
	if req.Price > 0 && s.Point > 0 && req.Deviation >= 0 {
		if math.Abs(fill-req.Price) > float64(req.Deviation)*s.Point+s.Point/2 {
			return domain.OrderResult{RetCode: venue.RetcodeRequote, Reason: "requote"}, nil
		}
	}

	t.nextTicket++
	ticket := strconv.FormatInt(t.nextTicket, 10)
	t.open[ticket] = &position{
		ticket:    ticket,
		symbol:    req.Symbol,
		direction: req.Direction,
		volume:    req.Volume,
		openPrice: fill,
		sl:        req.SL,
		tp:        req.TP,
	}
	return domain.OrderResult{
		Accepted:  true,
		OrderID:   ticket,
		FillPrice: fill,
		RetCode:   venue.RetcodeDone,
		Reason:    "Request executed",
	}, nil
}

func (t *Terminal) AccountInfo(context.Context) (domain.AccountSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return domain.AccountSnapshot{}, err
	}
	floating := 0.0
	for _, p := range t.open {
		floating += t.profitLocked(p, t.exitPriceLocked(p))
	}
	return domain.AccountSnapshot{
		Login:    t.login,
		Server:   t.server,
		Currency: t.currency,
		Balance:  t.balance,
		Equity:   t.balance + floating,
		Profit:   floating,
	}, nil
}

func (t *Terminal) PositionsGet(context.Context) ([]domain.OpenPosition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return nil, err
	}
	out := make([]domain.OpenPosition, 0, len(t.open))
	for _, p := range t.open {
		out = append(out, domain.OpenPosition{
			Ticket:    p.ticket,
			Symbol:    p.symbol,
			Direction: p.direction,
			Volume:    p.volume,
			PriceOpen: p.openPrice,
			Profit:    t.profitLocked(p, t.exitPriceLocked(p)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

func (t *Terminal) CopyRates(_ context.Context, symbol, _ string, count int) ([]domain.Candle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return nil, err
	}
	bars, ok := t.bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("sim: rates %s: %w", symbol, domain.ErrNotFound)
	}
	if count > 0 && count < len(bars) {
		bars = bars[len(bars)-count:]
	}
	out := make([]domain.Candle, len(bars))
	copy(out, bars)
	return out, nil
}

func (t *Terminal) ClosedProfit(_ context.Context, ticket string) (float64, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return 0, false, err
	}
	if profit, ok := t.closed[ticket]; ok {
		return profit, true, nil
	}
	if _, ok := t.open[ticket]; ok {
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("sim: ticket %s: %w", ticket, domain.ErrNotFound)
}

func (t *Terminal) checkLocked() error {
	if !t.connected {
		return fmt.Errorf("sim: terminal not initialized: %w", domain.ErrConnection)
	}
	return nil
}

// exitPriceLocked is the price a position would close at: bid for longs,
// ask for shorts.
func (t *Terminal) exitPriceLocked(p *position) float64 {
	s := t.symbols[p.symbol]
	if p.direction == domain.DirectionSell {
		return s.Ask
	}
	return s.Bid
}

func (t *Terminal) profitLocked(p *position, exit float64) float64 {
	return (exit - p.openPrice) * float64(p.direction.Sign()) * p.volume * t.contractSize
}

func (t *Terminal) closeLocked(ticket string, p *position) float64 {
	profit := math.Round(t.profitLocked(p, t.exitPriceLocked(p))*100) / 100
	t.balance += profit
	t.closed[ticket] = profit
	delete(t.open, ticket)
	return profit
}
