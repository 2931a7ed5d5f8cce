// Package bridge drives a MetaTrader 5 terminal through an HTTP gateway
// running next to it. The gateway exposes the terminal calls one to one.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/fxscalper/internal/crypto"
	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/venue"
)

const sessionHeader = "X-Session-Token"

// Config holds gateway connection parameters.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Signer, when set, adds HMAC signature headers to every request.
	Signer *crypto.RequestSigner
}

// Terminal implements venue.Terminal against the gateway.
type Terminal struct {
	http  *resty.Client
	mu    sync.Mutex
	token string
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// New creates a gateway Terminal.
func New(cfg Config) *Terminal {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})
	if cfg.APIKey != "" {
		c.SetHeader("X-API-Key", cfg.APIKey)
	}
	if cfg.Signer != nil {
		c.OnBeforeRequest(signRequest(cfg.Signer))
	}
	return &Terminal{http: c}
}

// signRequest encodes the body up front so the signed bytes are the ones
// sent.
func signRequest(s *crypto.RequestSigner) resty.RequestMiddleware {
	return func(_ *resty.Client, r *resty.Request) error {
		var body []byte
		if r.Body != nil {
			b, err := json.Marshal(r.Body)
			if err != nil {
				return fmt.Errorf("bridge: sign: %w", err)
			}
			body = b
			r.SetBody(body)
			r.SetHeader("Content-Type", "application/json")
		}
		for k, v := range s.Headers(r.Method, r.URL, string(body)) {
			r.SetHeader(k, v)
		}
		return nil
	}
}

func (t *Terminal) request(ctx context.Context) *resty.Request {
	t.mu.Lock()
	token := t.token
	t.mu.Unlock()

	r := t.http.R().SetContext(ctx)
	if token != "" {
		r.SetHeader(sessionHeader, token)
	}
	return r
}

// check converts transport errors and non-2xx responses into errors.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("bridge: %s: %w", op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.text() != "" {
		msg = e.text()
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("bridge: %s: %s: %w", op, msg, domain.ErrUnauthorized)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("bridge: %s: %s: %w", op, msg, domain.ErrConnection)
	case http.StatusNotFound:
		return fmt.Errorf("bridge: %s: %s: %w", op, msg, domain.ErrNotFound)
	default:
		return fmt.Errorf("bridge: %s: status %d: %s", op, resp.StatusCode(), msg)
	}
}

func (t *Terminal) Initialize(ctx context.Context, creds domain.Credentials) error {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := t.request(ctx).
		SetBody(map[string]any{
			"login":    creds.Login,
			"password": creds.Password,
			"server":   creds.Server,
		}).
		SetResult(&out).
		Post("/session")
	if err := check("initialize", resp, err); err != nil {
		return err
	}

	t.mu.Lock()
	t.token = out.Token
	t.mu.Unlock()
	return nil
}

func (t *Terminal) Shutdown(ctx context.Context) error {
	resp, err := t.request(ctx).Delete("/session")

	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()

	return check("shutdown", resp, err)
}

func (t *Terminal) SymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	var info domain.SymbolInfo
	resp, err := t.request(ctx).
		SetResult(&info).
		Get("/symbols/" + url.PathEscape(symbol))
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return domain.SymbolInfo{}, fmt.Errorf("bridge: symbol_info %s: %w", symbol, domain.ErrSymbolNotFound)
	}
	if err := check("symbol_info", resp, err); err != nil {
		return domain.SymbolInfo{}, err
	}
	if info.Symbol == "" {
		info.Symbol = symbol
	}
	return info, nil
}

func (t *Terminal) SymbolTick(ctx context.Context, symbol string) (domain.Quote, error) {
	var q domain.Quote
	resp, err := t.request(ctx).
		SetResult(&q).
		Get("/ticks/" + url.PathEscape(symbol))
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return domain.Quote{}, fmt.Errorf("bridge: symbol_info_tick %s: %w", symbol, domain.ErrSymbolNotFound)
	}
	if err := check("symbol_info_tick", resp, err); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

type orderResponse struct {
	RetCode int             `json:"retcode"`
	Order   json.Number     `json:"order"`
	Price   float64         `json:"price"`
	Comment string          `json:"comment"`
	Request json.RawMessage `json:"request,omitempty"`
}

func (t *Terminal) OrderSend(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	var out orderResponse
	resp, err := t.request(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/orders")
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("bridge: order_send: %w", err)
	}
	// The gateway answers 200 with a retcode for every order the terminal
	// saw, and 4xx/5xx only when it could not reach the terminal.
	if !resp.IsSuccess() {
		return domain.OrderResult{}, check("order_send", resp, nil)
	}

	res := domain.OrderResult{
		RetCode:   out.RetCode,
		FillPrice: out.Price,
		Reason:    out.Comment,
	}
	if out.RetCode == venue.RetcodeDone {
		res.Accepted = true
		res.OrderID = out.Order.String()
	}
	return res, nil
}

func (t *Terminal) AccountInfo(ctx context.Context) (domain.AccountSnapshot, error) {
	var acct domain.AccountSnapshot
	resp, err := t.request(ctx).SetResult(&acct).Get("/account")
	if err := check("account_info", resp, err); err != nil {
		return domain.AccountSnapshot{}, err
	}
	return acct, nil
}

type wirePosition struct {
	Ticket    json.Number `json:"ticket"`
	Symbol    string      `json:"symbol"`
	Type      string      `json:"type"`
	Volume    float64     `json:"volume"`
	PriceOpen float64     `json:"price_open"`
	Profit    float64     `json:"profit"`
}

func (t *Terminal) PositionsGet(ctx context.Context) ([]domain.OpenPosition, error) {
	var wire []wirePosition
	resp, err := t.request(ctx).SetResult(&wire).Get("/positions")
	if err := check("positions_get", resp, err); err != nil {
		return nil, err
	}
	out := make([]domain.OpenPosition, 0, len(wire))
	for _, w := range wire {
		dir, err := domain.ParseDirection(w.Type)
		if err != nil {
			dir = domain.DirectionBuy
		}
		out = append(out, domain.OpenPosition{
			Ticket:    w.Ticket.String(),
			Symbol:    w.Symbol,
			Direction: dir,
			Volume:    w.Volume,
			PriceOpen: w.PriceOpen,
			Profit:    w.Profit,
		})
	}
	return out, nil
}

func (t *Terminal) CopyRates(ctx context.Context, symbol, timeframe string, count int) ([]domain.Candle, error) {
	var bars []domain.Candle
	resp, err := t.request(ctx).
		SetQueryParams(map[string]string{
			"timeframe": timeframe,
			"count":     strconv.Itoa(count),
		}).
		SetResult(&bars).
		Get("/rates/" + url.PathEscape(symbol))
	if err := check("copy_rates", resp, err); err != nil {
		return nil, err
	}
	return bars, nil
}

func (t *Terminal) ClosedProfit(ctx context.Context, ticket string) (float64, bool, error) {
	var out struct {
		Closed bool    `json:"closed"`
		Profit float64 `json:"profit"`
	}
	resp, err := t.request(ctx).
		SetQueryParam("position", ticket).
		SetResult(&out).
		Get("/deals")
	if err := check("history_deals", resp, err); err != nil {
		return 0, false, err
	}
	return out.Profit, out.Closed, nil
}
