package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/crypto"
	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// gateway is a minimal fake of the MT5 HTTP gateway.
func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "k" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad api key"})
				return
			}
			next(w, r)
		}
	}
	inSession := func(next http.HandlerFunc) http.HandlerFunc {
		return authed(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(sessionHeader) != "tok-1" {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "no session"})
				return
			}
			next(w, r)
		})
	}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("POST /session", authed(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Login    int64  `json:"login"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authorization failed"})
			return
		}
		writeJSON(w, map[string]string{"token": "tok-1"})
	}))
	mux.HandleFunc("DELETE /session", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /symbols/{symbol}", inSession(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("symbol") != "EURUSD" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"symbol": "EURUSD", "point": 0.00001, "digits": 5})
	}))
	mux.HandleFunc("GET /ticks/{symbol}", inSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"symbol": r.PathValue("symbol"), "bid": 1.0999, "ask": 1.1, "time": time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)})
	}))
	mux.HandleFunc("POST /orders", inSession(func(w http.ResponseWriter, r *http.Request) {
		var req domain.OrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Volume > 10 {
			writeJSON(w, map[string]any{"retcode": 10019, "comment": "No money"})
			return
		}
		writeJSON(w, map[string]any{"retcode": 10009, "order": 555001, "price": req.Price, "comment": "Request executed"})
	}))
	mux.HandleFunc("GET /account", inSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"login": 1001, "balance": 10000, "equity": 9950, "profit": -50})
	}))
	mux.HandleFunc("GET /positions", inSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"ticket": 555001, "symbol": "EURUSD", "type": "sell", "volume": 0.2, "price_open": 1.1, "profit": -50}})
	}))
	mux.HandleFunc("GET /rates/{symbol}", inSession(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "H4", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		writeJSON(w, []map[string]any{{"close": 1.1}, {"close": 1.2}, {"close": 1.3}})
	}))
	mux.HandleFunc("GET /deals", inSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"closed": r.URL.Query().Get("position") == "555001", "profit": 12.5})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func connected(t *testing.T) *Terminal {
	t.Helper()
	srv := gateway(t)
	term := New(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 5 * time.Second})
	require.NoError(t, term.Initialize(context.Background(), domain.Credentials{Login: 1001, Password: "secret", Server: "Demo"}))
	return term
}

func TestInitializeFailures(t *testing.T) {
	t.Parallel()

	srv := gateway(t)
	ctx := context.Background()

	err := New(Config{BaseURL: srv.URL, APIKey: "wrong"}).Initialize(ctx, domain.Credentials{Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = New(Config{BaseURL: srv.URL, APIKey: "k"}).Initialize(ctx, domain.Credentials{Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Contains(t, err.Error(), "authorization failed")
}

func TestSymbolInfoAndTick(t *testing.T) {
	t.Parallel()

	term := connected(t)
	ctx := context.Background()

	info, err := term.SymbolInfo(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 0.00001, info.Point)
	assert.Equal(t, 5, info.Digits)

	_, err = term.SymbolInfo(ctx, "XYZ")
	assert.ErrorIs(t, err, domain.ErrSymbolNotFound)

	q, err := term.SymbolTick(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.1, q.Ask)
	assert.Equal(t, 1.0999, q.Bid)
}

func TestOrderSend(t *testing.T) {
	t.Parallel()

	term := connected(t)
	ctx := context.Background()

	res, err := term.OrderSend(ctx, domain.OrderRequest{Symbol: "EURUSD", Direction: domain.DirectionBuy, Volume: 0.02, Price: 1.1})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "555001", res.OrderID)
	assert.Equal(t, 1.1, res.FillPrice)

	res, err = term.OrderSend(ctx, domain.OrderRequest{Symbol: "EURUSD", Direction: domain.DirectionBuy, Volume: 20})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, 10019, res.RetCode)
	assert.Equal(t, "No money", res.Reason)
	assert.Empty(t, res.OrderID)
}

func TestAccountPositionsRatesDeals(t *testing.T) {
	t.Parallel()

	term := connected(t)
	ctx := context.Background()

	acct, err := term.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9950.0, acct.Equity)

	pos, err := term.PositionsGet(ctx)
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "555001", pos[0].Ticket)
	assert.Equal(t, domain.DirectionSell, pos[0].Direction)

	bars, err := term.CopyRates(ctx, "EURUSD", "H4", 3)
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	profit, closed, err := term.ClosedProfit(ctx, "555001")
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, 12.5, profit)
}

func TestCallsWithoutSessionFail(t *testing.T) {
	t.Parallel()

	term := connected(t)
	ctx := context.Background()
	require.NoError(t, term.Shutdown(ctx))

	_, err := term.AccountInfo(ctx)
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestSignedRequests(t *testing.T) {
	t.Parallel()

	signer := &crypto.RequestSigner{Key: "gw", Secret: "s3cret"}
	var verified []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ok := signer.Verify(r.Method, r.URL.Path, string(body), r.Header.Get(crypto.HeaderTimestamp), r.Header.Get(crypto.HeaderSignature))
		if !ok || r.Header.Get(crypto.HeaderKey) != "gw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		verified = append(verified, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-9"}`))
	}))
	t.Cleanup(srv.Close)

	term := New(Config{BaseURL: srv.URL, Signer: signer})
	ctx := context.Background()
	require.NoError(t, term.Initialize(ctx, domain.Credentials{Login: 1, Password: "p", Server: "S"}))
	require.NoError(t, term.Shutdown(ctx))
	assert.Equal(t, []string{"POST /session", "DELETE /session"}, verified)
}
