package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

type captureSender struct {
	name   string
	err    error
	titles []string
}

func (c *captureSender) Send(_ context.Context, title, _ string) error {
	c.titles = append(c.titles, title)
	return c.err
}

func (c *captureSender) Name() string { return c.name }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifierFiltersEvents(t *testing.T) {
	t.Parallel()

	s := &captureSender{name: "cap"}
	n := NewNotifier([]Sender{s}, nil, discard())

	n.Publish(context.Background(), domain.Event{Type: domain.EventMetrics})
	assert.Empty(t, s.titles, "metrics are not in the default list")

	n.Publish(context.Background(), domain.Event{
		Type: domain.EventTradeExecuted,
		Data: domain.Position{Symbol: "EURUSD", Direction: domain.DirectionBuy, Volume: 0.02, OrderID: "7"},
	})
	assert.Equal(t, []string{"Trade executed"}, s.titles)
}

func TestNotifierContinuesAfterSenderFailure(t *testing.T) {
	t.Parallel()

	bad := &captureSender{name: "bad", err: errors.New("boom")}
	good := &captureSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, []string{"custom"}, discard())

	err := n.NotifyAll(context.Background(), "hello", "world")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, []string{"hello"}, good.titles)

	n.Publish(context.Background(), domain.Event{Type: "custom"})
	assert.Len(t, good.titles, 2)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	title, msg := Format(domain.Event{
		Type: domain.EventTradeRejected,
		Data: domain.Rejection{Signal: domain.Signal{Symbol: "EURUSD", Direction: domain.DirectionSell, Entry: 1.1}, RetCode: 10006, Reason: "no prices"},
	})
	assert.Equal(t, "Trade rejected", title)
	assert.Contains(t, msg, "10006")
	assert.Contains(t, msg, "no prices")

	title, _ = Format(domain.Event{Type: domain.EventBotState, Data: domain.BotStatus{State: domain.BotStateRunning}})
	assert.Equal(t, "Bot running", title)

	title, msg = Format(domain.Event{Type: domain.EventLoopError, Data: map[string]string{"error": "panic"}})
	assert.Equal(t, "Loop error", title)
	assert.Equal(t, "panic", msg)

	title, _ = Format(domain.Event{Type: domain.EventTradeClosed, Data: domain.Position{Profit: 12}})
	assert.Equal(t, "Trade closed", title)
}

func TestTelegramSender(t *testing.T) {
	t.Parallel()

	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "abc", "42")
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
	assert.Equal(t, "/botabc/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "*Title*\nbody", body["text"])
}

func TestDiscordSenderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad webhook")
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
