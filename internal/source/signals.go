package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/id"
)

// JSONSource reads a JSON array of signals from an HTTP endpoint.
type JSONSource struct {
	url    string
	client *resty.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewJSONSource creates a JSONSource.
func NewJSONSource(cfg HTTPConfig, logger *slog.Logger) *JSONSource {
	return &JSONSource{
		url:    cfg.URL,
		client: newHTTPClient(cfg).SetHeader("Accept", "application/json"),
		logger: logger.With(slog.String("component", "source-json")),
		now:    time.Now,
	}
}

// Name implements SignalSource.
func (s *JSONSource) Name() string { return "json" }

type wireSignal struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Direction string      `json:"direction"`
	Entry     json.Number `json:"entry"`
	SL        json.Number `json:"sl"`
	TP        json.Number `json:"tp"`
}

// Fetch implements SignalSource. Entries that cannot be parsed are skipped.
func (s *JSONSource) Fetch(ctx context.Context) ([]domain.Signal, error) {
	body, err := get(ctx, s.client, s.url, "fetch signals")
	if err != nil {
		return nil, err
	}
	var wire []wireSignal
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("source: decode signals: %w: %v", domain.ErrTransientScrape, err)
	}

	now := s.now().UTC()
	out := make([]domain.Signal, 0, len(wire))
	for _, w := range wire {
		sig, err := buildSignal(w.Symbol, w.Direction, w.Entry.String(), w.SL.String(), w.TP.String())
		if err != nil {
			s.logger.WarnContext(ctx, "skipping signal", slog.String("error", err.Error()))
			continue
		}
		sig.ID = w.ID
		if sig.ID == "" {
			sig.ID = id.NewUUID()
		}
		sig.Source = s.Name()
		sig.ReceivedAt = now
		out = append(out, sig)
	}
	return out, nil
}

// HTMLSource scrapes signal cards from an analytics page. Each card is an
// element matching CardSelector with child elements for the fields.
type HTMLSource struct {
	url    string
	sel    HTMLSelectors
	client *resty.Client
	logger *slog.Logger
	now    func() time.Time
}

// HTMLSelectors names the CSS selectors used to read a signal card.
type HTMLSelectors struct {
	Card      string
	Symbol    string
	Direction string
	Entry     string
	SL        string
	TP        string
}

// DefaultHTMLSelectors matches the analyst views page layout.
func DefaultHTMLSelectors() HTMLSelectors {
	return HTMLSelectors{
		Card:      ".signal-card",
		Symbol:    ".symbol",
		Direction: ".direction",
		Entry:     ".entry",
		SL:        ".sl",
		TP:        ".tp",
	}
}

// NewHTMLSource creates an HTMLSource. Empty selectors fall back to
// DefaultHTMLSelectors.
func NewHTMLSource(cfg HTTPConfig, sel HTMLSelectors, logger *slog.Logger) *HTMLSource {
	def := DefaultHTMLSelectors()
	if sel.Card == "" {
		sel.Card = def.Card
	}
	if sel.Symbol == "" {
		sel.Symbol = def.Symbol
	}
	if sel.Direction == "" {
		sel.Direction = def.Direction
	}
	if sel.Entry == "" {
		sel.Entry = def.Entry
	}
	if sel.SL == "" {
		sel.SL = def.SL
	}
	if sel.TP == "" {
		sel.TP = def.TP
	}
	return &HTMLSource{
		url:    cfg.URL,
		sel:    sel,
		client: newHTTPClient(cfg),
		logger: logger.With(slog.String("component", "source-html")),
		now:    time.Now,
	}
}

// Name implements SignalSource.
func (s *HTMLSource) Name() string { return "html" }

// Fetch implements SignalSource. Cards with missing or malformed fields are
// skipped.
func (s *HTMLSource) Fetch(ctx context.Context) ([]domain.Signal, error) {
	body, err := get(ctx, s.client, s.url, "fetch signal page")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("source: parse signal page: %w: %v", domain.ErrTransientScrape, err)
	}

	now := s.now().UTC()
	var out []domain.Signal
	doc.Find(s.sel.Card).Each(func(i int, card *goquery.Selection) {
		text := func(sel string) string { return strings.TrimSpace(card.Find(sel).First().Text()) }
		sig, err := buildSignal(text(s.sel.Symbol), text(s.sel.Direction), text(s.sel.Entry), text(s.sel.SL), text(s.sel.TP))
		if err != nil {
			s.logger.WarnContext(ctx, "skipping signal card",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			return
		}
		sig.ID = id.NewUUID()
		sig.Source = s.Name()
		sig.ReceivedAt = now
		out = append(out, sig)
	})
	return out, nil
}

func buildSignal(symbol, direction, entry, sl, tp string) (domain.Signal, error) {
	dir, err := domain.ParseDirection(direction)
	if err != nil {
		return domain.Signal{}, err
	}
	sig := domain.Signal{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), Direction: dir}
	if sig.Entry, err = parsePrice(entry); err != nil {
		return domain.Signal{}, fmt.Errorf("entry: %w", err)
	}
	if sig.SL, err = parsePrice(sl); err != nil {
		return domain.Signal{}, fmt.Errorf("sl: %w", err)
	}
	if sig.TP, err = parsePrice(tp); err != nil {
		return domain.Signal{}, fmt.Errorf("tp: %w", err)
	}
	return sig, nil
}
