package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// DefaultNewsURL is the FXStreet economic calendar.
const DefaultNewsURL = "https://www.fxstreet.com/economic-calendar"

const defaultNewsLimit = 10

// CalendarSource scrapes headline items from an economic calendar page.
type CalendarSource struct {
	url    string
	limit  int
	client *resty.Client
	logger *slog.Logger
}

// NewCalendarSource creates a CalendarSource returning at most limit items
// (10 when limit is not positive).
func NewCalendarSource(cfg HTTPConfig, limit int, logger *slog.Logger) *CalendarSource {
	if cfg.URL == "" {
		cfg.URL = DefaultNewsURL
	}
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	return &CalendarSource{
		url:    cfg.URL,
		limit:  limit,
		client: newHTTPClient(cfg),
		logger: logger.With(slog.String("component", "source-news")),
	}
}

// Fetch implements NewsSource. Items without a title or time are skipped.
// The calendar markup carries no impact level, so every item reports High.
func (s *CalendarSource) Fetch(ctx context.Context) ([]domain.NewsItem, error) {
	body, err := get(ctx, s.client, s.url, "fetch calendar")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("source: parse calendar: %w: %v", domain.ErrTransientScrape, err)
	}

	items := make([]domain.NewsItem, 0, s.limit)
	doc.Find("div.news-item").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("h3").First().Text())
		at := strings.TrimSpace(sel.Find("time").First().Text())
		if title == "" || at == "" {
			s.logger.DebugContext(ctx, "skipping news item", slog.Int("index", i))
			return true
		}
		items = append(items, domain.NewsItem{
			Title:   title,
			Time:    at,
			Summary: strings.TrimSpace(sel.Find("p").First().Text()),
			Impact:  "High",
		})
		return len(items) < s.limit
	})
	return items, nil
}
