// Package source fetches trade signals and economic news from external
// sites. Every failure is reported as domain.ErrTransientScrape; the control
// loop treats it as an empty result for the iteration.
package source

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; fxscalper/1.0)"
)

// SignalSource produces the current set of published signals.
type SignalSource interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Signal, error)
}

// NewsSource produces the current economic calendar headlines.
type NewsSource interface {
	Fetch(ctx context.Context) ([]domain.NewsItem, error)
}

// HTTPConfig holds the transport settings shared by all scrapers.
type HTTPConfig struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	// Token is sent as a bearer token when set.
	Token string
	// Cookie is sent verbatim when set, for sites behind a login.
	Cookie string
}

func newHTTPClient(cfg HTTPConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", ua)
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	if cfg.Cookie != "" {
		c.SetHeader("Cookie", cfg.Cookie)
	}
	return c
}

// get performs a GET and returns the body, mapping every failure to
// ErrTransientScrape.
func get(ctx context.Context, c *resty.Client, url, what string) ([]byte, error) {
	resp, err := c.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", what, domain.ErrTransientScrape, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("source: %s: %w: HTTP %d", what, domain.ErrTransientScrape, resp.StatusCode())
	}
	return resp.Body(), nil
}

// parsePrice reads a price cell, tolerating surrounding whitespace and
// thousands separators. NaN and infinities are rejected.
func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q: not finite", s)
	}
	return v, nil
}
