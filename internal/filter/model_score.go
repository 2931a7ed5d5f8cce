package filter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/risk"
)

// Scorer estimates the probability that a signal reaches its target.
type Scorer interface {
	Score(ctx context.Context, sig domain.Signal) (float64, error)
}

// ModelScore admits signals whose score is at least Threshold.
type ModelScore struct {
	scorer    Scorer
	threshold float64
	logger    *slog.Logger
}

// NewModelScore creates the filter. threshold <= 0 means 0.55.
func NewModelScore(scorer Scorer, threshold float64, logger *slog.Logger) *ModelScore {
	if threshold <= 0 {
		threshold = 0.55
	}
	return &ModelScore{
		scorer:    scorer,
		threshold: threshold,
		logger:    logger.With(slog.String("component", "filter"), slog.String("filter", NameModel)),
	}
}

func (m *ModelScore) Name() string { return NameModel }

func (m *ModelScore) Evaluate(ctx context.Context, sig domain.Signal) bool {
	p, err := m.scorer.Score(ctx, sig)
	if err != nil {
		m.logger.WarnContext(ctx, "scoring failed",
			slog.String("symbol", sig.Symbol),
			slog.String("error", err.Error()),
		)
		return false
	}
	if math.IsNaN(p) {
		return false
	}
	return p >= m.threshold
}

// LogisticScorer is a one-feature logistic model over the signal's
// reward to risk ratio.
type LogisticScorer struct {
	Intercept float64
	RRWeight  float64
}

// DefaultLogisticScorer scores 0.5 at a 1:1 ratio and 0.73 at 2:1.
func DefaultLogisticScorer() LogisticScorer {
	return LogisticScorer{Intercept: -1, RRWeight: 1}
}

func (l LogisticScorer) Score(_ context.Context, sig domain.Signal) (float64, error) {
	rr := risk.RR(sig.Entry, sig.SL, sig.TP)
	if rr == 0 {
		return 0, nil
	}
	return 1 / (1 + math.Exp(-(l.Intercept + l.RRWeight*rr))), nil
}

// RemoteScorer asks an HTTP model endpoint for the score.
type RemoteScorer struct {
	http *resty.Client
	path string
}

// NewRemoteScorer posts signals to baseURL+path.
func NewRemoteScorer(baseURL, path, apiKey string, timeout time.Duration) *RemoteScorer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := resty.New().SetBaseURL(baseURL).SetTimeout(timeout)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	if path == "" {
		path = "/score"
	}
	return &RemoteScorer{http: c, path: path}
}

func (r *RemoteScorer) Score(ctx context.Context, sig domain.Signal) (float64, error) {
	var out struct {
		Score *float64 `json:"score"`
	}
	resp, err := r.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"symbol":    sig.Symbol,
			"direction": sig.Direction,
			"entry":     sig.Entry,
			"sl":        sig.SL,
			"tp":        sig.TP,
			"rr":        risk.RR(sig.Entry, sig.SL, sig.TP),
		}).
		SetResult(&out).
		Post(r.path)
	if err != nil {
		return 0, fmt.Errorf("filter: score request: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("filter: score request: status %d", resp.StatusCode())
	}
	if out.Score == nil {
		return 0, fmt.Errorf("filter: score response missing score")
	}
	return *out.Score, nil
}
