package domain

import "time"

// PerformanceMetrics is the aggregate view published to readers.
type PerformanceMetrics struct {
	WinRate     float64   `json:"win_rate"`
	Drawdown    float64   `json:"drawdown"`
	Exposure    float64   `json:"exposure"`
	TotalTrades int       `json:"total_trades"`
	Profit      float64   `json:"profit"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EquitySnapshot is one point of the account equity curve.
type EquitySnapshot struct {
	Time     time.Time `json:"time"`
	Account  string    `json:"account"`
	Balance  float64   `json:"balance"`
	Equity   float64   `json:"equity"`
	Profit   float64   `json:"profit"`
	Drawdown float64   `json:"drawdown"`
}

// NewsItem is one economic calendar headline.
type NewsItem struct {
	Title   string `json:"title"`
	Time    string `json:"time"`
	Summary string `json:"summary"`
	Impact  string `json:"impact"`
}
