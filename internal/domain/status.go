package domain

import "time"

// BotState is the control loop lifecycle state.
type BotState string

const (
	BotStateStopped BotState = "Stopped"
	BotStateRunning BotState = "Running"
)

// VenueStatus is the last observed venue connectivity.
type VenueStatus string

const (
	VenueDisconnected VenueStatus = "Disconnected"
	VenueConnected    VenueStatus = "Connected"
)

// StrategyFlags enables or disables each admission filter.
type StrategyFlags struct {
	UseMultiTimeframe bool `json:"use_multi_timeframe"`
	UseCorrelation    bool `json:"use_correlation"`
	UseModel          bool `json:"use_model"`
}

// StrategyConfig is an immutable, versioned set of strategy flags.
type StrategyConfig struct {
	Version   int64         `json:"version"`
	Flags     StrategyFlags `json:"flags"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BotStatus is a summary of the bot's current operational state.
type BotStatus struct {
	State         BotState    `json:"bot_status"`
	Venue         VenueStatus `json:"venue_status"`
	Account       string      `json:"account"`
	LastIteration *time.Time  `json:"last_iteration,omitempty"`
	LastError     string      `json:"last_error,omitempty"`
	Iterations    int64       `json:"iterations"`
}
