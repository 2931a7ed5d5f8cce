package domain

// TimeInForce is the venue order lifetime policy.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good-Till-Cancelled
	TimeInForceDay TimeInForce = "DAY"
)

// FillPolicy is the venue order filling policy.
type FillPolicy string

const (
	FillPolicyIOC FillPolicy = "IOC" // Immediate-Or-Cancel
	FillPolicyFOK FillPolicy = "FOK" // Fill-Or-Kill
)

// OrderRequest is a market order submitted to the venue.
type OrderRequest struct {
	Symbol      string      `json:"symbol"`
	Direction   Direction   `json:"direction"`
	Volume      float64     `json:"volume"`
	Price       float64     `json:"price"`
	SL          float64     `json:"sl"`
	TP          float64     `json:"tp"`
	Deviation   int         `json:"deviation"`
	Magic       int64       `json:"magic"`
	Comment     string      `json:"comment"`
	TimeInForce TimeInForce `json:"type_time"`
	Filling     FillPolicy  `json:"type_filling"`
}

// OrderResult is the venue's answer to an OrderRequest. A business
// rejection is reported with Accepted=false and a Reason, never as an error.
type OrderResult struct {
	Accepted  bool    `json:"accepted"`
	OrderID   string  `json:"order_id,omitempty"`
	FillPrice float64 `json:"price,omitempty"`
	RetCode   int     `json:"retcode"`
	Reason    string  `json:"comment,omitempty"`
}
