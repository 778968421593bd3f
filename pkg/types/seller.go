package types

import "time"

// TrustStats holds the rolling counters the trust engine recomputes from.
type TrustStats struct {
	TotalOrders        int `json:"total_orders"`
	Delivered          int `json:"delivered"`
	CancelledBySeller  int `json:"cancelled_by_seller"`
	ReturnsApproved    int `json:"returns_approved"`
	SellerFaultReturns int `json:"seller_fault_returns"`
	CODRTOCount        int `json:"cod_rto_count"`
}

// TrustSnapshot is the persisted output of the trust recompute. BaseScore
// accumulates event deltas; Score is the recomputed total including bonuses.
type TrustSnapshot struct {
	Score      int        `json:"score"`
	BaseScore  int        `json:"base_score"`
	Badges     []string   `json:"badges,omitempty"`
	Stats      TrustStats `json:"stats"`
	ComputedAt *time.Time `json:"computed_at,omitempty"`
}

// ProbationRestrictions caps what a probated seller may do.
type ProbationRestrictions struct {
	CODEnabled         bool  `json:"cod_enabled"`
	MaxDailyOrders     int   `json:"max_daily_orders"`
	MaxOrderValuePaise int64 `json:"max_order_value_paise"`
}

// Probation is an admin-applied temporary restriction window.
type Probation struct {
	Active       bool                  `json:"active"`
	Reason       string                `json:"reason,omitempty"`
	Restrictions ProbationRestrictions `json:"restrictions"`
	EndsAt       *time.Time            `json:"ends_at,omitempty"`
}

// ServiceableArea marks a pincode a seller delivers to.
type ServiceableArea struct {
	Pincode         string `json:"pincode"`
	DeliveryEnabled bool   `json:"delivery_enabled"`
}

// Address is a buyer shipping address.
type Address struct {
	ID      string `json:"id"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone,omitempty"`
}

// BuyerRisk tracks buyer-side abuse signals.
type BuyerRisk struct {
	Blocked         bool       `json:"blocked"`
	HighRisk        bool       `json:"high_risk"`
	OrdersCount     int        `json:"orders_count"`
	ReturnCount     int        `json:"return_count"`
	CODRTOCount     int        `json:"cod_rto_count"`
	CODDisabled     bool       `json:"cod_disabled"`
	LastOrderAt     *time.Time `json:"last_order_at,omitempty"`
	LastReturnAt    *time.Time `json:"last_return_at,omitempty"`
	LastCODRTOAt    *time.Time `json:"last_cod_rto_at,omitempty"`
}
