package common

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PositionSide denotes the direction of an open trade.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// OrderState normalizes the exchange fill state into a small set.
type OrderState string

const (
	StateNew      OrderState = "NEW"
	StatePartial  OrderState = "PARTIALLY_FILLED"
	StateFilled   OrderState = "FILLED"
	StateCanceled OrderState = "CANCELED"
	StateRejected OrderState = "REJECTED"
	StateExpired  OrderState = "EXPIRED"
	StateUnknown  OrderState = "UNKNOWN"
)

// Quote is the best bid/ask for a symbol. A published quote always carries
// both sides.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// Contract describes a tradable instrument. Immutable once loaded.
type Contract struct {
	Symbol        string
	Exchange      string
	BaseAsset     string
	QuoteAsset    string
	LotSize       float64 // minimum quantity increment
	TickSize      float64 // minimum price increment
	PriceDecimals int
}

// Balance holds per-asset wallet and available balances.
type Balance struct {
	Asset            string
	WalletBalance    float64
	AvailableBalance float64
}

// OrderStatus is the exchange's view of a submitted order.
type OrderStatus struct {
	OrderID     int64
	ClientID    string
	Symbol      string
	State       OrderState
	AvgPrice    float64
	ExecutedQty float64
}
