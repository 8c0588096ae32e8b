package events

// Event enumerates high-level topics inside the trading core.
type Event string

const (
	EventStrategySignal Event = "strategy.signal"
	EventOrderPlaced    Event = "order.placed"
	EventOrderFilled    Event = "order.filled"
)

// SignalPayload describes a strategy signal for journaling/display.
type SignalPayload struct {
	Strategy  string
	Symbol    string
	Timeframe string
	Direction int // +1 long, -1 short
	Time      int64
}

// OrderPayload describes an order placement or fill.
type OrderPayload struct {
	Strategy string
	Symbol   string
	OrderID  int64
	Side     string
	Quantity float64
	State    string
	AvgPrice float64
	Time     int64
}
