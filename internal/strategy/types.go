package strategy

import (
	"context"

	"futures-core/internal/candle"
	"futures-core/pkg/exchanges/binance/futures"
	"futures-core/pkg/exchanges/common"
)

// Signaler is the single variant-specific capability: evaluate the candle
// history and return a direction (+1 long, -1 short, 0 none).
type Signaler interface {
	EvaluateSignal(candles []candle.Candle) int
}

// Exchange is the slice of the connector strategies need to open positions.
type Exchange interface {
	GetTradeSize(ctx context.Context, contract common.Contract, price, balancePct float64) (float64, error)
	PlaceOrder(ctx context.Context, req futures.OrderRequest) (common.OrderStatus, error)
}

// Watcher resolves an unfilled order to a fill price asynchronously.
// Implementations must never invoke resolve synchronously from Watch; the
// caller may hold its own lock.
type Watcher interface {
	Watch(ctx context.Context, contract common.Contract, orderID int64, strategyName string, resolve func(avgPrice float64))
}

// Trade is one position opened by a strategy. EntryPrice is written exactly
// once, by the order lifecycle tracker or immediately on a filled order.
type Trade struct {
	Time         int64               `json:"time"`
	Symbol       string              `json:"symbol"`
	Strategy     string              `json:"strategy"`
	Side         common.PositionSide `json:"side"`
	Status       string              `json:"status"` // open | closed
	Quantity     float64             `json:"quantity"`
	EntryOrderID int64               `json:"entry_order_id"`
	EntryPrice   float64             `json:"entry_price"`
	HasEntry     bool                `json:"has_entry"`
	PnL          float64             `json:"pnl"`
	Displayed    bool                `json:"displayed"`
}

// LogEntry is one line of strategy activity for the display collaborator.
type LogEntry struct {
	Time      int64  `json:"time"`
	Message   string `json:"message"`
	Displayed bool   `json:"displayed"`
}
