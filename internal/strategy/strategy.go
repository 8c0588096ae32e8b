package strategy

import (
	"context"
	"log"
	"sync"
	"time"

	"futures-core/internal/candle"
	"futures-core/internal/events"
	"futures-core/pkg/exchanges/binance/futures"
	"futures-core/pkg/exchanges/common"
)

// Strategy holds the shared lifecycle for one (contract, timeframe, kind):
// candle aggregation, signal gating, open trades and their PnL, and per-run
// log entries. Variant-specific logic lives behind the Signaler.
//
// All mutable state is guarded by mu; OnTick/OnQuote are driven by the single
// feed goroutine while the tracker and the display API read and write
// concurrently.
type Strategy struct {
	mu sync.Mutex

	name       string
	kind       string
	contract   common.Contract
	timeframe  string
	balancePct float64

	signaler Signaler
	exchange Exchange
	watcher  Watcher
	bus      *events.Bus

	agg     *candle.Aggregator
	ongoing bool
	trades  []*Trade
	logs    []*LogEntry
}

// New builds a strategy instance. The aggregator is created on Seed or
// lazily from the first live tick.
func New(name, kind string, contract common.Contract, timeframe string, balancePct float64,
	signaler Signaler, exchange Exchange, watcher Watcher, bus *events.Bus) *Strategy {
	return &Strategy{
		name:       name,
		kind:       kind,
		contract:   contract,
		timeframe:  timeframe,
		balancePct: balancePct,
		signaler:   signaler,
		exchange:   exchange,
		watcher:    watcher,
		bus:        bus,
	}
}

// Name returns the instance name.
func (s *Strategy) Name() string { return s.name }

// Kind returns the variant kind tag.
func (s *Strategy) Kind() string { return s.kind }

// Symbol returns the bound contract symbol.
func (s *Strategy) Symbol() string { return s.contract.Symbol }

// Timeframe returns the candle timeframe tag.
func (s *Strategy) Timeframe() string { return s.timeframe }

// Seed installs historical candles as the aggregator's starting sequence.
func (s *Strategy) Seed(candles []candle.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(candles) == 0 {
		return
	}
	s.agg = candle.NewAggregator(s.contract.Symbol, s.timeframe, candles)
}

// OnTick feeds one trade tick through the aggregator and, on a completed
// candle, runs the signal check.
func (s *Strategy) OnTick(ctx context.Context, price, size float64, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agg == nil {
		// Warm-up fetch failed earlier; seed from the first live trade so the
		// aggregator never starts empty.
		d := candle.Timeframes[s.timeframe].Milliseconds()
		s.agg = candle.NewAggregator(s.contract.Symbol, s.timeframe, []candle.Candle{{
			Timeframe: s.timeframe,
			OpenTime:  ts - ts%d,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    size,
			Source:    candle.SourceLive,
		}})
		return
	}

	ev := s.agg.Ingest(price, size, ts)
	s.checkSignal(ctx, ev)
}

// checkSignal opens a position when a new candle closes, the variant signals
// a direction, and no position is ongoing. Called with mu held.
func (s *Strategy) checkSignal(ctx context.Context, ev candle.Event) {
	if ev != candle.EventNew || s.ongoing {
		return
	}
	direction := s.signaler.EvaluateSignal(s.agg.Candles())
	if direction == 0 {
		return
	}
	s.openPosition(ctx, direction)
}

// openPosition sizes and submits a market order on the signaled side and
// records the open trade. Called with mu held.
func (s *Strategy) openPosition(ctx context.Context, direction int) {
	lastClose := s.agg.Last().Close
	size, err := s.exchange.GetTradeSize(ctx, s.contract, lastClose, s.balancePct)
	if err != nil || size <= 0 {
		log.Printf("strategy %s: cannot size trade: %v", s.name, err)
		return
	}

	side := common.SideSell
	posSide := common.PositionShort
	if direction > 0 {
		side = common.SideBuy
		posSide = common.PositionLong
	}
	s.addLog(string(posSide) + " signal on " + s.contract.Symbol + " " + s.timeframe)
	if s.bus != nil {
		s.bus.Publish(events.EventStrategySignal, events.SignalPayload{
			Strategy:  s.name,
			Symbol:    s.contract.Symbol,
			Timeframe: s.timeframe,
			Direction: direction,
			Time:      time.Now().UnixMilli(),
		})
	}

	status, err := s.exchange.PlaceOrder(ctx, futures.OrderRequest{
		Contract: s.contract,
		Type:     common.OrderTypeMarket,
		Side:     side,
		Quantity: size,
	})
	if err != nil {
		log.Printf("strategy %s: order rejected: %v", s.name, err)
		return
	}
	s.addLog(string(side) + " order placed | status " + string(status.State))
	s.ongoing = true

	trade := &Trade{
		Time:         time.Now().UnixMilli(),
		Symbol:       s.contract.Symbol,
		Strategy:     s.name,
		Side:         posSide,
		Status:       "open",
		Quantity:     size,
		EntryOrderID: status.OrderID,
	}
	if status.State == common.StateFilled && status.AvgPrice > 0 {
		trade.EntryPrice = status.AvgPrice
		trade.HasEntry = true
	} else if s.watcher != nil {
		orderID := status.OrderID
		s.watcher.Watch(ctx, s.contract, orderID, s.name, func(avgPrice float64) {
			s.ResolveEntry(orderID, avgPrice)
		})
	}
	s.trades = append(s.trades, trade)

	if s.bus != nil {
		s.bus.Publish(events.EventOrderPlaced, events.OrderPayload{
			Strategy: s.name,
			Symbol:   s.contract.Symbol,
			OrderID:  status.OrderID,
			Side:     string(side),
			Quantity: size,
			State:    string(status.State),
			AvgPrice: status.AvgPrice,
			Time:     time.Now().UnixMilli(),
		})
	}
}

// ResolveEntry writes the fill price into the trade opened by orderID.
// The entry price is written exactly once; later calls are ignored.
func (s *Strategy) ResolveEntry(orderID int64, avgPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.EntryOrderID != orderID {
			continue
		}
		if t.HasEntry {
			return
		}
		t.EntryPrice = avgPrice
		t.HasEntry = true
		s.addLog("entry price for " + s.contract.Symbol + " resolved")
		return
	}
}

// OnQuote recomputes unrealized PnL for open trades from a fresh bid/ask.
func (s *Strategy) OnQuote(q common.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.Status != "open" || !t.HasEntry {
			continue
		}
		switch t.Side {
		case common.PositionLong:
			t.PnL = (q.Bid - t.EntryPrice) * t.Quantity
		case common.PositionShort:
			t.PnL = (t.EntryPrice - q.Ask) * t.Quantity
		}
	}
}

// Ongoing reports whether a position is currently open.
func (s *Strategy) Ongoing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ongoing
}

// Trades returns a snapshot of the trade list.
func (s *Strategy) Trades() []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Trade, len(s.trades))
	for i, t := range s.trades {
		out[i] = *t
	}
	return out
}

// MarkTradesDisplayed sets the displayed flag on every trade.
func (s *Strategy) MarkTradesDisplayed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		t.Displayed = true
	}
}

// Logs returns a snapshot of the log entries.
func (s *Strategy) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.logs))
	for i, l := range s.logs {
		out[i] = *l
	}
	return out
}

// MarkLogsDisplayed sets the displayed flag on every log entry.
func (s *Strategy) MarkLogsDisplayed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		l.Displayed = true
	}
}

// addLog records a log entry for the display layer. Called with mu held.
func (s *Strategy) addLog(msg string) {
	log.Printf("strategy %s: %s", s.name, msg)
	s.logs = append(s.logs, &LogEntry{Time: time.Now().UnixMilli(), Message: msg})
}
