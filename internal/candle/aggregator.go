package candle

import (
	"log"
	"time"
)

// Source tags how a candle came to exist.
type Source string

const (
	SourceLive     Source = "live"     // built from streamed trades
	SourceBackfill Source = "backfill" // synthetic gap fill
	SourceSeed     Source = "seed"     // historical warm-up
)

// Candle is one fixed-interval OHLCV bar. OpenTime is aligned to the
// timeframe boundary fixed at seeding; only the newest candle of a sequence
// is ever mutated in place.
type Candle struct {
	Timeframe string  `json:"timeframe"`
	OpenTime  int64   `json:"open_time"` // ms
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Source    Source  `json:"source"`
}

// Event classifies what a tick did to the candle sequence.
type Event int

const (
	// EventSame means the tick updated the currently open candle.
	EventSame Event = iota
	// EventNew means at least one candle was appended.
	EventNew
)

// Timeframes maps supported timeframe tags to their duration.
var Timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
}

// staleSkewMs is the wall-clock-to-trade-timestamp skew that triggers a
// staleness warning.
const staleSkewMs = 2000

// Aggregator turns a stream of trade ticks into an append-only candle
// sequence for one (symbol, timeframe). It must be seeded with at least one
// candle before the first tick; its caller is the sole writer.
type Aggregator struct {
	symbol    string
	timeframe string
	durMs     int64
	candles   []Candle
	now       func() int64 // ms wall clock, swappable in tests
}

// NewAggregator creates an aggregator seeded with one or more candles.
// Seeding with an empty slice is a programming error.
func NewAggregator(symbol, timeframe string, seed []Candle) *Aggregator {
	if len(seed) == 0 {
		panic("candle: aggregator requires a non-empty seed")
	}
	d, ok := Timeframes[timeframe]
	if !ok {
		panic("candle: unknown timeframe " + timeframe)
	}
	return &Aggregator{
		symbol:    symbol,
		timeframe: timeframe,
		durMs:     d.Milliseconds(),
		candles:   seed,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Candles returns the underlying sequence. The slice is owned by the
// aggregator; callers on the ingest goroutine may read it, everyone else
// goes through a strategy snapshot.
func (a *Aggregator) Candles() []Candle { return a.candles }

// Last returns the most recent candle.
func (a *Aggregator) Last() Candle { return a.candles[len(a.candles)-1] }

// Ingest classifies a trade tick against the last candle's open time t0 and
// the timeframe duration D:
//
//	ts <  t0+D   same interval: update the open candle in place
//	ts <  t0+2D  first trade of the next interval: append a tick-seeded candle
//	ts >= t0+2D  gap: append flat candles for every elapsed interval, then a
//	             tick-seeded candle on the following interval
//
// The alignment boundary never moves; comparisons are against the stored
// sequence, wall clock is only consulted for the staleness warning.
func (a *Aggregator) Ingest(price, size float64, ts int64) Event {
	if skew := a.now() - ts; skew >= staleSkewMs {
		log.Printf("binance %s %s: trade timestamp %d ms behind wall clock", a.symbol, a.timeframe, skew)
	}

	last := &a.candles[len(a.candles)-1]
	t0 := last.OpenTime

	switch {
	case ts < t0+a.durMs:
		last.Close = price
		if price > last.High {
			last.High = price
		}
		if price < last.Low {
			last.Low = price
		}
		last.Volume += size
		return EventSame

	case ts < t0+2*a.durMs:
		a.append(a.tickCandle(t0+a.durMs, price, size))
		return EventNew

	default:
		flat := (ts - t0) / a.durMs
		log.Printf("binance %s %s: filling %d missing candles (%d %d)", a.symbol, a.timeframe, flat, ts, t0)
		for i := int64(0); i < flat; i++ {
			prev := a.Last()
			a.append(Candle{
				Timeframe: a.timeframe,
				OpenTime:  prev.OpenTime + a.durMs,
				Open:      prev.Close,
				High:      prev.Close,
				Low:       prev.Close,
				Close:     prev.Close,
				Volume:    0,
				Source:    SourceBackfill,
			})
		}
		a.append(a.tickCandle(a.Last().OpenTime+a.durMs, price, size))
		return EventNew
	}
}

func (a *Aggregator) tickCandle(openTime int64, price, size float64) Candle {
	return Candle{
		Timeframe: a.timeframe,
		OpenTime:  openTime,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    size,
		Source:    SourceLive,
	}
}

func (a *Aggregator) append(c Candle) {
	a.candles = append(a.candles, c)
}
