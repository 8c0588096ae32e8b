package market

import (
	"context"

	"futures-core/internal/quote"
	"futures-core/internal/strategy"
	"futures-core/pkg/exchanges/common"
	market "futures-core/pkg/market/binance"
)

// Stream is the slice of the market data client the feed consumes.
type Stream interface {
	Run(ctx context.Context, symbols []string)
	Quotes() <-chan market.QuoteUpdate
	Trades() <-chan market.TradeTick
}

// Feed drains the market data stream into the quote cache and the bound
// strategies. One goroutine owns the dispatch loop for the process lifetime;
// it is the sole writer of streaming quote merges and the sole driver of
// candle aggregation and signal evaluation.
type Feed struct {
	stream     Stream
	quotes     *quote.Cache
	strategies map[string][]*strategy.Strategy // by symbol
	symbols    []string
}

// NewFeed wires a stream client to the shared quote cache.
func NewFeed(stream Stream, quotes *quote.Cache, symbols []string) *Feed {
	return &Feed{
		stream:     stream,
		quotes:     quotes,
		strategies: make(map[string][]*strategy.Strategy),
		symbols:    symbols,
	}
}

// Bind attaches a strategy to its symbol's quote and trade events.
func (f *Feed) Bind(s *strategy.Strategy) {
	f.strategies[s.Symbol()] = append(f.strategies[s.Symbol()], s)
}

// Start launches the stream connection and the dispatch loop.
func (f *Feed) Start(ctx context.Context) {
	go f.stream.Run(ctx, f.symbols)
	go f.dispatch(ctx)
}

func (f *Feed) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case u := <-f.stream.Quotes():
			bid, ask := u.Bid, u.Ask
			q, ok := f.quotes.Merge(u.Symbol, &bid, &ask)
			if !ok {
				continue
			}
			for _, s := range f.strategies[u.Symbol] {
				s.OnQuote(common.Quote{Bid: q.Bid, Ask: q.Ask})
			}

		case t := <-f.stream.Trades():
			for _, s := range f.strategies[t.Symbol] {
				s.OnTick(ctx, t.Price, t.Size, t.Time)
			}
		}
	}
}
