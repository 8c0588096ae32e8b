package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futures-core/internal/api"
	"futures-core/internal/candle"
	"futures-core/internal/events"
	"futures-core/internal/journal"
	feedpkg "futures-core/internal/market"
	"futures-core/internal/order"
	"futures-core/internal/quote"
	"futures-core/internal/strategy"
	"futures-core/pkg/config"
	"futures-core/pkg/exchanges/binance/futures"
	"futures-core/pkg/exchanges/common"
	stream "futures-core/pkg/market/binance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quotes := quote.NewCache()
	client := futures.NewClient(futures.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.BinanceTestnet,
	}, quotes)
	client.StartTimeSync(ctx)

	contracts, err := fetchContracts(ctx, client)
	if err != nil {
		log.Fatalf("fetch contracts: %v", err)
	}
	log.Printf("loaded %d contracts (testnet=%v)", len(contracts), cfg.BinanceTestnet)

	if balances, err := client.GetBalances(ctx); err != nil {
		log.Printf("fetch balances: %v", err)
	} else if usdt, ok := balances["USDT"]; ok {
		log.Printf("USDT balance: wallet=%v available=%v", usdt.WalletBalance, usdt.AvailableBalance)
	}

	bus := events.NewBus()
	tracker := order.NewTracker(client, cfg.OrderPollDelay, cfg.OrderMaxChecks, bus)

	strategyConfigs, err := strategy.LoadConfig(cfg.StrategiesFile)
	if err != nil {
		log.Fatalf("load strategies from %s: %v", cfg.StrategiesFile, err)
	}
	strategies := make([]*strategy.Strategy, 0, len(strategyConfigs))
	for _, sc := range strategyConfigs {
		s, err := strategy.Build(sc, contracts, client, tracker, bus)
		if err != nil {
			log.Fatalf("build strategy: %v", err)
		}
		seedStrategy(ctx, client, contracts, s, cfg.WarmupCandles)
		strategies = append(strategies, s)
		log.Printf("strategy %s ready: %s %s %s", s.Name(), s.Kind(), s.Symbol(), s.Timeframe())
	}

	symbols := streamSymbols(cfg.BinanceSymbols, strategies)
	sc := stream.NewStreamClient(cfg.BinanceTestnet, cfg.ReconnectDelay)
	feed := feedpkg.NewFeed(sc, quotes, symbols)
	for _, s := range strategies {
		feed.Bind(s)
	}
	feed.Start(ctx)

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		defer j.Close()
		j.Run(ctx, bus)
		log.Printf("journal enabled at %s", cfg.JournalPath)
	}

	server := api.NewServer(contracts, quotes, strategies, client.RateLimitUsage)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}
	go func() {
		log.Printf("API listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	tracker.Wait()
	log.Println("stopped")
}

// fetchContracts retries the exchange info fetch a few times before giving
// up; the process cannot run without contract metadata.
func fetchContracts(ctx context.Context, client *futures.Client) (map[string]common.Contract, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		contracts, err := client.GetContracts(ctx)
		if err == nil {
			return contracts, nil
		}
		lastErr = err
		log.Printf("fetch contracts attempt %d failed: %v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, lastErr
}

// seedStrategy warms the strategy's candle history from recent klines. A
// failed fetch is logged; the aggregator then seeds itself from the first
// live trade instead.
func seedStrategy(ctx context.Context, client *futures.Client, contracts map[string]common.Contract, s *strategy.Strategy, limit int) {
	contract, ok := contracts[s.Symbol()]
	if !ok {
		return
	}
	klines, err := client.GetHistoricalCandles(ctx, contract, s.Timeframe(), limit)
	if err != nil {
		log.Printf("strategy %s: warm-up fetch failed, seeding from live trades: %v", s.Name(), err)
		return
	}
	seed := make([]candle.Candle, 0, len(klines))
	for _, k := range klines {
		seed = append(seed, candle.Candle{
			Timeframe: s.Timeframe(),
			OpenTime:  k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			Source:    candle.SourceSeed,
		})
	}
	s.Seed(seed)
	log.Printf("strategy %s: seeded %d candles", s.Name(), len(seed))
}

// streamSymbols merges configured symbols with every strategy-bound symbol,
// deduplicated.
func streamSymbols(configured []string, strategies []*strategy.Strategy) []string {
	seen := make(map[string]bool, len(configured))
	out := make([]string, 0, len(configured))
	for _, sym := range configured {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	for _, s := range strategies {
		if !seen[s.Symbol()] {
			seen[s.Symbol()] = true
			out = append(out, s.Symbol())
		}
	}
	return out
}
