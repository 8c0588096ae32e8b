package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"futures-core/internal/candle"
	"futures-core/internal/quote"
	"futures-core/internal/strategy"
	"futures-core/pkg/exchanges/binance/futures"
	"futures-core/pkg/exchanges/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testContract = common.Contract{Symbol: "BTCUSDT", Exchange: "binance", LotSize: 0.001, TickSize: 0.01}

type stubExchange struct{}

func (stubExchange) GetTradeSize(ctx context.Context, contract common.Contract, price, balancePct float64) (float64, error) {
	return 1, nil
}

func (stubExchange) PlaceOrder(ctx context.Context, req futures.OrderRequest) (common.OrderStatus, error) {
	return common.OrderStatus{OrderID: 1, State: common.StateFilled, AvgPrice: 100}, nil
}

type alwaysLong struct{}

func (alwaysLong) EvaluateSignal([]candle.Candle) int { return 1 }

// newTestServer wires a server around one strategy that has already opened a
// position, plus a populated quote cache.
func newTestServer(t *testing.T) (*Server, *strategy.Strategy, *quote.Cache) {
	t.Helper()

	s := strategy.New("btc-long", "technical", testContract, "1m", 5, alwaysLong{}, stubExchange{}, nil, nil)
	s.Seed([]candle.Candle{{
		Timeframe: "1m", OpenTime: 0,
		Open: 100, High: 100, Low: 100, Close: 100,
		Source: candle.SourceSeed,
	}})
	s.OnTick(context.Background(), 101, 1, 60001)

	cache := quote.NewCache()
	bid, ask := 100.5, 100.7
	cache.Merge("BTCUSDT", &bid, &ask)

	contracts := map[string]common.Contract{"BTCUSDT": testContract}
	usage := func() (int, int) { return 150, 2400 }
	return NewServer(contracts, cache, []*strategy.Strategy{s}, usage), s, cache
}

func doRequest(t *testing.T, server *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(t, server, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var payload struct {
		Status      string `json:"status"`
		WeightUsed  int    `json:"weight_used"`
		WeightLimit int    `json:"weight_limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.WeightUsed != 150 || payload.WeightLimit != 2400 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestGetPrices(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(t, server, http.MethodGet, "/api/prices")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var prices map[string]common.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &prices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q := prices["BTCUSDT"]; q.Bid != 100.5 || q.Ask != 100.7 {
		t.Errorf("quote = %+v", q)
	}
}

func TestGetContracts(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(t, server, http.MethodGet, "/api/contracts")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetStrategies(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(t, server, http.MethodGet, "/api/strategies")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var views []struct {
		Name    string           `json:"name"`
		Symbol  string           `json:"symbol"`
		Ongoing bool             `json:"ongoing_position"`
		Trades  []strategy.Trade `json:"trades"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("strategies = %d", len(views))
	}
	v := views[0]
	if v.Name != "btc-long" || v.Symbol != "BTCUSDT" || !v.Ongoing {
		t.Errorf("view = %+v", v)
	}
	if len(v.Trades) != 1 || v.Trades[0].EntryPrice != 100 {
		t.Errorf("trades = %+v", v.Trades)
	}
}

func TestUnknownStrategyIs404(t *testing.T) {
	server, _, _ := newTestServer(t)
	for _, path := range []string{
		"/api/strategies/nope/logs",
		"/api/strategies/nope/trades",
	} {
		if w := doRequest(t, server, http.MethodGet, path); w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
	for _, path := range []string{
		"/api/strategies/nope/logs/seen",
		"/api/strategies/nope/trades/seen",
	} {
		if w := doRequest(t, server, http.MethodPost, path); w.Code != http.StatusNotFound {
			t.Errorf("POST %s status = %d, want 404", path, w.Code)
		}
	}
}

func TestLogsSeenFlow(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/api/strategies/btc-long/logs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var logs []strategy.LogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) == 0 {
		t.Fatal("expected log entries from the opened position")
	}
	for _, l := range logs {
		if l.Displayed {
			t.Errorf("log already displayed: %+v", l)
		}
	}

	if w := doRequest(t, server, http.MethodPost, "/api/strategies/btc-long/logs/seen"); w.Code != http.StatusOK {
		t.Fatalf("seen status = %d", w.Code)
	}

	w = doRequest(t, server, http.MethodGet, "/api/strategies/btc-long/logs")
	logs = nil
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, l := range logs {
		if !l.Displayed {
			t.Errorf("log not marked displayed: %+v", l)
		}
	}
}

func TestTradesSeenFlow(t *testing.T) {
	server, _, _ := newTestServer(t)

	if w := doRequest(t, server, http.MethodPost, "/api/strategies/btc-long/trades/seen"); w.Code != http.StatusOK {
		t.Fatalf("seen status = %d", w.Code)
	}

	w := doRequest(t, server, http.MethodGet, "/api/strategies/btc-long/trades")
	var trades []strategy.Trade
	if err := json.Unmarshal(w.Body.Bytes(), &trades); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(trades) != 1 || !trades[0].Displayed {
		t.Errorf("trades = %+v", trades)
	}
}
