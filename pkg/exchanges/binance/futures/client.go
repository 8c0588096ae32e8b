package futures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"futures-core/pkg/exchanges/common"
)

// ErrBalanceUnavailable is returned when the quote-asset balance needed for
// trade sizing cannot be determined.
var ErrBalanceUnavailable = errors.New("binance futures: USDT balance unavailable")

// QuoteSink receives best bid/ask updates fetched over REST. A nil side means
// the response did not carry that side and the stored value is preserved.
type QuoteSink interface {
	Merge(symbol string, bid, ask *float64) (common.Quote, bool)
}

// Config holds Binance USDT-M futures credentials.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	RecvWindow int64 // ms
}

// Client handles Binance USDT-M futures over REST. It holds no mutable
// cross-call state besides the quote sink, so concurrent calls are safe.
type Client struct {
	cfg         Config
	baseURL     string
	httpClient  *http.Client
	timeSync    *common.TimeSync
	rateLimiter *common.RateLimiter
	quotes      QuoteSink
}

// NewClient creates a USDT-M futures client. quotes may be nil when the
// caller has no shared quote cache.
func NewClient(cfg Config, quotes QuoteSink) *Client {
	base := "https://fapi.binance.com"
	if cfg.Testnet {
		base = "https://testnet.binancefuture.com"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		quotes:     quotes,
	}
	c.timeSync = common.NewTimeSync(c.GetServerTime)
	c.rateLimiter = common.NewRateLimiter(2400, time.Minute)
	return c
}

// StartTimeSync begins periodic clock synchronization against the exchange.
func (c *Client) StartTimeSync(ctx context.Context) {
	c.timeSync.Start(ctx)
}

// RateLimitUsage reports the request weight used in the current window and
// the window limit, as tracked from response headers.
func (c *Client) RateLimitUsage() (used, limit int) {
	return c.rateLimiter.Usage()
}

func (c *Client) now() int64 {
	if c.timeSync != nil && c.timeSync.Offset() != 0 {
		return c.timeSync.Now()
	}
	return time.Now().UnixMilli()
}

// GetServerTime fetches futures server time in milliseconds.
func (c *Client) GetServerTime() (int64, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/fapi/v1/time")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("server time status %d: %s", resp.StatusCode, string(b))
	}
	var res struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

// GetContracts fetches exchange info and returns contracts keyed by symbol.
func (c *Client) GetContracts(ctx context.Context) (map[string]common.Contract, error) {
	body, err := c.doPublic(ctx, "/fapi/v1/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	var info exchangeInfoResp
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode exchange info: %w", err)
	}

	contracts := make(map[string]common.Contract, len(info.Symbols))
	for _, s := range info.Symbols {
		contracts[s.Symbol] = s.toContract()
	}
	return contracts, nil
}

// GetHistoricalCandles fetches recent klines for seeding candle history.
func (c *Client) GetHistoricalCandles(ctx context.Context, contract common.Contract, timeframe string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("interval", timeframe)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.doPublic(ctx, "/fapi/v1/klines", params)
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	klines := make([]Kline, 0, len(raw))
	for _, item := range raw {
		if len(item) < 6 {
			continue
		}
		klines = append(klines, Kline{
			OpenTime: toInt64(item[0]),
			Open:     toFloat(item[1]),
			High:     toFloat(item[2]),
			Low:      toFloat(item[3]),
			Close:    toFloat(item[4]),
			Volume:   toFloat(item[5]),
		})
	}
	return klines, nil
}

// GetBalances fetches per-asset futures balances.
func (c *Client) GetBalances(ctx context.Context) (map[string]common.Balance, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/account", url.Values{})
	if err != nil {
		return nil, err
	}
	var info accountResp
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}

	balances := make(map[string]common.Balance, len(info.Assets))
	for _, a := range info.Assets {
		balances[a.Asset] = common.Balance{
			Asset:            a.Asset,
			WalletBalance:    parseFloat(a.WalletBalance),
			AvailableBalance: parseFloat(a.AvailableBalance),
		}
	}
	return balances, nil
}

// GetBidAsk fetches the book ticker for a contract and merges it into the
// shared quote cache, preserving whichever side the response omitted.
func (c *Client) GetBidAsk(ctx context.Context, contract common.Contract) (common.Quote, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	body, err := c.doPublic(ctx, "/fapi/v1/ticker/bookTicker", params)
	if err != nil {
		return common.Quote{}, err
	}
	var bt bookTickerResp
	if err := json.Unmarshal(body, &bt); err != nil {
		return common.Quote{}, fmt.Errorf("decode book ticker: %w", err)
	}

	bid := parseFloatPtr(bt.BidPrice)
	ask := parseFloatPtr(bt.AskPrice)
	if c.quotes == nil {
		q := common.Quote{}
		if bid != nil {
			q.Bid = *bid
		}
		if ask != nil {
			q.Ask = *ask
		}
		return q, nil
	}
	q, ok := c.quotes.Merge(contract.Symbol, bid, ask)
	if !ok {
		return common.Quote{}, fmt.Errorf("book ticker for %s incomplete", contract.Symbol)
	}
	return q, nil
}

// OrderRequest captures an order intent. Price and TimeInForce are optional;
// zero values are omitted from the request.
type OrderRequest struct {
	Contract    common.Contract
	Type        common.OrderType
	Side        common.Side
	Quantity    float64
	Price       float64
	TimeInForce common.TimeInForce
}

// PlaceOrder submits an order. Quantity is quantized to the contract's lot
// size and price (when set) to its tick size before transmission.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (common.OrderStatus, error) {
	params := url.Values{}
	params.Set("symbol", req.Contract.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", common.FormatFloat(common.QuantizeToStep(req.Quantity, req.Contract.LotSize)))
	if req.Price != 0 {
		params.Set("price", common.FormatFloat(common.QuantizeToStep(req.Price, req.Contract.TickSize)))
	}
	if req.TimeInForce != "" {
		params.Set("timeInForce", string(req.TimeInForce))
	}
	params.Set("newClientOrderId", uuid.NewString())

	body, err := c.doSigned(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return common.OrderStatus{}, err
	}
	return decodeOrderStatus(body)
}

// CancelOrder cancels an order by id.
func (c *Client) CancelOrder(ctx context.Context, contract common.Contract, orderID int64) (common.OrderStatus, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	body, err := c.doSigned(ctx, http.MethodDelete, "/fapi/v1/order", params)
	if err != nil {
		return common.OrderStatus{}, err
	}
	return decodeOrderStatus(body)
}

// GetOrderStatus queries the current state of an order.
func (c *Client) GetOrderStatus(ctx context.Context, contract common.Contract, orderID int64) (common.OrderStatus, error) {
	params := url.Values{}
	params.Set("symbol", contract.Symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v1/order", params)
	if err != nil {
		return common.OrderStatus{}, err
	}
	return decodeOrderStatus(body)
}

// GetTradeSize sizes an order as balancePct percent of the available USDT
// balance at the given price, quantized to the contract's lot size.
func (c *Client) GetTradeSize(ctx context.Context, contract common.Contract, price, balancePct float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("trade size: invalid price %v", price)
	}
	balances, err := c.GetBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}
	usdt, ok := balances["USDT"]
	if !ok {
		return 0, ErrBalanceUnavailable
	}

	size := common.QuantizeToStep(usdt.AvailableBalance*balancePct/100/price, contract.LotSize)
	log.Printf("binance futures USDT available=%v, trade size=%v", usdt.AvailableBalance, size)
	return size, nil
}

// doPublic performs an unsigned GET request.
func (c *Client) doPublic(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, http.MethodGet, endpoint)
}

// doSigned attaches a fresh timestamp, signs the full parameter set, and
// appends the signature last, per the exchange's authentication scheme.
func (c *Client) doSigned(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, errors.New("binance futures: API key/secret required")
	}
	params.Set("timestamp", strconv.FormatInt(c.now(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))

	encoded := params.Encode()
	encoded += "&signature=" + Sign(encoded, c.cfg.APISecret)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint+"?"+encoded, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, method, endpoint)
}

func (c *Client) do(req *http.Request, method, endpoint string) ([]byte, error) {
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("binance futures %s %s connection error: %v", method, endpoint, err)
		return nil, err
	}
	defer res.Body.Close()

	if c.rateLimiter != nil {
		c.rateLimiter.UpdateFromHeader(res.Header.Get("X-MBX-USED-WEIGHT-1M"))
	}

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		log.Printf("binance futures %s %s status %d: %s", method, endpoint, res.StatusCode, string(body))
		return nil, fmt.Errorf("binance futures %s %s status %d: %s", method, endpoint, res.StatusCode, string(body))
	}
	return body, nil
}
