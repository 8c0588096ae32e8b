package market

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// QuoteUpdate is a best bid/ask change for a symbol.
type QuoteUpdate struct {
	Symbol string
	Bid    float64
	Ask    float64
}

// TradeTick is one executed trade from the aggTrade stream.
type TradeTick struct {
	Symbol string
	Price  float64
	Size   float64
	Time   int64 // trade timestamp, ms
}

// StreamClient manages one duplex streaming connection to Binance futures.
// It reconnects forever: Disconnected → Connecting → Open → (Error|Closed) →
// Connecting after a fixed delay. On every (re)open it resubscribes all
// symbols to the bookTicker and aggTrade channels, demultiplexing inbound
// events onto the Quotes and Trades channels.
type StreamClient struct {
	streamURL      string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	nextID         int64
	quotes         chan QuoteUpdate
	trades         chan TradeTick
}

// NewStreamClient builds a stream client; testnet toggles the host.
func NewStreamClient(testnet bool, reconnectDelay time.Duration) *StreamClient {
	host := "fstream.binance.com"
	if testnet {
		host = "stream.binancefuture.com"
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	return &StreamClient{
		streamURL:      (&url.URL{Scheme: "wss", Host: host, Path: "/ws"}).String(),
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
		nextID:         1,
		quotes:         make(chan QuoteUpdate, 256),
		trades:         make(chan TradeTick, 256),
	}
}

// Quotes returns the demultiplexed bid/ask updates.
func (c *StreamClient) Quotes() <-chan QuoteUpdate { return c.quotes }

// Trades returns the demultiplexed trade ticks.
func (c *StreamClient) Trades() <-chan TradeTick { return c.trades }

// Run drives the connection until ctx ends. There is no terminal error state:
// every transport failure is logged and followed by a delayed reconnect.
func (c *StreamClient) Run(ctx context.Context, symbols []string) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, c.streamURL, nil)
		if err != nil {
			log.Printf("binance ws dial error: %v", err)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		log.Printf("binance ws opened (%d symbols)", len(symbols))
		c.subscribe(conn, symbols, "bookTicker")
		c.subscribe(conn, symbols, "aggTrade")

		c.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Printf("binance ws closed, reconnecting in %v", c.reconnectDelay)
		if !c.sleep(ctx) {
			return
		}
	}
}

// subscribe sends one SUBSCRIBE frame for all symbols on a channel. Each
// request carries a monotonically increasing client-assigned id. A send
// failure is logged and does not abort the connection.
func (c *StreamClient) subscribe(conn *websocket.Conn, symbols []string, channel string) {
	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, strings.ToLower(s)+"@"+channel)
	}
	req := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{Method: "SUBSCRIBE", Params: params, ID: c.nextID}
	c.nextID++

	if err := conn.WriteJSON(req); err != nil {
		log.Printf("binance ws subscribe %s error for %d symbols: %v", channel, len(symbols), err)
	}
}

func (c *StreamClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return
			}
			log.Printf("binance ws read error: %v", err)
			return
		}
		c.dispatch(ctx, msg)
	}
}

// dispatch decodes the event-type discriminator and routes the payload.
func (c *StreamClient) dispatch(ctx context.Context, msg []byte) {
	// encoding/json matches tags case-insensitively; the exact-case sibling
	// keeps the numeric "E" (event time) from binding to the "e" type field.
	var envelope struct {
		Event     string `json:"e"`
		EventTime int64  `json:"E"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		log.Printf("binance ws parse error: %v", err)
		return
	}

	switch envelope.Event {
	case "bookTicker":
		q, err := parseBookTicker(msg)
		if err != nil {
			log.Printf("binance ws bookTicker parse error: %v", err)
			return
		}
		select {
		case c.quotes <- q:
		case <-ctx.Done():
		}
	case "aggTrade":
		t, err := parseAggTrade(msg)
		if err != nil {
			log.Printf("binance ws aggTrade parse error: %v", err)
			return
		}
		select {
		case c.trades <- t:
		case <-ctx.Done():
		}
	}
}

func parseBookTicker(msg []byte) (QuoteUpdate, error) {
	// "B"/"A" carry the bid/ask quantities; without the exact-case siblings
	// they would overwrite the "b"/"a" prices.
	var raw struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		BidQty string `json:"B"`
		Ask    string `json:"a"`
		AskQty string `json:"A"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return QuoteUpdate{}, err
	}
	return QuoteUpdate{
		Symbol: raw.Symbol,
		Bid:    parseFloat(raw.Bid),
		Ask:    parseFloat(raw.Ask),
	}, nil
}

func parseAggTrade(msg []byte) (TradeTick, error) {
	var raw struct {
		Symbol    string `json:"s"`
		Price     string `json:"p"`
		Qty       string `json:"q"`
		TradeTime int64  `json:"T"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return TradeTick{}, err
	}
	return TradeTick{
		Symbol: raw.Symbol,
		Price:  parseFloat(raw.Price),
		Size:   parseFloat(raw.Qty),
		Time:   raw.TradeTime,
	}, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (c *StreamClient) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}
