package futures

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"futures-core/pkg/exchanges/common"
)

// Kline is one historical candle row from the klines endpoint.
type Kline struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

type exchangeInfoResp struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol            string `json:"symbol"`
	BaseAsset         string `json:"baseAsset"`
	QuoteAsset        string `json:"quoteAsset"`
	PricePrecision    int    `json:"pricePrecision"`
	QuantityPrecision int    `json:"quantityPrecision"`
	Filters           []struct {
		FilterType string `json:"filterType"`
		TickSize   string `json:"tickSize"`
		StepSize   string `json:"stepSize"`
	} `json:"filters"`
}

// toContract derives tick/lot sizes from the symbol filters, falling back to
// the precision fields when a filter is absent.
func (s symbolInfo) toContract() common.Contract {
	tick := math.Pow(10, -float64(s.PricePrecision))
	lot := math.Pow(10, -float64(s.QuantityPrecision))
	for _, f := range s.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			if v := parseFloat(f.TickSize); v > 0 {
				tick = v
			}
		case "LOT_SIZE":
			if v := parseFloat(f.StepSize); v > 0 {
				lot = v
			}
		}
	}
	return common.Contract{
		Symbol:        s.Symbol,
		Exchange:      "binance",
		BaseAsset:     s.BaseAsset,
		QuoteAsset:    s.QuoteAsset,
		TickSize:      tick,
		LotSize:       lot,
		PriceDecimals: s.PricePrecision,
	}
}

type accountResp struct {
	Assets []struct {
		Asset            string `json:"asset"`
		WalletBalance    string `json:"walletBalance"`
		AvailableBalance string `json:"availableBalance"`
	} `json:"assets"`
}

type bookTickerResp struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

type orderResp struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	AvgPrice      string `json:"avgPrice"`
	ExecutedQty   string `json:"executedQty"`
}

func decodeOrderStatus(body []byte) (common.OrderStatus, error) {
	var resp orderResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderStatus{}, fmt.Errorf("decode order: %w", err)
	}
	return common.OrderStatus{
		OrderID:     resp.OrderID,
		ClientID:    resp.ClientOrderID,
		Symbol:      resp.Symbol,
		State:       mapState(resp.Status),
		AvgPrice:    parseFloat(resp.AvgPrice),
		ExecutedQty: parseFloat(resp.ExecutedQty),
	}, nil
}

func mapState(status string) common.OrderState {
	switch status {
	case "NEW":
		return common.StateNew
	case "PARTIALLY_FILLED":
		return common.StatePartial
	case "FILLED":
		return common.StateFilled
	case "CANCELED":
		return common.StateCanceled
	case "REJECTED":
		return common.StateRejected
	case "EXPIRED":
		return common.StateExpired
	default:
		return common.StateUnknown
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// parseFloatPtr returns nil for an empty field so callers can tell "absent"
// from zero.
func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case json.Number:
		i, _ := t.Int64()
		return i
	default:
		return 0
	}
}
