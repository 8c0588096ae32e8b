package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"futures-core/internal/quote"
	"futures-core/internal/strategy"
	"futures-core/pkg/exchanges/common"
)

// UsageFunc reports exchange request-weight usage for the health payload.
type UsageFunc func() (used, limit int)

// Server exposes a read-only snapshot of the trading core to the display
// collaborator: contracts, the price cache, and per-strategy logs and trades
// with live PnL. Log and trade entries carry a displayed flag the consumer
// may set via the seen endpoints.
type Server struct {
	Router     *gin.Engine
	contracts  map[string]common.Contract
	quotes     *quote.Cache
	strategies []*strategy.Strategy
	byName     map[string]*strategy.Strategy
	usage      UsageFunc
}

// NewServer builds the API around immutable contracts and live state.
// usage may be nil when no exchange client backs the server.
func NewServer(contracts map[string]common.Contract, quotes *quote.Cache, strategies []*strategy.Strategy, usage UsageFunc) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	byName := make(map[string]*strategy.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}

	s := &Server{
		Router:     r,
		contracts:  contracts,
		quotes:     quotes,
		strategies: strategies,
		byName:     byName,
		usage:      usage,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/contracts", s.getContracts)
		api.GET("/prices", s.getPrices)
		api.GET("/strategies", s.getStrategies)
		api.GET("/strategies/:name/logs", s.getLogs)
		api.POST("/strategies/:name/logs/seen", s.markLogsSeen)
		api.GET("/strategies/:name/trades", s.getTrades)
		api.POST("/strategies/:name/trades/seen", s.markTradesSeen)
	}
}

func (s *Server) health(c *gin.Context) {
	payload := gin.H{"status": "ok", "time": time.Now().UnixMilli()}
	if s.usage != nil {
		used, limit := s.usage()
		payload["weight_used"] = used
		payload["weight_limit"] = limit
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) getContracts(c *gin.Context) {
	c.JSON(http.StatusOK, s.contracts)
}

func (s *Server) getPrices(c *gin.Context) {
	c.JSON(http.StatusOK, s.quotes.Snapshot())
}

type strategyView struct {
	Name      string           `json:"name"`
	Kind      string           `json:"kind"`
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Ongoing   bool             `json:"ongoing_position"`
	Trades    []strategy.Trade `json:"trades"`
}

func (s *Server) getStrategies(c *gin.Context) {
	out := make([]strategyView, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, strategyView{
			Name:      st.Name(),
			Kind:      st.Kind(),
			Symbol:    st.Symbol(),
			Timeframe: st.Timeframe(),
			Ongoing:   st.Ongoing(),
			Trades:    st.Trades(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getLogs(c *gin.Context) {
	st, ok := s.byName[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy"})
		return
	}
	c.JSON(http.StatusOK, st.Logs())
}

func (s *Server) markLogsSeen(c *gin.Context) {
	st, ok := s.byName[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy"})
		return
	}
	st.MarkLogsDisplayed()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getTrades(c *gin.Context) {
	st, ok := s.byName[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy"})
		return
	}
	c.JSON(http.StatusOK, st.Trades())
}

func (s *Server) markTradesSeen(c *gin.Context) {
	st, ok := s.byName[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy"})
		return
	}
	st.MarkTradesDisplayed()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
