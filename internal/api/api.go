package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/feed"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
)

// Feed is the read side of a market data client.
type Feed interface {
	Health() feed.Health
	Intervals() []model.Interval
	Ticker(symbol string) (model.Ticker, bool)
	Trades(symbol string) []model.Trade
	Candles(symbol string, interval model.Interval) model.CandleSeries
	IsStale(symbol string, interval model.Interval) bool
}

type Handler struct {
	feed Feed
}

func NewHandler(f Feed) *Handler {
	return &Handler{feed: f}
}

// Routes builds a read-only router over the feed snapshots.
func (h *Handler) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), accessLog())

	group := router.Group("/api")
	group.GET("/health", h.health)
	group.GET("/intervals", h.intervals)
	group.GET("/ticker/*pair", h.ticker)
	group.GET("/trades/*pair", h.trades)
	group.GET("/ohlc/*pair", h.ohlc)

	return router
}

type intervalView struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

type ohlcView struct {
	Pair     string             `json:"pair"`
	Interval intervalView       `json:"interval"`
	Stale    bool               `json:"stale"`
	Candles  model.CandleSeries `json:"candles"`
}

func (h *Handler) health(c *gin.Context) {
	health := h.feed.Health()
	status := http.StatusOK
	if !health.Connected {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func (h *Handler) intervals(c *gin.Context) {
	intervals := h.feed.Intervals()
	views := make([]intervalView, 0, len(intervals))
	for _, iv := range intervals {
		views = append(views, intervalView{Minutes: int(iv), Label: iv.Label()})
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) ticker(c *gin.Context) {
	pair := pairParam(c)
	t, ok := h.feed.Ticker(pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ticker for " + pair})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) trades(c *gin.Context) {
	trades := h.feed.Trades(pairParam(c))
	if trades == nil {
		trades = []model.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

func (h *Handler) ohlc(c *gin.Context) {
	pair := pairParam(c)

	interval := model.Interval1m
	if raw := c.Query("interval"); len(raw) != 0 {
		minutes, err := strconv.Atoi(raw)
		if err != nil || !model.Interval(minutes).IsAvailable() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interval " + strconv.Quote(raw)})
			return
		}
		interval = model.Interval(minutes)
	}

	series := h.feed.Candles(pair, interval)
	if raw := c.Query("limit"); len(raw) != 0 {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit " + strconv.Quote(raw)})
			return
		}
		if len(series) > limit {
			series = series[len(series)-limit:]
		}
	}
	if series == nil {
		series = model.CandleSeries{}
	}

	c.JSON(http.StatusOK, ohlcView{
		Pair:     pair,
		Interval: intervalView{Minutes: int(interval), Label: interval.Label()},
		Stale:    h.feed.IsStale(pair, interval),
		Candles:  series,
	})
}

// pairParam accepts "XBT/USD" and "xbt-usd" alike.
func pairParam(c *gin.Context) string {
	pair := strings.Trim(c.Param("pair"), "/")
	return strings.ToUpper(strings.ReplaceAll(pair, "-", "/"))
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logs.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
