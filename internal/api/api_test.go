package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drewalbert7/Keepitbased-sub001/internal/feed"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	health  feed.Health
	tickers map[string]model.Ticker
	trades  map[string][]model.Trade
	candles map[model.Interval]model.CandleSeries
}

func (s stubFeed) Health() feed.Health { return s.health }
func (s stubFeed) Intervals() []model.Interval {
	return []model.Interval{model.Interval1m, model.Interval1h}
}
func (s stubFeed) Trades(symbol string) []model.Trade {
	return s.trades[symbol]
}

func (s stubFeed) Ticker(symbol string) (model.Ticker, bool) {
	t, ok := s.tickers[symbol]
	return t, ok
}

func (s stubFeed) Candles(symbol string, interval model.Interval) model.CandleSeries {
	if symbol != "XBT/USD" {
		return nil
	}
	return s.candles[interval]
}

func (s stubFeed) IsStale(string, model.Interval) bool { return true }

func serve(t *testing.T, f Feed, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	NewHandler(f).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func newStub() stubFeed {
	w := model.Interval1h.Milliseconds()
	return stubFeed{
		health:  feed.Health{State: "open", Connected: true},
		tickers: map[string]model.Ticker{"XBT/USD": {Symbol: "XBT/USD", Price: 100}},
		trades:  map[string][]model.Trade{"XBT/USD": {{Price: 1}, {Price: 2}}},
		candles: map[model.Interval]model.CandleSeries{
			model.Interval1h: {
				{Time: w, Open: 1, High: 1, Low: 1, Close: 1},
				{Time: 2 * w, Open: 1, High: 2, Low: 1, Close: 2},
				{Time: 3 * w, Open: 2, High: 3, Low: 2, Close: 3},
			},
		},
	}
}

func TestHealth(t *testing.T) {
	stub := newStub()
	rec := serve(t, stub, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got feed.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "open", got.State)

	stub.health = feed.Health{State: "connecting"}
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, stub, "/api/health").Code)
}

func TestIntervals(t *testing.T) {
	rec := serve(t, newStub(), "/api/intervals")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"minutes":1,"label":"1m"},{"minutes":60,"label":"1h"}]`, rec.Body.String())
}

func TestTicker(t *testing.T) {
	for _, target := range []string{"/api/ticker/XBT/USD", "/api/ticker/xbt-usd"} {
		rec := serve(t, newStub(), target)
		require.Equal(t, http.StatusOK, rec.Code, target)

		var got model.Ticker
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 100.0, got.Price)
	}

	assert.Equal(t, http.StatusNotFound, serve(t, newStub(), "/api/ticker/ETH/USD").Code)
}

func TestTrades(t *testing.T) {
	rec := serve(t, newStub(), "/api/trades/XBT/USD")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rec = serve(t, newStub(), "/api/trades/ETH/USD")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestOHLC(t *testing.T) {
	rec := serve(t, newStub(), "/api/ohlc/XBT/USD?interval=60&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Pair     string             `json:"pair"`
		Interval intervalView       `json:"interval"`
		Stale    bool               `json:"stale"`
		Candles  model.CandleSeries `json:"candles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "XBT/USD", got.Pair)
	assert.Equal(t, intervalView{Minutes: 60, Label: "1h"}, got.Interval)
	assert.True(t, got.Stale)
	require.Len(t, got.Candles, 2)
	assert.Equal(t, 3.0, got.Candles[1].Close)

	rec = serve(t, newStub(), "/api/ohlc/ETH/USD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"candles":[]`)

	assert.Equal(t, http.StatusBadRequest, serve(t, newStub(), "/api/ohlc/XBT/USD?interval=7").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, newStub(), "/api/ohlc/XBT/USD?limit=0").Code)
}
