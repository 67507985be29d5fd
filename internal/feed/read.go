package feed

import (
	"context"
	"slices"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/obs"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Health is a point-in-time view of the client.
type Health struct {
	State       string       `json:"state"`
	Connected   bool         `json:"connected"`
	RateLimited bool         `json:"rateLimited"`
	Desired     int          `json:"desired"`
	Active      int          `json:"active"`
	Series      int          `json:"series"`
	LastError   string       `json:"lastError,omitempty"`
	Metrics     obs.Snapshot `json:"metrics"`
}

func (c *Client) Ticker(symbol string) (model.Ticker, bool) {
	c.tickersMu.RLock()
	defer c.tickersMu.RUnlock()
	t, ok := c.tickers[symbol]
	return t, ok
}

// Trades returns the recent trades of symbol, oldest first.
func (c *Client) Trades(symbol string) []model.Trade {
	c.tradesMu.RLock()
	defer c.tradesMu.RUnlock()
	return slices.Clone(c.trades[symbol])
}

func (c *Client) Candles(symbol string, interval model.Interval) model.CandleSeries {
	return c.aggregator.Series(symbol, interval)
}

// IsStale reports whether the series of (symbol, interval) should be fetched again.
func (c *Client) IsStale(symbol string, interval model.Interval) bool {
	return c.aggregator.IsStale(symbol, interval, time.Now())
}

func (c *Client) ConnectionState() websocket.State {
	return c.manager.State()
}

// ActiveSubscriptions returns what the server is believed to hold, sorted.
func (c *Client) ActiveSubscriptions() []model.Subscription {
	return c.registry.Active().Sorted()
}

// DesiredSubscriptions returns what consumers asked for, sorted.
func (c *Client) DesiredSubscriptions() []model.Subscription {
	return c.desiredSet().Sorted()
}

// LastError returns the latest error surfaced by the client, nil if none.
func (c *Client) LastError() error {
	if box := c.lastErr.Load(); box != nil {
		return box.err
	}
	return nil
}

// Intervals returns the configured candle widths, ascending.
func (c *Client) Intervals() []model.Interval {
	return slices.Clone(c.cfg.Intervals)
}

func (c *Client) Health() Health {
	h := Health{
		State:       c.manager.State().String(),
		Connected:   c.manager.IsConnected(),
		RateLimited: c.manager.IsRateLimited(),
		Desired:     len(c.desiredSet()),
		Active:      len(c.registry.Active()),
		Series:      len(c.aggregator.Keys()),
		Metrics:     c.metrics.Snapshot(),
	}
	if err := c.LastError(); err != nil {
		h.LastError = err.Error()
	}
	return h
}

// Backfill seeds the series of (symbol, interval) from the history source and
// returns how many candles were accepted.
func (c *Client) Backfill(ctx context.Context, symbol string, interval model.Interval) (int, error) {
	if c.cfg.History == nil {
		return 0, exception.Tag(exception.ErrInvalidArgument, errors.New("no history source"))
	}

	if !c.cfg.allows(interval) {
		return 0, exception.Tag(exception.ErrUnsupportedInterval, errors.Errorf("interval %d", interval))
	}

	candles, err := c.cfg.History.OHLC(ctx, symbol, interval, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "backfill %s %s", symbol, interval.Label())
	}

	accepted := c.aggregator.Seed(symbol, interval, candles)
	if rejected := len(candles) - accepted; rejected > 0 {
		c.metrics.Add(obs.CounterCandlesRejected, uint64(rejected))
	}
	logs.Infof("backfilled %d %s candles of %s", accepted, interval.Label(), symbol)

	return accepted, nil
}
