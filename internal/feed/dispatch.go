package feed

import (
	"slices"
	"strings"

	"github.com/drewalbert7/Keepitbased-sub001/internal/kraken"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/obs"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// dispatch routes one frame. It runs on the connection goroutine, so events
// reach the stores and the handlers in receipt order.
func (c *Client) dispatch(payload []byte) {
	c.metrics.Inc(obs.CounterFrames)

	ev, err := c.decoder.Parse(payload)
	if err != nil {
		c.metrics.Inc(obs.CounterParseErrors)
		logs.Warnf("drop frame %.256s, err: %+v", payload, err)
		return
	}

	h := c.handlers.Load()
	switch ev.Kind {
	case kraken.EventTicker:
		c.metrics.Inc(obs.CounterTickers)
		c.storeTicker(ev.Ticker)
		h.ticker(ev.Ticker)
	case kraken.EventTrade:
		c.metrics.Add(obs.CounterTrades, uint64(len(ev.Trades)))
		c.storeTrades(ev.Symbol, ev.Trades)
		h.trade(ev.Symbol, slices.Clone(ev.Trades))
	case kraken.EventOHLC:
		c.applyCandle(h, ev)
	case kraken.EventSubscriptionAck:
		logs.Infof("subscription %s %s", ev.Status, ev.Subscription)
	case kraken.EventSubscriptionError:
		c.rejectSubscription(ev)
	case kraken.EventSystemStatus:
		logs.Infof("system status %s", ev.Status)
	case kraken.EventHeartbeat, kraken.EventPong:
	}
}

func (c *Client) applyCandle(h *Handlers, ev kraken.Event) {
	if !c.cfg.allows(ev.Interval) {
		logs.Warnf("drop %s candle of %s, interval not configured", ev.Interval.Label(), ev.Symbol)
		return
	}

	merged, err := c.aggregator.Apply(ev.Symbol, ev.Interval, ev.Candle, true)
	if err != nil {
		c.metrics.Inc(obs.CounterCandlesRejected)
		logs.Warnf("drop %s candle of %s, err: %+v", ev.Interval.Label(), ev.Symbol, err)
		return
	}

	c.metrics.Inc(obs.CounterCandles)
	h.ohlc(ev.Symbol, ev.Interval, merged)
}

// rejectSubscription forgets the rejected pair so the next pass asks again.
func (c *Client) rejectSubscription(ev kraken.Event) {
	c.metrics.Inc(obs.CounterSubscriptionErrors)

	if ev.Subscription.IsAvailable() {
		c.registry.Drop(ev.Subscription)
	}

	cause := errors.Errorf("%s: %s", ev.Subscription, ev.Message)
	err := exception.Tag(exception.ErrSubscription, cause)
	if strings.Contains(strings.ToLower(ev.Message), "rate") {
		c.manager.MarkRateLimited(0)
		err = exception.Tag(exception.ErrRateLimited, err)
	}

	c.fail(err)
}

func (c *Client) storeTicker(t model.Ticker) {
	c.tickersMu.Lock()
	defer c.tickersMu.Unlock()
	c.tickers[t.Symbol] = t
}

// storeTrades appends to the recent trades of symbol, keeping the newest MaxTrades.
func (c *Client) storeTrades(symbol string, trades []model.Trade) {
	if len(trades) == 0 {
		return
	}

	c.tradesMu.Lock()
	defer c.tradesMu.Unlock()

	prev := c.trades[symbol]
	next := make([]model.Trade, 0, min(len(prev)+len(trades), c.cfg.MaxTrades))
	if over := len(prev) + len(trades) - c.cfg.MaxTrades; over > 0 {
		if over >= len(prev) {
			trades = trades[over-len(prev):]
			prev = nil
		} else {
			prev = prev[over:]
		}
	}
	next = append(next, prev...)
	next = append(next, trades...)
	c.trades[symbol] = next
}
