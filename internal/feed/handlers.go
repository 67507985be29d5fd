package feed

import (
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
)

// Handlers is the callback bundle of a client. Every field is optional.
// Callbacks run on the connection goroutine in receipt order and must not block.
// A callback must not call Client.Close: Close waits for the goroutine running
// the callback and would never return.
type Handlers struct {
	OnTicker     func(ticker model.Ticker)
	OnTrade      func(symbol string, trades []model.Trade)
	OnOHLC       func(symbol string, interval model.Interval, candle model.Candle)
	OnConnect    func()
	OnDisconnect func(err error)
	OnError      func(err error)
}

func (h *Handlers) ticker(t model.Ticker) {
	if h != nil && h.OnTicker != nil {
		h.OnTicker(t)
	}
}

func (h *Handlers) trade(symbol string, trades []model.Trade) {
	if h != nil && h.OnTrade != nil {
		h.OnTrade(symbol, trades)
	}
}

func (h *Handlers) ohlc(symbol string, interval model.Interval, c model.Candle) {
	if h != nil && h.OnOHLC != nil {
		h.OnOHLC(symbol, interval, c)
	}
}

func (h *Handlers) connect() {
	if h != nil && h.OnConnect != nil {
		h.OnConnect()
	}
}

func (h *Handlers) disconnect(err error) {
	if h != nil && h.OnDisconnect != nil {
		h.OnDisconnect(err)
	}
}

func (h *Handlers) fail(err error) {
	if h != nil && h.OnError != nil {
		h.OnError(err)
	}
}
