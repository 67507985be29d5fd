package model

import (
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
)

// Candle is the OHLCV aggregate of one symbol over one interval.
// Time is the interval start in unix milliseconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Trades int64   `json:"trades"`
	VWAP   float64 `json:"vwap"`
}

// Flat builds a zero volume candle that carries price through time.
func Flat(time int64, price float64) Candle {
	return Candle{
		Time:  time,
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
		VWAP:  price,
	}
}

// CandleSeries is ordered strictly ascending by Time.
// Published series are shared between readers and must not be modified in place.
type CandleSeries []Candle

func (s CandleSeries) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

func (s CandleSeries) Clone() CandleSeries {
	if s == nil {
		return nil
	}
	out := make(CandleSeries, len(s))
	copy(out, s)
	return out
}

// IsOrdered reports whether times are strictly ascending.
func (s CandleSeries) IsOrdered() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Time <= s[i-1].Time {
			return false
		}
	}
	return true
}

// Ticker is the latest snapshot of a symbol. Each event replaces it.
type Ticker struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        float64   `json:"volume"`
	VWAP          float64   `json:"vwap"`
	Trades        int64     `json:"trades"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	Spread        float64   `json:"spread"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Derive fills Spread, Change and ChangePercent from the raw fields.
func (t Ticker) Derive() Ticker {
	t.Spread = t.Ask - t.Bid
	if t.Open > 0 {
		t.Change = t.Price - t.Open
		t.ChangePercent = t.Change / t.Open * 100
	}
	return t
}

type Trade struct {
	Price  float64        `json:"price"`
	Volume float64        `json:"volume"`
	Time   int64          `json:"time"`
	Side   enum.Side      `json:"side"`
	Kind   enum.OrderKind `json:"kind"`
}

// Subscription is one symbol on one channel. Interval is only set for ohlc.
type Subscription struct {
	Symbol   string
	Channel  enum.Channel
	Interval Interval
}

func (s Subscription) IsAvailable() bool {
	if len(s.Symbol) == 0 || !s.Channel.IsAvailable() {
		return false
	}
	if s.Channel == enum.ChannelOHLC {
		return s.Interval.IsAvailable()
	}
	return s.Interval == 0
}

func (s Subscription) String() string {
	if s.Channel == enum.ChannelOHLC {
		return s.Symbol + "@" + s.Channel.String() + "-" + s.Interval.Label()
	}
	return s.Symbol + "@" + s.Channel.String()
}
