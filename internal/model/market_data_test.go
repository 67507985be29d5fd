package model

import (
	"testing"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/stretchr/testify/assert"
)

func TestIntervalLabel(t *testing.T) {
	cases := map[Interval]string{
		Interval1m:  "1m",
		Interval15m: "15m",
		Interval1h:  "1h",
		Interval4h:  "4h",
		Interval1d:  "1d",
		Interval1w:  "1w",
		Interval15d: "15d",
	}
	for interval, label := range cases {
		assert.Equal(t, label, interval.Label())
		assert.True(t, interval.IsAvailable())
	}
	assert.False(t, Interval(2).IsAvailable())
	assert.Equal(t, time.Hour, Interval1h.Duration())
	assert.Equal(t, int64(60_000), Interval1m.Milliseconds())
}

func TestTickerDerive(t *testing.T) {
	tk := Ticker{Price: 110, Open: 100, Bid: 109.5, Ask: 110.5}.Derive()
	assert.InDelta(t, 10, tk.Change, 1e-9)
	assert.InDelta(t, 10, tk.ChangePercent, 1e-9)
	assert.InDelta(t, 1, tk.Spread, 1e-9)

	zero := Ticker{Price: 5}.Derive()
	assert.Zero(t, zero.Change)
	assert.Zero(t, zero.ChangePercent)
}

func TestSubscriptionIsAvailable(t *testing.T) {
	assert.True(t, Subscription{Symbol: "XBT/USD", Channel: enum.ChannelTicker}.IsAvailable())
	assert.True(t, Subscription{Symbol: "XBT/USD", Channel: enum.ChannelOHLC, Interval: Interval5m}.IsAvailable())
	assert.False(t, Subscription{Symbol: "XBT/USD", Channel: enum.ChannelOHLC}.IsAvailable())
	assert.False(t, Subscription{Symbol: "XBT/USD", Channel: enum.ChannelTrade, Interval: Interval5m}.IsAvailable())
	assert.False(t, Subscription{Channel: enum.ChannelTicker}.IsAvailable())
}

func TestCandleSeriesIsOrdered(t *testing.T) {
	assert.True(t, CandleSeries{{Time: 1}, {Time: 2}}.IsOrdered())
	assert.False(t, CandleSeries{{Time: 2}, {Time: 2}}.IsOrdered())

	s := CandleSeries{{Time: 1}}
	c := s.Clone()
	c[0].Time = 9
	assert.Equal(t, int64(1), s[0].Time)
}
