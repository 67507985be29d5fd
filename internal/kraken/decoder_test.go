package kraken

import (
	"testing"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestDecoder() *Decoder {
	return NewDecoder(func() time.Time { return fixedNow })
}

func TestParseOHLC(t *testing.T) {
	raw := `[42,["1542057314.748456","1542057360.435743","3586.70000","3586.70000","3586.60000","3586.60000","3586.68894","0.03373000",2],"ohlc-5","XBT/USD"]`

	ev, err := newTestDecoder().Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, EventOHLC, ev.Kind)
	assert.Equal(t, "XBT/USD", ev.Symbol)
	assert.Equal(t, model.Interval5m, ev.Interval)
	assert.Equal(t, model.Candle{
		Time:   1542057300000,
		Open:   3586.7,
		High:   3586.7,
		Low:    3586.6,
		Close:  3586.6,
		VWAP:   3586.68894,
		Volume: 0.03373,
		Trades: 2,
	}, ev.Candle)
}

func TestParseOHLCRejects(t *testing.T) {
	cases := map[string]string{
		"bad number":     `[42,["1542057314.7","1542057360.4","abc","1","1","1","1","1",2],"ohlc-5","XBT/USD"]`,
		"short tuple":    `[42,["1542057314.7","1542057360.4","1","1"],"ohlc-5","XBT/USD"]`,
		"bad interval":   `[42,["1542057314.7","1542057360.4","1","1","1","1","1","1",2],"ohlc-7","XBT/USD"]`,
		"string count":   `[42,["1542057314.7","1542057360.4","1","1","1","1","1","1","2"],"ohlc-5","XBT/USD"]`,
		"unknown chan":   `[42,{"a":1},"book-10","XBT/USD"]`,
		"not json":       `[42,`,
		"unknown event":  `{"event":"mystery"}`,
		"scalar frame":   `17`,
		"missing pair":   `[42,{"c":["1"]},"ticker",""]`,
		"ticker missing": `[42,{"c":["1","2"]},"ticker","XBT/USD"]`,
		"time overflow":  `[42,["99999999999999999999.0","1542057360.4","1","1","1","1","1","1",2],"ohlc-5","XBT/USD"]`,
		"empty number":   `[42,["1542057314.7","1542057360.4","","1","1","1","1","1",2],"ohlc-5","XBT/USD"]`,
		"trade overflow": `[0,[["1","1","-99999999999999999999","s","l",""]],"trade","XBT/USD"]`,
	}

	dec := newTestDecoder()
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := dec.Parse([]byte(raw))
			assert.ErrorIs(t, err, exception.ErrParse)
		})
	}
}

func TestParseTicker(t *testing.T) {
	raw := `[340,{"a":["5525.40000",1,"1.000"],"b":["5525.10000",1,"1.000"],"c":["5525.10000","0.00398963"],"v":["2634.11501494","3591.17907851"],"p":["5631.44067","5653.78939"],"t":[11493,16267],"l":["5505.00000","5505.00000"],"h":["5783.00000","5783.00000"],"o":["5500.00000","5760.70000"]},"ticker","XBT/USD"]`

	ev, err := newTestDecoder().Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, EventTicker, ev.Kind)

	tk := ev.Ticker
	assert.Equal(t, "XBT/USD", tk.Symbol)
	assert.Equal(t, 5525.1, tk.Price)
	assert.Equal(t, 5500.0, tk.Open)
	assert.Equal(t, 5783.0, tk.High)
	assert.Equal(t, 5505.0, tk.Low)
	assert.Equal(t, 2634.11501494, tk.Volume)
	assert.Equal(t, 5631.44067, tk.VWAP)
	assert.Equal(t, int64(11493), tk.Trades)
	assert.Equal(t, 5525.1, tk.Bid)
	assert.Equal(t, 5525.4, tk.Ask)
	assert.InDelta(t, 0.3, tk.Spread, 1e-9)
	assert.InDelta(t, 25.1, tk.Change, 1e-9)
	assert.Equal(t, fixedNow, tk.UpdatedAt)
}

func TestParseTickerScalarOpen(t *testing.T) {
	raw := `[340,{"a":["2"],"b":["1"],"c":["1.5"],"v":["10"],"p":["1.4"],"t":[3],"l":["1"],"h":["2"],"o":"1.0"},"ticker","ETH/USD"]`

	ev, err := newTestDecoder().Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Ticker.Open)
	assert.InDelta(t, 50.0, ev.Ticker.ChangePercent, 1e-9)
}

func TestParseTrades(t *testing.T) {
	raw := `[0,[["5541.20000","0.15850568","1534614057.321597","s","l",""],["6060.00000","0.02455000","1534614057.324998","b","m",""]],"trade","XBT/USD"]`

	ev, err := newTestDecoder().Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, EventTrade, ev.Kind)
	require.Len(t, ev.Trades, 2)

	assert.Equal(t, model.Trade{
		Price:  5541.2,
		Volume: 0.15850568,
		Time:   1534614057321,
		Side:   enum.SideSell,
		Kind:   enum.OrderKindLimit,
	}, ev.Trades[0])
	assert.Equal(t, enum.SideBuy, ev.Trades[1].Side)
	assert.Equal(t, enum.OrderKindMarket, ev.Trades[1].Kind)

	_, err = newTestDecoder().Parse([]byte(`[0,[["1","1","1","x","l",""]],"trade","XBT/USD"]`))
	assert.ErrorIs(t, err, exception.ErrParse)
}

func TestParseEvents(t *testing.T) {
	dec := newTestDecoder()

	ev, err := dec.Parse([]byte(`{"event":"heartbeat"}`))
	require.NoError(t, err)
	assert.Equal(t, EventHeartbeat, ev.Kind)

	ev, err = dec.Parse([]byte(`{"event":"pong","reqid":42}`))
	require.NoError(t, err)
	assert.Equal(t, EventPong, ev.Kind)

	ev, err = dec.Parse([]byte(`{"connectionID":8628615390848610000,"event":"systemStatus","status":"online","version":"1.0.0"}`))
	require.NoError(t, err)
	assert.Equal(t, EventSystemStatus, ev.Kind)
	assert.Equal(t, "online", ev.Status)

	ev, err = dec.Parse([]byte(`{"channelID":42,"channelName":"ohlc-5","event":"subscriptionStatus","pair":"XBT/EUR","status":"subscribed","subscription":{"interval":5,"name":"ohlc"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionAck, ev.Kind)
	assert.Equal(t, model.Subscription{Symbol: "XBT/EUR", Channel: enum.ChannelOHLC, Interval: model.Interval5m}, ev.Subscription)

	ev, err = dec.Parse([]byte(`{"errorMessage":"Currency pair not supported","event":"subscriptionStatus","pair":"FOO/BAR","status":"error","subscription":{"name":"ticker"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionError, ev.Kind)
	assert.Equal(t, "Currency pair not supported", ev.Message)
	assert.Equal(t, model.Subscription{Symbol: "FOO/BAR", Channel: enum.ChannelTicker}, ev.Subscription)

	ev, err = dec.Parse([]byte(`{"errorMessage":"Exceeded msg rate","event":"error"}`))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionError, ev.Kind)
	assert.Equal(t, "Exceeded msg rate", ev.Message)
}
