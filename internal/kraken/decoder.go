package kraken

import (
	"strconv"
	"strings"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/candle"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/tidwall/gjson"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

var thousand = decimal.NewFromInt(1000)

// Decoder parses public feed frames.
type Decoder struct {
	now func() time.Time
}

// NewDecoder returns a Decoder stamping tickers with now. A nil now uses time.Now.
func NewDecoder(now func() time.Time) *Decoder {
	if now == nil {
		now = time.Now
	}
	return &Decoder{now: now}
}

// Parse turns one raw frame into an Event. Every failure carries ErrParse.
func (d *Decoder) Parse(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, parseError("invalid json")
	}

	root := gjson.ParseBytes(raw)
	switch {
	case root.IsObject():
		return d.parseEvent(root)
	case root.IsArray():
		return d.parseChannel(root)
	default:
		return Event{}, parseError("unexpected frame type")
	}
}

func (d *Decoder) parseEvent(root gjson.Result) (Event, error) {
	switch name := root.Get("event").String(); name {
	case "heartbeat":
		return Event{Kind: EventHeartbeat}, nil
	case "pong":
		return Event{Kind: EventPong}, nil
	case "systemStatus":
		return Event{Kind: EventSystemStatus, Status: root.Get("status").String()}, nil
	case "subscriptionStatus":
		return parseSubscriptionStatus(root)
	case "error":
		return Event{
			Kind:    EventSubscriptionError,
			Status:  "error",
			Message: root.Get("errorMessage").String(),
		}, nil
	default:
		return Event{}, parseError("unknown event " + strconv.Quote(name))
	}
}

func parseSubscriptionStatus(root gjson.Result) (Event, error) {
	sub := model.Subscription{Symbol: root.Get("pair").String()}
	if channel, ok := enum.ParseChannel(root.Get("subscription.name").String()); ok {
		sub.Channel = channel
	}
	if sub.Channel == enum.ChannelOHLC {
		sub.Interval = model.Interval(root.Get("subscription.interval").Int())
	}

	ev := Event{
		Symbol:       sub.Symbol,
		Interval:     sub.Interval,
		Subscription: sub,
		Status:       root.Get("status").String(),
	}

	switch ev.Status {
	case "subscribed", "unsubscribed":
		ev.Kind = EventSubscriptionAck
	case "error":
		ev.Kind = EventSubscriptionError
		ev.Message = root.Get("errorMessage").String()
	default:
		return Event{}, parseError("unknown subscription status " + strconv.Quote(ev.Status))
	}

	return ev, nil
}

// parseChannel handles [channelID, payload..., channelName, pair].
func (d *Decoder) parseChannel(root gjson.Result) (Event, error) {
	items := root.Array()
	if len(items) < 4 {
		return Event{}, parseError("short channel frame")
	}

	channelName := items[len(items)-2].String()
	symbol := items[len(items)-1].String()
	payload := items[1]
	if len(symbol) == 0 {
		return Event{}, parseError("missing pair")
	}

	name, arg, _ := strings.Cut(channelName, "-")
	channel, ok := enum.ParseChannel(name)
	if !ok {
		return Event{}, parseError("unsupported channel " + strconv.Quote(channelName))
	}

	switch channel {
	case enum.ChannelTicker:
		tk, err := d.parseTicker(payload)
		if err != nil {
			return Event{}, err
		}
		tk.Symbol = symbol
		return Event{Kind: EventTicker, Symbol: symbol, Ticker: tk}, nil
	case enum.ChannelTrade:
		trades, err := parseTrades(payload)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventTrade, Symbol: symbol, Trades: trades}, nil
	default:
		minutes, err := strconv.Atoi(arg)
		if err != nil || !model.Interval(minutes).IsAvailable() {
			return Event{}, parseError("bad ohlc interval " + strconv.Quote(channelName))
		}
		interval := model.Interval(minutes)
		c, err := parseOHLC(payload, interval)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventOHLC, Symbol: symbol, Interval: interval, Candle: c}, nil
	}
}

func (d *Decoder) parseTicker(payload gjson.Result) (model.Ticker, error) {
	if !payload.IsObject() {
		return model.Ticker{}, parseError("ticker payload is not an object")
	}

	var (
		tk  model.Ticker
		err error
	)
	read := func(key string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = floatAt(payload.Get(key), 0)
		if err != nil {
			err = errors.Wrapf(err, "ticker field %s", key)
		}
		return v
	}

	tk.Price = read("c")
	tk.Open = read("o")
	tk.High = read("h")
	tk.Low = read("l")
	tk.Volume = read("v")
	tk.VWAP = read("p")
	tk.Bid = read("b")
	tk.Ask = read("a")
	if err != nil {
		return model.Ticker{}, exception.Tag(exception.ErrParse, err)
	}

	if trades := payload.Get("t").Array(); len(trades) != 0 {
		tk.Trades = trades[0].Int()
	}
	tk.UpdatedAt = d.now()

	return tk.Derive(), nil
}

// parseTrades reads rows of [price, volume, time, side, kind, misc].
func parseTrades(payload gjson.Result) ([]model.Trade, error) {
	if !payload.IsArray() {
		return nil, parseError("trade payload is not an array")
	}

	rows := payload.Array()
	trades := make([]model.Trade, 0, len(rows))
	for _, row := range rows {
		fields := row.Array()
		if len(fields) < 5 {
			return nil, parseError("short trade row")
		}

		price, err := number(fields[0])
		if err != nil {
			return nil, exception.Tag(exception.ErrParse, errors.Wrap(err, "trade price"))
		}
		volume, err := number(fields[1])
		if err != nil {
			return nil, exception.Tag(exception.ErrParse, errors.Wrap(err, "trade volume"))
		}
		ts, err := number(fields[2])
		if err != nil {
			return nil, exception.Tag(exception.ErrParse, errors.Wrap(err, "trade time"))
		}

		ms, err := millis(ts)
		if err != nil {
			return nil, exception.Tag(exception.ErrParse, errors.Wrap(err, "trade time"))
		}

		trade := model.Trade{
			Price:  toFloat(price),
			Volume: toFloat(volume),
			Time:   ms,
		}
		switch fields[3].String() {
		case "b":
			trade.Side = enum.SideBuy
		case "s":
			trade.Side = enum.SideSell
		default:
			return nil, parseError("unknown trade side")
		}
		switch fields[4].String() {
		case "m":
			trade.Kind = enum.OrderKindMarket
		case "l":
			trade.Kind = enum.OrderKindLimit
		default:
			return nil, parseError("unknown trade kind")
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

// parseOHLC reads [time, etime, open, high, low, close, vwap, volume, count].
func parseOHLC(payload gjson.Result, interval model.Interval) (model.Candle, error) {
	fields := payload.Array()
	if !payload.IsArray() || len(fields) < 9 {
		return model.Candle{}, parseError("ohlc payload is not a 9 tuple")
	}

	var values [8]decimal.Decimal
	for i := range values {
		v, err := number(fields[i])
		if err != nil {
			return model.Candle{}, exception.Tag(exception.ErrParse, errors.Wrapf(err, "ohlc field %d", i))
		}
		values[i] = v
	}

	if fields[8].Type != gjson.Number {
		return model.Candle{}, parseError("ohlc trade count is not an integer")
	}

	begin, err := millis(values[0])
	if err != nil {
		return model.Candle{}, exception.Tag(exception.ErrParse, errors.Wrap(err, "ohlc time"))
	}

	return model.Candle{
		Time:   candle.Bucket(begin, interval.Duration()),
		Open:   toFloat(values[2]),
		High:   toFloat(values[3]),
		Low:    toFloat(values[4]),
		Close:  toFloat(values[5]),
		VWAP:   toFloat(values[6]),
		Volume: toFloat(values[7]),
		Trades: fields[8].Int(),
	}, nil
}

// floatAt reads index i of a nested array field, or the field itself when it is a scalar.
func floatAt(field gjson.Result, i int) (float64, error) {
	if !field.Exists() {
		return 0, errors.New("missing")
	}
	if field.IsArray() {
		items := field.Array()
		if len(items) <= i {
			return 0, errors.New("short array")
		}
		field = items[i]
	}
	v, err := number(field)
	if err != nil {
		return 0, err
	}
	return toFloat(v), nil
}

// number parses a numeric string or a bare JSON number strictly.
func number(field gjson.Result) (decimal.Decimal, error) {
	switch field.Type {
	case gjson.String:
		if strings.TrimSpace(field.Str) == "" {
			return decimal.Zero, errors.New("empty number")
		}
		return decimal.New(field.Str)
	case gjson.Number:
		return decimal.New(field.Raw)
	default:
		return decimal.Zero, errors.Errorf("not a number: %s", field.Raw)
	}
}

// millis converts unix seconds to milliseconds, rejecting values outside int64.
func millis(seconds decimal.Decimal) (int64, error) {
	ms := seconds.Mul(thousand).BigInt()
	if !ms.IsInt64() {
		return 0, errors.Errorf("time out of range: %s", seconds)
	}
	return ms.Int64(), nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
