package kraken

import (
	"strings"

	"github.com/drewalbert7/Keepitbased-sub001/internal/candle"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/tidwall/gjson"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// ParseHistory decodes a public OHLC REST body:
//
//	{"error":[],"result":{"<PAIR>":[[time,o,h,l,c,vwap,volume,count],...],"last":N}}
//
// It returns the candles in body order and the "last" cursor.
func ParseHistory(body []byte, interval model.Interval) ([]model.Candle, int64, error) {
	if !interval.IsAvailable() {
		return nil, 0, exception.Tag(exception.ErrUnsupportedInterval, errors.Errorf("interval %d", interval))
	}

	if !gjson.ValidBytes(body) {
		return nil, 0, parseError("invalid json")
	}

	root := gjson.ParseBytes(body)
	if msgs := root.Get("error").Array(); len(msgs) != 0 {
		texts := make([]string, 0, len(msgs))
		for _, m := range msgs {
			texts = append(texts, m.String())
		}
		return nil, 0, exception.Tag(exception.ErrBackfillResponse, errors.New(strings.Join(texts, "; ")))
	}

	result := root.Get("result")
	if !result.IsObject() {
		return nil, 0, parseError("missing result")
	}

	var (
		rows gjson.Result
		last = result.Get("last").Int()
	)
	result.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "last" {
			return true
		}
		rows = value
		return false
	})

	if !rows.IsArray() {
		return nil, last, parseError("missing ohlc rows")
	}

	width := interval.Duration()
	candles := make([]model.Candle, 0, len(rows.Array()))
	for i, row := range rows.Array() {
		fields := row.Array()
		if len(fields) < 8 {
			return nil, last, parseError("short ohlc row")
		}

		var values [7]decimal.Decimal
		for j := range values {
			v, err := number(fields[j])
			if err != nil {
				return nil, last, exception.Tag(exception.ErrParse, errors.Wrapf(err, "row %d field %d", i, j))
			}
			values[j] = v
		}

		begin, err := millis(values[0])
		if err != nil {
			return nil, last, exception.Tag(exception.ErrParse, errors.Wrapf(err, "row %d time", i))
		}

		candles = append(candles, model.Candle{
			Time:   candle.Bucket(begin, width),
			Open:   toFloat(values[1]),
			High:   toFloat(values[2]),
			Low:    toFloat(values[3]),
			Close:  toFloat(values[4]),
			VWAP:   toFloat(values[5]),
			Volume: toFloat(values[6]),
			Trades: fields[7].Int(),
		})
	}

	return candles, last, nil
}
