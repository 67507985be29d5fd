package candle

import (
	"math"
	"sort"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/errors"
)

// Check returns an ErrValidation error when c breaks the candle invariants.
func Check(c model.Candle) error {
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume, c.VWAP} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return exception.Tag(exception.ErrValidation, errors.New("non finite field"))
		}
	}

	switch {
	case c.Open <= 0 || c.Close <= 0:
		return exception.Tag(exception.ErrValidation, errors.New("non positive open or close"))
	case c.High < c.Low:
		return exception.Tag(exception.ErrValidation, errors.New("high below low"))
	case c.High < max(c.Open, c.Close):
		return exception.Tag(exception.ErrValidation, errors.New("high below open or close"))
	case c.Low > min(c.Open, c.Close):
		return exception.Tag(exception.ErrValidation, errors.New("low above open or close"))
	case c.Volume < 0:
		return exception.Tag(exception.ErrValidation, errors.New("negative volume"))
	case c.Trades < 0:
		return exception.Tag(exception.ErrValidation, errors.New("negative trade count"))
	}

	return nil
}

// Validate drops invalid candles and returns the rest sorted by time.
// When two candles share a time the later one in input order wins.
func Validate(candles []model.Candle) model.CandleSeries {
	out := make(model.CandleSeries, 0, len(candles))
	for _, c := range candles {
		if Check(c) != nil {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Time == out[i].Time {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}

	return out[:n]
}
