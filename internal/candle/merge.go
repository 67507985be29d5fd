package candle

import (
	"math"
	"sort"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
)

// Bucket floors t (unix ms) to the start of its interval.
func Bucket(t int64, width time.Duration) int64 {
	w := width.Milliseconds()
	if w <= 0 {
		return t
	}
	b := t / w * w
	if t < 0 && t%w != 0 {
		b -= w
	}
	return b
}

// Merge folds incoming into series and returns a new series. series is never modified.
//
// A realtime update in the last bucket is merged into it. A later bucket is
// appended, with flat zero volume fillers for every skipped bucket. Anything
// else is an authoritative correction that replaces or is inserted at its time.
// Fillers never exceed CapacityFor(width): candles beyond the retention horizon
// are left out instead of being built and trimmed.
func Merge(series model.CandleSeries, incoming model.Candle, width time.Duration, realtime bool) model.CandleSeries {
	incoming.Time = Bucket(incoming.Time, width)
	if len(series) == 0 {
		return model.CandleSeries{incoming}
	}

	last := series[len(series)-1]
	lastBucket := Bucket(last.Time, width)
	w := width.Milliseconds()

	switch {
	case incoming.Time == lastBucket && realtime:
		out := series.Clone()
		out[len(out)-1] = mergeSameBucket(last, incoming)
		return out
	case incoming.Time > lastBucket:
		limit := CapacityFor(width)
		gaps := 0
		if w > 0 {
			gaps = bounded(steps(lastBucket, incoming.Time, w)-1, limit)
		}
		if gaps >= limit-1 {
			out := make(model.CandleSeries, 0, limit)
			for i := limit - 1; i >= 1; i-- {
				out = append(out, model.Flat(incoming.Time-int64(i)*w, last.Close))
			}
			return append(out, incoming)
		}
		out := make(model.CandleSeries, len(series), len(series)+gaps+1)
		copy(out, series)
		for i := 1; i <= gaps; i++ {
			out = append(out, model.Flat(lastBucket+int64(i)*w, last.Close))
		}
		return append(out, incoming)
	default:
		return insert(series, incoming, w, CapacityFor(width))
	}
}

func mergeSameBucket(last, incoming model.Candle) model.Candle {
	merged := last
	merged.High = max(last.High, incoming.High)
	merged.Low = min(last.Low, incoming.Low)
	merged.Close = incoming.Close
	merged.Volume = last.Volume + incoming.Volume
	merged.Trades = last.Trades + incoming.Trades
	merged.VWAP = weightedAverage(last.VWAP, last.Volume, incoming.Close, incoming.Volume, incoming.Close)
	return merged
}

// weightedAverage falls back to fallback when the total weight is zero.
func weightedAverage(v1, w1, v2, w2, fallback float64) float64 {
	total := w1 + w2
	if total == 0 {
		return fallback
	}
	return (v1*w1 + v2*w2) / total
}

// insert places a correction at its time. A correction older than the whole
// series is bridged to the first candle with fillers at its own close, keeping
// at most limit candles counted from the newest.
func insert(series model.CandleSeries, incoming model.Candle, w int64, limit int) model.CandleSeries {
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Time >= incoming.Time
	})

	if idx < len(series) && series[idx].Time == incoming.Time {
		out := series.Clone()
		out[idx] = incoming
		return out
	}

	if idx > 0 || w <= 0 {
		out := make(model.CandleSeries, 0, len(series)+1)
		out = append(out, series[:idx]...)
		out = append(out, incoming)
		return append(out, series[idx:]...)
	}

	room := limit - len(series)
	if room <= 0 {
		return series.Clone()
	}

	first := series[0].Time
	gaps := bounded(steps(incoming.Time, first, w)-1, room)
	keep := min(gaps+1, room)

	out := make(model.CandleSeries, 0, len(series)+keep)
	if keep == gaps+1 {
		out = append(out, incoming)
		keep--
	}
	for i := keep; i >= 1; i-- {
		out = append(out, model.Flat(first-int64(i)*w, incoming.Close))
	}
	return append(out, series...)
}

// steps counts whole widths w from a to a later b, saturating on overflow.
func steps(a, b, w int64) int64 {
	d := b - a
	if d < 0 {
		return math.MaxInt64
	}
	return d / w
}

// bounded converts n to int, clamped to [0, limit].
func bounded(n int64, limit int) int {
	if n <= 0 {
		return 0
	}
	if n > int64(limit) {
		return limit
	}
	return int(n)
}
