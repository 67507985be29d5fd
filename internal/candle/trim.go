package candle

import (
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
)

const (
	DefaultStaleThreshold = 5 * time.Minute
)

// CapacityFor is the retention horizon for a width, roughly a fixed wall clock span.
func CapacityFor(width time.Duration) int {
	switch {
	case width >= 24*time.Hour:
		return 365
	case width >= 4*time.Hour:
		return 180
	case width >= time.Hour:
		return 168
	case width >= 15*time.Minute:
		return 96
	default:
		return 1440
	}
}

// Trim keeps at most min(maxCandles, CapacityFor(width)) of the most recent candles.
// maxCandles <= 0 applies the capacity alone. The returned slice shares no memory with series when trimmed.
func Trim(series model.CandleSeries, width time.Duration, maxCandles int) model.CandleSeries {
	limit := CapacityFor(width)
	if maxCandles > 0 && maxCandles < limit {
		limit = maxCandles
	}

	if len(series) <= limit {
		return series
	}

	return series[len(series)-limit:].Clone()
}

// IsStale reports whether data last updated at lastUpdate should be fetched again.
// Sub-hour widths tighten the threshold to two intervals.
func IsStale(lastUpdate, now time.Time, width, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}

	if width > 0 && width < time.Hour {
		threshold = min(threshold, 2*width)
	}

	return now.Sub(lastUpdate) > threshold
}
