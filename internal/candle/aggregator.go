package candle

import (
	"sort"
	"sync"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/yanun0323/logs"
)

// Key identifies one series.
type Key struct {
	Symbol   string
	Interval model.Interval
}

type entry struct {
	series     model.CandleSeries
	lastUpdate time.Time
}

// Aggregator owns one candle series per (symbol, interval).
// Writers are serialized; a stored series is replaced, never modified, so a
// series handed to a reader stays consistent.
type Aggregator struct {
	maxCandles int
	now        func() time.Time

	mu     sync.RWMutex
	series map[Key]entry
}

// NewAggregator builds an aggregator keeping at most maxCandles per series (<= 0 uses CapacityFor only).
func NewAggregator(maxCandles int) *Aggregator {
	return &Aggregator{
		maxCandles: maxCandles,
		now:        time.Now,
		series:     make(map[Key]entry),
	}
}

// Apply merges c into the series of (symbol, interval) and returns the candle now held for its bucket.
// An invalid candle leaves the series untouched and returns an ErrValidation error.
func (a *Aggregator) Apply(symbol string, interval model.Interval, c model.Candle, realtime bool) (model.Candle, error) {
	if err := Check(c); err != nil {
		return model.Candle{}, err
	}

	key := Key{Symbol: symbol, Interval: interval}
	width := interval.Duration()

	a.mu.Lock()
	defer a.mu.Unlock()

	curr := a.series[key]
	next := Trim(Merge(curr.series, c, width, realtime), width, a.maxCandles)
	a.series[key] = entry{series: next, lastUpdate: a.now()}

	return bucketOf(next, Bucket(c.Time, width), c), nil
}

// Seed validates historical candles and merges them as corrections.
// It returns how many candles were accepted.
func (a *Aggregator) Seed(symbol string, interval model.Interval, candles []model.Candle) int {
	valid := Validate(candles)
	if dropped := len(candles) - len(valid); dropped > 0 {
		logs.Warnf("drop %d invalid candles, symbol: %s, interval: %s", dropped, symbol, interval.Label())
	}
	if len(valid) == 0 {
		return 0
	}

	key := Key{Symbol: symbol, Interval: interval}
	width := interval.Duration()

	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.series[key].series
	for _, c := range valid {
		next = Merge(next, c, width, false)
	}
	a.series[key] = entry{
		series:     Trim(next, width, a.maxCandles),
		lastUpdate: a.now(),
	}

	return len(valid)
}

// Series returns a copy of the series for (symbol, interval).
func (a *Aggregator) Series(symbol string, interval model.Interval) model.CandleSeries {
	a.mu.RLock()
	s := a.series[Key{Symbol: symbol, Interval: interval}].series
	a.mu.RUnlock()
	return s.Clone()
}

// LastUpdate returns when (symbol, interval) last changed.
func (a *Aggregator) LastUpdate(symbol string, interval model.Interval) (time.Time, bool) {
	a.mu.RLock()
	e, ok := a.series[Key{Symbol: symbol, Interval: interval}]
	a.mu.RUnlock()
	return e.lastUpdate, ok
}

// IsStale reports whether (symbol, interval) is missing or older than the default threshold.
func (a *Aggregator) IsStale(symbol string, interval model.Interval, now time.Time) bool {
	last, ok := a.LastUpdate(symbol, interval)
	if !ok {
		return true
	}
	return IsStale(last, now, interval.Duration(), DefaultStaleThreshold)
}

// Reset drops every series of symbol. An empty symbol drops everything.
func (a *Aggregator) Reset(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(symbol) == 0 {
		a.series = make(map[Key]entry)
		return
	}

	for key := range a.series {
		if key.Symbol == symbol {
			delete(a.series, key)
		}
	}
}

// Keys lists the tracked series ordered by symbol then interval.
func (a *Aggregator) Keys() []Key {
	a.mu.RLock()
	keys := make([]Key, 0, len(a.series))
	for key := range a.series {
		keys = append(keys, key)
	}
	a.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Interval < keys[j].Interval
	})
	return keys
}

func bucketOf(series model.CandleSeries, t int64, fallback model.Candle) model.Candle {
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Time >= t
	})
	if idx < len(series) && series[idx].Time == t {
		return series[idx]
	}
	fallback.Time = t
	return fallback
}
