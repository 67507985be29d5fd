package obs

import (
	"sync/atomic"
	"time"
)

// Counter identifies one feed counter.
type Counter uint8

const (
	CounterFrames Counter = iota
	CounterParseErrors
	CounterTickers
	CounterTrades
	CounterCandles
	CounterCandlesRejected
	CounterSubscriptionErrors
	CounterConnects
	CounterDisconnects
	CounterReconcilePasses
	CounterReconcileFailures
	_counter_end
)

func (c Counter) String() string {
	switch c {
	case CounterFrames:
		return "frames"
	case CounterParseErrors:
		return "parse_errors"
	case CounterTickers:
		return "tickers"
	case CounterTrades:
		return "trades"
	case CounterCandles:
		return "candles"
	case CounterCandlesRejected:
		return "candles_rejected"
	case CounterSubscriptionErrors:
		return "subscription_errors"
	case CounterConnects:
		return "connects"
	case CounterDisconnects:
		return "disconnects"
	case CounterReconcilePasses:
		return "reconcile_passes"
	case CounterReconcileFailures:
		return "reconcile_failures"
	default:
		return "unknown"
	}
}

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	counts [_counter_end]uint64

	reconcileLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Counts           map[string]uint64 `json:"counts"`
	ReconcileLatency LatencySnapshot   `json:"reconcileLatency"`
}

// Count returns the value of c, zero when unset.
func (s Snapshot) Count(c Counter) uint64 {
	return s.Counts[c.String()]
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc adds one to c.
func (m *Metrics) Inc(c Counter) {
	m.Add(c, 1)
}

func (m *Metrics) Add(c Counter, n uint64) {
	if m == nil || c >= _counter_end {
		return
	}
	atomic.AddUint64(&m.counts[c], n)
}

// ObserveReconcile measures one reconcile pass.
func (m *Metrics) ObserveReconcile(d time.Duration) {
	if m == nil {
		return
	}
	m.reconcileLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	counts := make(map[string]uint64)
	for i := range m.counts {
		if v := atomic.LoadUint64(&m.counts[i]); v > 0 {
			counts[Counter(i).String()] = v
		}
	}
	return Snapshot{
		Counts:           counts,
		ReconcileLatency: m.reconcileLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
