package feed

import (
	"context"
	"slices"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/websocket"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint   = "wss://ws.kraken.com"
	DefaultMaxCandles = 1000
	DefaultMaxTrades  = 500
)

// HistorySource serves historical candles for Backfill.
type HistorySource interface {
	OHLC(ctx context.Context, symbol string, interval model.Interval, since int64) ([]model.Candle, error)
}

// Config is the client runtime configuration. Zero values take the defaults.
type Config struct {
	// Endpoint is the public WebSocket URL.
	Endpoint string
	// Intervals is the table of candle widths the client accepts.
	Intervals []model.Interval
	// MaxCandles caps every candle series on top of the per-width horizon.
	MaxCandles int
	// MaxTrades caps the recent trades kept per symbol.
	MaxTrades int

	PingInterval time.Duration
	IdleTimeout  time.Duration
	Backoff      websocket.Backoff
	CommandRate  rate.Limit
	CommandBurst int

	// Pacing, RateLimitDelay and ReadyTimeout tune the reconcile passes.
	Pacing         time.Duration
	RateLimitDelay time.Duration
	ReadyTimeout   time.Duration

	// History backs Backfill. Optional; nil disables it.
	History HistorySource
}

func (cfg *Config) init() {
	if len(cfg.Endpoint) == 0 {
		cfg.Endpoint = DefaultEndpoint
	}

	if len(cfg.Intervals) == 0 {
		cfg.Intervals = model.Intervals()
	} else {
		cfg.Intervals = slices.Clone(cfg.Intervals)
		slices.Sort(cfg.Intervals)
		cfg.Intervals = slices.Compact(cfg.Intervals)
	}

	if cfg.MaxCandles <= 0 {
		cfg.MaxCandles = DefaultMaxCandles
	}

	if cfg.MaxTrades <= 0 {
		cfg.MaxTrades = DefaultMaxTrades
	}
}

func (cfg Config) allows(interval model.Interval) bool {
	return slices.Contains(cfg.Intervals, interval)
}
