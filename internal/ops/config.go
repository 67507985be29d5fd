package ops

import (
	"os"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/drewalbert7/Keepitbased-sub001/internal/backfill"
	"github.com/drewalbert7/Keepitbased-sub001/internal/feed"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/errors"
)

const DefaultListen = ":8080"

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Endpoint     string         `json:"endpoint"`
	RestEndpoint string         `json:"restEndpoint"`
	Listen       string         `json:"listen"`
	Pairs        []string       `json:"pairs"`
	Channels     []string       `json:"channels"`
	Intervals    []int          `json:"intervals"`
	MaxCandles   int            `json:"maxCandles"`
	MaxTrades    int            `json:"maxTrades"`
	Backfill     *bool          `json:"backfill"`
	Profiler     ProfilerConfig `json:"profiler"`
}

// ProfilerConfig enables continuous profiling when Address is set.
type ProfilerConfig struct {
	Address string `json:"address"`
	AppName string `json:"appName"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Feed         feed.Config
	RestEndpoint string
	Listen       string
	Pairs        []string
	Channels     []enum.Channel
	Backfill     bool
	Profiler     ProfilerConfig
}

// Default is the configuration used when no file is given.
func Default() Loaded {
	loaded, _ := resolve(FileConfig{})
	return loaded
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse resolves a JSON config document.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	loaded := Loaded{
		RestEndpoint: cfg.RestEndpoint,
		Listen:       cfg.Listen,
		Backfill:     true,
		Profiler:     cfg.Profiler,
		Feed: feed.Config{
			Endpoint:   cfg.Endpoint,
			MaxCandles: cfg.MaxCandles,
			MaxTrades:  cfg.MaxTrades,
		},
	}

	if len(loaded.RestEndpoint) == 0 {
		loaded.RestEndpoint = backfill.DefaultBaseURL
	}

	if len(loaded.Listen) == 0 {
		loaded.Listen = DefaultListen
	}

	if cfg.Backfill != nil {
		loaded.Backfill = *cfg.Backfill
	}

	if len(loaded.Profiler.AppName) == 0 {
		loaded.Profiler.AppName = "marketfeed"
	}

	if cfg.MaxCandles < 0 || cfg.MaxTrades < 0 {
		return Loaded{}, exception.Tag(exception.ErrInvalidArgument, errors.New("maxCandles and maxTrades must be >= 0"))
	}

	pairs := cfg.Pairs
	if len(pairs) == 0 {
		pairs = []string{"XBT/USD", "ETH/USD"}
	}
	for _, p := range pairs {
		p = strings.ToUpper(strings.TrimSpace(p))
		if len(p) == 0 {
			return Loaded{}, exception.Tag(exception.ErrInvalidArgument, errors.New("empty pair"))
		}
		if !slices.Contains(loaded.Pairs, p) {
			loaded.Pairs = append(loaded.Pairs, p)
		}
	}

	names := cfg.Channels
	if len(names) == 0 {
		names = []string{"ticker", "trade", "ohlc"}
	}
	for _, name := range names {
		channel, ok := enum.ParseChannel(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return Loaded{}, exception.Tag(exception.ErrUnsupportedChannel, errors.Errorf("channel %q", name))
		}
		if !slices.Contains(loaded.Channels, channel) {
			loaded.Channels = append(loaded.Channels, channel)
		}
	}

	for _, minutes := range cfg.Intervals {
		interval := model.Interval(minutes)
		if !interval.IsAvailable() {
			return Loaded{}, exception.Tag(exception.ErrUnsupportedInterval, errors.Errorf("interval %d", minutes))
		}
		loaded.Feed.Intervals = append(loaded.Feed.Intervals, interval)
	}

	return loaded, nil
}
