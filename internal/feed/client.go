package feed

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/candle"
	"github.com/drewalbert7/Keepitbased-sub001/internal/kraken"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/internal/obs"
	"github.com/drewalbert7/Keepitbased-sub001/internal/subscription"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// SubscribeOptions qualifies a subscription. Interval applies to the ohlc channel only.
type SubscribeOptions struct {
	Interval model.Interval
}

// Client is one market data connection shared by any number of consumers.
// Consumers add and remove interest with Subscribe and Unsubscribe; the
// connection stays up until Close.
type Client struct {
	cfg        Config
	manager    *websocket.Manager
	registry   *subscription.Registry
	decoder    *kraken.Decoder
	encoder    *kraken.Encoder
	aggregator *candle.Aggregator
	metrics    *obs.Metrics

	handlers atomic.Pointer[Handlers]
	lastErr  atomic.Pointer[errorBox]
	trigger  chan struct{}

	desiredMu sync.Mutex
	desired   map[model.Subscription]int

	tickersMu sync.RWMutex
	tickers   map[string]model.Ticker

	tradesMu sync.RWMutex
	trades   map[string][]model.Trade

	workerMu     sync.Mutex
	workerCancel context.CancelFunc
	workerDone   chan struct{}
}

type errorBox struct {
	err error
}

// New builds a client. A nil dialer dials cfg.Endpoint with gorilla/websocket.
func New(cfg Config, dialer websocket.Dialer) (*Client, error) {
	cfg.init()

	if dialer == nil {
		dialer = websocket.NewDialer(cfg.Endpoint, nil)
	}

	c := &Client{
		cfg:        cfg,
		decoder:    kraken.NewDecoder(time.Now),
		encoder:    kraken.NewEncoder(),
		aggregator: candle.NewAggregator(cfg.MaxCandles),
		metrics:    obs.NewMetrics(),
		trigger:    make(chan struct{}, 1),
		desired:    make(map[model.Subscription]int),
		tickers:    make(map[string]model.Ticker),
		trades:     make(map[string][]model.Trade),
	}

	manager, err := websocket.New(dialer, websocket.Option{
		PingInterval: cfg.PingInterval,
		PingPayload:  c.pingPayload,
		IdleTimeout:  cfg.IdleTimeout,
		Backoff:      cfg.Backoff,
		CommandRate:  cfg.CommandRate,
		CommandBurst: cfg.CommandBurst,
		OnConnect:    c.handleConnect,
		OnDisconnect: c.handleDisconnect,
		OnMessage:    c.dispatch,
		OnError:      c.fail,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new connection manager")
	}

	c.manager = manager
	c.registry = subscription.New(manager, c.encoder, subscription.Option{
		Pacing:         cfg.Pacing,
		RateLimitDelay: cfg.RateLimitDelay,
		ReadyTimeout:   cfg.ReadyTimeout,
	})

	return c, nil
}

// SetHandlers replaces the whole callback bundle. The last call wins.
func (c *Client) SetHandlers(h Handlers) {
	c.handlers.Store(&h)
}

// Connect opens the connection and starts the reconcile worker. It returns
// the result of the first dial; on failure the client keeps retrying.
func (c *Client) Connect(ctx context.Context) error {
	if c == nil {
		return exception.ErrNilInstance
	}

	c.startWorker()
	return c.manager.Connect(ctx)
}

// Close disconnects and stops the worker. Candle and ticker state is kept.
// It must not be called from a Handlers callback.
func (c *Client) Close() {
	if c == nil {
		return
	}

	c.manager.Disconnect()
	c.stopWorker()
}

// Subscribe adds one unit of interest in every (symbol, channel) pair.
func (c *Client) Subscribe(symbols []string, channel enum.Channel, opt SubscribeOptions) error {
	subs, err := c.subscriptions(symbols, channel, opt)
	if err != nil {
		return err
	}

	changed := false
	c.desiredMu.Lock()
	for _, sub := range subs {
		if c.desired[sub] == 0 {
			changed = true
		}
		c.desired[sub]++
	}
	c.desiredMu.Unlock()

	if changed {
		c.kick()
	}
	return nil
}

// Unsubscribe removes one unit of interest. A pair leaves the server side
// subscription only when no consumer is left holding it.
func (c *Client) Unsubscribe(symbols []string, channel enum.Channel, opt SubscribeOptions) error {
	subs, err := c.subscriptions(symbols, channel, opt)
	if err != nil {
		return err
	}

	changed := false
	c.desiredMu.Lock()
	for _, sub := range subs {
		n, ok := c.desired[sub]
		if !ok {
			continue
		}
		if n <= 1 {
			delete(c.desired, sub)
			changed = true
			continue
		}
		c.desired[sub] = n - 1
	}
	c.desiredMu.Unlock()

	if changed {
		c.kick()
	}
	return nil
}

func (c *Client) subscriptions(symbols []string, channel enum.Channel, opt SubscribeOptions) ([]model.Subscription, error) {
	if c == nil {
		return nil, exception.ErrNilInstance
	}

	if !channel.IsAvailable() {
		return nil, exception.Tag(exception.ErrUnsupportedChannel, errors.Errorf("channel %d", channel))
	}

	interval := model.Interval(0)
	if channel == enum.ChannelOHLC {
		if !c.cfg.allows(opt.Interval) {
			return nil, exception.Tag(exception.ErrUnsupportedInterval, errors.Errorf("interval %d", opt.Interval))
		}
		interval = opt.Interval
	}

	if len(symbols) == 0 {
		return nil, exception.Tag(exception.ErrInvalidSubscription, errors.New("no symbols"))
	}

	subs := make([]model.Subscription, 0, len(symbols))
	for _, symbol := range symbols {
		sub := model.Subscription{Symbol: strings.TrimSpace(symbol), Channel: channel, Interval: interval}
		if !sub.IsAvailable() {
			return nil, exception.Tag(exception.ErrInvalidSubscription, errors.Errorf("subscription %s", sub))
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (c *Client) desiredSet() subscription.Set {
	c.desiredMu.Lock()
	defer c.desiredMu.Unlock()

	set := make(subscription.Set, len(c.desired))
	for sub := range c.desired {
		set[sub] = struct{}{}
	}
	return set
}

// kick asks the worker for a pass. Pending requests coalesce into one.
func (c *Client) kick() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

func (c *Client) startWorker() {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()

	if c.workerCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.workerCancel = cancel
	c.workerDone = done

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.trigger:
			}
			c.reconcile(ctx)
		}
	}()
}

func (c *Client) stopWorker() {
	c.workerMu.Lock()
	cancel, done := c.workerCancel, c.workerDone
	c.workerCancel, c.workerDone = nil, nil
	c.workerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) reconcile(ctx context.Context) {
	start := time.Now()
	err := c.registry.Reconcile(ctx, c.desiredSet())
	c.metrics.ObserveReconcile(time.Since(start))
	c.metrics.Inc(obs.CounterReconcilePasses)

	if err == nil || ctx.Err() != nil {
		return
	}

	c.metrics.Inc(obs.CounterReconcileFailures)
	c.fail(errors.Wrap(err, "reconcile subscriptions"))
}

func (c *Client) pingPayload() []byte {
	payload, err := c.encoder.EncodePing()
	if err != nil {
		logs.Errorf("encode ping, err: %+v", err)
		return nil
	}
	return payload
}

func (c *Client) handleConnect() {
	c.metrics.Inc(obs.CounterConnects)
	logs.Infof("connected to %s", c.cfg.Endpoint)
	c.kick()
	c.handlers.Load().connect()
}

func (c *Client) handleDisconnect(err error) {
	c.metrics.Inc(obs.CounterDisconnects)
	c.registry.Reset()
	if err != nil {
		c.setLastError(err)
		logs.Warnf("disconnected from %s, err: %+v", c.cfg.Endpoint, err)
	} else {
		logs.Infof("disconnected from %s", c.cfg.Endpoint)
	}
	c.handlers.Load().disconnect(err)
}

// fail records err as the latest error and hands it to OnError.
func (c *Client) fail(err error) {
	if err == nil {
		return
	}
	c.setLastError(err)
	logs.Errorf("market feed, err: %+v", err)
	c.handlers.Load().fail(err)
}

func (c *Client) setLastError(err error) {
	c.lastErr.Store(&errorBox{err: err})
}
