package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/model"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Conn is the part of the connection manager a registry drives.
type Conn interface {
	IsConnected() bool
	IsRateLimited() bool
	WaitReady(ctx context.Context) error
	Send(ctx context.Context, payload []byte) error
}

type Encoder interface {
	EncodeSubscribe(channel enum.Channel, interval model.Interval, symbols []string) ([]byte, error)
	EncodeUnsubscribe(channel enum.Channel, interval model.Interval, symbols []string) ([]byte, error)
}

type Option struct {
	// Pacing is the pause between two command groups.
	Pacing time.Duration
	// RateLimitDelay is how long a pass defers while the connection is rate limited.
	RateLimitDelay time.Duration
	// RateLimitRetries bounds the deferrals per command before the pass gives up.
	RateLimitRetries int
	// ReadyTimeout bounds the wait for an open connection.
	ReadyTimeout time.Duration
}

func (opt *Option) init() {
	if opt.Pacing < 0 {
		opt.Pacing = 0
	} else if opt.Pacing == 0 {
		opt.Pacing = 500 * time.Millisecond
	}

	if opt.RateLimitDelay <= 0 {
		opt.RateLimitDelay = 5 * time.Second
	}

	if opt.RateLimitRetries <= 0 {
		opt.RateLimitRetries = 3
	}

	if opt.ReadyTimeout <= 0 {
		opt.ReadyTimeout = 3 * time.Second
	}
}

// Registry converges the server side subscriptions of one connection to a desired set.
type Registry struct {
	conn Conn
	enc  Encoder
	opt  Option

	pass sync.Mutex

	mu     sync.RWMutex
	active Set
	gen    uint64
}

func New(conn Conn, enc Encoder, option ...Option) *Registry {
	opt := Option{}
	if len(option) != 0 {
		opt = option[0]
	}
	opt.init()

	return &Registry{
		conn:   conn,
		enc:    enc,
		opt:    opt,
		active: Set{},
	}
}

// Active returns a copy of the subscriptions the server is believed to hold.
func (r *Registry) Active() Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active.Clone()
}

// Reset forgets every active subscription. Call it when the connection drops.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = Set{}
	r.gen++
}

// Drop removes sub from the active set so the next pass requests it again.
func (r *Registry) Drop(sub model.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active.Has(sub) {
		return
	}
	next := r.active.Clone()
	delete(next, sub)
	r.active = next
}

// Reconcile issues the commands that turn the active set into desired.
// Unsubscribes go first, then one subscribe per channel and interval.
// Commands already sent stay applied when a later one fails.
func (r *Registry) Reconcile(ctx context.Context, desired Set) error {
	if r == nil {
		return exception.ErrNilInstance
	}

	r.pass.Lock()
	defer r.pass.Unlock()

	if !r.conn.IsConnected() {
		waitCtx, cancel := context.WithTimeout(ctx, r.opt.ReadyTimeout)
		err := r.conn.WaitReady(waitCtx)
		cancel()
		if err != nil {
			return exception.Tag(exception.ErrReconcileTimeout, err)
		}
	}

	r.mu.RLock()
	active, gen := r.active, r.gen
	r.mu.RUnlock()

	toRemove := active.Minus(desired)
	toAdd := desired.Minus(active)
	if len(toRemove) == 0 && len(toAdd) == 0 {
		return nil
	}

	logs.Debugf("reconcile subscriptions, remove %d, add %d", len(toRemove), len(toAdd))

	sent := 0
	for _, g := range toRemove.groups() {
		if err := r.apply(ctx, g, false, gen, &sent); err != nil {
			return err
		}
	}

	for _, g := range toAdd.groups() {
		if err := r.apply(ctx, g, true, gen, &sent); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) apply(ctx context.Context, g group, subscribe bool, gen uint64, sent *int) error {
	if *sent > 0 && !sleep(ctx, r.opt.Pacing) {
		return ctx.Err()
	}

	var (
		payload []byte
		err     error
		action  = "unsubscribe"
	)
	if subscribe {
		action = "subscribe"
		payload, err = r.enc.EncodeSubscribe(g.key.Channel, g.key.Interval, g.symbols)
	} else {
		payload, err = r.enc.EncodeUnsubscribe(g.key.Channel, g.key.Interval, g.symbols)
	}
	if err != nil {
		return errors.Wrapf(err, "encode %s %s", action, g.key.Channel)
	}

	if err := r.send(ctx, payload); err != nil {
		return errors.Wrapf(err, "%s %s %v", action, g.key.Channel, g.symbols)
	}
	*sent++

	logs.Infof("%s %s interval %d, symbols %v", action, g.key.Channel, g.key.Interval, g.symbols)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return nil
	}
	next := r.active.Clone()
	for _, symbol := range g.symbols {
		sub := model.Subscription{Symbol: symbol, Channel: g.key.Channel, Interval: g.key.Interval}
		if subscribe {
			next[sub] = struct{}{}
		} else {
			delete(next, sub)
		}
	}
	r.active = next

	return nil
}

// send defers while the connection is rate limited, up to RateLimitRetries times.
func (r *Registry) send(ctx context.Context, payload []byte) error {
	for attempt := 0; ; attempt++ {
		if !r.conn.IsRateLimited() {
			err := r.conn.Send(ctx, payload)
			if !exception.IsRateLimited(err) {
				return err
			}
		}

		if attempt >= r.opt.RateLimitRetries {
			return exception.Tag(exception.ErrRateLimited, errors.Errorf("gave up after %d deferrals", attempt))
		}

		logs.Warnf("rate limited, defer command for %s", r.opt.RateLimitDelay)
		if !sleep(ctx, r.opt.RateLimitDelay) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
