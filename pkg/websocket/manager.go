package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/time/rate"
)

const (
	DefaultPingInterval      = 30 * time.Second
	DefaultCommandRate       = rate.Limit(5)
	DefaultCommandBurst      = 10
	DefaultRateLimitCooldown = 5 * time.Second
)

/*
func (m *Manager) Connect(ctx context.Context) error
func (m *Manager) Disconnect()
func (m *Manager) IsConnected() bool
func (m *Manager) IsRateLimited() bool
func (m *Manager) MarkRateLimited(d time.Duration)
func (m *Manager) Ready() <-chan struct{}
func (m *Manager) Send(ctx context.Context, payload []byte) error
func (m *Manager) State() State
func (m *Manager) WaitReady(ctx context.Context) error
*/

// Option defines the manager runtime configuration.
type Option struct {
	// PingInterval sends a heartbeat every interval. Optional; default DefaultPingInterval, <0 disables.
	PingInterval time.Duration
	// PingPayload builds a text heartbeat. Optional; default nil sends a control ping frame.
	PingPayload func() []byte
	// IdleTimeout closes a session that read nothing for this long. Optional; default 2*PingInterval, <0 disables.
	IdleTimeout time.Duration
	// Backoff defines reconnect backoff. Optional; default DefaultBackoff when all fields are zero.
	Backoff Backoff
	// CommandRate is the local token refill rate for Send. Optional; default DefaultCommandRate.
	CommandRate rate.Limit
	// CommandBurst is the local token bucket size for Send. Optional; default DefaultCommandBurst.
	CommandBurst int
	// RateLimitCooldown is how long Send is refused after the bucket runs dry. Optional; default DefaultRateLimitCooldown.
	RateLimitCooldown time.Duration

	// OnConnect runs on the lifecycle goroutine once the connection is open. Optional; must not block.
	OnConnect func()
	// OnDisconnect runs after a session ends with the terminal error (nil on Disconnect). Optional.
	OnDisconnect func(err error)
	// OnMessage receives every data frame in receipt order. Optional.
	OnMessage func(payload []byte)
	// OnError receives failures the manager could not recover from by itself. Optional.
	OnError func(err error)
}

func (opt *Option) init() {
	if opt.PingInterval == 0 {
		opt.PingInterval = DefaultPingInterval
	}

	if opt.IdleTimeout == 0 && opt.PingInterval > 0 {
		opt.IdleTimeout = 2 * opt.PingInterval
	}

	if opt.Backoff.isZero() {
		opt.Backoff = DefaultBackoff()
	}

	if opt.CommandRate <= 0 {
		opt.CommandRate = DefaultCommandRate
	}

	if opt.CommandBurst <= 0 {
		opt.CommandBurst = DefaultCommandBurst
	}

	if opt.RateLimitCooldown <= 0 {
		opt.RateLimitCooldown = DefaultRateLimitCooldown
	}
}

// Manager owns one WebSocket connection, its state and its reconnect loop.
// State transitions happen only inside the manager.
type Manager struct {
	opt     Option
	dialer  Dialer
	limiter *rate.Limiter

	state        atomic.Uint32
	limitedUntil atomic.Int64

	mu     sync.Mutex
	conn   Conn
	ready  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// New validates config and builds a manager.
func New(dialer Dialer, option ...Option) (*Manager, error) {
	if dialer == nil {
		return nil, exception.ErrNilDialer
	}

	var opt Option
	if len(option) != 0 {
		opt = option[0]
	}

	opt.init()

	return &Manager{
		opt:     opt,
		dialer:  dialer,
		limiter: rate.NewLimiter(opt.CommandRate, opt.CommandBurst),
		ready:   make(chan struct{}),
	}, nil
}

// Connect starts the connection lifecycle and blocks until the first dial
// resolves. A failed first dial is returned, but the lifecycle keeps retrying
// with backoff until Disconnect.
func (m *Manager) Connect(ctx context.Context) error {
	if m == nil {
		return exception.ErrNilInstance
	}

	m.mu.Lock()
	if m.cancel != nil {
		ready := m.ready
		m.mu.Unlock()
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return exception.Tag(exception.ErrConnection, ctx.Err())
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	first := make(chan error, 1)
	go func() {
		defer close(done)
		m.run(runCtx, first)
	}()

	select {
	case err := <-first:
		return err
	case <-ctx.Done():
		return exception.Tag(exception.ErrConnection, ctx.Err())
	}
}

// Disconnect stops the lifecycle and closes the connection. It is idempotent
// and must not be called from a manager callback.
func (m *Manager) Disconnect() {
	if m == nil {
		return
	}

	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// Ready returns a channel closed while the connection is open.
func (m *Manager) Ready() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// WaitReady blocks until the connection is open or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.Ready():
		return nil
	case <-ctx.Done():
		return exception.Tag(exception.ErrNotConnected, ctx.Err())
	}
}

// IsRateLimited reports whether the manager is in a cool-down window or out of command tokens.
func (m *Manager) IsRateLimited() bool {
	if time.Now().UnixNano() < m.limitedUntil.Load() {
		return true
	}
	return m.limiter.Tokens() < 1
}

// MarkRateLimited opens a cool-down window of d, e.g. after the server rejected a command for rate.
func (m *Manager) MarkRateLimited(d time.Duration) {
	if d <= 0 {
		d = m.opt.RateLimitCooldown
	}
	until := time.Now().Add(d).UnixNano()
	for {
		curr := m.limitedUntil.Load()
		if curr >= until || m.limitedUntil.CompareAndSwap(curr, until) {
			return
		}
	}
}

// Send writes a text command. It never queues: callers get ErrNotConnected
// or ErrRateLimited and decide when to retry.
func (m *Manager) Send(ctx context.Context, payload []byte) error {
	if m == nil {
		return exception.ErrNilInstance
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil || !m.IsConnected() {
		return exception.Tag(exception.ErrNotConnected, errors.Errorf("state %s", m.State()))
	}

	if time.Now().UnixNano() < m.limitedUntil.Load() {
		return exception.Tag(exception.ErrRateLimited, errors.New("cooling down"))
	}

	if !m.limiter.Allow() {
		m.MarkRateLimited(m.opt.RateLimitCooldown)
		return exception.Tag(exception.ErrRateLimited, errors.New("command bucket empty"))
	}

	if err := conn.Write(ctx, MessageText, payload); err != nil {
		return exception.Tag(exception.ErrConnection, err)
	}

	return nil
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := State(m.state.Swap(uint32(next)))
	if prev == next {
		return
	}

	if next == StateOpen {
		close(m.ready)
		return
	}

	if prev == StateOpen {
		m.ready = make(chan struct{})
	}
}

func (m *Manager) setConn(conn Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *Manager) emitError(err error) {
	if m.opt.OnError != nil {
		m.opt.OnError(err)
	}
}

func (m *Manager) run(ctx context.Context, first chan<- error) {
	report := func(err error) {
		if first != nil {
			first <- err
			first = nil
		}
	}
	defer func() {
		m.setState(StateClosed)
		report(exception.ErrClosed)
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(StateConnecting)
		conn, err := m.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			attempt++
			err = exception.Tag(exception.ErrConnection, err)
			report(err)
			m.setState(StateClosed)

			wait := m.opt.Backoff.Next(attempt)
			logs.Warnf("websocket dial failed, attempt: %d, retry in: %s, err: %+v", attempt, wait, err)
			if attempt == 1 || m.opt.Backoff.Capped(attempt) {
				m.emitError(err)
			}

			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		attempt = 0
		m.setConn(conn)
		m.setState(StateOpen)
		report(nil)
		logs.Info("websocket connected")

		if m.opt.OnConnect != nil {
			m.opt.OnConnect()
		}

		err = m.runSession(ctx, conn)

		m.setState(StateClosing)
		m.setConn(nil)
		_ = conn.Close(CloseNormal, "session_end")
		m.setState(StateClosed)

		if ctx.Err() != nil {
			logs.Info("websocket disconnected")
			if m.opt.OnDisconnect != nil {
				m.opt.OnDisconnect(nil)
			}
			return
		}

		if err == nil {
			err = exception.ErrClosed
		}
		err = exception.Tag(exception.ErrConnection, err)
		logs.Warnf("websocket session ended, reconnecting, err: %+v", err)
		if m.opt.OnDisconnect != nil {
			m.opt.OnDisconnect(err)
		}

		attempt++
		if !sleep(ctx, m.opt.Backoff.Next(attempt)) {
			return
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
