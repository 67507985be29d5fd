package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/pkg/exception"
	"github.com/yanun0323/logs"
)

// runSession serves one open connection until it fails, goes idle or ctx is done.
// The reader goroutine has exited by the time it returns.
func (m *Manager) runSession(ctx context.Context, conn Conn) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lastRead atomic.Int64
	lastRead.Store(time.Now().UnixNano())

	errCh := make(chan error, 1)
	go m.readLoop(sessionCtx, conn, &lastRead, errCh)

	stop := func(code CloseCode, reason string, err error) error {
		_ = conn.Close(code, reason)
		<-errCh
		return err
	}

	var ping <-chan time.Time
	if m.opt.PingInterval > 0 {
		pingTicker := time.NewTicker(m.opt.PingInterval)
		defer pingTicker.Stop()
		ping = pingTicker.C
	}

	var idle <-chan time.Time
	if m.opt.IdleTimeout > 0 {
		idleTicker := time.NewTicker(idleCheckPeriod(m.opt.IdleTimeout))
		defer idleTicker.Stop()
		idle = idleTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return stop(CloseGoingAway, "shutdown", ctx.Err())
		case err := <-errCh:
			return err
		case <-ping:
			if err := m.ping(sessionCtx, conn); err != nil {
				return stop(CloseNormal, "ping_failed", err)
			}
		case now := <-idle:
			since := now.Sub(time.Unix(0, lastRead.Load()))
			if since > m.opt.IdleTimeout {
				logs.Warnf("websocket idle for %s, closing half-open session", since)
				return stop(CloseNormal, "idle_timeout", exception.ErrIdleTimeout)
			}
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, conn Conn, lastRead *atomic.Int64, errCh chan<- error) {
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			errCh <- err
			return
		}

		lastRead.Store(time.Now().UnixNano())
		if msgType != MessageText && msgType != MessageBinary {
			continue
		}

		if len(payload) == 0 {
			continue
		}

		if m.opt.OnMessage != nil {
			m.opt.OnMessage(payload)
		}
	}
}

func (m *Manager) ping(ctx context.Context, conn Conn) error {
	if m.opt.PingPayload == nil {
		return conn.Write(ctx, MessagePing, nil)
	}
	return conn.Write(ctx, MessageText, m.opt.PingPayload())
}

func idleCheckPeriod(timeout time.Duration) time.Duration {
	period := timeout / 4
	if period > time.Second {
		period = time.Second
	}
	if period <= 0 {
		period = time.Millisecond
	}
	return period
}
