package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const (
	DefaultDialerTimeout = 10 * time.Second
	DefaultReadLimit     = 1 << 20
	defaultWriteTimeout  = 5 * time.Second
)

type dialer struct {
	url       string
	header    http.Header
	ws        *gws.Dialer
	readLimit int64
}

// NewDialer returns a Dialer for url backed by gorilla/websocket.
func NewDialer(url string, header http.Header) Dialer {
	return &dialer{
		url:    url,
		header: header,
		ws: &gws.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  DefaultDialerTimeout,
			EnableCompression: true,
		},
		readLimit: DefaultReadLimit,
	}
}

func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := d.ws.DialContext(ctx, d.url, d.header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s, status %d", d.url, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", d.url)
	}
	conn.SetReadLimit(d.readLimit)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn      *gws.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	return MessageType(msgType), payload, nil
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	switch msgType {
	case MessagePing, MessagePong:
		return c.conn.WriteControl(int(msgType), payload, deadline)
	default:
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		return c.conn.WriteMessage(int(msgType), payload)
	}
}

func (c *wsConn) Close(code CloseCode, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(gws.CloseMessage, gws.FormatCloseMessage(int(code), reason), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
