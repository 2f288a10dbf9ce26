package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/platform/version"
)

const (
	handshakeTimeout = 10 * time.Second
	closeWriteWait   = time.Second
)

// Dialer opens subscriber connections to the relay.
type Dialer struct {
	dialer *websocket.Dialer
	header http.Header
}

func NewDialer() *Dialer {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent("chat"))
	return &Dialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header: header,
	}
}

func (d *Dialer) Dial(ctx context.Context, url string) (domain.SubscriberConn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &subscriberConn{conn: conn}, nil
}

// subscriberConn sends a normal-closure frame before closing so the relay
// sees a clean disconnect.
type subscriberConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (c *subscriberConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *subscriberConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
