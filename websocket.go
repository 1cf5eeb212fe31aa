package livefeed

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebsocketDialer connects to a plain WebSocket endpoint without
// sub-protocol or handshake timeout
type WebsocketDialer struct {
	URL    string
	Header http.Header

	dialer *websocket.Dialer
}

func NewWebsocketDialer(url string) *WebsocketDialer {
	return &WebsocketDialer{
		URL: url,
		dialer: &websocket.Dialer{
			Proxy: http.ProxyFromEnvironment,
		},
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	log.Debug().Msgf("Dialing %s", d.URL)
	conn, resp, err := d.dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", d.URL, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	return &websocketConn{conn: conn}, nil
}

type websocketConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// ReadMessage returns text and binary frames alike
func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return payload, nil
}

func (c *websocketConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
