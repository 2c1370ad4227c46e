package mqttq

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSubprotocol is the MQTT WebSocket subprotocol.
const WebSocketSubprotocol = "mqtt"

// ErrTextFrame is returned when the broker sends a text frame; MQTT over
// WebSocket uses binary frames only.
var ErrTextFrame = errors.New("websocket: unexpected text frame")

// WSConn wraps a WebSocket connection to implement net.Conn.
//
// gorilla/websocket treats a read timeout as fatal, while the receiver
// relies on short read deadlines to poll. Frames are therefore read by a
// pump goroutine and Read applies the deadline itself.
type WSConn struct {
	conn *websocket.Conn

	frames  chan []byte
	readErr error // valid once frames is closed
	buf     []byte

	mu           sync.Mutex
	readDeadline time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

func newWSConn(conn *websocket.Conn) *WSConn {
	c := &WSConn{
		conn:   conn,
		frames: make(chan []byte),
		closed: make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *WSConn) pump() {
	defer close(c.frames)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				err = io.EOF
			}
			c.readErr = err
			return
		}

		if messageType != websocket.BinaryMessage {
			c.readErr = ErrTextFrame
			return
		}

		select {
		case c.frames <- data:
		case <-c.closed:
			c.readErr = net.ErrClosed
			return
		}
	}
}

// Read reads data from the connection.
func (c *WSConn) Read(b []byte) (int, error) {
	if len(c.buf) > 0 {
		n := copy(b, c.buf)
		c.buf = c.buf[n:]
		return n, nil
	}

	c.mu.Lock()
	deadline := c.readDeadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data, ok := <-c.frames:
		if !ok {
			return 0, c.readErr
		}
		n := copy(b, data)
		c.buf = data[n:]
		return n, nil
	case <-timeout:
		return 0, os.ErrDeadlineExceeded
	case <-c.closed:
		return 0, net.ErrClosed
	}
}

// Write writes data to the connection as a binary message.
func (c *WSConn) Write(b []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close sends a close frame and closes the connection.
func (c *WSConn) Close() error {
	err := net.ErrClosed
	c.closeOnce.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

// LocalAddr returns the local network address.
func (c *WSConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (c *WSConn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	c.mu.Unlock()
	return nil
}

// SetWriteDeadline sets the write deadline.
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// WSDialer connects to MQTT brokers over WebSocket.
type WSDialer struct {
	// Dialer is the underlying WebSocket dialer.
	Dialer *websocket.Dialer

	// Header is the HTTP header to send with the handshake.
	Header http.Header
}

// NewWSDialer creates a new WebSocket dialer with MQTT subprotocol.
func NewWSDialer() *WSDialer {
	return &WSDialer{
		Dialer: &websocket.Dialer{
			Subprotocols:     []string{WebSocketSubprotocol},
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Dial connects to the WebSocket URL, e.g. "ws://broker:8080/mqtt".
func (d *WSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, address, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return newWSConn(conn), nil
}
