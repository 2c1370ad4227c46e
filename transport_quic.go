package mqttq

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// quicALPN is the ALPN protocol negotiated for MQTT over QUIC.
const quicALPN = "mqtt"

// QUICConn carries MQTT over a single bidirectional QUIC stream and
// implements net.Conn.
type QUICConn struct {
	conn   *quic.Conn
	stream *quic.Stream

	closeOnce sync.Once
	closeErr  error
}

// Read reads data from the QUIC stream.
func (c *QUICConn) Read(b []byte) (int, error) {
	return c.stream.Read(b)
}

// Write writes data to the QUIC stream.
func (c *QUICConn) Write(b []byte) (int, error) {
	return c.stream.Write(b)
}

// Close closes the stream and the connection it belongs to.
func (c *QUICConn) Close() error {
	c.closeOnce.Do(func() {
		c.stream.CancelRead(0)
		c.closeErr = c.stream.Close()
		if err := c.conn.CloseWithError(0, ""); c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// LocalAddr returns the local network address.
func (c *QUICConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *QUICConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (c *QUICConn) SetDeadline(t time.Time) error {
	return c.stream.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *QUICConn) SetReadDeadline(t time.Time) error {
	return c.stream.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *QUICConn) SetWriteDeadline(t time.Time) error {
	return c.stream.SetWriteDeadline(t)
}

// QUICDialer connects to MQTT brokers over QUIC.
type QUICDialer struct {
	// TLSConfig is the TLS configuration. QUIC always runs TLS 1.3.
	TLSConfig *tls.Config

	// QUICConfig is the QUIC configuration. Nil uses quic-go defaults.
	QUICConfig *quic.Config
}

// NewQUICDialer creates a QUIC dialer. A nil config verifies the broker
// against the system roots.
func NewQUICDialer(tlsConfig *tls.Config) *QUICDialer {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	if len(tlsConfig.NextProtos) == 0 {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.NextProtos = []string{quicALPN}
	}
	return &QUICDialer{TLSConfig: tlsConfig}
}

// Dial connects to "host:port" and opens the stream MQTT runs on.
func (d *QUICDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{quicALPN}}
	}

	conn, err := quic.DialAddr(ctx, address, tlsConfig, d.QUICConfig)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "failed to open stream")
		return nil, err
	}

	return &QUICConn{conn: conn, stream: stream}, nil
}
