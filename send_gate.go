package mqttq

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// sendGate serializes every outbound write. It also owns the connection
// handle: attaching and detaching take the same mutex as a write, so a send
// can never race with teardown.
type sendGate struct {
	mu   sync.Mutex
	conn net.Conn

	attached atomic.Bool

	// failed is the connection the last failed send dropped, with its error.
	failed    net.Conn
	failedErr error

	writeTimeout  time.Duration
	maxPacketSize uint32
	clock         *keepAliveClock
	metrics       *clientMetrics
}

func (g *sendGate) attach(conn net.Conn) {
	g.mu.Lock()
	g.conn = conn
	g.failed, g.failedErr = nil, nil
	g.attached.Store(true)
	g.mu.Unlock()
}

// detach removes the handle and returns it. When only is non-nil the handle
// is removed only if it is that connection; otherwise nil is returned.
func (g *sendGate) detach(only net.Conn) net.Conn {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn := g.conn
	if conn == nil || (only != nil && conn != only) {
		return nil
	}

	g.conn = nil
	g.attached.Store(false)
	return conn
}

func (g *sendGate) isAttached() bool {
	return g.attached.Load()
}

// writeFailure returns the error of the send that dropped conn, or nil.
func (g *sendGate) writeFailure(conn net.Conn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failed == nil || g.failed != conn {
		return nil
	}
	return g.failedErr
}

// send writes pkt to the attached connection. A failed write detaches and
// closes the connection since the stream can no longer be trusted.
func (g *sendGate) send(pkt Packet) error {
	return g.sendWithin(pkt, g.writeTimeout)
}

// sendWithin is send with its own write timeout. Zero means no deadline.
func (g *sendGate) sendWithin(pkt Packet, timeout time.Duration) error {
	if !g.isAttached() {
		return ErrNotConnected
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if err := encodePacket(buf, pkt, g.maxPacketSize); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		return ErrNotConnected
	}

	if err := g.write(g.conn, pkt.Type(), buf.Bytes(), timeout); err != nil {
		g.conn.Close()
		g.failed, g.failedErr = g.conn, err
		g.conn = nil
		g.attached.Store(false)
		g.metrics.connected(false)
		return err
	}

	return nil
}

// sendVia writes pkt to a connection that is not attached yet. It is used
// for CONNECT, which must go out before the handshake completes.
func (g *sendGate) sendVia(conn net.Conn, pkt Packet) error {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := encodePacket(buf, pkt, g.maxPacketSize); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.write(conn, pkt.Type(), buf.Bytes(), g.writeTimeout)
}

func (g *sendGate) write(conn net.Conn, t PacketType, frame []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return NewTransportError("write "+t.String(), err)
		}
		defer conn.SetWriteDeadline(time.Time{})
	}

	n, err := conn.Write(frame)
	if err != nil {
		return NewTransportError("write "+t.String(), err)
	}

	g.clock.touch()
	g.metrics.packetSent(t, n)
	return nil
}
