package mqttq

import (
	"context"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quicStreamConn lets the broker side of a test use the packet helpers.
type quicStreamConn struct {
	*quic.Stream
	conn *quic.Conn
}

func (c quicStreamConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c quicStreamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func TestQUICDialerDefaults(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		dialer := NewQUICDialer(nil)
		require.NotNil(t, dialer.TLSConfig)
		assert.Equal(t, uint16(tls.VersionTLS13), dialer.TLSConfig.MinVersion)
		assert.Equal(t, []string{quicALPN}, dialer.TLSConfig.NextProtos)
	})

	t.Run("ALPN added without touching the caller's config", func(t *testing.T) {
		config := &tls.Config{ServerName: "broker"}
		dialer := NewQUICDialer(config)
		assert.Equal(t, []string{quicALPN}, dialer.TLSConfig.NextProtos)
		assert.Empty(t, config.NextProtos)
		assert.Equal(t, "broker", dialer.TLSConfig.ServerName)
	})

	t.Run("explicit ALPN kept", func(t *testing.T) {
		dialer := NewQUICDialer(&tls.Config{NextProtos: []string{"custom"}})
		assert.Equal(t, []string{"custom"}, dialer.TLSConfig.NextProtos)
	})
}

func TestQUICDialerErrors(t *testing.T) {
	dialer := NewQUICDialer(&tls.Config{InsecureSkipVerify: true})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dialer.Dial(ctx, "127.0.0.1:1234")
		assert.Error(t, err)
	})

	t.Run("no server", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := dialer.Dial(ctx, "127.0.0.1:59999")
		assert.Error(t, err)
	})
}

func TestClientOverQUIC(t *testing.T) {
	cert, pool := generateTestCertificate(t)

	listener, err := quic.ListenAddr("127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{quicALPN},
	}, nil)
	require.NoError(t, err)
	defer listener.Close()

	packets := make(chan Packet, 8)
	go func() {
		ctx := context.Background()
		conn, err := listener.Accept(ctx)
		if err != nil {
			return
		}
		defer conn.CloseWithError(0, "")

		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		defer stream.Close()

		handshakeOnly(quicStreamConn{Stream: stream, conn: conn}, packets)
	}()

	client := NewClient(
		WithTransport(TransportQUIC),
		WithHost("127.0.0.1"),
		WithPort(listener.Addr().(*net.UDPAddr).Port),
		WithTLS(&tls.Config{RootCAs: pool, ServerName: "localhost"}),
		WithPollInterval(20*time.Millisecond),
	)
	defer client.Disconnect(false)

	require.NoError(t, client.Connect(context.Background()))

	// idle polls use stream deadlines
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, client.Publish("quic/out", []byte("datagram-free")))

	pub := expectPacket(t, packets).(*PublishPacket)
	assert.Equal(t, "quic/out", pub.Topic)

	require.NoError(t, client.Disconnect(true))
	assert.False(t, client.IsConnected())
}
