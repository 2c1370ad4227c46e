package mqttq

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestCertificate(t testing.TB) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	certPool := x509.NewCertPool()
	certPool.AppendCertsFromPEM(certPEM)

	return cert, certPool
}

// handshakeOnly accepts a single CONNECT and forwards every later packet.
func handshakeOnly(conn net.Conn, packets chan<- Packet) {
	if _, err := readConnect(conn); err != nil {
		return
	}
	if sendConnack(conn, ConnectAccepted) != nil {
		return
	}
	for {
		pkt, _, err := ReadPacket(conn, 0)
		if err != nil {
			return
		}
		packets <- pkt
	}
}

func TestNewDialer(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		want    any
		address string
	}{
		{"tcp", nil, &TCPDialer{}, "localhost:1883"},
		{"mqtt alias", []Option{WithTransport("mqtt")}, &TCPDialer{}, "localhost:1883"},
		{"tls", []Option{WithTransport(TransportTLS), WithPort(8883)}, &TLSDialer{}, "localhost:8883"},
		{"ssl alias", []Option{WithTransport("ssl")}, &TLSDialer{}, "localhost:1883"},
		{"ws", []Option{WithTransport(TransportWebSocket), WithPort(8080)}, &WSDialer{}, "ws://localhost:8080/mqtt"},
		{"wss with path", []Option{WithTransport(TransportWSS), WithPort(443), WithWebSocketPath("/broker")}, &WSDialer{}, "wss://localhost:443/broker"},
		{"quic", []Option{WithTransport(TransportQUIC)}, &QUICDialer{}, "localhost:1883"},
		{"unix", []Option{WithUnixSocket("/run/mqtt.sock")}, &UnixDialer{}, "/run/mqtt.sock"},
		{"ipv6 host", []Option{WithHost("::1")}, &TCPDialer{}, "[::1]:1883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer, address, err := newDialer(applyOptions(tt.opts...))
			require.NoError(t, err)
			assert.IsType(t, tt.want, dialer)
			assert.Equal(t, tt.address, address)
		})
	}
}

func TestNewDialerErrors(t *testing.T) {
	t.Run("unknown transport", func(t *testing.T) {
		_, _, err := newDialer(applyOptions(WithTransport("carrier-pigeon")))
		assert.ErrorIs(t, err, ErrUnsupportedTransport)
	})

	t.Run("unix without path", func(t *testing.T) {
		_, _, err := newDialer(applyOptions(WithTransport(TransportUnix)))
		assert.ErrorIs(t, err, ErrUnsupportedTransport)
	})

	t.Run("bad proxy", func(t *testing.T) {
		_, _, err := newDialer(applyOptions(WithProxy("ftp://proxy:21")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "proxy:")
	})
}

func TestNewDialerCustom(t *testing.T) {
	custom := DialerFunc(func(context.Context, string) (net.Conn, error) {
		return nil, net.ErrClosed
	})

	dialer, address, err := newDialer(applyOptions(WithDialer(custom), WithHost("h"), WithPort(1)))
	require.NoError(t, err)
	assert.Equal(t, "h:1", address)

	_, err = dialer.Dial(context.Background(), address)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestNewDialerProxy(t *testing.T) {
	t.Run("tcp goes through the proxy", func(t *testing.T) {
		dialer, _, err := newDialer(applyOptions(WithProxy("http://proxy:3128")))
		require.NoError(t, err)
		assert.NotNil(t, dialer.(*TCPDialer).Proxy)
	})

	t.Run("tls goes through the proxy", func(t *testing.T) {
		dialer, _, err := newDialer(applyOptions(WithTransport(TransportTLS), WithProxy("socks5://proxy:1080")))
		require.NoError(t, err)
		assert.NotNil(t, dialer.(*TLSDialer).Proxy)
	})

	t.Run("ws goes through the proxy", func(t *testing.T) {
		dialer, _, err := newDialer(applyOptions(WithTransport(TransportWebSocket), WithProxy("http://proxy:3128")))
		require.NoError(t, err)
		assert.NotNil(t, dialer.(*WSDialer).Dialer.NetDialContext)
	})

	t.Run("quic ignores the proxy", func(t *testing.T) {
		_, _, err := newDialer(applyOptions(WithTransport(TransportQUIC), WithProxy("ftp://ignored")))
		assert.NoError(t, err)
	})
}

func TestTCPDialer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("hi"))
		conn.Close()
	}()

	d := &TCPDialer{Timeout: time.Second}
	conn, err := d.Dial(context.Background(), listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 2)
	_, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf))
}

func TestClientOverTLS(t *testing.T) {
	cert, pool := generateTestCertificate(t)

	listener, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	require.NoError(t, err)
	defer listener.Close()

	packets := make(chan Packet, 8)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handshakeOnly(conn, packets)
	}()

	client := NewClient(
		WithTransport(TransportTLS),
		WithHost("127.0.0.1"),
		WithPort(listener.Addr().(*net.TCPAddr).Port),
		WithTLS(&tls.Config{RootCAs: pool, ServerName: "localhost", MinVersion: tls.VersionTLS12}),
		WithPollInterval(20*time.Millisecond),
	)
	defer client.Disconnect(false)

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Publish("secure", []byte("x")))

	pub := expectPacket(t, packets).(*PublishPacket)
	assert.Equal(t, "secure", pub.Topic)
}

func TestClientOverTLSUntrusted(t *testing.T) {
	cert, _ := generateTestCertificate(t)

	listener, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.(*tls.Conn).Handshake()
	}()

	client := NewClient(
		WithTransport(TransportTLS),
		WithHost("127.0.0.1"),
		WithPort(listener.Addr().(*net.TCPAddr).Port),
		WithTLS(&tls.Config{ServerName: "localhost", MinVersion: tls.VersionTLS12}),
	)

	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, client.IsConnected())
}
