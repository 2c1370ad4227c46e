package mqttq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// ErrUnsupportedTransport is returned for an unknown transport scheme.
var ErrUnsupportedTransport = errors.New("unsupported transport")

// Dialer establishes the stream a Client speaks MQTT over.
type Dialer interface {
	// Dial connects to the address with the given context.
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, address string) (net.Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address string) (net.Conn, error) {
	return f(ctx, address)
}

// TCPDialer connects to MQTT brokers over TCP.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration

	// Proxy, when set, tunnels the connection.
	Proxy proxy.ContextDialer
}

// Dial connects to the address.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	if d.Proxy != nil {
		return d.Proxy.DialContext(ctx, "tcp", address)
	}

	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, "tcp", address)
}

// TLSDialer connects to MQTT brokers over TLS.
type TLSDialer struct {
	// Config is the TLS configuration. Nil means TLS 1.2 or later with
	// system roots.
	Config *tls.Config

	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration

	// Proxy, when set, tunnels the connection; TLS runs inside the tunnel.
	Proxy proxy.ContextDialer
}

// Dial connects to the address.
func (d *TLSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	config := d.Config
	if config == nil {
		config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if d.Proxy == nil {
		dialer := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: d.Timeout},
			Config:    config,
		}
		return dialer.DialContext(ctx, "tcp", address)
	}

	raw, err := d.Proxy.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	if config.ServerName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			raw.Close()
			return nil, err
		}
		config = config.Clone()
		config.ServerName = host
	}

	conn := tls.Client(raw, config)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return conn, nil
}

// newDialer picks the dialer and address for the configured transport.
func newDialer(o *clientOptions) (Dialer, string, error) {
	hostport := net.JoinHostPort(o.host, strconv.Itoa(o.port))
	if o.dialer != nil {
		return o.dialer, hostport, nil
	}

	var fwd proxy.ContextDialer
	switch o.transport {
	case TransportQUIC, TransportUnix:
		// proxies only tunnel TCP streams
	default:
		var err error
		if fwd, err = resolveProxy(o, hostport); err != nil {
			return nil, "", fmt.Errorf("proxy: %w", err)
		}
	}

	switch o.transport {
	case TransportTCP, "mqtt", "":
		return &TCPDialer{Proxy: fwd}, hostport, nil

	case TransportTLS, "ssl", "mqtts":
		return &TLSDialer{Config: o.tlsConfig, Proxy: fwd}, hostport, nil

	case TransportWebSocket, TransportWSS:
		d := NewWSDialer()
		if o.tlsConfig != nil {
			d.Dialer.TLSClientConfig = o.tlsConfig
		}
		if fwd != nil {
			d.Dialer.NetDialContext = fwd.DialContext
		}
		u := url.URL{Scheme: o.transport, Host: hostport, Path: o.wsPath}
		return d, u.String(), nil

	case TransportQUIC:
		return NewQUICDialer(o.tlsConfig), hostport, nil

	case TransportUnix:
		if o.unixPath == "" {
			return nil, "", fmt.Errorf("%w: unix transport needs a socket path", ErrUnsupportedTransport)
		}
		return NewUnixDialer(), o.unixPath, nil

	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedTransport, o.transport)
	}
}
