package mqttq

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/proxy"
)

// NewProxyDialer returns a dialer that tunnels through the proxy at
// proxyURL. Supported schemes: http (HTTP CONNECT), socks5 and socks5h.
// Credentials are taken from the URL user info.
func NewProxyDialer(proxyURL string) (proxy.ContextDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	return proxyDialerFromURL(u)
}

func proxyDialerFromURL(u *url.URL) (proxy.ContextDialer, error) {
	forward := &net.Dialer{Timeout: 30 * time.Second}

	switch u.Scheme {
	case "http":
		return &httpConnectDialer{proxyURL: u, forward: forward}, nil
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, forward)
		if err != nil {
			return nil, err
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy: %s dialer does not support contexts", u.Scheme)
		}
		return cd, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}
}

// ProxyFromEnvironment returns the proxy for a broker at hostport using
// the transport scheme, following HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
// TLS transports use HTTPS_PROXY. Loopback brokers are never proxied.
// Returns nil if no proxy should be used.
func ProxyFromEnvironment(scheme, hostport string) (*url.URL, error) {
	target := &url.URL{Scheme: "http", Host: hostport}
	switch scheme {
	case TransportTLS, TransportWSS, "ssl", "mqtts":
		target.Scheme = "https"
	}

	return httpproxy.FromEnvironment().ProxyFunc()(target)
}

func resolveProxy(o *clientOptions, hostport string) (proxy.ContextDialer, error) {
	if o.proxyURL != "" {
		return NewProxyDialer(o.proxyURL)
	}

	if !o.proxyFromEnv {
		return nil, nil
	}

	u, err := ProxyFromEnvironment(o.transport, hostport)
	if err != nil || u == nil {
		return nil, err
	}
	return proxyDialerFromURL(u)
}

// httpConnectDialer tunnels TCP through an HTTP proxy with CONNECT.
type httpConnectDialer struct {
	proxyURL *url.URL
	forward  *net.Dialer
}

func (d *httpConnectDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	proxyAddr := d.proxyURL.Host
	if d.proxyURL.Port() == "" {
		proxyAddr = net.JoinHostPort(d.proxyURL.Hostname(), "8080")
	}

	conn, err := d.forward.DialContext(ctx, network, proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}

	if user := d.proxyURL.User; user != nil {
		password, _ := user.Password()
		token := base64.StdEncoding.EncodeToString([]byte(user.Username() + ":" + password))
		req.Header.Set("Proxy-Authorization", "Basic "+token)
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}

	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn keeps bytes the proxy sent right after its response.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}
