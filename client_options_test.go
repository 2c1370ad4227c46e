package mqttq

import (
	"crypto/tls"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestDefaultOptions(t *testing.T) {
	opts := defaultOptions()

	assert.Equal(t, "localhost", opts.host)
	assert.Equal(t, 1883, opts.port)
	assert.Equal(t, TransportTCP, opts.transport)
	assert.Equal(t, "/mqtt", opts.wsPath)
	assert.Len(t, opts.clientID, 16)
	assert.Equal(t, uint16(10), opts.keepAlive)
	assert.True(t, opts.cleanStart)
	assert.Equal(t, 10*time.Second, opts.connectTimeout)
	assert.Equal(t, 5*time.Second, opts.ackTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.pollInterval)
	assert.Equal(t, 5*time.Second, opts.writeTimeout)
	assert.Equal(t, 5*time.Second, opts.readTimeout)
	assert.Equal(t, MaxPacketSizeDefault, opts.maxPacketSize)
	assert.Equal(t, rate.Inf, opts.publishLimit)
	assert.Nil(t, opts.credentials)
	assert.Nil(t, opts.will)
	assert.NotNil(t, opts.logger)
	assert.NotNil(t, opts.metrics)
}

func TestGenerateClientID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := generateClientID()
		assert.Len(t, id, 16)
		for _, c := range id {
			assert.Contains(t, clientIDAlphabet, string(c))
		}
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestWithBrokerAddress(t *testing.T) {
	opts := applyOptions(WithHost("broker.local"), WithPort(8883), WithTransport(TransportTLS))
	assert.Equal(t, "broker.local", opts.host)
	assert.Equal(t, 8883, opts.port)
	assert.Equal(t, TransportTLS, opts.transport)
}

func TestWithWebSocketPath(t *testing.T) {
	opts := applyOptions(WithWebSocketPath("/ws"))
	assert.Equal(t, "/ws", opts.wsPath)
}

func TestWithUnixSocket(t *testing.T) {
	opts := applyOptions(WithUnixSocket("/run/mqtt.sock"))
	assert.Equal(t, TransportUnix, opts.transport)
	assert.Equal(t, "/run/mqtt.sock", opts.unixPath)
}

func TestWithClientID(t *testing.T) {
	opts := applyOptions(WithClientID("device-7"))
	assert.Equal(t, "device-7", opts.clientID)
}

func TestWithCredentials(t *testing.T) {
	opts := applyOptions(WithCredentials("user", "pass"))
	assert.Equal(t, &Credentials{Username: "user", Password: []byte("pass")}, opts.credentials)
}

func TestWithKeepAlive(t *testing.T) {
	opts := applyOptions(WithKeepAlive(0))
	assert.Equal(t, uint16(0), opts.keepAlive)
}

func TestWithCleanStart(t *testing.T) {
	opts := applyOptions(WithCleanStart(false))
	assert.False(t, opts.cleanStart)
}

func TestWithTLS(t *testing.T) {
	config := &tls.Config{ServerName: "broker"}
	opts := applyOptions(WithTLS(config))
	assert.Same(t, config, opts.tlsConfig)
}

func TestWithProxy(t *testing.T) {
	opts := applyOptions(WithProxy("socks5://proxy:1080"), WithProxyFromEnvironment(true))
	assert.Equal(t, "socks5://proxy:1080", opts.proxyURL)
	assert.True(t, opts.proxyFromEnv)
}

func TestWithTimeouts(t *testing.T) {
	opts := applyOptions(
		WithConnectTimeout(time.Second),
		WithAckTimeout(2*time.Second),
		WithWriteTimeout(3*time.Second),
		WithReadTimeout(4*time.Second),
		WithPollInterval(50*time.Millisecond),
	)

	assert.Equal(t, time.Second, opts.connectTimeout)
	assert.Equal(t, 2*time.Second, opts.ackTimeout)
	assert.Equal(t, 3*time.Second, opts.writeTimeout)
	assert.Equal(t, 4*time.Second, opts.readTimeout)
	assert.Equal(t, 50*time.Millisecond, opts.pollInterval)

	t.Run("non-positive poll interval is ignored", func(t *testing.T) {
		opts := applyOptions(WithPollInterval(0))
		assert.Equal(t, 500*time.Millisecond, opts.pollInterval)
	})
}

func TestWithWill(t *testing.T) {
	opts := applyOptions(WithWill("status", []byte("offline"), true, QoS1))
	assert.Equal(t, &Message{Topic: "status", Payload: []byte("offline"), QoS: QoS1, Retain: true}, opts.will)
}

func TestWithMaxPacketSize(t *testing.T) {
	opts := applyOptions(WithMaxPacketSize(MaxPacketSizeMinimal))
	assert.Equal(t, MaxPacketSizeMinimal, opts.maxPacketSize)

	opts = applyOptions(WithMaxPacketSize(MaxPacketSizeProtocol + 1))
	assert.Equal(t, MaxPacketSizeProtocol, opts.maxPacketSize)
}

func TestWithPublishRate(t *testing.T) {
	opts := applyOptions(WithPublishRate(10, 0))
	assert.Equal(t, rate.Limit(10), opts.publishLimit)
	assert.Equal(t, 1, opts.publishBurst)

	opts = applyOptions(WithPublishRate(10, 5), WithPublishRate(0, 5))
	assert.Equal(t, rate.Inf, opts.publishLimit)
}

func TestWithErrorBuffer(t *testing.T) {
	assert.Equal(t, 3, applyOptions(WithErrorBuffer(3)).errorBuffer)
	assert.Equal(t, 8, applyOptions(WithErrorBuffer(0)).errorBuffer)
}

func TestWithLoggerAndMetrics(t *testing.T) {
	logger := NewSlogLogger(io.Discard, LogLevelDebug)
	metrics := NewMemoryMetrics()

	opts := applyOptions(WithLogger(logger), WithMetrics(metrics))
	assert.Same(t, logger, opts.logger)
	assert.Same(t, metrics, opts.metrics)

	opts = applyOptions(WithLogger(nil), WithMetrics(nil))
	assert.NotNil(t, opts.logger)
	assert.NotNil(t, opts.metrics)
}

func TestOnEvent(t *testing.T) {
	called := false
	opts := applyOptions(OnEvent(func(*Client, error) { called = true }))
	opts.onEvent(nil, ErrConnected)
	assert.True(t, called)
}
