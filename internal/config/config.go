// Package config loads the mqttq command line configuration.
//
// Configuration is read from YAML over built-in defaults and can be
// overridden by MQTTQ_* environment variables.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vitalvas/mqttq"
)

// Config is the root configuration structure.
type Config struct {
	Broker   BrokerConfig  `yaml:"broker"`
	Client   ClientConfig  `yaml:"client"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Will     *WillConfig   `yaml:"will"`
	Limits   LimitsConfig  `yaml:"limits"`
	Logging  LoggingConfig `yaml:"logging"`
}

// BrokerConfig describes where and how to reach the broker.
type BrokerConfig struct {
	Host         string    `yaml:"host"`
	Port         int       `yaml:"port"`
	Transport    string    `yaml:"transport"`
	WSPath       string    `yaml:"ws_path"`
	UnixPath     string    `yaml:"unix_path"`
	Proxy        string    `yaml:"proxy"`
	ProxyFromEnv bool      `yaml:"proxy_from_env"`
	TLS          TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings for the tls, wss and quic transports.
type TLSConfig struct {
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// ClientConfig contains session settings sent in CONNECT.
type ClientConfig struct {
	ID         string `yaml:"id"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	KeepAlive  uint16 `yaml:"keep_alive"`
	CleanStart bool   `yaml:"clean_start"`
}

// TimeoutConfig holds durations such as "5s" or "500ms".
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Ack     time.Duration `yaml:"ack"`
	Poll    time.Duration `yaml:"poll"`
	Write   time.Duration `yaml:"write"`
	Read    time.Duration `yaml:"read"`
}

// WillConfig is the last will message.
type WillConfig struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
	QoS     byte   `yaml:"qos"`
	Retain  bool   `yaml:"retain"`
}

// LimitsConfig bounds packet size and publish rate.
type LimitsConfig struct {
	MaxPacketSize uint32  `yaml:"max_packet_size"`
	PublishRate   float64 `yaml:"publish_rate"`
	PublishBurst  int     `yaml:"publish_burst"`
}

// LoggingConfig selects the log level and format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration file at path. An empty path yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config matching the client defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Host:      "localhost",
			Port:      1883,
			Transport: mqttq.TransportTCP,
			WSPath:    "/mqtt",
		},
		Client: ClientConfig{
			KeepAlive:  10,
			CleanStart: true,
		},
		Timeouts: TimeoutConfig{
			Connect: 10 * time.Second,
			Ack:     5 * time.Second,
			Poll:    500 * time.Millisecond,
			Write:   5 * time.Second,
			Read:    5 * time.Second,
		},
		Limits: LimitsConfig{
			MaxPacketSize: mqttq.MaxPacketSizeDefault,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyEnvOverrides applies MQTTQ_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MQTTQ_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("MQTTQ_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MQTTQ_PORT: %w", err)
		}
		cfg.Broker.Port = port
	}
	if v := os.Getenv("MQTTQ_TRANSPORT"); v != "" {
		cfg.Broker.Transport = v
	}
	if v := os.Getenv("MQTTQ_PROXY"); v != "" {
		cfg.Broker.Proxy = v
	}
	if v := os.Getenv("MQTTQ_CLIENT_ID"); v != "" {
		cfg.Client.ID = v
	}
	if v := os.Getenv("MQTTQ_USERNAME"); v != "" {
		cfg.Client.Username = v
	}
	if v := os.Getenv("MQTTQ_PASSWORD"); v != "" {
		cfg.Client.Password = v
	}
	if v := os.Getenv("MQTTQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

var transports = map[string]bool{
	mqttq.TransportTCP:       true,
	mqttq.TransportTLS:       true,
	mqttq.TransportWebSocket: true,
	mqttq.TransportWSS:       true,
	mqttq.TransportQUIC:      true,
	mqttq.TransportUnix:      true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !transports[c.Broker.Transport] {
		errs = append(errs, fmt.Sprintf("broker.transport %q is not supported", c.Broker.Transport))
	}

	if c.Broker.Transport == mqttq.TransportUnix {
		if c.Broker.UnixPath == "" {
			errs = append(errs, "broker.unix_path is required for the unix transport")
		}
	} else {
		if c.Broker.Host == "" {
			errs = append(errs, "broker.host is required")
		}
		if c.Broker.Port < 1 || c.Broker.Port > 65535 {
			errs = append(errs, "broker.port must be between 1 and 65535")
		}
	}

	if c.Client.ID == "" && !c.Client.CleanStart {
		errs = append(errs, "client.id is required when client.clean_start is false")
	}

	if c.Client.Password != "" && c.Client.Username == "" {
		errs = append(errs, "client.password requires client.username")
	}

	if (c.Broker.TLS.CertFile == "") != (c.Broker.TLS.KeyFile == "") {
		errs = append(errs, "broker.tls.cert_file and broker.tls.key_file must be set together")
	}

	if c.Will != nil {
		if err := mqttq.ValidateTopicName(c.Will.Topic); err != nil {
			errs = append(errs, fmt.Sprintf("will.topic: %v", err))
		}
		if c.Will.QoS > mqttq.QoS2 {
			errs = append(errs, "will.qos must be 0, 1, or 2")
		}
	}

	if c.Timeouts.Poll <= 0 {
		errs = append(errs, "timeouts.poll must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Logger builds the client logger writing to w.
func (c *Config) Logger(w io.Writer) mqttq.Logger {
	level := mqttq.ParseLogLevel(c.Logging.Level)
	if strings.EqualFold(c.Logging.Format, "json") {
		return mqttq.NewJSONLogger(w, level)
	}
	return mqttq.NewSlogLogger(w, level)
}

// TLS builds the TLS configuration, or returns nil when the transport does
// not use TLS and nothing is configured.
func (c *Config) TLS() (*tls.Config, error) {
	t := c.Broker.TLS
	secure := c.Broker.Transport == mqttq.TransportTLS ||
		c.Broker.Transport == mqttq.TransportWSS ||
		c.Broker.Transport == mqttq.TransportQUIC

	if !secure && t == (TLSConfig{}) {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.InsecureSkipVerify, //nolint:gosec // opt-in for test brokers
	}

	if t.CAFile != "" {
		pem, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", t.CAFile)
		}
		cfg.RootCAs = pool
	}

	if t.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// Options converts the configuration to client options. Logs go to w.
func (c *Config) Options(w io.Writer) ([]mqttq.Option, error) {
	tlsConfig, err := c.TLS()
	if err != nil {
		return nil, err
	}

	opts := []mqttq.Option{
		mqttq.WithHost(c.Broker.Host),
		mqttq.WithPort(c.Broker.Port),
		mqttq.WithTransport(c.Broker.Transport),
		mqttq.WithWebSocketPath(c.Broker.WSPath),
		mqttq.WithKeepAlive(c.Client.KeepAlive),
		mqttq.WithCleanStart(c.Client.CleanStart),
		mqttq.WithConnectTimeout(c.Timeouts.Connect),
		mqttq.WithAckTimeout(c.Timeouts.Ack),
		mqttq.WithPollInterval(c.Timeouts.Poll),
		mqttq.WithWriteTimeout(c.Timeouts.Write),
		mqttq.WithReadTimeout(c.Timeouts.Read),
		mqttq.WithMaxPacketSize(c.Limits.MaxPacketSize),
		mqttq.WithPublishRate(c.Limits.PublishRate, c.Limits.PublishBurst),
		mqttq.WithProxyFromEnvironment(c.Broker.ProxyFromEnv),
		mqttq.WithLogger(c.Logger(w)),
	}

	if c.Broker.Transport == mqttq.TransportUnix {
		opts = append(opts, mqttq.WithUnixSocket(c.Broker.UnixPath))
	}
	if c.Broker.Proxy != "" {
		opts = append(opts, mqttq.WithProxy(c.Broker.Proxy))
	}
	if tlsConfig != nil {
		opts = append(opts, mqttq.WithTLS(tlsConfig))
	}
	if c.Client.ID != "" {
		opts = append(opts, mqttq.WithClientID(c.Client.ID))
	}
	if c.Client.Username != "" {
		opts = append(opts, mqttq.WithCredentials(c.Client.Username, c.Client.Password))
	}
	if c.Will != nil {
		opts = append(opts, mqttq.WithWill(c.Will.Topic, []byte(c.Will.Payload), c.Will.Retain, c.Will.QoS))
	}

	return opts, nil
}
