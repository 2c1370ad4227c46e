package mqttq

import (
	"time"
)

// MetricLabels represents key-value pairs for metric labels.
type MetricLabels map[string]string

// Metrics defines the interface for collecting metrics. Implementations
// must be safe for concurrent use and return the same instrument for the
// same name and labels.
type Metrics interface {
	Counter(name string, labels MetricLabels) Counter
	Gauge(name string, labels MetricLabels) Gauge
	Histogram(name string, labels MetricLabels) Histogram
}

// Counter is a monotonically increasing counter.
type Counter interface {
	Inc()
	Add(delta float64)
	Value() float64
}

// Gauge is a metric that can go up and down.
type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Value() float64
}

// Histogram tracks the distribution of values.
type Histogram interface {
	Observe(value float64)
	ObserveDuration(d time.Duration)
	Count() uint64
	Sum() float64
}

// NoOpMetrics is a no-op implementation of Metrics.
type NoOpMetrics struct{}

// Counter returns a no-op counter.
func (n *NoOpMetrics) Counter(_ string, _ MetricLabels) Counter { return noOpInstrument{} }

// Gauge returns a no-op gauge.
func (n *NoOpMetrics) Gauge(_ string, _ MetricLabels) Gauge { return noOpInstrument{} }

// Histogram returns a no-op histogram.
func (n *NoOpMetrics) Histogram(_ string, _ MetricLabels) Histogram { return noOpInstrument{} }

type noOpInstrument struct{}

func (noOpInstrument) Inc()                            {}
func (noOpInstrument) Dec()                            {}
func (noOpInstrument) Add(_ float64)                   {}
func (noOpInstrument) Set(_ float64)                   {}
func (noOpInstrument) Value() float64                  { return 0 }
func (noOpInstrument) Observe(_ float64)               {}
func (noOpInstrument) ObserveDuration(_ time.Duration) {}
func (noOpInstrument) Count() uint64                   { return 0 }
func (noOpInstrument) Sum() float64                    { return 0 }

// Standard metric names for the client.
const (
	// MetricConnected is 1 while the client holds a connection.
	MetricConnected = "mqttq_connected"

	// MetricConnectsTotal counts handshake attempts by result.
	MetricConnectsTotal = "mqttq_connects_total"

	// MetricConnectionsLost counts receiver failures.
	MetricConnectionsLost = "mqttq_connections_lost_total"

	// MetricHandshakeDuration is the time from dial to CONNACK.
	MetricHandshakeDuration = "mqttq_handshake_duration_seconds"

	// MetricPacketsSent is the total number of packets sent.
	MetricPacketsSent = "mqttq_packets_sent_total"

	// MetricPacketsReceived is the total number of packets received.
	MetricPacketsReceived = "mqttq_packets_received_total"

	// MetricPacketsDropped counts decoded packets that were not PUBLISH.
	MetricPacketsDropped = "mqttq_packets_dropped_total"

	// MetricBytesSent is the total bytes sent.
	MetricBytesSent = "mqttq_bytes_sent_total"

	// MetricBytesReceived is the total bytes received.
	MetricBytesReceived = "mqttq_bytes_received_total"

	// MetricQueueDepth is the number of messages waiting for Get.
	MetricQueueDepth = "mqttq_queue_depth"
)

// Standard metric labels.
const (
	LabelPacketType = "packet_type"
	LabelResult     = "result"
)

// clientMetrics provides convenience methods for the metrics above.
type clientMetrics struct {
	metrics Metrics
}

func newClientMetrics(m Metrics) *clientMetrics {
	return &clientMetrics{metrics: m}
}

func (c *clientMetrics) connectAttempt(result string, d time.Duration) {
	c.metrics.Counter(MetricConnectsTotal, MetricLabels{LabelResult: result}).Inc()
	if result == "accepted" {
		c.metrics.Histogram(MetricHandshakeDuration, nil).ObserveDuration(d)
	}
}

func (c *clientMetrics) connected(up bool) {
	var v float64
	if up {
		v = 1
	}
	c.metrics.Gauge(MetricConnected, nil).Set(v)
}

func (c *clientMetrics) connectionLost() {
	c.metrics.Counter(MetricConnectionsLost, nil).Inc()
}

func (c *clientMetrics) packetSent(t PacketType, n int) {
	c.metrics.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: t.String()}).Inc()
	c.metrics.Counter(MetricBytesSent, nil).Add(float64(n))
}

func (c *clientMetrics) packetReceived(t PacketType, n int) {
	c.metrics.Counter(MetricPacketsReceived, MetricLabels{LabelPacketType: t.String()}).Inc()
	c.metrics.Counter(MetricBytesReceived, nil).Add(float64(n))
}

func (c *clientMetrics) packetDropped(t PacketType) {
	c.metrics.Counter(MetricPacketsDropped, MetricLabels{LabelPacketType: t.String()}).Inc()
}

func (c *clientMetrics) queueDepth(n int) {
	c.metrics.Gauge(MetricQueueDepth, nil).Set(float64(n))
}
