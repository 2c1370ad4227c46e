package mqttq

import "io"

// Packet is implemented by every MQTT control packet.
type Packet interface {
	// Type returns the packet type.
	Type() PacketType

	// Encode writes the complete packet, fixed header included.
	Encode(w io.Writer) (int, error)

	// Decode parses the packet body. The fixed header has already been
	// read and is passed in for its flags.
	Decode(body []byte, header FixedHeader) error

	// Validate validates the packet contents.
	Validate() error
}

// Message is an application message as seen by callers of the client.
type Message struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Quality of service levels. Only QoS 0 delivery is guaranteed end to end
// by this client; higher levels are sent on the wire but never acknowledged.
const (
	QoS0 byte = 0
	QoS1 byte = 1
	QoS2 byte = 2
)
