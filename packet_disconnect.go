package mqttq

import "io"

// DisconnectPacket represents an MQTT 3.1.1 DISCONNECT packet, which has
// neither a variable header nor a payload.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

// Encode writes the packet to the writer.
func (p *DisconnectPacket) Encode(w io.Writer) (int, error) {
	return writeFramed(w, PacketDISCONNECT, 0, nil)
}

// Decode reads the packet body.
func (p *DisconnectPacket) Decode(body []byte, header FixedHeader) error {
	return decodeEmpty(body, header, PacketDISCONNECT)
}

// Validate validates the packet contents.
func (p *DisconnectPacket) Validate() error { return nil }
