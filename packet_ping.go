package mqttq

import "io"

// decodeEmpty checks the header of a packet that carries no body.
func decodeEmpty(body []byte, header FixedHeader, want PacketType) error {
	if header.PacketType != want {
		return ErrInvalidPacketType
	}
	if len(body) != 0 {
		return ErrProtocolViolation
	}
	return nil
}

// PingreqPacket represents an MQTT PINGREQ packet.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

// Encode writes the packet to the writer.
func (p *PingreqPacket) Encode(w io.Writer) (int, error) {
	return writeFramed(w, PacketPINGREQ, 0, nil)
}

// Decode reads the packet body.
func (p *PingreqPacket) Decode(body []byte, header FixedHeader) error {
	return decodeEmpty(body, header, PacketPINGREQ)
}

// Validate validates the packet contents.
func (p *PingreqPacket) Validate() error { return nil }

// PingrespPacket represents an MQTT PINGRESP packet.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

// Encode writes the packet to the writer.
func (p *PingrespPacket) Encode(w io.Writer) (int, error) {
	return writeFramed(w, PacketPINGRESP, 0, nil)
}

// Decode reads the packet body.
func (p *PingrespPacket) Decode(body []byte, header FixedHeader) error {
	return decodeEmpty(body, header, PacketPINGRESP)
}

// Validate validates the packet contents.
func (p *PingrespPacket) Validate() error { return nil }
