package mqttq

import "io"

// SubackPacket represents an MQTT SUBACK packet. Each return code is the
// granted QoS for the matching filter, or SubackFailure.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []byte
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType { return PacketSUBACK }

// Encode writes the packet to the writer.
func (p *SubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body := appendUint16(make([]byte, 0, 2+len(p.ReturnCodes)), p.PacketID)
	body = append(body, p.ReturnCodes...)

	return writeFramed(w, PacketSUBACK, 0, body)
}

// Decode reads the packet body.
func (p *SubackPacket) Decode(body []byte, header FixedHeader) error {
	if header.PacketType != PacketSUBACK {
		return ErrInvalidPacketType
	}

	d := newDecoder(body)

	var err error
	if p.PacketID, err = d.readUint16(); err != nil {
		return err
	}
	p.ReturnCodes = d.rest()

	return p.Validate()
}

// Validate validates the packet contents.
func (p *SubackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}

	if len(p.ReturnCodes) == 0 {
		return ErrNoSubscriptions
	}

	for _, code := range p.ReturnCodes {
		if code > QoS2 && code != SubackFailure {
			return ErrInvalidSubackCode
		}
	}

	return nil
}
