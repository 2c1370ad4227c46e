package mqttq

import "io"

// UnsubscribePacket represents an MQTT UNSUBSCRIBE packet.
type UnsubscribePacket struct {
	PacketID uint16
	Topics   []string
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() PacketType { return PacketUNSUBSCRIBE }

// Encode writes the packet to the writer.
func (p *UnsubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body := appendUint16(make([]byte, 0, 64), p.PacketID)

	var err error
	for _, topic := range p.Topics {
		if body, err = appendString(body, topic); err != nil {
			return 0, err
		}
	}

	return writeFramed(w, PacketUNSUBSCRIBE, 0x02, body)
}

// Decode reads the packet body.
func (p *UnsubscribePacket) Decode(body []byte, header FixedHeader) error {
	if header.PacketType != PacketUNSUBSCRIBE {
		return ErrInvalidPacketType
	}

	d := newDecoder(body)

	var err error
	if p.PacketID, err = d.readUint16(); err != nil {
		return err
	}

	p.Topics = p.Topics[:0]
	for d.remaining() > 0 {
		topic, err := d.readString()
		if err != nil {
			return err
		}
		p.Topics = append(p.Topics, topic)
	}

	return p.Validate()
}

// Validate validates the packet contents.
func (p *UnsubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}

	if len(p.Topics) == 0 {
		return ErrNoSubscriptions
	}

	for _, topic := range p.Topics {
		if err := ValidateTopicFilter(topic); err != nil {
			return err
		}
	}

	return nil
}
