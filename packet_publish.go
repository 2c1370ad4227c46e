package mqttq

import (
	"errors"
	"io"
)

// PUBLISH packet errors.
var (
	ErrInvalidQoS       = errors.New("invalid QoS level")
	ErrPacketIDRequired = errors.New("packet identifier required for QoS > 0")
)

// PublishPacket represents an MQTT PUBLISH packet.
type PublishPacket struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
	DUP     bool

	// PacketID is only carried on the wire for QoS > 0.
	PacketID uint16
}

// Type returns the packet type.
func (p *PublishPacket) Type() PacketType { return PacketPUBLISH }

func (p *PublishPacket) flags() byte {
	var flags byte
	if p.DUP {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}
	return flags
}

// Encode writes the packet to the writer.
func (p *PublishPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body, err := appendString(make([]byte, 0, 2+len(p.Topic)+2+len(p.Payload)), p.Topic)
	if err != nil {
		return 0, err
	}

	if p.QoS > QoS0 {
		body = appendUint16(body, p.PacketID)
	}
	body = append(body, p.Payload...)

	return writeFramed(w, PacketPUBLISH, p.flags(), body)
}

// Decode reads the packet body.
func (p *PublishPacket) Decode(body []byte, header FixedHeader) error {
	if header.PacketType != PacketPUBLISH {
		return ErrInvalidPacketType
	}

	p.DUP = header.Flags&0x08 != 0
	p.QoS = (header.Flags >> 1) & 0x03
	p.Retain = header.Flags&0x01 != 0

	if p.QoS > QoS2 {
		return ErrInvalidQoS
	}

	d := newDecoder(body)

	var err error
	if p.Topic, err = d.readString(); err != nil {
		return err
	}

	if p.QoS > QoS0 {
		if p.PacketID, err = d.readUint16(); err != nil {
			return err
		}
	}

	p.Payload = d.rest()

	return p.Validate()
}

// Validate validates the packet contents.
func (p *PublishPacket) Validate() error {
	if p.QoS > QoS2 {
		return ErrInvalidQoS
	}

	if p.QoS == QoS0 && p.DUP {
		return ErrInvalidPacketFlags
	}

	if p.QoS > QoS0 && p.PacketID == 0 {
		return ErrPacketIDRequired
	}

	return ValidateTopicName(p.Topic)
}

// ToMessage converts the packet to an application message.
func (p *PublishPacket) ToMessage() Message {
	return Message{
		Topic:   p.Topic,
		Payload: p.Payload,
		QoS:     p.QoS,
		Retain:  p.Retain,
	}
}

// FromMessage fills the packet from an application message.
func (p *PublishPacket) FromMessage(msg *Message) {
	p.Topic = msg.Topic
	p.Payload = msg.Payload
	p.QoS = msg.QoS
	p.Retain = msg.Retain
}
