package mqttq

import (
	"errors"
	"io"
)

// SUBSCRIBE packet errors.
var (
	ErrNoSubscriptions   = errors.New("at least one topic filter required")
	ErrInvalidSubackCode = errors.New("invalid SUBACK return code")
	ErrProtocolViolation = errors.New("protocol violation")
)

// Subscription is a topic filter paired with the maximum QoS requested for it.
type Subscription struct {
	Topic string
	QoS   byte
}

// SubscribePacket represents an MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// Type returns the packet type.
func (p *SubscribePacket) Type() PacketType { return PacketSUBSCRIBE }

// Encode writes the packet to the writer.
func (p *SubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body := appendUint16(make([]byte, 0, 64), p.PacketID)

	var err error
	for _, sub := range p.Subscriptions {
		if body, err = appendString(body, sub.Topic); err != nil {
			return 0, err
		}
		body = append(body, sub.QoS)
	}

	return writeFramed(w, PacketSUBSCRIBE, 0x02, body)
}

// Decode reads the packet body.
func (p *SubscribePacket) Decode(body []byte, header FixedHeader) error {
	if header.PacketType != PacketSUBSCRIBE {
		return ErrInvalidPacketType
	}

	d := newDecoder(body)

	var err error
	if p.PacketID, err = d.readUint16(); err != nil {
		return err
	}

	p.Subscriptions = p.Subscriptions[:0]
	for d.remaining() > 0 {
		var sub Subscription
		if sub.Topic, err = d.readString(); err != nil {
			return err
		}
		if sub.QoS, err = d.readByte(); err != nil {
			return err
		}
		// upper six bits are reserved
		if sub.QoS&0xFC != 0 {
			return ErrProtocolViolation
		}
		p.Subscriptions = append(p.Subscriptions, sub)
	}

	return p.Validate()
}

// Validate validates the packet contents.
func (p *SubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}

	if len(p.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}

	for _, sub := range p.Subscriptions {
		if sub.QoS > QoS2 {
			return ErrInvalidQoS
		}
		if err := ValidateTopicFilter(sub.Topic); err != nil {
			return err
		}
	}

	return nil
}
