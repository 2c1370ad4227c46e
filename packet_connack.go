package mqttq

import (
	"errors"
	"io"
)

// ErrInvalidConnackFlags is returned for CONNACK packets with reserved bits set.
var ErrInvalidConnackFlags = errors.New("invalid CONNACK flags")

// ConnackPacket represents an MQTT CONNACK packet.
type ConnackPacket struct {
	// SessionPresent indicates the broker resumed a stored session.
	SessionPresent bool

	// ReturnCode is the connection result.
	ReturnCode ConnectReturnCode
}

// Type returns the packet type.
func (p *ConnackPacket) Type() PacketType { return PacketCONNACK }

// Encode writes the packet to the writer.
func (p *ConnackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var flags byte
	if p.SessionPresent {
		flags = 0x01
	}

	return writeFramed(w, PacketCONNACK, 0, []byte{flags, byte(p.ReturnCode)})
}

// Decode reads the packet body.
func (p *ConnackPacket) Decode(body []byte, header FixedHeader) error {
	if header.PacketType != PacketCONNACK {
		return ErrInvalidPacketType
	}

	d := newDecoder(body)

	flags, err := d.readByte()
	if err != nil {
		return err
	}
	if flags&0xFE != 0 {
		return ErrInvalidConnackFlags
	}

	code, err := d.readByte()
	if err != nil {
		return err
	}

	p.SessionPresent = flags&0x01 != 0
	p.ReturnCode = ConnectReturnCode(code)

	return d.done()
}

// Validate validates the packet contents.
func (p *ConnackPacket) Validate() error {
	// a refused connection never carries a session
	if !p.ReturnCode.Accepted() && p.SessionPresent {
		return ErrInvalidConnackFlags
	}
	return nil
}
