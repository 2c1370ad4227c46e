package mqttq

import (
	"errors"
	"io"
)

// ErrInvalidPacketID is returned when a packet identifier is zero.
var ErrInvalidPacketID = errors.New("invalid packet identifier")

// The acknowledgement packets below share one layout in MQTT 3.1.1: a
// fixed header followed by a two byte packet identifier. The client
// decodes them so the receiver can discard them; it never sends them.

func encodeAck(w io.Writer, t PacketType, flags byte, id uint16) (int, error) {
	if id == 0 {
		return 0, ErrInvalidPacketID
	}
	return writeFramed(w, t, flags, appendUint16(make([]byte, 0, 2), id))
}

func decodeAck(body []byte, header FixedHeader, want PacketType) (uint16, error) {
	if header.PacketType != want {
		return 0, ErrInvalidPacketType
	}

	d := newDecoder(body)
	id, err := d.readUint16()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ErrInvalidPacketID
	}

	return id, d.done()
}

func validateAckID(id uint16) error {
	if id == 0 {
		return ErrInvalidPacketID
	}
	return nil
}
