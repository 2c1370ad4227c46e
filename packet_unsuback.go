//nolint:dupl // each acknowledgement is its own packet type with the same layout
package mqttq

import "io"

// UnsubackPacket acknowledges an UNSUBSCRIBE.
type UnsubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() PacketType { return PacketUNSUBACK }

// Encode writes the packet to the writer.
func (p *UnsubackPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketUNSUBACK, 0, p.PacketID)
}

// Decode reads the packet body.
func (p *UnsubackPacket) Decode(body []byte, header FixedHeader) (err error) {
	p.PacketID, err = decodeAck(body, header, PacketUNSUBACK)
	return err
}

// Validate validates the packet contents.
func (p *UnsubackPacket) Validate() error { return validateAckID(p.PacketID) }
