//nolint:dupl // each acknowledgement is its own packet type with the same layout
package mqttq

import "io"

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

// Encode writes the packet to the writer.
func (p *PubackPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBACK, 0, p.PacketID)
}

// Decode reads the packet body.
func (p *PubackPacket) Decode(body []byte, header FixedHeader) (err error) {
	p.PacketID, err = decodeAck(body, header, PacketPUBACK)
	return err
}

// Validate validates the packet contents.
func (p *PubackPacket) Validate() error { return validateAckID(p.PacketID) }
