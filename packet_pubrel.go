//nolint:dupl // each acknowledgement is its own packet type with the same layout
package mqttq

import "io"

// PubrelPacket releases a QoS 2 PUBLISH.
type PubrelPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubrelPacket) Type() PacketType { return PacketPUBREL }

// Encode writes the packet to the writer.
func (p *PubrelPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBREL, 0x02, p.PacketID)
}

// Decode reads the packet body.
func (p *PubrelPacket) Decode(body []byte, header FixedHeader) (err error) {
	p.PacketID, err = decodeAck(body, header, PacketPUBREL)
	return err
}

// Validate validates the packet contents.
func (p *PubrelPacket) Validate() error { return validateAckID(p.PacketID) }
