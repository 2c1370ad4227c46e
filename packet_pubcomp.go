//nolint:dupl // each acknowledgement is its own packet type with the same layout
package mqttq

import "io"

// PubcompPacket completes a QoS 2 flow.
type PubcompPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

// Encode writes the packet to the writer.
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBCOMP, 0, p.PacketID)
}

// Decode reads the packet body.
func (p *PubcompPacket) Decode(body []byte, header FixedHeader) (err error) {
	p.PacketID, err = decodeAck(body, header, PacketPUBCOMP)
	return err
}

// Validate validates the packet contents.
func (p *PubcompPacket) Validate() error { return validateAckID(p.PacketID) }
