//nolint:dupl // each acknowledgement is its own packet type with the same layout
package mqttq

import "io"

// PubrecPacket is the first acknowledgement of a QoS 2 PUBLISH.
type PubrecPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }

// Encode writes the packet to the writer.
func (p *PubrecPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBREC, 0, p.PacketID)
}

// Decode reads the packet body.
func (p *PubrecPacket) Decode(body []byte, header FixedHeader) (err error) {
	p.PacketID, err = decodeAck(body, header, PacketPUBREC)
	return err
}

// Validate validates the packet contents.
func (p *PubrecPacket) Validate() error { return validateAckID(p.PacketID) }
