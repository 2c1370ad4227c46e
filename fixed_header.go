package mqttq

import (
	"errors"
	"io"
)

// PacketType represents an MQTT control packet type.
type PacketType byte

// MQTT 3.1.1 control packet types.
const (
	PacketCONNECT     PacketType = 1
	PacketCONNACK     PacketType = 2
	PacketPUBLISH     PacketType = 3
	PacketPUBACK      PacketType = 4
	PacketPUBREC      PacketType = 5
	PacketPUBREL      PacketType = 6
	PacketPUBCOMP     PacketType = 7
	PacketSUBSCRIBE   PacketType = 8
	PacketSUBACK      PacketType = 9
	PacketUNSUBSCRIBE PacketType = 10
	PacketUNSUBACK    PacketType = 11
	PacketPINGREQ     PacketType = 12
	PacketPINGRESP    PacketType = 13
	PacketDISCONNECT  PacketType = 14
)

var packetTypeNames = [...]string{
	PacketCONNECT:     "CONNECT",
	PacketCONNACK:     "CONNACK",
	PacketPUBLISH:     "PUBLISH",
	PacketPUBACK:      "PUBACK",
	PacketPUBREC:      "PUBREC",
	PacketPUBREL:      "PUBREL",
	PacketPUBCOMP:     "PUBCOMP",
	PacketSUBSCRIBE:   "SUBSCRIBE",
	PacketSUBACK:      "SUBACK",
	PacketUNSUBSCRIBE: "UNSUBSCRIBE",
	PacketUNSUBACK:    "UNSUBACK",
	PacketPINGREQ:     "PINGREQ",
	PacketPINGRESP:    "PINGRESP",
	PacketDISCONNECT:  "DISCONNECT",
}

// String returns the string representation of the packet type.
func (p PacketType) String() string {
	if !p.Valid() {
		return "UNKNOWN"
	}
	return packetTypeNames[p]
}

// Valid returns true if the packet type is defined by MQTT 3.1.1.
// Type 15 (AUTH) only exists in MQTT 5 and is rejected here.
func (p PacketType) Valid() bool {
	return p >= PacketCONNECT && p <= PacketDISCONNECT
}

// Fixed header errors.
var (
	ErrInvalidPacketType  = errors.New("invalid packet type")
	ErrInvalidPacketFlags = errors.New("invalid packet flags")
)

// FixedHeader is the first part of every MQTT control packet.
type FixedHeader struct {
	PacketType      PacketType
	Flags           byte
	RemainingLength uint32
}

// appendTo appends the encoded header to dst.
func (h *FixedHeader) appendTo(dst []byte) ([]byte, error) {
	if !h.PacketType.Valid() {
		return dst, ErrInvalidPacketType
	}
	dst = append(dst, byte(h.PacketType)<<4|(h.Flags&0x0F))
	return appendVarint(dst, h.RemainingLength)
}

// Encode writes the fixed header to the writer.
func (h *FixedHeader) Encode(w io.Writer) (int, error) {
	buf, err := h.appendTo(make([]byte, 0, 5))
	if err != nil {
		return 0, err
	}
	return w.Write(buf)
}

// Decode reads the fixed header from the reader.
// Returns the number of bytes read.
func (h *FixedHeader) Decode(r io.Reader) (int, error) {
	var first [1]byte
	n, err := io.ReadFull(r, first[:])
	if err != nil {
		return n, err
	}

	h.PacketType = PacketType(first[0] >> 4)
	h.Flags = first[0] & 0x0F

	if !h.PacketType.Valid() {
		return n, ErrInvalidPacketType
	}

	length, n2, err := readVarint(r)
	n += n2
	if err != nil {
		return n, err
	}

	h.RemainingLength = length
	return n, nil
}

// Size returns the encoded size of the fixed header in bytes.
func (h *FixedHeader) Size() int {
	return 1 + varintSize(h.RemainingLength)
}

// ValidateFlags checks the reserved flag bits for the packet type.
func (h *FixedHeader) ValidateFlags() error {
	switch h.PacketType {
	case PacketPUBLISH:
		// QoS 3 is reserved
		if (h.Flags>>1)&0x03 > 2 {
			return ErrInvalidPacketFlags
		}
		return nil
	case PacketPUBREL, PacketSUBSCRIBE, PacketUNSUBSCRIBE:
		if h.Flags != 0x02 {
			return ErrInvalidPacketFlags
		}
		return nil
	default:
		if h.Flags != 0 {
			return ErrInvalidPacketFlags
		}
		return nil
	}
}
