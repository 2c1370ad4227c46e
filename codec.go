package mqttq

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Codec errors.
var (
	ErrPacketTooLarge    = errors.New("packet exceeds maximum size")
	ErrUnknownPacketType = errors.New("unknown packet type")

	// ErrInvalidPacket wraps every ReadPacket error caused by the bytes
	// received rather than by the reader.
	ErrInvalidPacket = errors.New("invalid packet")
)

func invalidPacket(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidPacket, err)
}

// ReadPacket reads exactly one packet from r.
// If maxSize is greater than 0, packets with a larger remaining length
// fail with ErrPacketTooLarge before the body is read.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.Decode(r)
	if err != nil {
		if errors.Is(err, ErrInvalidPacketType) || errors.Is(err, ErrVarintMalformed) {
			return nil, n, invalidPacket(err)
		}
		return nil, n, err
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, n, invalidPacket(ErrPacketTooLarge)
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, n, invalidPacket(fmt.Errorf("%s: %w", header.PacketType, err))
	}

	body := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		bn, err := io.ReadFull(r, body)
		n += bn
		if err != nil {
			return nil, n, err
		}
	}

	packet := newPacket(header.PacketType)
	if packet == nil {
		return nil, n, invalidPacket(ErrUnknownPacketType)
	}

	if err := packet.Decode(body, header); err != nil {
		return nil, n, invalidPacket(fmt.Errorf("decode %s: %w", header.PacketType, err))
	}

	return packet, n, nil
}

// WritePacket validates, encodes and writes a packet with a single Write
// call. If maxSize is greater than 0, packets larger than maxSize fail
// with ErrPacketTooLarge and nothing is written.
func WritePacket(w io.Writer, packet Packet, maxSize uint32) (int, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := encodePacket(buf, packet, maxSize); err != nil {
		return 0, err
	}

	return w.Write(buf.Bytes())
}

// encodePacket validates and encodes packet into buf without writing it
// anywhere, so callers can separate encoding failures from I/O failures.
func encodePacket(buf *bytes.Buffer, packet Packet, maxSize uint32) error {
	if err := packet.Validate(); err != nil {
		return err
	}

	if _, err := packet.Encode(buf); err != nil {
		return err
	}

	if maxSize > 0 && uint32(buf.Len()) > maxSize {
		return ErrPacketTooLarge
	}

	return nil
}

func newPacket(t PacketType) Packet {
	switch t {
	case PacketCONNECT:
		return &ConnectPacket{}
	case PacketCONNACK:
		return &ConnackPacket{}
	case PacketPUBLISH:
		return &PublishPacket{}
	case PacketPUBACK:
		return &PubackPacket{}
	case PacketPUBREC:
		return &PubrecPacket{}
	case PacketPUBREL:
		return &PubrelPacket{}
	case PacketPUBCOMP:
		return &PubcompPacket{}
	case PacketSUBSCRIBE:
		return &SubscribePacket{}
	case PacketSUBACK:
		return &SubackPacket{}
	case PacketUNSUBSCRIBE:
		return &UnsubscribePacket{}
	case PacketUNSUBACK:
		return &UnsubackPacket{}
	case PacketPINGREQ:
		return &PingreqPacket{}
	case PacketPINGRESP:
		return &PingrespPacket{}
	case PacketDISCONNECT:
		return &DisconnectPacket{}
	default:
		return nil
	}
}

// writeFramed prefixes body with a fixed header and writes both at once.
func writeFramed(w io.Writer, t PacketType, flags byte, body []byte) (int, error) {
	if len(body) > maxVarint {
		return 0, ErrVarintTooLarge
	}

	header := FixedHeader{PacketType: t, Flags: flags, RemainingLength: uint32(len(body))}
	frame, err := header.appendTo(make([]byte, 0, header.Size()+len(body)))
	if err != nil {
		return 0, err
	}

	return w.Write(append(frame, body...))
}
