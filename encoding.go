package mqttq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Encoding errors.
var (
	ErrMalformedPacket    = errors.New("malformed packet")
	ErrStringTooLong      = errors.New("string exceeds maximum length of 65535 bytes")
	ErrBinaryTooLong      = errors.New("binary data exceeds maximum length of 65535 bytes")
	ErrInvalidUTF8        = errors.New("invalid UTF-8 string")
	ErrStringContainsNull = errors.New("string contains null character")
	ErrVarintTooLarge     = errors.New("variable byte integer exceeds maximum value")
	ErrVarintMalformed    = errors.New("malformed variable byte integer")
)

var errShortPacket = fmt.Errorf("%w: unexpected end of packet", ErrMalformedPacket)

const (
	maxUint16         = 65535
	maxVarint         = 268435455
	varintContinueBit = 0x80
	varintValueMask   = 0x7F
)

// checkString enforces the UTF-8 string rules shared by topics, client
// identifiers and user names.
func checkString(s string) error {
	if len(s) > maxUint16 {
		return ErrStringTooLong
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	for i := range len(s) {
		if s[i] == 0 {
			return ErrStringContainsNull
		}
	}
	return nil
}

func appendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

// appendString appends a length-prefixed UTF-8 string.
func appendString(dst []byte, s string) ([]byte, error) {
	if err := checkString(s); err != nil {
		return dst, err
	}
	dst = appendUint16(dst, uint16(len(s)))
	return append(dst, s...), nil
}

// appendBinary appends length-prefixed binary data.
func appendBinary(dst []byte, data []byte) ([]byte, error) {
	if len(data) > maxUint16 {
		return dst, ErrBinaryTooLong
	}
	dst = appendUint16(dst, uint16(len(data)))
	return append(dst, data...), nil
}

// appendVarint appends a variable byte integer (remaining length encoding).
func appendVarint(dst []byte, value uint32) ([]byte, error) {
	if value > maxVarint {
		return dst, ErrVarintTooLarge
	}
	for {
		b := byte(value & varintValueMask)
		value >>= 7
		if value > 0 {
			b |= varintContinueBit
		}
		dst = append(dst, b)
		if value == 0 {
			return dst, nil
		}
	}
}

// readVarint reads a variable byte integer one byte at a time.
func readVarint(r io.Reader) (uint32, int, error) {
	var (
		value      uint32
		multiplier uint32 = 1
		buf        [1]byte
		read       int
	)

	for {
		n, err := io.ReadFull(r, buf[:])
		read += n
		if err != nil {
			return 0, read, err
		}

		value += uint32(buf[0]&varintValueMask) * multiplier
		if buf[0]&varintContinueBit == 0 {
			return value, read, nil
		}

		if read == 4 {
			return 0, read, ErrVarintMalformed
		}
		multiplier *= 128
	}
}

// varintSize returns the number of bytes needed to encode value.
func varintSize(value uint32) int {
	switch {
	case value < 128:
		return 1
	case value < 16384:
		return 2
	case value < 2097152:
		return 3
	default:
		return 4
	}
}

// decoder walks the body of a packet whose remaining length has already
// been read off the wire.
type decoder struct {
	buf []byte
	off int
}

func newDecoder(body []byte) *decoder {
	return &decoder{buf: body}
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) readByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, errShortPacket
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *decoder) readUint16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, errShortPacket
	}
	v := binary.BigEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v, nil
}

func (d *decoder) readBinary() ([]byte, error) {
	length, err := d.readUint16()
	if err != nil {
		return nil, err
	}
	if d.remaining() < int(length) {
		return nil, errShortPacket
	}
	out := make([]byte, length)
	copy(out, d.buf[d.off:])
	d.off += int(length)
	return out, nil
}

func (d *decoder) readString() (string, error) {
	length, err := d.readUint16()
	if err != nil {
		return "", err
	}
	if d.remaining() < int(length) {
		return "", errShortPacket
	}
	s := string(d.buf[d.off : d.off+int(length)])
	d.off += int(length)

	if err := checkString(s); err != nil {
		return "", err
	}
	return s, nil
}

// rest consumes and returns a copy of everything left in the body.
func (d *decoder) rest() []byte {
	if d.remaining() == 0 {
		return nil
	}
	out := make([]byte, d.remaining())
	copy(out, d.buf[d.off:])
	d.off = len(d.buf)
	return out
}

// done reports trailing bytes as a malformed packet.
func (d *decoder) done() error {
	if d.remaining() != 0 {
		return fmt.Errorf("%w: %d unexpected trailing bytes", ErrMalformedPacket, d.remaining())
	}
	return nil
}
