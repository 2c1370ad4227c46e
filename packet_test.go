package mqttq

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeBytes encodes pkt and returns the complete frame.
func encodeBytes(t *testing.T, pkt Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := pkt.Encode(&buf)
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	return buf.Bytes()
}

// decodeBytes decodes a complete frame into pkt.
func decodeBytes(frame []byte, pkt Packet) error {
	var header FixedHeader
	n, err := header.Decode(bytes.NewReader(frame))
	if err != nil {
		return err
	}
	return pkt.Decode(frame[n:], header)
}

func TestQoSConstants(t *testing.T) {
	assert.Equal(t, byte(0), QoS0)
	assert.Equal(t, byte(1), QoS1)
	assert.Equal(t, byte(2), QoS2)
}

func TestNewPacketCoversAllTypes(t *testing.T) {
	for pt := PacketCONNECT; pt <= PacketDISCONNECT; pt++ {
		pkt := newPacket(pt)
		require.NotNil(t, pkt, pt.String())
		assert.Equal(t, pt, pkt.Type())
	}

	assert.Nil(t, newPacket(0))
	assert.Nil(t, newPacket(15))
}

func TestPacketDecodeWrongType(t *testing.T) {
	header := FixedHeader{PacketType: PacketSUBACK}

	for pt := PacketCONNECT; pt <= PacketDISCONNECT; pt++ {
		if pt == PacketSUBACK {
			continue
		}
		err := newPacket(pt).Decode([]byte{0x00, 0x01, 0x00}, header)
		assert.ErrorIs(t, err, ErrInvalidPacketType, pt.String())
	}
}
