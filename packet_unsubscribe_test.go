package mqttq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsubscribePacketEncodeDecode(t *testing.T) {
	p := &UnsubscribePacket{PacketID: 5, Topics: []string{"a/+", "b/#"}}

	frame := encodeBytes(t, p)
	assert.Equal(t, []byte{
		0xA2, 0x0C,
		0x00, 0x05,
		0x00, 0x03, 'a', '/', '+',
		0x00, 0x03, 'b', '/', '#',
	}, frame)

	var decoded UnsubscribePacket
	require.NoError(t, decodeBytes(frame, &decoded))
	assert.Equal(t, p, &decoded)
}

func TestUnsubscribePacketValidation(t *testing.T) {
	tests := []struct {
		name    string
		packet  UnsubscribePacket
		wantErr error
	}{
		{"zero packet id", UnsubscribePacket{Topics: []string{"a"}}, ErrInvalidPacketID},
		{"no topics", UnsubscribePacket{PacketID: 1}, ErrNoSubscriptions},
		{"bad filter", UnsubscribePacket{PacketID: 1, Topics: []string{"a+"}}, ErrInvalidTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.packet.Validate(), tt.wantErr)
		})
	}
}

func TestUnsubscribePacketDecodeTruncated(t *testing.T) {
	var p UnsubscribePacket
	err := p.Decode([]byte{0x00, 0x01, 0x00, 0x04, 'a'}, FixedHeader{PacketType: PacketUNSUBSCRIBE, Flags: 0x02})
	assert.ErrorIs(t, err, ErrMalformedPacket)
}
