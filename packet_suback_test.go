package mqttq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubackPacketEncodeDecode(t *testing.T) {
	p := &SubackPacket{PacketID: 3, ReturnCodes: []byte{0, 1, 2, SubackFailure}}

	frame := encodeBytes(t, p)
	assert.Equal(t, []byte{0x90, 0x06, 0x00, 0x03, 0x00, 0x01, 0x02, 0x80}, frame)

	var decoded SubackPacket
	require.NoError(t, decodeBytes(frame, &decoded))
	assert.Equal(t, p, &decoded)
}

func TestSubackPacketValidation(t *testing.T) {
	tests := []struct {
		name    string
		packet  SubackPacket
		wantErr error
	}{
		{"zero packet id", SubackPacket{ReturnCodes: []byte{0}}, ErrInvalidPacketID},
		{"no return codes", SubackPacket{PacketID: 1}, ErrNoSubscriptions},
		{"QoS 3", SubackPacket{PacketID: 1, ReturnCodes: []byte{3}}, ErrInvalidSubackCode},
		{"MQTT 5 reason code", SubackPacket{PacketID: 1, ReturnCodes: []byte{0x87}}, ErrInvalidSubackCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.packet.Validate(), tt.wantErr)
		})
	}
}
