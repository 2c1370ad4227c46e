package mqttq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckPackets(t *testing.T) {
	tests := []struct {
		name    string
		packet  Packet
		decoded Packet
		encoded []byte
	}{
		{"PUBACK", &PubackPacket{PacketID: 1}, &PubackPacket{}, []byte{0x40, 0x02, 0x00, 0x01}},
		{"PUBREC", &PubrecPacket{PacketID: 0x0102}, &PubrecPacket{}, []byte{0x50, 0x02, 0x01, 0x02}},
		{"PUBREL", &PubrelPacket{PacketID: 3}, &PubrelPacket{}, []byte{0x62, 0x02, 0x00, 0x03}},
		{"PUBCOMP", &PubcompPacket{PacketID: 65535}, &PubcompPacket{}, []byte{0x70, 0x02, 0xFF, 0xFF}},
		{"UNSUBACK", &UnsubackPacket{PacketID: 9}, &UnsubackPacket{}, []byte{0xB0, 0x02, 0x00, 0x09}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.packet.Validate())

			frame := encodeBytes(t, tt.packet)
			assert.Equal(t, tt.encoded, frame)

			require.NoError(t, decodeBytes(frame, tt.decoded))
			assert.Equal(t, tt.packet, tt.decoded)
		})
	}
}

func TestAckPacketZeroID(t *testing.T) {
	for _, pkt := range []Packet{
		&PubackPacket{},
		&PubrecPacket{},
		&PubrelPacket{},
		&PubcompPacket{},
		&UnsubackPacket{},
	} {
		t.Run(pkt.Type().String(), func(t *testing.T) {
			assert.ErrorIs(t, pkt.Validate(), ErrInvalidPacketID)

			_, err := pkt.Encode(discard{})
			assert.ErrorIs(t, err, ErrInvalidPacketID)

			header := FixedHeader{PacketType: pkt.Type()}
			assert.ErrorIs(t, pkt.Decode([]byte{0x00, 0x00}, header), ErrInvalidPacketID)
		})
	}
}

func TestDecodeAckErrors(t *testing.T) {
	header := FixedHeader{PacketType: PacketPUBACK}

	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{"empty", []byte{}, ErrMalformedPacket},
		{"one byte", []byte{0x01}, ErrMalformedPacket},
		{"MQTT 5 reason code", []byte{0x00, 0x01, 0x10}, ErrMalformedPacket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAck(tt.body, header, PacketPUBACK)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func FuzzDecodeAck(f *testing.F) {
	f.Add([]byte{0x00, 0x01})
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0xFF})

	f.Fuzz(func(t *testing.T, body []byte) {
		id, err := decodeAck(body, FixedHeader{PacketType: PacketPUBACK}, PacketPUBACK)
		if err == nil {
			assert.NotZero(t, id)
			assert.Len(t, body, 2)
		}
	})
}
