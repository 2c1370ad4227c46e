package mqttq

import (
	"errors"
	"io"
)

// CONNECT packet errors.
var (
	ErrUnsupportedProtocol = errors.New("unsupported protocol name or level")
	ErrInvalidConnectFlags = errors.New("invalid CONNECT flags")
	ErrClientIDRequired    = errors.New("empty client identifier requires clean start")
)

const (
	protocolName    = "MQTT"
	protocolLevel   = 4
	legacyName      = "MQIsdp"
	legacyLevel     = 3
	connectReserved = 0x01
	connectClean    = 0x02
	connectWill     = 0x04
	connectWillQoS  = 0x18
	connectRetain   = 0x20
	connectPassword = 0x40
	connectUsername = 0x80
)

// ConnectPacket represents an MQTT 3.1.1 CONNECT packet.
type ConnectPacket struct {
	// ProtocolName and ProtocolLevel default to "MQTT" and 4 when zero.
	ProtocolName  string
	ProtocolLevel byte

	ClientID   string
	CleanStart bool
	KeepAlive  uint16

	WillFlag    bool
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool

	Username string
	Password []byte
}

// Type returns the packet type.
func (p *ConnectPacket) Type() PacketType { return PacketCONNECT }

func (p *ConnectPacket) flagsByte() byte {
	var flags byte
	if p.CleanStart {
		flags |= connectClean
	}
	if p.WillFlag {
		flags |= connectWill
		flags |= (p.WillQoS & 0x03) << 3
		if p.WillRetain {
			flags |= connectRetain
		}
	}
	if p.Password != nil {
		flags |= connectPassword
	}
	if p.Username != "" {
		flags |= connectUsername
	}
	return flags
}

// Encode writes the packet to the writer.
func (p *ConnectPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	name, level := p.ProtocolName, p.ProtocolLevel
	if name == "" {
		name = protocolName
	}
	if level == 0 {
		level = protocolLevel
	}

	body, err := appendString(nil, name)
	if err != nil {
		return 0, err
	}
	body = append(body, level, p.flagsByte())
	body = appendUint16(body, p.KeepAlive)

	if body, err = appendString(body, p.ClientID); err != nil {
		return 0, err
	}

	if p.WillFlag {
		if body, err = appendString(body, p.WillTopic); err != nil {
			return 0, err
		}
		if body, err = appendBinary(body, p.WillPayload); err != nil {
			return 0, err
		}
	}

	if p.Username != "" {
		if body, err = appendString(body, p.Username); err != nil {
			return 0, err
		}
	}
	if p.Password != nil {
		if body, err = appendBinary(body, p.Password); err != nil {
			return 0, err
		}
	}

	return writeFramed(w, PacketCONNECT, 0, body)
}

// Decode reads the packet body.
func (p *ConnectPacket) Decode(body []byte, header FixedHeader) error {
	if header.PacketType != PacketCONNECT {
		return ErrInvalidPacketType
	}

	d := newDecoder(body)

	var err error
	if p.ProtocolName, err = d.readString(); err != nil {
		return err
	}
	if p.ProtocolLevel, err = d.readByte(); err != nil {
		return err
	}

	switch {
	case p.ProtocolName == protocolName && p.ProtocolLevel == protocolLevel:
	case p.ProtocolName == legacyName && p.ProtocolLevel == legacyLevel:
	default:
		return ErrUnsupportedProtocol
	}

	flags, err := d.readByte()
	if err != nil {
		return err
	}
	if flags&connectReserved != 0 {
		return ErrInvalidConnectFlags
	}

	p.CleanStart = flags&connectClean != 0
	p.WillFlag = flags&connectWill != 0
	p.WillQoS = (flags & connectWillQoS) >> 3
	p.WillRetain = flags&connectRetain != 0

	if p.KeepAlive, err = d.readUint16(); err != nil {
		return err
	}
	if p.ClientID, err = d.readString(); err != nil {
		return err
	}

	if p.WillFlag {
		if p.WillTopic, err = d.readString(); err != nil {
			return err
		}
		if p.WillPayload, err = d.readBinary(); err != nil {
			return err
		}
	}

	if flags&connectUsername != 0 {
		if p.Username, err = d.readString(); err != nil {
			return err
		}
	}
	if flags&connectPassword != 0 {
		if p.Password, err = d.readBinary(); err != nil {
			return err
		}
		if p.Password == nil {
			p.Password = []byte{}
		}
	}

	if err := d.done(); err != nil {
		return err
	}

	return p.Validate()
}

// Validate validates the packet contents.
func (p *ConnectPacket) Validate() error {
	if p.WillQoS > QoS2 {
		return ErrInvalidQoS
	}

	if !p.WillFlag && (p.WillQoS != 0 || p.WillRetain) {
		return ErrInvalidConnectFlags
	}

	if p.WillFlag {
		if err := ValidateTopicName(p.WillTopic); err != nil {
			return err
		}
	}

	// MQTT 3.1.1 forbids a password without a user name
	if p.Password != nil && p.Username == "" {
		return ErrInvalidConnectFlags
	}

	if p.ClientID == "" && !p.CleanStart {
		return ErrClientIDRequired
	}

	return nil
}
