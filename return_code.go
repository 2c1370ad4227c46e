package mqttq

import "strconv"

// ConnectReturnCode is the result carried by a CONNACK packet.
type ConnectReturnCode byte

// Return codes defined by MQTT 3.1.1 section 3.2.2.3.
const (
	ConnectAccepted                     ConnectReturnCode = 0x00
	ConnectRefusedProtocolVersion       ConnectReturnCode = 0x01
	ConnectRefusedIdentifierRejected    ConnectReturnCode = 0x02
	ConnectRefusedServerUnavailable     ConnectReturnCode = 0x03
	ConnectRefusedBadUsernameOrPassword ConnectReturnCode = 0x04
	ConnectRefusedNotAuthorized         ConnectReturnCode = 0x05
)

// SubackFailure is the SUBACK return code for a rejected topic filter.
const SubackFailure byte = 0x80

// String returns a human readable reason for the return code.
func (c ConnectReturnCode) String() string {
	switch c {
	case ConnectAccepted:
		return "connection accepted"
	case ConnectRefusedProtocolVersion:
		return "unacceptable protocol version"
	case ConnectRefusedIdentifierRejected:
		return "identifier rejected"
	case ConnectRefusedServerUnavailable:
		return "server unavailable"
	case ConnectRefusedBadUsernameOrPassword:
		return "bad user name or password"
	case ConnectRefusedNotAuthorized:
		return "not authorized"
	default:
		return "unknown return code " + strconv.Itoa(int(c))
	}
}

// Accepted reports whether the broker accepted the connection.
func (c ConnectReturnCode) Accepted() bool {
	return c == ConnectAccepted
}

// IsAuthFailure reports whether the broker rejected the credentials.
func (c ConnectReturnCode) IsAuthFailure() bool {
	return c == ConnectRefusedBadUsernameOrPassword || c == ConnectRefusedNotAuthorized
}
