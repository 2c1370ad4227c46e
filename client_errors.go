package mqttq

import (
	"errors"
	"fmt"
)

// Sentinel errors - check with errors.Is().
var (
	// ErrNotConnected is returned when an operation requires an active connection.
	ErrNotConnected = errors.New("not connected")

	// ErrProtocol is returned when the broker violates the protocol during
	// the handshake or the receiver decodes something it cannot accept.
	ErrProtocol = errors.New("protocol error")

	// ErrTimeout is returned when the broker does not answer CONNECT in time.
	ErrTimeout = errors.New("timed out waiting for CONNACK")

	// ErrTransport wraps every network failure.
	ErrTransport = errors.New("transport error")

	// ErrAuthFailed is returned when the broker refuses the credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited is returned when the publish rate limiter cannot grant
	// a token within the write timeout.
	ErrRateLimited = errors.New("publish rate limited")
)

// Lifecycle events passed to the handler set with OnEvent.
var (
	// ErrConnected is emitted when the handshake succeeds.
	ErrConnected = errors.New("connected")

	// ErrDisconnected is emitted when Disconnect tears the connection down.
	ErrDisconnected = errors.New("disconnected")

	// ErrConnectionLost is emitted when the receiver fails.
	ErrConnectionLost = errors.New("connection lost")
)

// TransportError reports a failed network operation.
// Extract with errors.As().
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Cause} }

// NewTransportError creates a new TransportError.
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}

// ConnectError contains the return code of a refused connection.
// Extract with errors.As().
type ConnectError struct {
	err        error
	ReturnCode ConnectReturnCode
}

func (e *ConnectError) Error() string {
	return "connect refused: " + e.ReturnCode.String()
}

func (e *ConnectError) Unwrap() []error {
	if e.err == nil {
		return []error{ErrProtocol}
	}
	return []error{ErrProtocol, e.err}
}

// NewConnectError creates a new ConnectError from a CONNACK return code.
func NewConnectError(code ConnectReturnCode) *ConnectError {
	var baseErr error
	if code.IsAuthFailure() {
		baseErr = ErrAuthFailed
	}
	return &ConnectError{
		err:        baseErr,
		ReturnCode: code,
	}
}

// ConnectionLostError contains details about an unexpected disconnection.
// Extract with errors.As().
type ConnectionLostError struct {
	Cause error
}

func (e *ConnectionLostError) Error() string {
	if e.Cause != nil {
		return "connection lost: " + e.Cause.Error()
	}
	return "connection lost"
}

func (e *ConnectionLostError) Unwrap() []error {
	return []error{ErrConnectionLost, e.Cause}
}

// NewConnectionLostError creates a new ConnectionLostError. Causes that are
// neither transport nor protocol failures are classified as transport.
func NewConnectionLostError(cause error) *ConnectionLostError {
	if !errors.Is(cause, ErrTransport) && !errors.Is(cause, ErrProtocol) {
		cause = NewTransportError("read", cause)
	}
	return &ConnectionLostError{Cause: cause}
}
