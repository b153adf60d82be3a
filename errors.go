package mq

import "errors"

// Sentinel errors returned by client operations. Compare with errors.Is;
// several are wrapped with additional context (the underlying transport
// error, the rejected topic, and so on).
var (
	// ErrTransportIO is returned when a transport read or write transfers
	// fewer bytes than requested.
	ErrTransportIO = errors.New("mq: transport read or write short")

	// ErrInvalidArgument is returned when an MQTT string used as a client
	// id or topic name violates its size bounds.
	ErrInvalidArgument = errors.New("mq: invalid argument")

	// ErrMalformedLength is returned when a fixed header's remaining
	// length field would need a fifth continuation byte.
	ErrMalformedLength = errors.New("mq: malformed remaining length")

	// ErrMalformedSize is returned when a response packet's remaining
	// length does not match the fixed size its type requires.
	ErrMalformedSize = errors.New("mq: malformed packet size")

	// ErrUnexpectedResponse is returned when an inbound response packet's
	// type does not match the request currently outstanding.
	ErrUnexpectedResponse = errors.New("mq: unexpected response")

	// ErrConnectRejected is returned when the broker's CONNACK return code
	// is non-zero.
	ErrConnectRejected = errors.New("mq: connect rejected")

	// ErrSubscribeRejected is returned when the broker's SUBACK return
	// code signals failure (0x80).
	ErrSubscribeRejected = errors.New("mq: subscribe rejected")

	// ErrProtocolOther covers a response-handler validation failure not
	// captured by a more specific sentinel above.
	ErrProtocolOther = errors.New("mq: protocol error")

	// ErrWrongState is returned when a command is dispatched while the
	// connection is not in a state that honours it: publish before
	// Connect, or Connect while already connected.
	ErrWrongState = errors.New("mq: command invalid for current connection state")

	// ErrUnsupportedQoS is returned by Publish for QoS 2. The client
	// accepts an inbound QoS-2 handshake but never drives an outbound one
	// (PUBREC/PUBREL/PUBCOMP) to completion, so publishing at QoS 2 would
	// leave the caller unable to tell whether the broker ever saw it.
	ErrUnsupportedQoS = errors.New("mq: unsupported outbound QoS level")

	// ErrClientClosed is returned by any call made after Close.
	ErrClientClosed = errors.New("mq: client closed")
)
