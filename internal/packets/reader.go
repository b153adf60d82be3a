package packets

import (
	"fmt"
	"io"
)

// maxAckPacketSize bounds how large a non-PUBLISH control packet this
// client will buffer before decoding it. PUBLISH bodies bypass this path
// entirely: the event loop streams the payload straight to the application
// callback instead of buffering it (see DecodePublishHead).
const maxAckPacketSize = 8192

// packetDecoder decodes a packet type's variable header and payload from a
// fully-buffered remaining-length slice.
type packetDecoder func(remaining []byte) (Packet, error)

var packetDecoders = map[uint8]packetDecoder{
	CONNECT:     func(b []byte) (Packet, error) { return DecodeConnect(b) },
	CONNACK:     func(b []byte) (Packet, error) { return DecodeConnack(b) },
	PUBACK:      func(b []byte) (Packet, error) { return DecodePuback(b) },
	PUBREC:      func(b []byte) (Packet, error) { return DecodePubrec(b) },
	PUBREL:      func(b []byte) (Packet, error) { return DecodePubrel(b) },
	PUBCOMP:     func(b []byte) (Packet, error) { return DecodePubcomp(b) },
	SUBSCRIBE:   func(b []byte) (Packet, error) { return DecodeSubscribe(b) },
	SUBACK:      func(b []byte) (Packet, error) { return DecodeSuback(b) },
	UNSUBSCRIBE: func(b []byte) (Packet, error) { return DecodeUnsubscribe(b) },
	UNSUBACK:    func(b []byte) (Packet, error) { return DecodeUnsuback(b) },
	PINGREQ:     func(b []byte) (Packet, error) { return DecodePingreq(b) },
	PINGRESP:    func(b []byte) (Packet, error) { return DecodePingresp(b) },
	DISCONNECT:  func(b []byte) (Packet, error) { return DecodeDisconnect(b) },
}

// ReadPacket reads one complete non-PUBLISH control packet from r: it
// decodes the fixed header, buffers RemainingLength bytes, and dispatches to
// the matching decoder. Callers must route PUBLISH through
// DecodeFixedHeader + DecodePublishHead instead, since its payload is meant
// to be streamed rather than buffered here.
func ReadPacket(r io.Reader) (Packet, error) {
	header, err := DecodeFixedHeader(r)
	if err != nil {
		return nil, fmt.Errorf("packets: decode fixed header: %w", err)
	}
	return DecodeBody(r, header)
}

// DecodeBody reads and decodes a non-PUBLISH control packet's body
// (RemainingLength bytes) from r, given a fixed header already decoded from
// the same stream. Callers that observe the fixed header incrementally -
// for example a poll loop that reacts to the type/flags byte arriving
// before reading the rest - call this directly instead of ReadPacket, which
// decodes the fixed header itself.
func DecodeBody(r io.Reader, header FixedHeader) (Packet, error) {
	if header.PacketType == PUBLISH {
		return nil, fmt.Errorf("packets: PUBLISH must be decoded via DecodePublishHead")
	}
	if header.RemainingLength > maxAckPacketSize {
		return nil, fmt.Errorf("packets: packet size %d exceeds maximum %d", header.RemainingLength, maxAckPacketSize)
	}

	var remaining []byte
	var bufPtr *[]byte
	if header.RemainingLength > 0 {
		bufPtr = getBuffer(header.RemainingLength)
		remaining = (*bufPtr)[:header.RemainingLength]
		if _, err := io.ReadFull(r, remaining); err != nil {
			putBuffer(bufPtr)
			return nil, fmt.Errorf("packets: read packet body: %w", err)
		}
	}

	decode, ok := packetDecoders[header.PacketType]
	if !ok {
		if bufPtr != nil {
			putBuffer(bufPtr)
		}
		return nil, fmt.Errorf("packets: unknown packet type %d", header.PacketType)
	}

	pkt, err := decode(remaining)
	if bufPtr != nil {
		putBuffer(bufPtr)
	}
	return pkt, err
}
