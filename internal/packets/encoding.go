package packets

import (
	"errors"
	"unicode/utf8"
)

// ErrInvalidArgument is returned when an MQTT string fails the size bounds
// required by the wire format: empty, nil buffer, or larger than 65535
// bytes.
var ErrInvalidArgument = errors.New("packets: invalid mqtt string")

// appendString appends a 2-byte big-endian length prefix followed by s to
// dst. An empty string is legal at this layer (payloads may be empty);
// callers that must reject empty strings (client id, topic name) check
// RequireNonEmptyString first.
func appendString(dst []byte, s string) []byte {
	length := uint16(len(s))
	dst = append(dst, byte(length>>8), byte(length))
	return append(dst, s...)
}

// appendBinary appends a 2-byte big-endian length prefix followed by data
// to dst.
func appendBinary(dst []byte, data []byte) []byte {
	length := uint16(len(data))
	dst = append(dst, byte(length>>8), byte(length))
	return append(dst, data...)
}

// decodeString reads an MQTT string (2-byte length + data) from buf.
// Returns the string, the number of bytes consumed, and any error.
func decodeString(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, errors.New("packets: buffer too short for string length")
	}
	length := int(buf[0])<<8 | int(buf[1])
	if len(buf) < 2+length {
		return "", 0, errors.New("packets: buffer too short for string data")
	}
	s := string(buf[2 : 2+length])
	if !utf8.ValidString(s) {
		return "", 0, errors.New("packets: string is not valid utf-8")
	}
	return s, 2 + length, nil
}

// decodeBinary reads length-prefixed binary data from buf, returning an
// owned copy (the source buffer may come from a pool and be reused).
func decodeBinary(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 {
		return nil, 0, errors.New("packets: buffer too short for binary length")
	}
	length := int(buf[0])<<8 | int(buf[1])
	if len(buf) < 2+length {
		return nil, 0, errors.New("packets: buffer too short for binary data")
	}
	out := make([]byte, length)
	copy(out, buf[2:2+length])
	return out, 2 + length, nil
}

// RequireNonEmptyString validates an MQTT string used where an empty value
// is not legal: size must be in [1, 65535].
func RequireNonEmptyString(s string) error {
	if len(s) == 0 || len(s) > 65535 {
		return ErrInvalidArgument
	}
	return nil
}
