package packets

import (
	"errors"
	"io"
)

// ErrMalformedLength is returned when a variable-length size field requires
// a fifth continuation byte (MQTT v3.1.1 bounds the remaining-length field
// to 1-4 bytes, i.e. values up to 268,435,455).
var ErrMalformedLength = errors.New("packets: remaining length exceeds four bytes")

const maxRemainingLength = 268435455

// appendVarInt appends the base-128 variable-length encoding of value to
// dst and returns the extended slice. value must be in [0, 268435455]; the
// fixed-header lengths this codec ever constructs are always in range, so
// callers are trusted not to pass anything larger.
func appendVarInt(dst []byte, value int) []byte {
	for {
		digit := byte(value % 128)
		value /= 128
		if value > 0 {
			digit |= 0x80
		}
		dst = append(dst, digit)
		if value == 0 {
			return dst
		}
	}
}

// decodeVarInt reads a base-128 variable-length integer from r, one byte at
// a time, per MQTT v3.1.1 section 2.2.3: accumulate (byte&0x7f)*multiplier,
// multiplier *= 128, continue while the high bit is set.
func decodeVarInt(r io.Reader) (int, error) {
	var buf [1]byte
	multiplier := 1
	value := 0

	for {
		if multiplier > maxRemainingLength {
			return 0, ErrMalformedLength
		}
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		value += int(buf[0]&0x7f) * multiplier
		multiplier *= 128
		if buf[0]&0x80 == 0 {
			return value, nil
		}
	}
}
