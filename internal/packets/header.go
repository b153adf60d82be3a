package packets

import "io"

// FixedHeader is the 2-5 byte prefix common to every MQTT control packet:
// one byte of packet type and flags, followed by the base-128 remaining
// length.
type FixedHeader struct {
	PacketType      uint8
	Flags           uint8
	RemainingLength int
}

// appendBytes appends the encoded fixed header to dst.
func (h FixedHeader) appendBytes(dst []byte) []byte {
	dst = append(dst, (h.PacketType<<4)|(h.Flags&0x0f))
	return appendVarInt(dst, h.RemainingLength)
}

// WriteTo writes the fixed header to w.
func (h FixedHeader) WriteTo(w io.Writer) (int64, error) {
	buf := h.appendBytes(make([]byte, 0, 5))
	n, err := w.Write(buf)
	return int64(n), err
}

// DecodeFixedHeader reads and decodes a fixed header from r.
func DecodeFixedHeader(r io.Reader) (FixedHeader, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return FixedHeader{}, err
	}
	return DecodeFixedHeaderFrom(first[0], r)
}

// DecodeFixedHeaderFrom decodes a fixed header whose type/flags byte has
// already been read from r, continuing with the variable-length
// remaining-length field. Callers that must watch that first byte as its
// own event source (a poll loop selecting on the byte arriving, before
// committing to read the rest of the header) call this directly instead of
// DecodeFixedHeader.
func DecodeFixedHeaderFrom(first byte, r io.Reader) (FixedHeader, error) {
	remaining, err := decodeVarInt(r)
	if err != nil {
		return FixedHeader{}, err
	}

	return FixedHeader{
		PacketType:      first >> 4,
		Flags:           first & 0x0f,
		RemainingLength: remaining,
	}, nil
}
