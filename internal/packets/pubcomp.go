package packets

import (
	"encoding/binary"
	"errors"
	"io"
)

// PubcompPacket represents an MQTT PUBCOMP control packet (QoS 2, step 3).
// Like PUBREC and PUBREL, the client accepts but does not originate this
// packet as part of a driven QoS 2 exchange.
type PubcompPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubcompPacket) Type() uint8 {
	return PUBCOMP
}

// WriteTo writes the PUBCOMP packet to w.
func (p *PubcompPacket) WriteTo(w io.Writer) (int64, error) {
	header := FixedHeader{PacketType: PUBCOMP, Flags: 0, RemainingLength: 2}
	buf := header.appendBytes(make([]byte, 0, 4))
	buf = binary.BigEndian.AppendUint16(buf, p.PacketID)
	n, err := w.Write(buf)
	return int64(n), err
}

// DecodePubcomp decodes a PUBCOMP packet from buf.
func DecodePubcomp(buf []byte) (*PubcompPacket, error) {
	if len(buf) < 2 {
		return nil, errors.New("packets: buffer too short for PUBCOMP packet")
	}
	return &PubcompPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}
