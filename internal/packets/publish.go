package packets

import (
	"encoding/binary"
	"errors"
	"io"
)

// PublishPacket represents an MQTT PUBLISH control packet.
type PublishPacket struct {
	Dup    bool
	QoS    uint8
	Retain bool

	Topic    string
	PacketID uint16 // only present if QoS > 0

	Payload []byte
}

// Type returns the packet type.
func (p *PublishPacket) Type() uint8 {
	return PUBLISH
}

// Encode serializes the PUBLISH packet into dst. The topic length is always
// the full 16-bit big-endian value; unlike the embedded runtime this client
// descends from, long topic names are never silently truncated.
func (p *PublishPacket) Encode(dst []byte) ([]byte, error) {
	variableHeaderLen := 2 + len(p.Topic)
	if p.QoS > 0 {
		variableHeaderLen += 2
	}
	remainingLength := variableHeaderLen + len(p.Payload)

	var flags uint8
	if p.Dup {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}

	header := FixedHeader{PacketType: PUBLISH, Flags: flags, RemainingLength: remainingLength}
	dst = header.appendBytes(dst)

	dst = appendString(dst, p.Topic)
	if p.QoS > 0 {
		dst = binary.BigEndian.AppendUint16(dst, p.PacketID)
	}
	dst = append(dst, p.Payload...)

	return dst, nil
}

// WriteTo writes the PUBLISH packet to w.
func (p *PublishPacket) WriteTo(w io.Writer) (int64, error) {
	bufPtr := getBuffer(4096)
	defer putBuffer(bufPtr)

	data, err := p.Encode((*bufPtr)[:0])
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// DecodePublish decodes a PUBLISH packet's variable header and payload from
// buf, using the QoS/Dup/Retain flags carried in the fixed header.
func DecodePublish(buf []byte, header FixedHeader) (*PublishPacket, error) {
	pkt := &PublishPacket{
		Dup:    header.Flags&0x08 != 0,
		QoS:    (header.Flags >> 1) & 0x03,
		Retain: header.Flags&0x01 != 0,
	}

	topic, n, err := decodeString(buf)
	if err != nil {
		return nil, err
	}
	pkt.Topic = topic
	offset := n

	if pkt.QoS > 0 {
		if offset+2 > len(buf) {
			return nil, errors.New("packets: buffer too short for packet id")
		}
		pkt.PacketID = binary.BigEndian.Uint16(buf[offset : offset+2])
		offset += 2
	}

	pkt.Payload = make([]byte, len(buf)-offset)
	copy(pkt.Payload, buf[offset:])

	return pkt, nil
}

// PublishHead carries the decoded PUBLISH variable header, leaving the
// payload unread on the live stream so the caller can hand a bounded reader
// straight to a streaming consumer instead of buffering the whole message.
type PublishHead struct {
	Dup        bool
	QoS        uint8
	Retain     bool
	Topic      string
	PacketID   uint16
	PayloadLen int
}

// DecodePublishHead reads a PUBLISH packet's variable header directly off r,
// consuming exactly the topic and (if QoS > 0) packet id bytes and nothing
// more. The remaining header.RemainingLength-consumed bytes are the payload,
// still unread on r.
func DecodePublishHead(r io.Reader, header FixedHeader) (PublishHead, error) {
	head := PublishHead{
		Dup:    header.Flags&0x08 != 0,
		QoS:    (header.Flags >> 1) & 0x03,
		Retain: header.Flags&0x01 != 0,
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return PublishHead{}, err
	}
	topicLen := int(binary.BigEndian.Uint16(lenBuf[:]))
	consumed := 2 + topicLen
	if consumed > header.RemainingLength {
		return PublishHead{}, errors.New("packets: topic length exceeds remaining length")
	}

	topicBuf := make([]byte, topicLen)
	if _, err := io.ReadFull(r, topicBuf); err != nil {
		return PublishHead{}, err
	}
	head.Topic = string(topicBuf)

	if head.QoS > 0 {
		var idBuf [2]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return PublishHead{}, err
		}
		head.PacketID = binary.BigEndian.Uint16(idBuf[:])
		consumed += 2
	}

	if consumed > header.RemainingLength {
		return PublishHead{}, errors.New("packets: packet id exceeds remaining length")
	}
	head.PayloadLen = header.RemainingLength - consumed

	return head, nil
}
