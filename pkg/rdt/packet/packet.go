// Package packet implements the RDT wire format: a 3-byte header
// (type + big-endian sequence number) followed by an ASCII payload.
package packet

import (
	"fmt"
)

// Type tags the two packet kinds the wire format knows about.
type Type byte

const (
	// Data carries an application payload.
	Data Type = 0
	// Ack acknowledges receipt of a Data packet carrying the same SeqNum.
	Ack Type = 1
)

// MaxPayloadSize is the largest payload Encode will accept.
const MaxPayloadSize = 1397

// headerSize is the fixed type+seqNum prefix every packet carries.
const headerSize = 3

// Packet is a decoded RDT datagram.
type Packet struct {
	Type    Type
	SeqNum  uint16
	Payload []byte
}

// Encode serializes p into a newly allocated buffer. It fails if the
// payload exceeds MaxPayloadSize or Type is not Data/Ack.
func Encode(p Packet) ([]byte, error) {
	if p.Type != Data && p.Type != Ack {
		return nil, fmt.Errorf("packet: invalid type %d", p.Type)
	}
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("packet: payload %d bytes exceeds max %d", len(p.Payload), MaxPayloadSize)
	}
	if p.Type == Ack && len(p.Payload) != 0 {
		return nil, fmt.Errorf("packet: ack packet must carry an empty payload")
	}

	buf := make([]byte, headerSize+len(p.Payload))
	w := newWriter(buf[:0])
	w.writeByte(byte(p.Type))
	w.writeUint16(p.SeqNum)
	w.writeBytes(p.Payload)
	return w.bytes(), nil
}

// Decode parses buf into a Packet. It fails if buf is shorter than the
// fixed header or contains non-ASCII payload bytes.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < headerSize {
		return Packet{}, fmt.Errorf("packet: buffer too short (%d bytes, need at least %d)", len(buf), headerSize)
	}

	r := newReader(buf)
	typByte, err := r.readByte()
	if err != nil {
		return Packet{}, err
	}
	typ := Type(typByte)
	if typ != Data && typ != Ack {
		return Packet{}, fmt.Errorf("packet: invalid type %d", typ)
	}

	seq, err := r.readUint16()
	if err != nil {
		return Packet{}, err
	}

	payload := r.remaining()
	if !isASCII(payload) {
		return Packet{}, fmt.Errorf("packet: payload is not US-ASCII")
	}
	if typ == Ack && len(payload) != 0 {
		return Packet{}, fmt.Errorf("packet: ack packet carried a non-empty payload")
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return Packet{Type: typ, SeqNum: seq, Payload: out}, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 127 {
			return false
		}
	}
	return true
}
