package packet

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDataRoundTrip(t *testing.T) {
	p := Packet{Type: Data, SeqNum: 1234, Payload: []byte("testing 0")}

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if len(data) != headerSize+len(p.Payload) {
		t.Errorf("encoded length = %d, want %d", len(data), headerSize+len(p.Payload))
	}
	if data[0] != byte(Data) {
		t.Errorf("type byte = 0x%02X, want 0x%02X", data[0], byte(Data))
	}

	// seqNum must be big-endian on the wire.
	seq := uint16(data[1])<<8 | uint16(data[2])
	if seq != 1234 {
		t.Errorf("wire seqNum = %d, want 1234", seq)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Type != p.Type || decoded.SeqNum != p.SeqNum || !bytes.Equal(decoded.Payload, p.Payload) {
		t.Errorf("decode(encode(p)) = %+v, want %+v", decoded, p)
	}
}

func TestEncodeAckIsAlwaysThreeBytes(t *testing.T) {
	p := Packet{Type: Ack, SeqNum: 7}

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("ack length = %d, want 3", len(data))
	}
	if data[0] != byte(Ack) {
		t.Errorf("type byte = 0x%02X, want 0x%02X", data[0], byte(Ack))
	}
}

func TestEncodeRejectsOversizePayload(t *testing.T) {
	p := Packet{Type: Data, SeqNum: 0, Payload: bytes.Repeat([]byte("a"), MaxPayloadSize+1)}

	if _, err := Encode(p); err == nil {
		t.Error("Encode accepted a payload larger than MaxPayloadSize")
	}
}

func TestEncodeRejectsNonEmptyAckPayload(t *testing.T) {
	p := Packet{Type: Ack, SeqNum: 0, Payload: []byte("x")}

	if _, err := Encode(p); err == nil {
		t.Error("Encode accepted a non-empty payload on an ack packet")
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	if _, err := Decode([]byte{0, 1}); err == nil {
		t.Error("Decode accepted a 2-byte buffer")
	}
}

func TestDecodeRejectsInvalidType(t *testing.T) {
	buf := []byte{2, 0, 0}
	if _, err := Decode(buf); err == nil {
		t.Error("Decode accepted an invalid type tag")
	}
}

func TestDecodeRejectsNonASCIIPayload(t *testing.T) {
	buf := []byte{byte(Data), 0, 0, 0xFF}
	if _, err := Decode(buf); err == nil {
		t.Error("Decode accepted a non-ASCII payload byte")
	}
}

func TestDecodeRejectsAckWithPayload(t *testing.T) {
	buf := []byte{byte(Ack), 0, 0, 'x'}
	if _, err := Decode(buf); err == nil {
		t.Error("Decode accepted an ack packet carrying a payload")
	}
}

func TestEncodeMaxPayloadBoundary(t *testing.T) {
	p := Packet{Type: Data, SeqNum: 0, Payload: bytes.Repeat([]byte("a"), MaxPayloadSize)}
	if _, err := Encode(p); err != nil {
		t.Errorf("Encode rejected exactly MaxPayloadSize bytes: %v", err)
	}
}

func TestRoundTripFullASCIIRange(t *testing.T) {
	var sb strings.Builder
	for c := byte(0); c < 128; c++ {
		sb.WriteByte(c)
	}
	p := Packet{Type: Data, SeqNum: 42, Payload: []byte(sb.String())}

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded.Payload, p.Payload) {
		t.Error("round trip lost payload bytes across the full ASCII range")
	}
}
