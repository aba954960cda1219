package packet

import (
	"encoding/binary"
	"fmt"
)

// writer accumulates bytes for Encode. It mirrors the teacher's BitStream
// write side, generalized to this wire format's fields only.
type writer struct {
	data []byte
}

func newWriter(buf []byte) *writer {
	return &writer{data: buf}
}

func (w *writer) writeByte(b byte) {
	w.data = append(w.data, b)
}

func (w *writer) writeUint16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

func (w *writer) writeBytes(b []byte) {
	w.data = append(w.data, b...)
}

func (w *writer) bytes() []byte {
	return w.data
}

// reader walks a decode buffer left to right. It mirrors the teacher's
// BitStream read side.
type reader struct {
	data   []byte
	offset int
}

func newReader(buf []byte) *reader {
	return &reader{data: buf}
}

func (r *reader) readByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, fmt.Errorf("packet: buffer underrun reading byte")
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *reader) readUint16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, fmt.Errorf("packet: buffer underrun reading uint16")
	}
	v := binary.BigEndian.Uint16(r.data[r.offset : r.offset+2])
	r.offset += 2
	return v, nil
}

// remaining returns everything not yet consumed.
func (r *reader) remaining() []byte {
	return r.data[r.offset:]
}
