// Package rpcwire implements the wire codec: length-prefixed frames and
// little-endian field encoding/decoding. It never interprets what a payload
// means — that is left to the domain model and the RPC endpoint built on
// top of it.
package rpcwire

import (
	"encoding/binary"
	"fmt"
)

// MalformedFrame is returned whenever a frame or field fails to decode:
// truncated input, an overlong length prefix, or an unknown tag. Receiving
// one means the connection must be dropped, never retried in place.
type MalformedFrame struct {
	Reason string
}

func (e *MalformedFrame) Error() string { return "malformed frame: " + e.Reason }

func malformedf(format string, args ...any) *MalformedFrame {
	return &MalformedFrame{Reason: fmt.Sprintf(format, args...)}
}

// Writer accumulates little-endian encoded fields into a single byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the encoded payload accumulated so far.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteBytes writes a u32 length prefix followed by the raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString writes a string the same way WriteBytes writes a byte slice.
func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// Reader decodes little-endian fields from a fixed byte slice, advancing a
// cursor. Every method returns a *MalformedFrame on underrun.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader { return &Reader{data: data} }

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Finish reports an error if the reader has trailing, undecoded bytes. Call
// it once a message's fields have all been read to catch payloads that
// encode more fields than the decoder expects.
func (r *Reader) Finish() error {
	if r.Remaining() != 0 {
		return malformedf("%d trailing bytes after decode", r.Remaining())
	}
	return nil
}

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return malformedf("need %d bytes, have %d", n, r.Remaining())
	}
	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadBytes reads a u32 length prefix and returns that many bytes, copied
// out of the underlying slice so callers may retain them past the frame's
// lifetime.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
