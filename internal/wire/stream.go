// Package wire implements the grow-on-demand output buffer, the positional
// input cursor, and the shared variable-length wire grammar (see wire.go)
// used by every codec in package soia. Lengths are written up front, never
// back-patched. The buffer-growth idiom below is grounded on the teacher's
// proto/encode.go and on
// the bounds-checked, zero-copy cursor style of the cascache wire reader
// (other_examples/b85bc01f_unkn0wn-root-cascache__internal-wire-wire.go.go).
package wire

import (
	"encoding/binary"
	"math"

	"github.com/soiago/soia/internal/errors"
)

const initialCapacity = 128

// Writer is an append-only little-endian output buffer. It is not safe for
// concurrent use; callers create one per serialization call.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the default initial capacity.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, initialCapacity)}
}

// Bytes returns the bytes written so far. The returned slice aliases the
// Writer's internal buffer and must not be retained across further writes.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Reserve grows the backing array so that at least n more bytes can be
// appended without reallocating, doubling capacity (at minimum to n) the
// way the teacher's MarshalAppend pre-sizes its buffer from Size().
func (w *Writer) Reserve(n int) {
	if cap(w.buf)-len(w.buf) >= n {
		return
	}
	grown := cap(w.buf) * 2
	if grown < initialCapacity {
		grown = initialCapacity
	}
	if grown < len(w.buf)+n {
		grown = len(w.buf) + n
	}
	next := make([]byte, len(w.buf), grown)
	copy(next, w.buf)
	w.buf = next
}

func (w *Writer) WriteByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) WriteRaw(b []byte) { w.buf = append(w.buf, b...) }

func (w *Writer) WriteU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) WriteU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) WriteU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteString appends the UTF-8 encoding of s and returns the number of
// bytes written.
func (w *Writer) WriteString(s string) int {
	w.buf = append(w.buf, s...)
	return len(s)
}

// Reader is a forward-only little-endian cursor over a byte buffer.
type Reader struct {
	buf              []byte
	pos              int
	PreserveUnknowns bool
}

// NewReader wraps buf starting at offset 0.
func NewReader(buf []byte, preserveUnknowns bool) *Reader {
	return &Reader{buf: buf, PreserveUnknowns: preserveUnknowns}
}

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Len reports the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns a view of the unread bytes without moving the cursor.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

// Seek sets the cursor, used by preserve-mode to capture a raw byte span.
func (r *Reader) Seek(pos int) { r.pos = pos }

// Span returns the bytes between two previously observed Pos() values,
// used by preserve mode to capture a raw unknown-field/variant suffix
// verbatim for byte-exact re-encoding.
func (r *Reader) Span(start, end int) []byte { return r.buf[start:end] }

func (r *Reader) require(n int) error {
	if r.Len() < n {
		return errors.Decode("read", "buffer truncated: need %d bytes, have %d", n, r.Len())
	}
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) PeekByte() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	return r.buf[r.pos], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadRaw reads and returns exactly n bytes. The returned slice aliases the
// input buffer (zero-copy), mirroring the cascache reader's convention of
// returning subslices for payloads.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
