package soia

// Bytes is an immutable byte sequence. Slicing returns a view over the same
// backing array rather than copying, mirroring the teacher's
// protoreflect.RawFields zero-copy subslice convention and the cascache
// wire reader's read-only payload slices
// (other_examples/b85bc01f_unkn0wn-root-cascache__internal-wire-wire.go.go).
type Bytes struct {
	data []byte
}

// EmptyBytes is the process-wide singleton empty byte string (spec §5).
var EmptyBytes = Bytes{data: nil}

// NewBytes copies b into a fresh, immutable Bytes value.
func NewBytes(b []byte) Bytes {
	if len(b) == 0 {
		return EmptyBytes
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Bytes{data: cp}
}

// WrapBytes wraps b without copying. Callers must not mutate b afterward;
// used internally when b is already known to be owned (e.g. freshly
// allocated by a decoder).
func WrapBytes(b []byte) Bytes {
	if len(b) == 0 {
		return EmptyBytes
	}
	return Bytes{data: b}
}

// Len reports the number of bytes.
func (b Bytes) Len() int { return len(b.data) }

// Slice returns a zero-copy view over [start:end).
func (b Bytes) Slice(start, end int) Bytes {
	if start == end {
		return EmptyBytes
	}
	return Bytes{data: b.data[start:end]}
}

// Bytes returns the underlying byte slice. Callers must treat it as
// read-only.
func (b Bytes) Bytes() []byte { return b.data }

func (b Bytes) Equal(o Bytes) bool {
	if len(b.data) != len(o.data) {
		return false
	}
	for i := range b.data {
		if b.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func (b Bytes) IsDefault() bool { return len(b.data) == 0 }

func (b Bytes) String() string { return string(b.data) }
