package wire

import "testing"

func TestWriterGrowsPastInitialCapacity(t *testing.T) {
	w := NewWriter()
	for i := 0; i < initialCapacity*3; i++ {
		w.WriteByte(byte(i))
	}
	if w.Len() != initialCapacity*3 {
		t.Fatalf("Len() = %d, want %d", w.Len(), initialCapacity*3)
	}
	for i := 0; i < initialCapacity*3; i++ {
		if w.Bytes()[i] != byte(i) {
			t.Fatalf("byte %d corrupted after growth: got %d", i, w.Bytes()[i])
		}
	}
}

func TestReaderSpanCapturesExactRange(t *testing.T) {
	w := NewWriter()
	w.WriteByte(1)
	w.WriteByte(2)
	w.WriteByte(3)
	w.WriteByte(4)
	r := NewReader(w.Bytes(), true)

	start := r.Pos()
	_, _ = r.ReadByte()
	_, _ = r.ReadByte()
	end := r.Pos()

	span := r.Span(start, end)
	if len(span) != 2 || span[0] != 1 || span[1] != 2 {
		t.Fatalf("Span = %v, want [1 2]", span)
	}
}

func TestReaderTruncationError(t *testing.T) {
	r := NewReader([]byte{1, 2}, false)
	if _, err := r.ReadU32(); err == nil {
		t.Fatal("expected a truncation error reading 4 bytes from a 2-byte buffer")
	}
}

func TestReaderPeekDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{42}, false)
	b, err := r.PeekByte()
	if err != nil || b != 42 {
		t.Fatalf("PeekByte: %d, err=%v", b, err)
	}
	if r.Pos() != 0 {
		t.Fatalf("PeekByte should not advance the cursor, pos=%d", r.Pos())
	}
}
