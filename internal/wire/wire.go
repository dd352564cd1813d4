package wire

import "github.com/soiago/soia/internal/errors"

// Wire-byte discriminators, exactly the table the spec fixes as the shared
// grammar for every numeric, string, bytes, optional, array and record
// header. Values 0..231 are literal small unsigned integers; everything
// from 232 up is a discriminator naming what follows.
const (
	WireU16           byte = 232
	WireU32           byte = 233
	WireU64           byte = 234
	WireNegByte       byte = 235
	WireNegU16        byte = 236
	WireI32           byte = 237
	WireI64           byte = 238
	WireTimestamp     byte = 239
	WireF32           byte = 240
	WireF64           byte = 241
	WireEmptyString   byte = 242
	WireString        byte = 243
	WireEmptyBytes    byte = 244
	WireBytes         byte = 245
	WireEmptyArray    byte = 246
	WireArray1        byte = 247
	WireEnumBig       byte = 248
	WireArray2        byte = 249
	WireArrayN        byte = 250
	WireEnumSmallBase byte = 251 // covers 251..254 for numbers 1..4
	WireNull          byte = 255

	maxInline = 231

	// MaxInline is the exported form of maxInline for callers outside this
	// package that need to classify a peeked byte (the enum dense decoder).
	MaxInline = maxInline
)

// NumKind distinguishes the two numeric families a wire value can decode
// to: decoders must accept both regardless of the static type (spec
// §4.2: "Decoders MUST accept any wire that yields a numeric value").
type NumKind int

const (
	NumInt NumKind = iota
	NumFloat
)

// Numeric is the decoded result of a numeric wire value before it has been
// narrowed to a specific primitive type.
type Numeric struct {
	Kind NumKind
	I    int64
	F    float64
}

// AsInt64 narrows a decoded numeric value to int64, truncating floats.
func (n Numeric) AsInt64() int64 {
	if n.Kind == NumFloat {
		return int64(n.F)
	}
	return n.I
}

// AsUint64 narrows a decoded numeric value to uint64. Integer values are
// reinterpreted bit-for-bit (lossless for the full uint64 range, since the
// wire grammar transports uint64 values through the int64-shaped fields).
func (n Numeric) AsUint64() uint64 {
	if n.Kind == NumFloat {
		if n.F < 0 {
			return 0
		}
		return uint64(n.F)
	}
	return uint64(n.I)
}

// AsFloat64 narrows a decoded numeric value to float64.
func (n Numeric) AsFloat64() float64 {
	if n.Kind == NumFloat {
		return n.F
	}
	return float64(n.I)
}

// AsBool reports whether a decoded numeric value is non-zero.
func (n Numeric) AsBool() bool {
	if n.Kind == NumFloat {
		return n.F != 0
	}
	return n.I != 0
}

// ReadNumeric reads one wire value known to be numeric (bool, int32, int64,
// uint64 or float all funnel through here) and returns it pre-narrowed.
func ReadNumeric(r *Reader) (Numeric, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Numeric{}, err
	}
	return readNumericAfterTag(r, b)
}

func readNumericAfterTag(r *Reader, b byte) (Numeric, error) {
	switch {
	case b <= maxInline:
		return Numeric{Kind: NumInt, I: int64(b)}, nil
	case b == WireU16:
		v, err := r.ReadU16()
		return Numeric{Kind: NumInt, I: int64(v)}, err
	case b == WireU32:
		v, err := r.ReadU32()
		return Numeric{Kind: NumInt, I: int64(v)}, err
	case b == WireU64:
		v, err := r.ReadU64()
		return Numeric{Kind: NumInt, I: int64(v)}, err
	case b == WireNegByte:
		v, err := r.ReadByte()
		return Numeric{Kind: NumInt, I: int64(v) - 256}, err
	case b == WireNegU16:
		v, err := r.ReadU16()
		return Numeric{Kind: NumInt, I: int64(v) - 65536}, err
	case b == WireI32:
		v, err := r.ReadI32()
		return Numeric{Kind: NumInt, I: int64(v)}, err
	case b == WireI64, b == WireTimestamp:
		v, err := r.ReadI64()
		return Numeric{Kind: NumInt, I: v}, err
	case b == WireF32:
		v, err := r.ReadF32()
		return Numeric{Kind: NumFloat, F: float64(v)}, err
	case b == WireF64:
		v, err := r.ReadF64()
		return Numeric{Kind: NumFloat, F: v}, err
	default:
		return Numeric{}, errors.Decode("numeric", "unexpected wire byte %d", b)
	}
}

// clamp helpers. Overflow is never an error in this grammar: values
// saturate at the relevant type's bounds (spec §7).
func ClampInt32(v int64) int32 {
	switch {
	case v < -(1 << 31):
		return -(1 << 31)
	case v > (1<<31)-1:
		return (1 << 31) - 1
	default:
		return int32(v)
	}
}

func ClampInt64FromFloat(f float64) int64 {
	const maxI64 = float64(1<<63 - 1)
	const minI64 = -float64(1 << 63)
	switch {
	case f >= maxI64:
		return 1<<63 - 1
	case f < minI64:
		return -1 << 63
	default:
		return int64(f)
	}
}

// PutCount writes the shortest non-negative-integer form (0..231, u16, u32,
// u64) for n. It is shared by lengths (string/bytes/array), enum numbers,
// and uint64 values.
func PutCount(w *Writer, n uint64) {
	switch {
	case n <= maxInline:
		w.WriteByte(byte(n))
	case n <= 0xFFFF:
		w.WriteByte(WireU16)
		w.WriteU16(uint16(n))
	case n <= 0xFFFFFFFF:
		w.WriteByte(WireU32)
		w.WriteU32(uint32(n))
	default:
		w.WriteByte(WireU64)
		w.WriteU64(n)
	}
}

// ReadCount reads back a value written by PutCount.
func ReadCount(r *Reader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b <= maxInline:
		return uint64(b), nil
	case b == WireU16:
		v, err := r.ReadU16()
		return uint64(v), err
	case b == WireU32:
		v, err := r.ReadU32()
		return uint64(v), err
	case b == WireU64:
		return r.ReadU64()
	default:
		return 0, errors.Decode("count", "unexpected wire byte %d for length/count", b)
	}
}

// PutInt32 writes v using the smallest applicable branch, in the order the
// spec mandates so encodings stay deterministic.
func PutInt32(w *Writer, v int32) {
	n := int64(v)
	switch {
	case n >= -256 && n <= -1:
		w.WriteByte(WireNegByte)
		w.WriteByte(byte(n + 256))
	case n >= -65536 && n <= -257:
		w.WriteByte(WireNegU16)
		w.WriteU16(uint16(n + 65536))
	case n < -65536:
		w.WriteByte(WireI32)
		w.WriteI32(v)
	case n >= 0 && n <= maxInline:
		w.WriteByte(byte(n))
	case n < 65536:
		w.WriteByte(WireU16)
		w.WriteU16(uint16(n))
	default:
		w.WriteByte(WireU32)
		w.WriteU32(uint32(n))
	}
}

// ReadInt32 accepts any numeric wire, narrowing to 32-bit two's complement.
func ReadInt32(r *Reader) (int32, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return 0, err
	}
	return int32(n.AsInt64()), nil
}

// PutInt64 reuses the int32 branches whenever v fits in int32's range,
// otherwise falls back to the dedicated 64-bit branch.
func PutInt64(w *Writer, v int64) {
	if v >= -(1<<31) && v <= (1<<31)-1 {
		PutInt32(w, int32(v))
		return
	}
	w.WriteByte(WireI64)
	w.WriteI64(v)
}

func ReadInt64(r *Reader) (int64, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return 0, err
	}
	return n.AsInt64(), nil
}

// PutUint64 picks the shortest of the four non-negative branches.
func PutUint64(w *Writer, v uint64) { PutCount(w, v) }

func ReadUint64(r *Reader) (uint64, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return 0, err
	}
	return n.AsUint64(), nil
}

func PutFloat32(w *Writer, v float32) {
	if v == 0 {
		w.WriteByte(0)
		return
	}
	w.WriteByte(WireF32)
	w.WriteF32(v)
}

func ReadFloat32(r *Reader) (float32, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return 0, err
	}
	if n.Kind == NumFloat {
		return float32(n.F), nil
	}
	return float32(n.I), nil
}

func PutFloat64(w *Writer, v float64) {
	if v == 0 {
		w.WriteByte(0)
		return
	}
	w.WriteByte(WireF64)
	w.WriteF64(v)
}

func ReadFloat64(r *Reader) (float64, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return 0, err
	}
	if n.Kind == NumFloat {
		return n.F, nil
	}
	return float64(n.I), nil
}

func PutTimestampMillis(w *Writer, ms int64) {
	if ms == 0 {
		w.WriteByte(0)
		return
	}
	w.WriteByte(WireTimestamp)
	w.WriteI64(ms)
}

func ReadTimestampMillis(r *Reader) (int64, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return 0, err
	}
	return n.AsInt64(), nil
}

// PutBool writes a single-byte boolean.
func PutBool(w *Writer, v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func ReadBool(r *Reader) (bool, error) {
	n, err := ReadNumeric(r)
	if err != nil {
		return false, err
	}
	return n.AsBool(), nil
}

// PutStringHeader writes the prefix for a UTF-8 payload of byteLen bytes.
// Callers write the raw bytes themselves immediately after.
func PutStringHeader(w *Writer, byteLen int) {
	if byteLen == 0 {
		w.WriteByte(WireEmptyString)
		return
	}
	w.WriteByte(WireString)
	PutCount(w, uint64(byteLen))
}

// ReadStringHeader reads the string prefix and returns the payload length,
// or false if the wire held the empty-string sentinel.
func ReadStringHeader(r *Reader) (length int, nonEmpty bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	switch b {
	case WireEmptyString:
		return 0, false, nil
	case WireString:
		n, err := ReadCount(r)
		return int(n), true, err
	default:
		return 0, false, errors.Decode("string", "unexpected wire byte %d for string", b)
	}
}

func PutBytesHeader(w *Writer, byteLen int) {
	if byteLen == 0 {
		w.WriteByte(WireEmptyBytes)
		return
	}
	w.WriteByte(WireBytes)
	PutCount(w, uint64(byteLen))
}

func ReadBytesHeader(r *Reader) (length int, nonEmpty bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	switch b {
	case WireEmptyBytes:
		return 0, false, nil
	case WireBytes:
		n, err := ReadCount(r)
		return int(n), true, err
	default:
		return 0, false, errors.Decode("bytes", "unexpected wire byte %d for bytes", b)
	}
}

// PutArrayHeader writes the array/struct length prefix for n elements.
func PutArrayHeader(w *Writer, n int) {
	switch {
	case n == 0:
		w.WriteByte(WireEmptyArray)
	case n == 1:
		w.WriteByte(WireArray1)
	case n == 2:
		w.WriteByte(WireArray2)
	default:
		w.WriteByte(WireArrayN)
		PutCount(w, uint64(n))
	}
}

// ReadArrayHeader reads an array/struct length prefix. The byte must
// already be known not to be a null/enum/string/bytes wire.
func ReadArrayHeader(r *Reader) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	return arrayLenFromTag(r, b)
}

func arrayLenFromTag(r *Reader, b byte) (int, error) {
	switch b {
	case WireEmptyArray:
		return 0, nil
	case WireArray1:
		return 1, nil
	case WireArray2:
		return 2, nil
	case WireArrayN:
		n, err := ReadCount(r)
		return int(n), err
	default:
		return 0, errors.Decode("array", "unexpected wire byte %d for array/struct header", b)
	}
}

// PutEnumConstant writes a constant-variant number (shares the
// non-negative small-integer grammar).
func PutEnumConstant(w *Writer, number int) { PutCount(w, uint64(number)) }

// PutEnumValueHeader writes the header for a value-carrying variant; the
// caller writes the payload immediately after.
func PutEnumValueHeader(w *Writer, number int) {
	if number >= 1 && number <= 4 {
		w.WriteByte(WireEnumSmallBase + byte(number-1))
		return
	}
	w.WriteByte(WireEnumBig)
	PutCount(w, uint64(number))
}

// PeekIsNull reports whether the next byte is the null sentinel, without
// consuming it on a false result. Used by optional<T> decoding.
func PeekIsNull(r *Reader) (bool, error) {
	b, err := r.PeekByte()
	if err != nil {
		return false, err
	}
	return b == WireNull, nil
}

func PutNull(w *Writer) { w.WriteByte(WireNull) }

// ConsumeNull advances past a confirmed null byte.
func ConsumeNull(r *Reader) error {
	_, err := r.ReadByte()
	return err
}

// Skip consumes exactly one complete wire element starting at the cursor,
// recursing through arrays/structs and enum value-variants. It is the only
// way to discard a value of unknown schema (spec §4.7).
func Skip(r *Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch {
	case b <= maxInline:
		return nil
	case b == WireU16:
		_, err = r.ReadU16()
	case b == WireU32:
		_, err = r.ReadU32()
	case b == WireU64:
		_, err = r.ReadU64()
	case b == WireNegByte:
		_, err = r.ReadByte()
	case b == WireNegU16:
		_, err = r.ReadU16()
	case b == WireI32:
		_, err = r.ReadU32()
	case b == WireI64, b == WireTimestamp:
		_, err = r.ReadU64()
	case b == WireF32:
		_, err = r.ReadU32()
	case b == WireF64:
		_, err = r.ReadU64()
	case b == WireEmptyString, b == WireEmptyBytes, b == WireEmptyArray, b == WireNull:
		return nil
	case b == WireString:
		n, e := ReadCount(r)
		if e != nil {
			return e
		}
		_, err = r.ReadRaw(int(n))
	case b == WireBytes:
		n, e := ReadCount(r)
		if e != nil {
			return e
		}
		_, err = r.ReadRaw(int(n))
	case b == WireArray1:
		return Skip(r)
	case b == WireArray2:
		if err := Skip(r); err != nil {
			return err
		}
		return Skip(r)
	case b == WireArrayN:
		n, e := ReadCount(r)
		if e != nil {
			return e
		}
		for i := uint64(0); i < n; i++ {
			if err := Skip(r); err != nil {
				return err
			}
		}
	case b == WireEnumBig:
		if _, err = ReadCount(r); err != nil {
			return err
		}
		return Skip(r)
	case b >= WireEnumSmallBase && b <= WireEnumSmallBase+3:
		return Skip(r)
	default:
		return errors.Decode("skip", "unexpected wire byte %d", b)
	}
	return err
}
