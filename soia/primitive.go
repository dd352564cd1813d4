package soia

import (
	"math"

	"github.com/soiago/soia/internal/descriptor"
	"github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/internal/wire"
)

// BoolSerializer implements the bool primitive codec (spec §4.3).
func BoolSerializer() Serializer[bool] {
	return Serializer[bool]{
		ToJSON: func(v bool, _ JSONFlavor) JSONValue {
			if v {
				return json1
			}
			return json0
		},
		FromJSON: func(j JSONValue, _ bool) (bool, error) {
			if b, ok := jsonAsBool(j); ok {
				return b, nil
			}
			if f, ok := jsonAsFloat64(j); ok {
				return f != 0, nil
			}
			return false, errors.Type("bool", jsonTypeName(j))
		},
		writeBytes: func(w *wire.Writer, v bool) { wire.PutBool(w, v) },
		readBytes:  func(r *wire.Reader) (bool, error) { return wire.ReadBool(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("bool")
		},
		Default:   false,
		IsDefault: func(v bool) bool { return !v },
	}
}

var (
	json0 JSONValue = jsonIntLiteral(0)
	json1 JSONValue = jsonIntLiteral(1)
)

func jsonIntLiteral(n int64) JSONValue { return int64JSON(n) }

func jsonTypeName(v JSONValue) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "number"
	}
}

// Int32Serializer implements the int32 primitive codec.
func Int32Serializer() Serializer[int32] {
	return Serializer[int32]{
		ToJSON: func(v int32, _ JSONFlavor) JSONValue { return int64JSON(int64(v)) },
		FromJSON: func(j JSONValue, _ bool) (int32, error) {
			n, ok := jsonAsInt64(j)
			if !ok {
				return 0, errors.Type("int32", jsonTypeName(j))
			}
			return wire.ClampInt32(n), nil
		},
		writeBytes: func(w *wire.Writer, v int32) { wire.PutInt32(w, v) },
		readBytes:  func(r *wire.Reader) (int32, error) { return wire.ReadInt32(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("int32")
		},
		Default:   0,
		IsDefault: func(v int32) bool { return v == 0 },
	}
}

// Int64Serializer implements the int64 primitive codec. Per spec §9's
// resolved open question, out-of-range decimal-string JSON input is
// clamped on decode rather than preserved unclamped (see DESIGN.md).
func Int64Serializer() Serializer[int64] {
	return Serializer[int64]{
		ToJSON: func(v int64, _ JSONFlavor) JSONValue { return int64JSON(v) },
		FromJSON: func(j JSONValue, _ bool) (int64, error) {
			n, ok := jsonAsInt64(j)
			if !ok {
				return 0, errors.Type("int64", jsonTypeName(j))
			}
			return n, nil
		},
		writeBytes: func(w *wire.Writer, v int64) { wire.PutInt64(w, v) },
		readBytes:  func(r *wire.Reader) (int64, error) { return wire.ReadInt64(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("int64")
		},
		Default:   0,
		IsDefault: func(v int64) bool { return v == 0 },
	}
}

// Uint64Serializer implements the uint64 primitive codec.
func Uint64Serializer() Serializer[uint64] {
	return Serializer[uint64]{
		ToJSON: func(v uint64, _ JSONFlavor) JSONValue { return uint64JSON(v) },
		FromJSON: func(j JSONValue, _ bool) (uint64, error) {
			n, ok := jsonAsUint64(j)
			if !ok {
				return 0, errors.Type("uint64", jsonTypeName(j))
			}
			return n, nil
		},
		writeBytes: func(w *wire.Writer, v uint64) { wire.PutUint64(w, v) },
		readBytes:  func(r *wire.Reader) (uint64, error) { return wire.ReadUint64(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("uint64")
		},
		Default:   0,
		IsDefault: func(v uint64) bool { return v == 0 },
	}
}

// Float32Serializer implements the float32 primitive codec. IsDefault uses
// v == 0, so NaN (never equal to itself) is not the default value, and both
// +0 and -0 are.
func Float32Serializer() Serializer[float32] {
	return Serializer[float32]{
		ToJSON: func(v float32, _ JSONFlavor) JSONValue { return floatJSON(float64(v)) },
		FromJSON: func(j JSONValue, _ bool) (float32, error) {
			if s, ok := jsonAsString(j); ok {
				switch s {
				case "NaN":
					return float32(math.NaN()), nil
				case "Infinity":
					return float32(math.Inf(1)), nil
				case "-Infinity":
					return float32(math.Inf(-1)), nil
				}
			}
			f, ok := jsonAsFloat64(j)
			if !ok {
				return 0, errors.Type("float32", jsonTypeName(j))
			}
			return float32(f), nil
		},
		writeBytes: func(w *wire.Writer, v float32) { wire.PutFloat32(w, v) },
		readBytes:  func(r *wire.Reader) (float32, error) { return wire.ReadFloat32(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("float32")
		},
		Default:   0,
		IsDefault: func(v float32) bool { return v == 0 },
	}
}

// Float64Serializer implements the float64 primitive codec.
func Float64Serializer() Serializer[float64] {
	return Serializer[float64]{
		ToJSON: func(v float64, _ JSONFlavor) JSONValue { return floatJSON(v) },
		FromJSON: func(j JSONValue, _ bool) (float64, error) {
			if s, ok := jsonAsString(j); ok {
				switch s {
				case "NaN":
					return math.NaN(), nil
				case "Infinity":
					return math.Inf(1), nil
				case "-Infinity":
					return math.Inf(-1), nil
				}
			}
			f, ok := jsonAsFloat64(j)
			if !ok {
				return 0, errors.Type("float64", jsonTypeName(j))
			}
			return f, nil
		},
		writeBytes: func(w *wire.Writer, v float64) { wire.PutFloat64(w, v) },
		readBytes:  func(r *wire.Reader) (float64, error) { return wire.ReadFloat64(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("float64")
		},
		Default:   0,
		IsDefault: func(v float64) bool { return v == 0 },
	}
}

// TimestampSerializer implements the timestamp primitive codec.
func TimestampSerializer() Serializer[Timestamp] {
	return Serializer[Timestamp]{
		ToJSON: func(v Timestamp, flavor JSONFlavor) JSONValue {
			if flavor == Dense {
				return int64JSON(v.UnixMillis())
			}
			return map[string]any{
				"unix_millis": int64JSON(v.UnixMillis()),
				"formatted":   v.Formatted(),
			}
		},
		FromJSON: func(j JSONValue, _ bool) (Timestamp, error) {
			if m, ok := j.(map[string]any); ok {
				ms, ok := jsonAsInt64(m["unix_millis"])
				if !ok {
					return Timestamp{}, errors.Type("timestamp", "object missing unix_millis")
				}
				return UnixMillisTimestamp(ms), nil
			}
			ms, ok := jsonAsInt64(j)
			if !ok {
				return Timestamp{}, errors.Type("timestamp", jsonTypeName(j))
			}
			return UnixMillisTimestamp(ms), nil
		},
		writeBytes: func(w *wire.Writer, v Timestamp) { wire.PutTimestampMillis(w, v.UnixMillis()) },
		readBytes: func(r *wire.Reader) (Timestamp, error) {
			ms, err := wire.ReadTimestampMillis(r)
			if err != nil {
				return Timestamp{}, err
			}
			return UnixMillisTimestamp(ms), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("timestamp")
		},
		Default:   Timestamp{},
		IsDefault: func(v Timestamp) bool { return v.IsDefault() },
	}
}

// StringSerializer implements the string primitive codec.
func StringSerializer() Serializer[string] {
	return Serializer[string]{
		ToJSON: func(v string, _ JSONFlavor) JSONValue {
			if v == "" {
				return json0
			}
			return v
		},
		FromJSON: func(j JSONValue, _ bool) (string, error) {
			if jsonIsZeroDense(j) {
				return "", nil
			}
			s, ok := jsonAsString(j)
			if !ok {
				return "", errors.Type("string", jsonTypeName(j))
			}
			return s, nil
		},
		writeBytes: func(w *wire.Writer, v string) {
			if v == "" {
				w.WriteByte(wire.WireEmptyString)
				return
			}
			wire.PutStringHeader(w, len(v))
			w.WriteString(v)
		},
		readBytes: func(r *wire.Reader) (string, error) {
			n, nonEmpty, err := wire.ReadStringHeader(r)
			if err != nil {
				return "", err
			}
			if !nonEmpty {
				return "", nil
			}
			b, err := r.ReadRaw(n)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("string")
		},
		Default:   "",
		IsDefault: func(v string) bool { return v == "" },
	}
}

// ByteStringSerializer implements the bytes primitive codec.
func ByteStringSerializer() Serializer[Bytes] {
	return Serializer[Bytes]{
		ToJSON: func(v Bytes, flavor JSONFlavor) JSONValue {
			if flavor == Dense {
				return bytesDenseJSON(v.Bytes())
			}
			return bytesReadableJSON(v.Bytes())
		},
		FromJSON: func(j JSONValue, _ bool) (Bytes, error) {
			b, err := decodeBytesJSON(j)
			if err != nil {
				return Bytes{}, err
			}
			return NewBytes(b), nil
		},
		writeBytes: func(w *wire.Writer, v Bytes) {
			wire.PutBytesHeader(w, v.Len())
			w.WriteRaw(v.Bytes())
		},
		readBytes: func(r *wire.Reader) (Bytes, error) {
			n, nonEmpty, err := wire.ReadBytesHeader(r)
			if err != nil {
				return Bytes{}, err
			}
			if !nonEmpty {
				return EmptyBytes, nil
			}
			raw, err := r.ReadRaw(n)
			if err != nil {
				return Bytes{}, err
			}
			return NewBytes(raw), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Primitive("bytes")
		},
		Default:   EmptyBytes,
		IsDefault: func(v Bytes) bool { return v.IsDefault() },
	}
}
