package soia

import (
	"github.com/soiago/soia/internal/descriptor"
	"github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/internal/wire"
)

// Format names one of the three encodings a record can move between (spec
// §4.6's "transform" operation).
type Format int

const (
	FormatBinary Format = iota
	FormatDenseJSON
	FormatReadableJSON
)

// Transform decodes data (encoded as from, for the registered record typeID
// names) and re-encodes it as to, without the caller needing the record's
// concrete Go type — the generic, descriptor-driven counterpart to calling
// a typed Serializer[T]'s decode method followed by its encode method.
// Decoding always runs in preserve mode, so unknown struct fields and enum
// variants survive a binary-to-binary or JSON-to-dense-JSON transform.
// Readable JSON output never includes them, and unknowns captured from one
// encoding are not carried into the other.
func Transform(typeID string, data []byte, from, to Format) ([]byte, error) {
	entry, ok := LookupRecord(typeID)
	if !ok {
		return nil, errors.Registration("unknown record %q", typeID)
	}
	v, err := decodeAs(entry.Serializer, data, from)
	if err != nil {
		return nil, err
	}
	return encodeAs(entry.Serializer, v, to)
}

func decodeAs(ser erased, data []byte, from Format) (any, error) {
	switch from {
	case FormatBinary:
		skip := 4
		if len(data) < skip {
			skip = len(data)
		}
		r := wire.NewReader(data[skip:], true)
		return ser.readBytes(r)
	case FormatDenseJSON, FormatReadableJSON:
		j, err := ParseJSON(data)
		if err != nil {
			return nil, err
		}
		return ser.fromJSON(j, true)
	default:
		return nil, errors.Decode("transform", "unknown source format %d", from)
	}
}

func encodeAs(ser erased, v any, to Format) ([]byte, error) {
	switch to {
	case FormatBinary:
		w := wire.NewWriter()
		w.WriteRaw(magic[:])
		ser.writeBytes(w, v)
		return w.Bytes(), nil
	case FormatDenseJSON:
		return marshalIndent(ser.toJSON(v, Dense), Dense), nil
	case FormatReadableJSON:
		return marshalIndent(ser.toJSON(v, Readable), Readable), nil
	default:
		return nil, errors.Decode("transform", "unknown destination format %d", to)
	}
}

// TypeDescriptorJSON exports a registered record's reflective shape (spec
// §4.6's JSON export operation).
func TypeDescriptorJSON(typeID string) (any, error) {
	entry, ok := LookupRecord(typeID)
	if !ok {
		return nil, errors.Registration("unknown record %q", typeID)
	}
	return entry.Descriptor.AsJSON(), nil
}

// ParseTypeDescriptor rebuilds a *descriptor.Descriptor from exported JSON
// (spec §4.6's parse operation), independent of RegisterModule — used when
// the descriptor arrives over the wire (soiarpc's method-listing response)
// rather than from a compiled-in module.
func ParseTypeDescriptor(j any) (*descriptor.Descriptor, error) {
	return descriptor.Parse(j)
}

// GenericRecord is a descriptor-driven stand-in for a struct value with no
// corresponding compiled-in Go type: every field is stored by number as
// whatever Go value its own (possibly also generic) codec produces. This
// plays the role dynamicpb.Message plays against a protoreflect.MessageDescriptor
// pulled off the wire — it lets a caller of GenericSerializer decode,
// inspect and re-encode a payload for a type this binary was never compiled
// against, driven purely by a descriptor received at runtime. Neither
// soiarpc nor cmd/soiadump uses it; both work only with registered records.
type GenericRecord struct {
	Desc   *descriptor.Descriptor
	Fields map[int]any
}

// NewGenericRecord returns an empty (all-default) record for desc.
func NewGenericRecord(desc *descriptor.Descriptor) *GenericRecord {
	return &GenericRecord{Desc: desc, Fields: map[int]any{}}
}

// GenericSerializer builds an erased codec purely from a struct or enum
// descriptor, resolving nested record references against the global
// registry when available and falling back to a further generic codec
// otherwise (the descriptor graph bottoms out at primitives, so this
// always terminates).
func GenericSerializer(desc *descriptor.Descriptor) (erased, error) {
	return serializerForDescriptor(desc)
}

func serializerForDescriptor(desc *descriptor.Descriptor) (erased, error) {
	switch desc.Kind {
	case descriptor.KindPrimitive:
		return primitiveErasedFor(desc.Primitive)
	case descriptor.KindOptional:
		elem, err := serializerForDescriptor(desc.Elem)
		if err != nil {
			return erased{}, err
		}
		return erasedOptional(elem), nil
	case descriptor.KindArray:
		elem, err := serializerForDescriptor(desc.Elem)
		if err != nil {
			return erased{}, err
		}
		return erasedArray(elem), nil
	case descriptor.KindStruct:
		if entry, ok := LookupRecord(desc.ID()); ok {
			return entry.Serializer, nil
		}
		return genericStructCodec(desc)
	case descriptor.KindEnum:
		if entry, ok := LookupRecord(desc.ID()); ok {
			return entry.Serializer, nil
		}
		return genericEnumCodec(desc)
	default:
		return erased{}, errors.Registration("descriptor: unknown kind %d", desc.Kind)
	}
}

func primitiveErasedFor(name string) (erased, error) {
	switch name {
	case "bool":
		return Erase(BoolSerializer()), nil
	case "int32":
		return Erase(Int32Serializer()), nil
	case "int64":
		return Erase(Int64Serializer()), nil
	case "uint64":
		return Erase(Uint64Serializer()), nil
	case "float32":
		return Erase(Float32Serializer()), nil
	case "float64":
		return Erase(Float64Serializer()), nil
	case "timestamp":
		return Erase(TimestampSerializer()), nil
	case "string":
		return Erase(StringSerializer()), nil
	case "bytes":
		return Erase(ByteStringSerializer()), nil
	default:
		return erased{}, errors.Registration("unknown primitive %q", name)
	}
}

// erasedOptional builds an erased optional<T> codec directly from an
// already-erased inner codec, mirroring OptionalSerializer without the
// generic type parameter the reflective path doesn't have.
func erasedOptional(inner erased) erased {
	return erased{
		toJSON: func(v any, flavor JSONFlavor) JSONValue {
			if v == nil {
				return nil
			}
			return inner.toJSON(v, flavor)
		},
		fromJSON: func(j JSONValue, preserve bool) (any, error) {
			if jsonIsNull(j) {
				return nil, nil
			}
			return inner.fromJSON(j, preserve)
		},
		writeBytes: func(w *wire.Writer, v any) {
			if v == nil {
				wire.PutNull(w)
				return
			}
			inner.writeBytes(w, v)
		},
		readBytes: func(r *wire.Reader) (any, error) {
			isNull, err := wire.PeekIsNull(r)
			if err != nil {
				return nil, err
			}
			if isNull {
				if err := wire.ConsumeNull(r); err != nil {
					return nil, err
				}
				return nil, nil
			}
			return inner.readBytes(r)
		},
		typeDescriptor: func() *descriptor.Descriptor { return descriptor.Optional(inner.typeDescriptor()) },
		isDefault:      func(v any) bool { return v == nil },
		defaultValue:   nil,
	}
}

// erasedArray builds an erased array<T> codec over []any.
func erasedArray(inner erased) erased {
	return erased{
		toJSON: func(v any, flavor JSONFlavor) JSONValue {
			items, _ := v.([]any)
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = inner.toJSON(item, flavor)
			}
			return out
		},
		fromJSON: func(j JSONValue, preserve bool) (any, error) {
			if jsonIsZeroDense(j) {
				return []any{}, nil
			}
			list, ok := j.([]any)
			if !ok {
				return nil, errors.Type("array", jsonTypeName(j))
			}
			items := make([]any, len(list))
			for i, raw := range list {
				v, err := inner.fromJSON(raw, preserve)
				if err != nil {
					return nil, err
				}
				items[i] = v
			}
			return items, nil
		},
		writeBytes: func(w *wire.Writer, v any) {
			items, _ := v.([]any)
			wire.PutArrayHeader(w, len(items))
			for _, item := range items {
				inner.writeBytes(w, item)
			}
		},
		readBytes: func(r *wire.Reader) (any, error) {
			n, err := wire.ReadArrayHeader(r)
			if err != nil {
				return nil, err
			}
			items := make([]any, n)
			for i := 0; i < n; i++ {
				v, err := inner.readBytes(r)
				if err != nil {
					return nil, err
				}
				items[i] = v
			}
			return items, nil
		},
		typeDescriptor: func() *descriptor.Descriptor { return descriptor.Array(inner.typeDescriptor(), nil) },
		isDefault:      func(v any) bool { items, _ := v.([]any); return len(items) == 0 },
		defaultValue:   []any{},
	}
}

// genericStructCodec builds an erased struct codec whose Go representation
// is *GenericRecord, for a struct descriptor this process has no
// StructShape for (e.g. a type defined by a module this binary wasn't
// built with, received purely as a descriptor over soiarpc's method
// listing).
func genericStructCodec(desc *descriptor.Descriptor) (erased, error) {
	fieldSer := make(map[int]erased, len(desc.Fields))
	maxNum := -1
	for _, f := range desc.Fields {
		s, err := serializerForDescriptor(f.Type)
		if err != nil {
			return erased{}, err
		}
		fieldSer[f.Number] = s
		if f.Number > maxNum {
			maxNum = f.Number
		}
	}
	for _, n := range desc.RemovedNumbers {
		if n > maxNum {
			maxNum = n
		}
	}
	recognizedSlots := maxNum + 1

	asRecord := func(v any) *GenericRecord {
		rec, _ := v.(*GenericRecord)
		if rec == nil {
			rec = NewGenericRecord(desc)
		}
		return rec
	}

	writtenLength := func(rec *GenericRecord) int {
		length := 0
		for num, val := range rec.Fields {
			ser, ok := fieldSer[num]
			if ok && !ser.isDefault(val) && num+1 > length {
				length = num + 1
			}
		}
		return length
	}

	return erased{
		toJSON: func(v any, flavor JSONFlavor) JSONValue {
			rec := asRecord(v)
			if flavor == Readable {
				obj := map[string]any{}
				for _, f := range desc.Fields {
					val, ok := rec.Fields[f.Number]
					if !ok {
						continue
					}
					ser := fieldSer[f.Number]
					if ser.isDefault(val) {
						continue
					}
					obj[f.Name] = ser.toJSON(val, Readable)
				}
				return obj
			}
			length := writtenLength(rec)
			if length == 0 {
				return json0
			}
			arr := make([]any, length)
			for i := 0; i < length; i++ {
				if i >= recognizedSlots {
					arr[i] = json0
					continue
				}
				ser, known := fieldSer[i]
				val, present := rec.Fields[i]
				if known && present {
					arr[i] = ser.toJSON(val, Dense)
				} else {
					arr[i] = json0
				}
			}
			return arr
		},
		fromJSON: func(j JSONValue, preserve bool) (any, error) {
			rec := NewGenericRecord(desc)
			if m, ok := j.(map[string]any); ok {
				for _, f := range desc.Fields {
					raw, present := m[f.Name]
					if !present {
						continue
					}
					ser := fieldSer[f.Number]
					val, err := ser.fromJSON(raw, false)
					if err != nil {
						return nil, err
					}
					rec.Fields[f.Number] = val
				}
				return rec, nil
			}
			if jsonIsZeroDense(j) {
				return rec, nil
			}
			list, ok := j.([]any)
			if !ok {
				return nil, errors.Type("struct", jsonTypeName(j))
			}
			for i, raw := range list {
				if i >= recognizedSlots {
					break
				}
				ser, known := fieldSer[i]
				if !known {
					continue
				}
				val, err := ser.fromJSON(raw, preserve)
				if err != nil {
					return nil, err
				}
				rec.Fields[i] = val
			}
			return rec, nil
		},
		writeBytes: func(w *wire.Writer, v any) {
			rec := asRecord(v)
			length := writtenLength(rec)
			wire.PutArrayHeader(w, length)
			for i := 0; i < length && i < recognizedSlots; i++ {
				ser, known := fieldSer[i]
				val, present := rec.Fields[i]
				if known && present && !ser.isDefault(val) {
					ser.writeBytes(w, val)
				} else {
					w.WriteByte(0)
				}
			}
		},
		readBytes: func(r *wire.Reader) (any, error) {
			length, err := wire.ReadArrayHeader(r)
			if err != nil {
				return nil, err
			}
			rec := NewGenericRecord(desc)
			if length == 0 {
				return rec, nil
			}
			recognized := length
			if recognized > recognizedSlots {
				recognized = recognizedSlots
			}
			for i := 0; i < recognized; i++ {
				ser, known := fieldSer[i]
				if !known {
					if err := wire.Skip(r); err != nil {
						return nil, err
					}
					continue
				}
				val, err := decodeSlot(r, ser)
				if err != nil {
					return nil, err
				}
				rec.Fields[i] = val
			}
			for i := recognized; i < length; i++ {
				if err := wire.Skip(r); err != nil {
					return nil, err
				}
			}
			return rec, nil
		},
		typeDescriptor: func() *descriptor.Descriptor { return desc },
		isDefault:      func(v any) bool { return writtenLength(asRecord(v)) == 0 },
		defaultValue:   NewGenericRecord(desc),
	}, nil
}

// genericDynamicEnum is the *GenericRecord-equivalent value for an enum
// whose descriptor this process has no EnumShape for.
type genericDynamicEnum struct {
	number  int
	payload any
}

func genericEnumCodec(desc *descriptor.Descriptor) (erased, error) {
	fieldSer := make(map[int]erased, len(desc.Fields))
	names := make(map[int]string, len(desc.Fields))
	for _, f := range desc.Fields {
		names[f.Number] = f.Name
		if f.Type != nil {
			s, err := serializerForDescriptor(f.Type)
			if err != nil {
				return erased{}, err
			}
			fieldSer[f.Number] = s
		}
	}
	isValue := func(number int) bool { _, ok := fieldSer[number]; return ok }
	zero := &genericDynamicEnum{}

	asEnum := func(v any) *genericDynamicEnum {
		e, _ := v.(*genericDynamicEnum)
		if e == nil {
			return zero
		}
		return e
	}

	return erased{
		toJSON: func(v any, flavor JSONFlavor) JSONValue {
			e := asEnum(v)
			if e.number == 0 {
				if flavor == Readable {
					return "?"
				}
				return json0
			}
			if flavor == Readable {
				if ser, ok := fieldSer[e.number]; ok {
					return map[string]any{"kind": names[e.number], "value": ser.toJSON(e.payload, Readable)}
				}
				return names[e.number]
			}
			if ser, ok := fieldSer[e.number]; ok {
				return []any{int64JSON(int64(e.number)), ser.toJSON(e.payload, Dense)}
			}
			return int64JSON(int64(e.number))
		},
		fromJSON: func(j JSONValue, preserve bool) (any, error) {
			if n, ok := jsonAsInt64(j); ok {
				return &genericDynamicEnum{number: int(n)}, nil
			}
			if list, ok := j.([]any); ok && len(list) == 2 {
				n, ok := jsonAsInt64(list[0])
				if !ok {
					return nil, errors.Type("enum number", jsonTypeName(list[0]))
				}
				number := int(n)
				ser, ok := fieldSer[number]
				if !ok {
					return &genericDynamicEnum{number: number}, nil
				}
				payload, err := ser.fromJSON(list[1], preserve)
				if err != nil {
					return nil, err
				}
				return &genericDynamicEnum{number: number, payload: payload}, nil
			}
			return zero, nil
		},
		writeBytes: func(w *wire.Writer, v any) {
			e := asEnum(v)
			if e.number == 0 {
				w.WriteByte(0)
				return
			}
			if isValue(e.number) {
				wire.PutEnumValueHeader(w, e.number)
				fieldSer[e.number].writeBytes(w, e.payload)
				return
			}
			wire.PutEnumConstant(w, e.number)
		},
		readBytes: func(r *wire.Reader) (any, error) {
			b, err := r.PeekByte()
			if err != nil {
				return nil, err
			}
			switch {
			case b <= wire.MaxInline, b == wire.WireU16, b == wire.WireU32, b == wire.WireU64:
				num, err := wire.ReadCount(r)
				if err != nil {
					return nil, err
				}
				return &genericDynamicEnum{number: int(num)}, nil
			case b == wire.WireEnumBig:
				r.ReadByte()
				num, err := wire.ReadCount(r)
				if err != nil {
					return nil, err
				}
				number := int(num)
				if ser, ok := fieldSer[number]; ok {
					payload, err := ser.readBytes(r)
					if err != nil {
						return nil, err
					}
					return &genericDynamicEnum{number: number, payload: payload}, nil
				}
				if err := wire.Skip(r); err != nil {
					return nil, err
				}
				return zero, nil
			case b >= wire.WireEnumSmallBase && b <= wire.WireEnumSmallBase+3:
				r.ReadByte()
				number := int(b-wire.WireEnumSmallBase) + 1
				if ser, ok := fieldSer[number]; ok {
					payload, err := ser.readBytes(r)
					if err != nil {
						return nil, err
					}
					return &genericDynamicEnum{number: number, payload: payload}, nil
				}
				if err := wire.Skip(r); err != nil {
					return nil, err
				}
				return zero, nil
			default:
				return nil, errors.Decode("enum", "unexpected wire byte %d", b)
			}
		},
		typeDescriptor: func() *descriptor.Descriptor { return desc },
		isDefault:      func(v any) bool { return asEnum(v).number == 0 },
		defaultValue:   zero,
	}, nil
}
