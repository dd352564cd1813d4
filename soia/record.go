package soia

import (
	"github.com/soiago/soia/internal/descriptor"
	"github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/internal/wire"
)

// Token is an opaque identity minted once per struct or enum serializer.
// UnrecognizedFields and UnrecognizedEnum carry the token of the serializer
// that produced them. Re-encoding does not compare that token with the
// encoding serializer's own: a preserved payload handed to another record's
// serializer is written out as it is.
type Token struct{}

// NewToken mints a fresh, comparable-by-identity token.
func NewToken() *Token { return &Token{} }

// UnrecognizedFields holds whatever trailing struct slots a reader didn't
// recognize, captured in preserve mode so a later re-encode reproduces them
// byte-for-byte (binary) or value-for-value (JSON) instead of dropping them.
// A tail is carried only into the encoding it came from: slots captured from
// binary render as 0 in dense JSON, and slots captured from JSON are left out
// of binary output.
type UnrecognizedFields struct {
	Token      *Token
	TotalSlots int
	JSONTail   []JSONValue
	RawTail    []byte
}

// UnrecognizedEnum holds a single enum variant number a reader didn't
// recognize, captured the same way as UnrecognizedFields.
type UnrecognizedEnum struct {
	Token     *Token
	Number    int
	JSONValue JSONValue
	RawBytes  []byte
}

// StructField describes one numbered field of a StructShape. Get/Set
// operate on the any-boxed record/builder values the way protoreflect's
// Value boxing lets the teacher walk a message without knowing its concrete
// Go type at compile time.
type StructField struct {
	Name   string
	Number int
	Ser    erased
	Get    func(rec any) any
	Set    func(builder any, v any)
}

// StructShape stands in for what generated code would implement for a
// struct record: the field table plus the builder/default plumbing needed
// to encode, decode, and preserve unknown fields without reflection over
// the concrete Go struct. examplepb hand-writes one of these per struct;
// NewStructSerializer compiles it into a Serializer[T].
type StructShape struct {
	ModulePath     string
	QualifiedName  string
	Fields         []StructField
	RemovedNumbers []int

	NewBuilder func() any
	Build      func(builder any) any
	Zero       any

	GetUnknown func(rec any) *UnrecognizedFields
	SetUnknown func(builder any, u *UnrecognizedFields)
}

// compiledStruct is the shape above, indexed for O(1) slot lookup.
type compiledStruct struct {
	shape           StructShape
	token           *Token
	byNumber        map[int]*StructField
	recognizedSlots int
}

func compileStruct(shape StructShape) *compiledStruct {
	cs := &compiledStruct{shape: shape, token: NewToken(), byNumber: map[int]*StructField{}}
	maxNum := -1
	for i := range shape.Fields {
		f := &shape.Fields[i]
		cs.byNumber[f.Number] = f
		if f.Number > maxNum {
			maxNum = f.Number
		}
	}
	for _, n := range shape.RemovedNumbers {
		if n > maxNum {
			maxNum = n
		}
	}
	cs.recognizedSlots = maxNum + 1
	return cs
}

// writtenLength is max(active field number where value != default) + 1, 0
// when every field is at its default (spec §4.5).
func (cs *compiledStruct) writtenLength(rec any) int {
	length := 0
	for i := range cs.shape.Fields {
		f := &cs.shape.Fields[i]
		if v := f.Get(rec); !f.Ser.isDefault(v) && f.Number+1 > length {
			length = f.Number + 1
		}
	}
	return length
}

func (cs *compiledStruct) writeBytes(w *wire.Writer, rec any) {
	unk := cs.shape.GetUnknown(rec)
	length := cs.writtenLength(rec)
	if unk != nil && len(unk.RawTail) > 0 && unk.TotalSlots > length {
		length = unk.TotalSlots
	}
	wire.PutArrayHeader(w, length)

	recognized := length
	if recognized > cs.recognizedSlots {
		recognized = cs.recognizedSlots
	}
	for i := 0; i < recognized; i++ {
		f, ok := cs.byNumber[i]
		if !ok {
			w.WriteByte(0)
			continue
		}
		v := f.Get(rec)
		if f.Ser.isDefault(v) {
			w.WriteByte(0)
		} else {
			f.Ser.writeBytes(w, v)
		}
	}
	if unk != nil && len(unk.RawTail) > 0 {
		w.WriteRaw(unk.RawTail)
	}
}

// decodeSlot implements the struct-slot convention: every field type's
// default value is written as a single 0x00 byte regardless of that type's
// own zero-value wire form (WireEmptyString, WireEmptyArray, WireNull,
// ...), so a 0x00 peek always means "this slot is this field's default"
// and never reaches the field's own decoder.
func decodeSlot(r *wire.Reader, ser erased) (any, error) {
	b, err := r.PeekByte()
	if err != nil {
		return nil, err
	}
	if b == 0 {
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return ser.defaultValue, nil
	}
	return ser.readBytes(r)
}

func (cs *compiledStruct) readBytes(r *wire.Reader) (any, error) {
	length, err := wire.ReadArrayHeader(r)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return cs.shape.Zero, nil
	}
	b := cs.shape.NewBuilder()

	recognized := length
	if recognized > cs.recognizedSlots {
		recognized = cs.recognizedSlots
	}
	for i := 0; i < recognized; i++ {
		f, ok := cs.byNumber[i]
		if !ok {
			if err := wire.Skip(r); err != nil {
				return nil, err
			}
			continue
		}
		v, err := decodeSlot(r, f.Ser)
		if err != nil {
			return nil, err
		}
		f.Set(b, v)
	}
	if length > cs.recognizedSlots {
		start := r.Pos()
		for i := cs.recognizedSlots; i < length; i++ {
			if err := wire.Skip(r); err != nil {
				return nil, err
			}
		}
		if r.PreserveUnknowns {
			raw := append([]byte(nil), r.Span(start, r.Pos())...)
			cs.shape.SetUnknown(b, &UnrecognizedFields{Token: cs.token, TotalSlots: length, RawTail: raw})
		}
	}
	return cs.shape.Build(b), nil
}

func (cs *compiledStruct) toJSONDense(rec any) JSONValue {
	length := cs.writtenLength(rec)
	unk := cs.shape.GetUnknown(rec)
	if unk != nil && unk.TotalSlots > length {
		length = unk.TotalSlots
	}
	if length == 0 {
		return json0
	}
	arr := make([]any, length)
	recognized := length
	if recognized > cs.recognizedSlots {
		recognized = cs.recognizedSlots
	}
	for i := 0; i < recognized; i++ {
		if f, ok := cs.byNumber[i]; ok {
			arr[i] = f.Ser.toJSON(f.Get(rec), Dense)
		} else {
			arr[i] = json0
		}
	}
	for i := recognized; i < length; i++ {
		arr[i] = json0
	}
	if unk != nil {
		for j, v := range unk.JSONTail {
			idx := cs.recognizedSlots + j
			if idx >= 0 && idx < length {
				arr[idx] = v
			}
		}
	}
	return arr
}

func (cs *compiledStruct) toJSONReadable(rec any) JSONValue {
	obj := make(map[string]any, len(cs.shape.Fields))
	for i := range cs.shape.Fields {
		f := &cs.shape.Fields[i]
		v := f.Get(rec)
		if f.Ser.isDefault(v) {
			continue
		}
		obj[f.Name] = f.Ser.toJSON(v, Readable)
	}
	return obj
}

func (cs *compiledStruct) fromJSONDense(j JSONValue, preserve bool) (any, error) {
	if jsonIsZeroDense(j) {
		return cs.shape.Zero, nil
	}
	list, ok := j.([]any)
	if !ok {
		return nil, errors.Type("struct", jsonTypeName(j))
	}
	b := cs.shape.NewBuilder()
	recognized := len(list)
	if recognized > cs.recognizedSlots {
		recognized = cs.recognizedSlots
	}
	for i := 0; i < recognized; i++ {
		f, ok := cs.byNumber[i]
		if !ok {
			continue
		}
		v, err := f.Ser.fromJSON(list[i], preserve)
		if err != nil {
			return nil, err
		}
		f.Set(b, v)
	}
	if len(list) > cs.recognizedSlots && preserve {
		tail := append([]any(nil), list[cs.recognizedSlots:]...)
		cs.shape.SetUnknown(b, &UnrecognizedFields{Token: cs.token, TotalSlots: len(list), JSONTail: tail})
	}
	return cs.shape.Build(b), nil
}

func (cs *compiledStruct) fromJSONReadable(j JSONValue) (any, error) {
	obj, ok := j.(map[string]any)
	if !ok {
		return nil, errors.Type("struct", jsonTypeName(j))
	}
	b := cs.shape.NewBuilder()
	for i := range cs.shape.Fields {
		f := &cs.shape.Fields[i]
		raw, present := obj[f.Name]
		if !present {
			continue
		}
		v, err := f.Ser.fromJSON(raw, false)
		if err != nil {
			return nil, err
		}
		f.Set(b, v)
	}
	return cs.shape.Build(b), nil
}

// NewStructSerializer compiles a StructShape into a Serializer[T], the way
// protoc-gen-go-generated Marshal/Unmarshal methods would exist if this
// module generated code instead of taking a hand-written shape.
func NewStructSerializer[T any](shape StructShape) Serializer[T] {
	cs := compileStruct(shape)

	fields := make([]descriptor.Field, len(shape.Fields))
	for i, f := range shape.Fields {
		fields[i] = descriptor.Field{Name: f.Name, Number: f.Number, Type: f.Ser.typeDescriptor()}
	}
	desc := &descriptor.Descriptor{
		Kind:           descriptor.KindStruct,
		ModulePath:     shape.ModulePath,
		QualifiedName:  shape.QualifiedName,
		Fields:         fields,
		RemovedNumbers: append([]int(nil), shape.RemovedNumbers...),
	}

	return Serializer[T]{
		ToJSON: func(v T, flavor JSONFlavor) JSONValue {
			if flavor == Dense {
				return cs.toJSONDense(any(v))
			}
			return cs.toJSONReadable(any(v))
		},
		FromJSON: func(j JSONValue, preserve bool) (T, error) {
			var zero T
			if m, ok := j.(map[string]any); ok {
				v, err := cs.fromJSONReadable(m)
				if err != nil {
					return zero, err
				}
				return v.(T), nil
			}
			v, err := cs.fromJSONDense(j, preserve)
			if err != nil {
				return zero, err
			}
			return v.(T), nil
		},
		writeBytes: func(w *wire.Writer, v T) { cs.writeBytes(w, any(v)) },
		readBytes: func(r *wire.Reader) (T, error) {
			v, err := cs.readBytes(r)
			if err != nil {
				var zero T
				return zero, err
			}
			return v.(T), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor { return desc },
		Default:          shape.Zero.(T),
		IsDefault: func(v T) bool {
			rec := any(v)
			if cs.shape.GetUnknown(rec) != nil {
				return false
			}
			return cs.writtenLength(rec) == 0
		},
	}
}

// VariantKind distinguishes an enum's constant fields (no payload) from its
// value fields (carry a typed payload), spec §4.5.
type VariantKind int

const (
	VariantConstant VariantKind = iota
	VariantValue
)

// EnumVariant describes one numbered field of an EnumShape. Ser is unused
// for constant variants.
type EnumVariant struct {
	Name   string
	Number int
	Kind   VariantKind
	Ser    erased
}

// EnumShape stands in for what generated code would implement for an enum
// record. NumberOf/PayloadOf inspect an existing value; NewConstant/NewValue
// construct one — a single unified constructor for value variants, per the
// resolved open question on constant/value construction asymmetry.
type EnumShape struct {
	ModulePath     string
	QualifiedName  string
	Variants       []EnumVariant
	RemovedNumbers []int

	Unknown any

	NumberOf  func(rec any) int
	PayloadOf func(rec any) any

	NewConstant func(number int) any
	NewValue    func(number int, payload any) any

	GetUnknownEnum  func(rec any) *UnrecognizedEnum
	WrapUnknownEnum func(u *UnrecognizedEnum) any
}

type compiledEnum struct {
	shape    EnumShape
	token    *Token
	byNumber map[int]*EnumVariant
}

func compileEnum(shape EnumShape) *compiledEnum {
	ce := &compiledEnum{shape: shape, token: NewToken(), byNumber: map[int]*EnumVariant{}}
	for i := range shape.Variants {
		v := &shape.Variants[i]
		ce.byNumber[v.Number] = v
	}
	return ce
}

func (ce *compiledEnum) writeBytes(w *wire.Writer, rec any) {
	number := ce.shape.NumberOf(rec)
	if number == 0 {
		if u := ce.shape.GetUnknownEnum(rec); u != nil && len(u.RawBytes) > 0 {
			w.WriteRaw(u.RawBytes)
			return
		}
		w.WriteByte(0)
		return
	}
	v := ce.byNumber[number]
	if v.Kind == VariantConstant {
		wire.PutEnumConstant(w, number)
		return
	}
	wire.PutEnumValueHeader(w, number)
	v.Ser.writeBytes(w, ce.shape.PayloadOf(rec))
}

func (ce *compiledEnum) readValuePayload(r *wire.Reader, start, number int) (any, error) {
	if v, ok := ce.byNumber[number]; ok {
		if v.Kind != VariantValue {
			return nil, errors.Decode("enum", "number %d names a constant field, not a value field", number)
		}
		payload, err := v.Ser.readBytes(r)
		if err != nil {
			return nil, err
		}
		return ce.shape.NewValue(number, payload), nil
	}
	if err := wire.Skip(r); err != nil {
		return nil, err
	}
	if r.PreserveUnknowns {
		raw := append([]byte(nil), r.Span(start, r.Pos())...)
		return ce.shape.WrapUnknownEnum(&UnrecognizedEnum{Token: ce.token, Number: number, RawBytes: raw}), nil
	}
	return ce.shape.Unknown, nil
}

func (ce *compiledEnum) readBytes(r *wire.Reader) (any, error) {
	start := r.Pos()
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
		number := int(num)
		if number == 0 {
			return ce.shape.Unknown, nil
		}
		if v, ok := ce.byNumber[number]; ok {
			if v.Kind != VariantConstant {
				return nil, errors.Decode("enum", "number %d names a value field, not a constant field", number)
			}
			return ce.shape.NewConstant(number), nil
		}
		if r.PreserveUnknowns {
			raw := append([]byte(nil), r.Span(start, r.Pos())...)
			return ce.shape.WrapUnknownEnum(&UnrecognizedEnum{Token: ce.token, Number: number, RawBytes: raw}), nil
		}
		return ce.shape.Unknown, nil
	case b == wire.WireEnumBig:
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		num, err := wire.ReadCount(r)
		if err != nil {
			return nil, err
		}
		return ce.readValuePayload(r, start, int(num))
	case b >= wire.WireEnumSmallBase && b <= wire.WireEnumSmallBase+3:
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		number := int(b-wire.WireEnumSmallBase) + 1
		return ce.readValuePayload(r, start, number)
	default:
		return nil, errors.Decode("enum", "unexpected wire byte %d", b)
	}
}

// toJSONDense renders an enum the way an array-indexed struct slot would:
// a bare number for a constant field, a [number, payload] pair for a value
// field. There is no teacher precedent for this specific shape (the spec's
// §4.5 only narrates enum dense *bytes*), so the two-element-array
// convention is this port's own choice, made to stay consistent with
// dense JSON's numeric-index philosophy elsewhere (see DESIGN.md).
func (ce *compiledEnum) toJSONDense(rec any) JSONValue {
	number := ce.shape.NumberOf(rec)
	if number == 0 {
		if u := ce.shape.GetUnknownEnum(rec); u != nil && u.JSONValue != nil {
			return u.JSONValue
		}
		return json0
	}
	v := ce.byNumber[number]
	if v.Kind == VariantConstant {
		return int64JSON(int64(number))
	}
	payload := ce.shape.PayloadOf(rec)
	return []any{int64JSON(int64(number)), v.Ser.toJSON(payload, Dense)}
}

func (ce *compiledEnum) fromJSONDense(j JSONValue, preserve bool) (any, error) {
	if n, ok := jsonAsInt64(j); ok {
		number := int(n)
		if number == 0 {
			return ce.shape.Unknown, nil
		}
		if v, ok := ce.byNumber[number]; ok {
			if v.Kind != VariantConstant {
				return nil, errors.Decode("enum", "number %d names a value field, not a constant field", number)
			}
			return ce.shape.NewConstant(number), nil
		}
		if preserve {
			return ce.shape.WrapUnknownEnum(&UnrecognizedEnum{Token: ce.token, Number: number, JSONValue: j}), nil
		}
		return ce.shape.Unknown, nil
	}
	list, ok := j.([]any)
	if !ok || len(list) != 2 {
		return nil, errors.Type("enum", jsonTypeName(j))
	}
	n, ok := jsonAsInt64(list[0])
	if !ok {
		return nil, errors.Type("enum number", jsonTypeName(list[0]))
	}
	number := int(n)
	if v, ok := ce.byNumber[number]; ok {
		if v.Kind != VariantValue {
			return nil, errors.Decode("enum", "number %d names a constant field, not a value field", number)
		}
		payload, err := v.Ser.fromJSON(list[1], preserve)
		if err != nil {
			return nil, err
		}
		return ce.shape.NewValue(number, payload), nil
	}
	if preserve {
		return ce.shape.WrapUnknownEnum(&UnrecognizedEnum{Token: ce.token, Number: number, JSONValue: j}), nil
	}
	return ce.shape.Unknown, nil
}

func (ce *compiledEnum) toJSONReadable(rec any) JSONValue {
	number := ce.shape.NumberOf(rec)
	if number == 0 {
		return "?"
	}
	v := ce.byNumber[number]
	if v.Kind == VariantConstant {
		return v.Name
	}
	payload := ce.shape.PayloadOf(rec)
	return map[string]any{"kind": v.Name, "value": v.Ser.toJSON(payload, Readable)}
}

func (ce *compiledEnum) fromJSONReadable(j JSONValue) (any, error) {
	if s, ok := jsonAsString(j); ok {
		if s == "?" {
			return ce.shape.Unknown, nil
		}
		for i := range ce.shape.Variants {
			v := &ce.shape.Variants[i]
			if v.Kind == VariantConstant && v.Name == s {
				return ce.shape.NewConstant(v.Number), nil
			}
		}
		return ce.shape.Unknown, nil
	}
	if m, ok := j.(map[string]any); ok {
		kind, _ := jsonAsString(m["kind"])
		for i := range ce.shape.Variants {
			v := &ce.shape.Variants[i]
			if v.Kind == VariantValue && v.Name == kind {
				payload, err := v.Ser.fromJSON(m["value"], false)
				if err != nil {
					return nil, err
				}
				return ce.shape.NewValue(v.Number, payload), nil
			}
		}
		return ce.shape.Unknown, nil
	}
	return nil, errors.Type("enum", jsonTypeName(j))
}

// NewEnumSerializer compiles an EnumShape into a Serializer[T].
func NewEnumSerializer[T any](shape EnumShape) Serializer[T] {
	ce := compileEnum(shape)

	fields := make([]descriptor.Field, len(shape.Variants))
	for i, v := range shape.Variants {
		var typ *descriptor.Descriptor
		if v.Kind == VariantValue {
			typ = v.Ser.typeDescriptor()
		}
		fields[i] = descriptor.Field{Name: v.Name, Number: v.Number, Type: typ}
	}
	desc := &descriptor.Descriptor{
		Kind:           descriptor.KindEnum,
		ModulePath:     shape.ModulePath,
		QualifiedName:  shape.QualifiedName,
		Fields:         fields,
		RemovedNumbers: append([]int(nil), shape.RemovedNumbers...),
	}

	return Serializer[T]{
		ToJSON: func(v T, flavor JSONFlavor) JSONValue {
			if flavor == Dense {
				return ce.toJSONDense(any(v))
			}
			return ce.toJSONReadable(any(v))
		},
		FromJSON: func(j JSONValue, preserve bool) (T, error) {
			var zero T
			switch j.(type) {
			case string, map[string]any:
				v, err := ce.fromJSONReadable(j)
				if err != nil {
					return zero, err
				}
				return v.(T), nil
			default:
				v, err := ce.fromJSONDense(j, preserve)
				if err != nil {
					return zero, err
				}
				return v.(T), nil
			}
		},
		writeBytes: func(w *wire.Writer, v T) { ce.writeBytes(w, any(v)) },
		readBytes: func(r *wire.Reader) (T, error) {
			v, err := ce.readBytes(r)
			if err != nil {
				var zero T
				return zero, err
			}
			return v.(T), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor { return desc },
		Default:          shape.Unknown.(T),
		IsDefault:        func(v T) bool { return ce.shape.NumberOf(any(v)) == 0 && ce.shape.GetUnknownEnum(any(v)) == nil },
	}
}
