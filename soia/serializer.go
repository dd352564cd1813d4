package soia

import (
	"sync"

	"github.com/soiago/soia/internal/descriptor"
	"github.com/soiago/soia/internal/wire"
)

// magic is the 4-byte ASCII prefix every binary serialization begins with
// (spec §4.3, §6).
var magic = [4]byte{'s', 'o', 'i', 'a'}

// Serializer is the runtime contract every primitive, container and record
// codec implements (spec §4.3's Serializer<T>). It is expressed as a
// struct of function fields rather than an interface so that generic
// instantiations (Optional[T], Array[T]) can close over a type parameter
// without Go's interface method sets needing to be generic themselves —
// the same struct-of-closures shape the teacher uses for
// protoiface.Methods to get dispatch without an interface vtable on its
// hot marshal path.
type Serializer[T any] struct {
	// ToJSON renders v in the given flavor.
	ToJSON func(v T, flavor JSONFlavor) JSONValue

	// FromJSON parses j. When preserve is true, unknown struct fields and
	// enum variants are retained for byte-exact re-encoding.
	FromJSON func(j JSONValue, preserve bool) (T, error)

	// writeBytes appends v's wire encoding (no magic prefix) to w.
	writeBytes func(w *wire.Writer, v T)

	// readBytes consumes one wire element from r.
	readBytes func(r *wire.Reader) (T, error)

	// TypeDescriptorFn returns this serializer's reflective shape.
	TypeDescriptorFn func() *descriptor.Descriptor

	Default T

	IsDefault func(T) bool
}

// ToBytes serializes v, prefixed with the "soia" magic (spec §4.3, §6).
func (s Serializer[T]) ToBytes(v T) Bytes {
	w := wire.NewWriter()
	w.WriteRaw(magic[:])
	s.writeBytes(w, v)
	return WrapBytes(w.Bytes())
}

// FromBytes skips the 4-byte magic (regardless of content, per spec §6)
// and decodes the remainder.
func (s Serializer[T]) FromBytes(b Bytes, preserve bool) (T, error) {
	raw := b.Bytes()
	skip := 4
	if len(raw) < skip {
		skip = len(raw)
	}
	r := wire.NewReader(raw[skip:], preserve)
	return s.readBytes(r)
}

// ToJSONCode stringifies ToJSON's result.
func (s Serializer[T]) ToJSONCode(v T, flavor JSONFlavor) string {
	return string(marshalIndent(s.ToJSON(v, flavor), flavor))
}

// FromJSONCode parses code and delegates to FromJSON.
func (s Serializer[T]) FromJSONCode(code string, preserve bool) (T, error) {
	j, err := ParseJSON([]byte(code))
	if err != nil {
		var zero T
		return zero, err
	}
	return s.FromJSON(j, preserve)
}

func (s Serializer[T]) TypeDescriptor() *descriptor.Descriptor { return s.TypeDescriptorFn() }

// LazySerializer defers build until first use, memoizing the result. It is
// the two-pass trick a hand-written StructShape needs for mutually (or
// self-) recursive records: a struct's own package-level Serializer var can
// reference itself, or another struct's, inside build's closure, because
// that reference only has to resolve once build actually runs. Go still
// counts a reference inside a function literal as an initialization
// dependency, so a var whose own initializer's closure names that var is
// rejected as an initialization cycle; such a var is assigned in an init
// function instead, before anything forces the build.
func LazySerializer[T any](build func() Serializer[T]) Serializer[T] {
	var (
		once sync.Once
		real Serializer[T]
	)
	resolve := func() Serializer[T] {
		once.Do(func() { real = build() })
		return real
	}
	return Serializer[T]{
		ToJSON:           func(v T, flavor JSONFlavor) JSONValue { return resolve().ToJSON(v, flavor) },
		FromJSON:         func(j JSONValue, preserve bool) (T, error) { return resolve().FromJSON(j, preserve) },
		writeBytes:       func(w *wire.Writer, v T) { resolve().writeBytes(w, v) },
		readBytes:        func(r *wire.Reader) (T, error) { return resolve().readBytes(r) },
		TypeDescriptorFn: func() *descriptor.Descriptor { return resolve().TypeDescriptor() },
		IsDefault:        func(v T) bool { return resolve().IsDefault(v) },
	}
}

// erased type-erases a Serializer[T] to operate over `any`, used internally
// by struct/enum field codecs and by the reflective (GenericRecord) path,
// which cannot know each field's concrete Go type at compile time — the
// same role protoreflect.Value's interface{} box plays in the teacher.
type erased struct {
	toJSON         func(v any, flavor JSONFlavor) JSONValue
	fromJSON       func(j JSONValue, preserve bool) (any, error)
	writeBytes     func(w *wire.Writer, v any)
	readBytes      func(r *wire.Reader) (any, error)
	typeDescriptor func() *descriptor.Descriptor
	isDefault      func(any) bool
	defaultValue   any
}

// Erase adapts a typed Serializer[T] to the untyped form used by record
// field tables.
func Erase[T any](s Serializer[T]) erased {
	return erased{
		toJSON: func(v any, flavor JSONFlavor) JSONValue {
			return s.ToJSON(v.(T), flavor)
		},
		fromJSON: func(j JSONValue, preserve bool) (any, error) {
			return s.FromJSON(j, preserve)
		},
		writeBytes: func(w *wire.Writer, v any) {
			s.writeBytes(w, v.(T))
		},
		readBytes: func(r *wire.Reader) (any, error) {
			return s.readBytes(r)
		},
		typeDescriptor: s.TypeDescriptorFn,
		isDefault: func(v any) bool {
			return s.IsDefault(v.(T))
		},
		defaultValue: s.Default,
	}
}
