package soia

import (
	"strings"

	"github.com/soiago/soia/internal/descriptor"
	"github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/internal/wire"
)

// OptionalSerializer builds the optional<T> codec (spec §4.4). It always adds
// one layer: wrapping an optional serializer yields a
// Serializer[Option[Option[T]]], not the inner serializer. Its binary and
// JSON forms do not tell Some(None) from None: both encode as null, and null
// decodes as None.
func OptionalSerializer[T any](inner Serializer[T]) Serializer[Option[T]] {
	return Serializer[Option[T]]{
		ToJSON: func(v Option[T], flavor JSONFlavor) JSONValue {
			val, ok := v.Get()
			if !ok {
				return nil
			}
			return inner.ToJSON(val, flavor)
		},
		FromJSON: func(j JSONValue, preserve bool) (Option[T], error) {
			if jsonIsNull(j) {
				return None[T](), nil
			}
			v, err := inner.FromJSON(j, preserve)
			if err != nil {
				return Option[T]{}, err
			}
			return Some(v), nil
		},
		writeBytes: func(w *wire.Writer, v Option[T]) {
			val, ok := v.Get()
			if !ok {
				wire.PutNull(w)
				return
			}
			inner.writeBytes(w, val)
		},
		readBytes: func(r *wire.Reader) (Option[T], error) {
			isNull, err := wire.PeekIsNull(r)
			if err != nil {
				return Option[T]{}, err
			}
			if isNull {
				if err := wire.ConsumeNull(r); err != nil {
					return Option[T]{}, err
				}
				return None[T](), nil
			}
			v, err := inner.readBytes(r)
			if err != nil {
				return Option[T]{}, err
			}
			return Some(v), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Optional(inner.TypeDescriptor())
		},
		Default:   None[T](),
		IsDefault: func(v Option[T]) bool { return !v.IsPresent() },
	}
}

// keyExtractorChain splits a validated dotted key-extractor path into its
// field-name segments.
func keyExtractorChain(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// ArraySerializer builds the array<T> codec (spec §4.4). keyExtractor may
// be empty; when non-empty it is validated against the lexical grammar
// spec §4.4 fixes and recorded on the resulting type descriptor for
// generated indexed-lookup code to consume (see soia.KeyedArray).
func ArraySerializer[T any](inner Serializer[T], keyExtractor string) (Serializer[Frozen[T]], error) {
	if keyExtractor != "" {
		if err := ValidateKeyExtractor(keyExtractor); err != nil {
			return Serializer[Frozen[T]]{}, errors.Registration("%s", err)
		}
	}
	chain := keyExtractorChain(keyExtractor)

	return Serializer[Frozen[T]]{
		ToJSON: func(v Frozen[T], flavor JSONFlavor) JSONValue {
			items := v.Slice()
			if len(items) == 0 {
				return json0
			}
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = inner.ToJSON(item, flavor)
			}
			return out
		},
		FromJSON: func(j JSONValue, preserve bool) (Frozen[T], error) {
			if jsonIsZeroDense(j) {
				return Frozen[T]{}, nil
			}
			list, ok := j.([]any)
			if !ok {
				return Frozen[T]{}, errors.Type("array", jsonTypeName(j))
			}
			items := make([]T, len(list))
			for i, raw := range list {
				v, err := inner.FromJSON(raw, preserve)
				if err != nil {
					return Frozen[T]{}, err
				}
				items[i] = v
			}
			return WrapFrozen(items), nil
		},
		writeBytes: func(w *wire.Writer, v Frozen[T]) {
			items := v.Slice()
			wire.PutArrayHeader(w, len(items))
			for _, item := range items {
				inner.writeBytes(w, item)
			}
		},
		readBytes: func(r *wire.Reader) (Frozen[T], error) {
			n, err := wire.ReadArrayHeader(r)
			if err != nil {
				return Frozen[T]{}, err
			}
			if n == 0 {
				return Frozen[T]{}, nil
			}
			items := make([]T, n)
			for i := 0; i < n; i++ {
				v, err := inner.readBytes(r)
				if err != nil {
					return Frozen[T]{}, err
				}
				items[i] = v
			}
			return WrapFrozen(items), nil
		},
		TypeDescriptorFn: func() *descriptor.Descriptor {
			return descriptor.Array(inner.TypeDescriptor(), chain)
		},
		Default:   Frozen[T]{},
		IsDefault: func(v Frozen[T]) bool { return v.IsDefault() },
	}, nil
}
