package soia

import (
	"fmt"
	"regexp"
	"sync"
	"unsafe"
)

// Frozen is a deeply immutable view over a slice. Deserialized arrays are
// returned wrapped in Frozen so callers cannot observe post-decode
// mutation (spec §3, §4.4).
type Frozen[T any] struct {
	items []T
}

// FreezeSlice copies items into a new Frozen. An empty input yields the zero
// Frozen value (nil-backed, no allocation); caching one shared empty Frozen
// per element type would need generic statics, which Go doesn't have.
func FreezeSlice[T any](items []T) Frozen[T] {
	if len(items) == 0 {
		return Frozen[T]{}
	}
	cp := make([]T, len(items))
	copy(cp, items)
	return Frozen[T]{items: cp}
}

// WrapFrozen wraps items without copying. Callers must not retain a mutable
// alias to items afterward; used internally right after a decoder builds a
// slice nobody else can reach yet.
func WrapFrozen[T any](items []T) Frozen[T] { return Frozen[T]{items: items} }

func (f Frozen[T]) Len() int { return len(f.items) }

func (f Frozen[T]) At(i int) T { return f.items[i] }

// Slice returns the read-only backing slice for ranging. Callers must not
// mutate it.
func (f Frozen[T]) Slice() []T { return f.items }

func (f Frozen[T]) IsDefault() bool { return len(f.items) == 0 }

// keyExtractorPattern is the lexical grammar spec §4.4 fixes for a
// dotted-field-name key-extractor path.
var keyExtractorPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)*$`)

// ValidateKeyExtractor checks the syntax of a key-extractor path. It does
// not resolve the path against a schema (that is the generated code's
// job); it only guards against malformed strings reaching the runtime.
func ValidateKeyExtractor(path string) error {
	if !keyExtractorPattern.MatchString(path) {
		return fmt.Errorf("soia: invalid key extractor %q", path)
	}
	return nil
}

// KeyedArray pairs a Frozen array with a lookup index built from a
// generated key-extractor function, the Go-shaped equivalent of the
// indexed lookups generated code builds on top of array<T> (spec §4.4,
// §9 "dynamic field access on generated records").
type KeyedArray[T any, K comparable] struct {
	Items Frozen[T]
	byKey map[K]T
}

// NewKeyedArray builds an index from items using keyFn. First occurrence of
// a duplicate key wins, matching generated-code map-building conventions
// elsewhere in the ecosystem (e.g. protoregistry.NewFiles: "If there are
// duplicates, the first one takes precedence").
func NewKeyedArray[T any, K comparable](items Frozen[T], keyFn func(T) K) *KeyedArray[T, K] {
	idx := make(map[K]T, items.Len())
	for i := 0; i < items.Len(); i++ {
		item := items.At(i)
		k := keyFn(item)
		if _, exists := idx[k]; !exists {
			idx[k] = item
		}
	}
	return &KeyedArray[T, K]{Items: items, byKey: idx}
}

func (k *KeyedArray[T, K]) Get(key K) (T, bool) {
	v, ok := k.byKey[key]
	return v, ok
}

// arrayRegistry is the process-wide weak map of frozen-array identity to
// its built KeyedArray cache (spec §5). Go's toolchain baseline here
// predates weak.Pointer (1.24), so eviction is driven by an explicit
// Release call from the owner rather than GC finalization; this is a
// deliberate, documented deviation (see DESIGN.md) rather than a silent
// behavior change.
var arrayRegistry sync.Map // map[uintptr]any

func arrayIdentity[T any](items []T) uintptr {
	if len(items) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&items[0]))
}

// CachedKeyedArray returns a previously built KeyedArray for this backing
// array, building and caching one via build if absent.
func CachedKeyedArray[T any, K comparable](items Frozen[T], build func() *KeyedArray[T, K]) *KeyedArray[T, K] {
	id := arrayIdentity(items.items)
	if id == 0 {
		return build()
	}
	if v, ok := arrayRegistry.Load(id); ok {
		if ka, ok := v.(*KeyedArray[T, K]); ok {
			return ka
		}
	}
	ka := build()
	arrayRegistry.Store(id, ka)
	return ka
}

// ReleaseKeyedArray evicts a cached index for items, the explicit
// substitute for weak-map garbage collection described above.
func ReleaseKeyedArray[T any](items Frozen[T]) {
	id := arrayIdentity(items.items)
	if id != 0 {
		arrayRegistry.Delete(id)
	}
}
