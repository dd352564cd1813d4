package soia

import (
	"sync"

	"github.com/soiago/soia/internal/descriptor"
	"github.com/soiago/soia/internal/errors"
)

// RecordEntry binds one struct or enum record's descriptor and erased
// codec so the reflective path (transform.go, GenericRecord) can look a
// record up by id without the caller's concrete Go type.
type RecordEntry struct {
	Descriptor *descriptor.Descriptor
	Serializer erased
}

// moduleRegistry is the process-wide record registry, grounded on
// protoregistry.GlobalFiles/GlobalTypes: a single map keyed by identity,
// populated once at init time, consulted by every reflective lookup
// thereafter.
type moduleRegistry struct {
	mu      sync.RWMutex
	records map[string]RecordEntry
	modules map[string]bool
}

var globalRegistry = &moduleRegistry{
	records: map[string]RecordEntry{},
	modules: map[string]bool{},
}

// RegisterModule records every struct/enum serializer a module defines so
// that Transform, TypeDescriptorJSON, GenericSerializer and cmd/soiadump
// can resolve a record by its "<module_path>:<qualified_name>" id.
//
// Call it exactly once per module, after every record's Serializer has been
// constructed. StructRecord and EnumRecord read each serializer's type
// descriptor, which forces a LazySerializer's deferred build; for a module
// containing mutually recursive records that is safe once every
// LazySerializer-wrapped package var has been assigned.
func RegisterModule(modulePath string, entries ...RecordEntry) error {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if globalRegistry.modules[modulePath] {
		return errors.Registration("module %q already registered", modulePath)
	}
	for _, e := range entries {
		id := e.Descriptor.ID()
		if _, dup := globalRegistry.records[id]; dup {
			return errors.Registration("record %q already registered", id)
		}
	}
	for _, e := range entries {
		globalRegistry.records[e.Descriptor.ID()] = e
	}
	globalRegistry.modules[modulePath] = true
	return nil
}

// LookupRecord resolves a record previously registered via RegisterModule.
func LookupRecord(id string) (RecordEntry, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	e, ok := globalRegistry.records[id]
	return e, ok
}

// StructRecord builds a RecordEntry for a struct serializer, for use in a
// RegisterModule call.
func StructRecord[T any](s Serializer[T]) RecordEntry {
	return RecordEntry{Descriptor: s.TypeDescriptor(), Serializer: Erase(s)}
}

// EnumRecord builds a RecordEntry for an enum serializer.
func EnumRecord[T any](s Serializer[T]) RecordEntry {
	return RecordEntry{Descriptor: s.TypeDescriptor(), Serializer: Erase(s)}
}
