// Package descriptor implements the reflective type-descriptor graph (spec
// §4.6): a JSON export that names every record transitively reachable from
// a type, and a parser that rebuilds a fully-wired descriptor from that
// JSON. It is grounded on the teacher's reflect/protoregistry package,
// generalizing "Files" (a registry of defined types keyed by identity,
// first-registration-wins) from whole .proto files down to individual
// struct/enum records.
package descriptor

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind enumerates the five shapes a Descriptor can take (spec §4.6).
type Kind int

const (
	KindPrimitive Kind = iota
	KindOptional
	KindArray
	KindStruct
	KindEnum
)

// Descriptor is the reflective shape of a soia type. Struct and enum
// descriptors additionally carry their field/variant layout so the
// descriptor graph alone is enough to drive generic (GenericRecord-based)
// encode/decode without the original Go type.
type Descriptor struct {
	Kind Kind

	// KindPrimitive
	Primitive string

	// KindOptional, KindArray
	Elem *Descriptor

	// KindArray
	KeyChain []string

	// KindStruct, KindEnum
	ModulePath     string
	QualifiedName  string
	Fields         []Field
	RemovedNumbers []int
}

// Field is a struct field or enum variant entry in a record descriptor.
// For enum constants, Type is nil.
type Field struct {
	Name   string
	Number int
	Type   *Descriptor
}

// ID is the "<module_path>:<qualified_name>" record identity format spec
// §4.6 fixes for JSON export/import.
func (d *Descriptor) ID() string {
	return d.ModulePath + ":" + d.QualifiedName
}

// Primitive constructs a primitive-kind descriptor.
func Primitive(name string) *Descriptor { return &Descriptor{Kind: KindPrimitive, Primitive: name} }

// Optional constructs an optional<elem> descriptor. Wrapping an optional in
// another optional is a no-op, per spec §4.4.
func Optional(elem *Descriptor) *Descriptor {
	if elem.Kind == KindOptional {
		return elem
	}
	return &Descriptor{Kind: KindOptional, Elem: elem}
}

// Array constructs an array<elem> descriptor, optionally carrying a
// dotted key-extractor chain.
func Array(elem *Descriptor, keyChain []string) *Descriptor {
	return &Descriptor{Kind: KindArray, Elem: elem, KeyChain: keyChain}
}

// typeJSON renders the "type" half of a descriptor's AsJSON() output and
// collects every struct/enum record transitively reachable into seen.
func (d *Descriptor) typeJSON(seen map[string]*Descriptor) any {
	switch d.Kind {
	case KindPrimitive:
		return map[string]any{"kind": "primitive", "value": d.Primitive}
	case KindOptional:
		return map[string]any{"kind": "optional", "value": d.Elem.typeJSON(seen)}
	case KindArray:
		m := map[string]any{"kind": "array", "value": d.Elem.typeJSON(seen)}
		if len(d.KeyChain) > 0 {
			m["key_chain"] = d.KeyChain
		}
		return m
	case KindStruct, KindEnum:
		id := d.ID()
		if _, ok := seen[id]; !ok {
			seen[id] = d
			for _, f := range d.Fields {
				if f.Type != nil {
					f.Type.typeJSON(seen)
				}
			}
		}
		return map[string]any{"kind": "record", "value": id}
	default:
		panic(fmt.Sprintf("descriptor: unknown kind %d", d.Kind))
	}
}

// recordJSON renders one struct/enum record definition.
func (d *Descriptor) recordJSON() map[string]any {
	fields := make([]any, 0, len(d.Fields))
	for _, f := range d.Fields {
		fj := map[string]any{"name": f.Name, "number": f.Number}
		if f.Type != nil {
			fj["type"] = f.Type.typeJSON(map[string]*Descriptor{})
		}
		fields = append(fields, fj)
	}
	kind := "struct"
	if d.Kind == KindEnum {
		kind = "enum"
	}
	m := map[string]any{
		"kind":   kind,
		"id":     d.ID(),
		"fields": fields,
	}
	if len(d.RemovedNumbers) > 0 {
		m["removed_numbers"] = d.RemovedNumbers
	}
	return m
}

// AsJSON renders {type, records}: the descriptor's own type reference plus
// the transitive closure of every struct/enum record it reaches, sorted by
// id for determinism.
func (d *Descriptor) AsJSON() any {
	seen := map[string]*Descriptor{}
	typeJ := d.typeJSON(seen)

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]any, 0, len(ids))
	for _, id := range ids {
		records = append(records, seen[id].recordJSON())
	}
	return map[string]any{"type": typeJ, "records": records}
}

// Parse rebuilds a fully-wired Descriptor from the JSON produced by
// AsJSON(). Struct/enum cross-references are resolved against the
// "records" closure, permitting mutually recursive record graphs the same
// way soia.LazySerializer's deferred build permits recursive record
// serializers.
func Parse(j any) (*Descriptor, error) {
	top, ok := j.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("descriptor: expected object at top level")
	}
	recordsRaw, _ := top["records"].([]any)

	byID := map[string]*Descriptor{}
	rawByID := map[string]map[string]any{}
	for _, r := range recordsRaw {
		rm, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("descriptor: invalid record entry")
		}
		id, _ := rm["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("descriptor: record missing id")
		}
		kind := KindStruct
		if rm["kind"] == "enum" {
			kind = KindEnum
		}
		modulePath, qualifiedName := splitID(id)
		byID[id] = &Descriptor{
			Kind:          kind,
			ModulePath:    modulePath,
			QualifiedName: qualifiedName,
		}
		rawByID[id] = rm
	}

	for id, d := range byID {
		rm := rawByID[id]
		fieldsRaw, _ := rm["fields"].([]any)
		fields := make([]Field, 0, len(fieldsRaw))
		for _, fr := range fieldsRaw {
			fm, ok := fr.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("descriptor: invalid field entry in %s", id)
			}
			name, _ := fm["name"].(string)
			num := jsonInt(fm["number"])
			var ftype *Descriptor
			if tj, ok := fm["type"]; ok {
				var err error
				ftype, err = parseType(tj, byID)
				if err != nil {
					return nil, err
				}
			}
			fields = append(fields, Field{Name: name, Number: num, Type: ftype})
		}
		d.Fields = fields
		if rn, ok := rm["removed_numbers"].([]any); ok {
			nums := make([]int, 0, len(rn))
			for _, n := range rn {
				nums = append(nums, jsonInt(n))
			}
			d.RemovedNumbers = nums
		}
	}

	typeJ, ok := top["type"]
	if !ok {
		return nil, fmt.Errorf("descriptor: missing top-level type")
	}
	return parseType(typeJ, byID)
}

func parseType(j any, byID map[string]*Descriptor) (*Descriptor, error) {
	m, ok := j.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("descriptor: invalid type reference")
	}
	switch m["kind"] {
	case "primitive":
		name, _ := m["value"].(string)
		return Primitive(name), nil
	case "optional":
		elem, err := parseType(m["value"], byID)
		if err != nil {
			return nil, err
		}
		return Optional(elem), nil
	case "array":
		elem, err := parseType(m["value"], byID)
		if err != nil {
			return nil, err
		}
		var chain []string
		if kc, ok := m["key_chain"].([]any); ok {
			for _, s := range kc {
				if str, ok := s.(string); ok {
					chain = append(chain, str)
				}
			}
		}
		return Array(elem, chain), nil
	case "record":
		id, _ := m["value"].(string)
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("descriptor: unresolved record reference %q", id)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("descriptor: unknown type kind %v", m["kind"])
	}
}

func splitID(id string) (modulePath, qualifiedName string) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' {
			return id[:i], id[i+1:]
		}
	}
	return "", id
}

func jsonInt(v any) int {
	switch t := v.(type) {
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}
