package descriptor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAsJSONParseRoundTripPrimitive(t *testing.T) {
	d := Primitive("int32")
	j := d.AsJSON()
	back, err := Parse(j)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if back.Kind != KindPrimitive || back.Primitive != "int32" {
		t.Fatalf("got %+v", back)
	}
}

func TestAsJSONParseRoundTripStruct(t *testing.T) {
	point := &Descriptor{
		Kind:          KindStruct,
		ModulePath:    "examplepb",
		QualifiedName: "Point",
		Fields: []Field{
			{Name: "x", Number: 0, Type: Primitive("int32")},
			{Name: "y", Number: 1, Type: Primitive("int32")},
		},
	}
	j := point.AsJSON()
	back, err := Parse(j)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if back.Kind != KindStruct || back.ID() != "examplepb:Point" {
		t.Fatalf("got %+v", back)
	}
	if len(back.Fields) != 2 || back.Fields[1].Name != "y" {
		t.Fatalf("fields mismatch: %+v", back.Fields)
	}
}

func TestAsJSONTransitiveClosure(t *testing.T) {
	inner := &Descriptor{
		Kind:          KindStruct,
		ModulePath:    "examplepb",
		QualifiedName: "Inner",
		Fields:        []Field{{Name: "v", Number: 0, Type: Primitive("int32")}},
	}
	outer := &Descriptor{
		Kind:          KindStruct,
		ModulePath:    "examplepb",
		QualifiedName: "Outer",
		Fields:        []Field{{Name: "inner", Number: 0, Type: Optional(inner)}},
	}
	j := outer.AsJSON().(map[string]any)
	records, ok := j["records"].([]any)
	if !ok || len(records) != 2 {
		t.Fatalf("expected both Outer and Inner in the closure, got %+v", records)
	}

	back, err := Parse(outer.AsJSON())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	innerType := back.Fields[0].Type
	if innerType.Kind != KindOptional || innerType.Elem.ID() != "examplepb:Inner" {
		t.Fatalf("got %+v", innerType)
	}
}

func TestSelfRecursiveRecordParses(t *testing.T) {
	node := &Descriptor{
		Kind:          KindStruct,
		ModulePath:    "examplepb",
		QualifiedName: "Node",
	}
	node.Fields = []Field{
		{Name: "value", Number: 0, Type: Primitive("int32")},
		{Name: "next", Number: 1, Type: Optional(node)},
	}
	back, err := Parse(node.AsJSON())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	nextType := back.Fields[1].Type
	if nextType.Elem.ID() != back.ID() {
		t.Fatalf("expected self-reference, got %+v", nextType)
	}
}

func TestOptionalOfOptionalCollapses(t *testing.T) {
	inner := Primitive("string")
	once := Optional(inner)
	twice := Optional(once)
	if twice != once {
		t.Fatal("wrapping optional<optional<T>> should be a no-op")
	}
}

func TestArrayWithKeyChain(t *testing.T) {
	arr := Array(Primitive("int32"), []string{"id"})
	j := arr.typeJSON(map[string]*Descriptor{}).(map[string]any)
	if kc, ok := j["key_chain"].([]string); !ok || kc[0] != "id" {
		t.Fatalf("expected key_chain=[id], got %+v", j["key_chain"])
	}
}

func TestAsJSONTreeShapeIsStable(t *testing.T) {
	point := &Descriptor{
		Kind:          KindStruct,
		ModulePath:    "examplepb",
		QualifiedName: "Point",
		Fields: []Field{
			{Name: "x", Number: 0, Type: Primitive("int32")},
			{Name: "y", Number: 1, Type: Primitive("int32")},
		},
	}
	want := point.AsJSON()
	got := point.AsJSON()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("AsJSON() is not deterministic across calls (-want +got):\n%s", diff)
	}
}
