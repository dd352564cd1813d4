package examplepb

import (
	"sync"
	"testing"

	"github.com/soiago/soia/soia"
)

func TestPointRoundTrip(t *testing.T) {
	p := Point{X: 3, Y: -4}
	b := PointSerializer.ToBytes(p)
	back, err := PointSerializer.FromBytes(b, false)
	if err != nil || back != p {
		t.Fatalf("binary round trip: got %+v, err=%v", back, err)
	}

	j := PointSerializer.ToJSON(p, soia.Dense)
	back2, err := PointSerializer.FromJSON(j, false)
	if err != nil || back2 != p {
		t.Fatalf("dense JSON round trip: got %+v, err=%v", back2, err)
	}

	jr := PointSerializer.ToJSON(p, soia.Readable)
	back3, err := PointSerializer.FromJSON(jr, false)
	if err != nil || back3 != p {
		t.Fatalf("readable JSON round trip: got %+v, err=%v", back3, err)
	}
}

func TestPointDefaultEncodesAsEmptyArray(t *testing.T) {
	b := PointSerializer.ToBytes(Point{})
	// magic(4) + WireEmptyArray(246)
	if b.Bytes()[4] != 246 {
		t.Fatalf("default struct should encode as WireEmptyArray, got %d", b.Bytes()[4])
	}
}

func TestWidgetRemovedFieldSkipped(t *testing.T) {
	w := Widget{Name: "gizmo", Weight: 7}
	b := WidgetSerializer.ToBytes(w)
	back, err := WidgetSerializer.FromBytes(b, false)
	if err != nil || back != w {
		t.Fatalf("round trip: got %+v, err=%v", back, err)
	}
}

func TestLegacyUnknownFieldPreservation(t *testing.T) {
	// Simulate a writer on a newer schema: a Legacy-shaped struct with a
	// second slot (number 1) that this reader's Legacy shape doesn't know.
	type futureLegacy struct {
		ID    int64
		Extra string
	}
	futureSer := soia.NewStructSerializer[futureLegacy](soia.StructShape{
		ModulePath:    "examplepb",
		QualifiedName: "FutureLegacy",
		Fields: []soia.StructField{
			{
				Name: "id", Number: 0, Ser: soia.Erase(soia.Int64Serializer()),
				Get: func(rec any) any { return rec.(futureLegacy).ID },
				Set: func(b any, v any) { b.(*futureLegacy).ID = v.(int64) },
			},
			{
				Name: "extra", Number: 1, Ser: soia.Erase(soia.StringSerializer()),
				Get: func(rec any) any { return rec.(futureLegacy).Extra },
				Set: func(b any, v any) { b.(*futureLegacy).Extra = v.(string) },
			},
		},
		NewBuilder: func() any { return &futureLegacy{} },
		Build:      func(b any) any { return *b.(*futureLegacy) },
		Zero:       futureLegacy{},
		GetUnknown: func(any) *soia.UnrecognizedFields { return nil },
		SetUnknown: func(any, *soia.UnrecognizedFields) {},
	})

	future := futureLegacy{ID: 99, Extra: "surprise"}
	wireBytes := futureSer.ToBytes(future)

	// Decode with the older Legacy shape in preserve mode.
	legacy, err := LegacySerializer.FromBytes(wireBytes, true)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if legacy.ID != 99 {
		t.Fatalf("known field lost: got %d", legacy.ID)
	}
	if legacy.Unknown == nil || legacy.Unknown.TotalSlots != 2 {
		t.Fatalf("expected unknown tail captured, got %+v", legacy.Unknown)
	}

	// Re-encoding must reproduce the original bytes exactly.
	reencoded := LegacySerializer.ToBytes(legacy)
	if string(reencoded.Bytes()) != string(wireBytes.Bytes()) {
		t.Fatalf("re-encode mismatch:\n got % x\nwant % x", reencoded.Bytes(), wireBytes.Bytes())
	}

	// Without preserve mode, the unknown tail is simply dropped.
	legacyDropped, err := LegacySerializer.FromBytes(wireBytes, false)
	if err != nil {
		t.Fatalf("FromBytes (non-preserve): %v", err)
	}
	if legacyDropped.Unknown != nil {
		t.Fatalf("expected no unknown tail without preserve mode, got %+v", legacyDropped.Unknown)
	}
}

func TestStatusConstantAndValueVariants(t *testing.T) {
	for _, s := range []Status{NewActiveStatus(), NewInactiveStatus(), NewCustomStatus("beta")} {
		b := StatusSerializer.ToBytes(s)
		back, err := StatusSerializer.FromBytes(b, false)
		if err != nil {
			t.Fatalf("FromBytes: %v", err)
		}
		if back.Kind() != s.Kind() || back.CustomLabel() != s.CustomLabel() {
			t.Fatalf("round trip mismatch: got %+v, want %+v", back, s)
		}

		j := StatusSerializer.ToJSON(s, soia.Dense)
		back2, err := StatusSerializer.FromJSON(j, false)
		if err != nil || back2.Kind() != s.Kind() || back2.CustomLabel() != s.CustomLabel() {
			t.Fatalf("dense JSON round trip mismatch: got %+v, err=%v", back2, err)
		}
	}
}

func TestStatusUnknownVariantNumber(t *testing.T) {
	// A future constant variant (number 9) this schema doesn't know.
	futureEnum := soia.NewEnumSerializer[Status](soia.EnumShape{
		ModulePath:    "examplepb",
		QualifiedName: "FutureStatus",
		Variants: []soia.EnumVariant{
			{Name: "FUTURE", Number: 9, Kind: soia.VariantConstant},
		},
		Unknown:     Status{},
		NumberOf:    func(rec any) int { return 9 },
		PayloadOf:   func(any) any { return nil },
		NewConstant: func(int) any { return Status{kind: StatusCustom, custom: "future"} },
		NewValue:    func(int, any) any { return Status{} },
		GetUnknownEnum: func(any) *soia.UnrecognizedEnum { return nil },
		WrapUnknownEnum: func(u *soia.UnrecognizedEnum) any { return Status{unknown: u} },
	})

	wireBytes := futureEnum.ToBytes(Status{kind: StatusCustom, custom: "future"})
	back, err := StatusSerializer.FromBytes(wireBytes, true)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if back.Kind() != StatusUnknown {
		t.Fatalf("expected unrecognized variant to decode as Unknown, got %v", back.Kind())
	}
}

func TestNodeSelfRecursive(t *testing.T) {
	n := Node{Value: 1, Next: soia.Some(Node{Value: 2, Next: soia.None[Node]()})}
	b := NodeSerializer.ToBytes(n)
	back, err := NodeSerializer.FromBytes(b, false)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if back.Value != 1 {
		t.Fatalf("outer value mismatch: got %d", back.Value)
	}
	next, ok := back.Next.Get()
	if !ok || next.Value != 2 {
		t.Fatalf("inner node mismatch: got %+v, ok=%v", next, ok)
	}
	if next.Next.IsPresent() {
		t.Fatal("innermost Next should be absent")
	}
}

func TestUserWithTagsTimestampAndStatus(t *testing.T) {
	u := User{
		ID:        42,
		Name:      "ada",
		Tags:      soia.FreezeSlice([]string{"admin", "beta"}),
		CreatedAt: soia.UnixMillisTimestamp(1700000000000),
		Status:    NewActiveStatus(),
	}
	b := UserSerializer.ToBytes(u)
	back, err := UserSerializer.FromBytes(b, false)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if back.ID != u.ID || back.Name != u.Name || back.Tags.Len() != 2 {
		t.Fatalf("round trip mismatch: got %+v", back)
	}
	if back.CreatedAt.UnixMillis() != u.CreatedAt.UnixMillis() {
		t.Fatalf("timestamp mismatch: got %v", back.CreatedAt)
	}
	if back.Status.Kind() != StatusActive {
		t.Fatalf("status mismatch: got %v", back.Status.Kind())
	}
}

func TestTeamKeyedArrayLookup(t *testing.T) {
	alice := User{ID: 1, Name: "alice"}
	bob := User{ID: 2, Name: "bob"}
	team := Team{Name: "core", Members: soia.FreezeSlice([]User{alice, bob})}

	b := TeamSerializer.ToBytes(team)
	back, err := TeamSerializer.FromBytes(b, false)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	idx := MembersByID(back)
	got, ok := idx.Get(2)
	if !ok || got.Name != "bob" {
		t.Fatalf("expected member 2 = bob, got %+v ok=%v", got, ok)
	}
}

// ensureRegistered calls Register() at most once across the whole test
// binary; later calls in the same process would otherwise fail with
// "module already registered".
func ensureRegistered(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() { registerErr = Register() })
	if registerErr != nil {
		t.Fatalf("Register: %v", registerErr)
	}
}

var (
	registerOnce sync.Once
	registerErr  error
)

func TestRegisterAndLookup(t *testing.T) {
	ensureRegistered(t)
	entry, ok := soia.LookupRecord("examplepb:Point")
	if !ok {
		t.Fatal("expected examplepb:Point to be registered")
	}
	if entry.Descriptor.QualifiedName != "Point" {
		t.Fatalf("unexpected descriptor: %+v", entry.Descriptor)
	}
}

func TestTransformBinaryToDenseJSON(t *testing.T) {
	ensureRegistered(t)
	p := Point{X: 3, Y: -4}
	wireBytes := PointSerializer.ToBytes(p).Bytes()

	dense, err := soia.Transform("examplepb:Point", wireBytes, soia.FormatBinary, soia.FormatDenseJSON)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	back, err := PointSerializer.FromJSONCode(string(dense), false)
	if err != nil || back != p {
		t.Fatalf("round trip through Transform: got %+v, err=%v", back, err)
	}
}

func TestTransformDenseToReadableJSON(t *testing.T) {
	ensureRegistered(t)
	p := Point{X: 1, Y: 2}
	dense := []byte(PointSerializer.ToJSONCode(p, soia.Dense))

	readable, err := soia.Transform("examplepb:Point", dense, soia.FormatDenseJSON, soia.FormatReadableJSON)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	back, err := PointSerializer.FromJSONCode(string(readable), false)
	if err != nil || back != p {
		t.Fatalf("round trip through Transform: got %+v, err=%v", back, err)
	}
}

func TestTypeDescriptorJSONRoundTrip(t *testing.T) {
	ensureRegistered(t)
	j, err := soia.TypeDescriptorJSON("examplepb:User")
	if err != nil {
		t.Fatalf("TypeDescriptorJSON: %v", err)
	}
	desc, err := soia.ParseTypeDescriptor(j)
	if err != nil {
		t.Fatalf("ParseTypeDescriptor: %v", err)
	}
	if desc.QualifiedName != "User" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestGenericSerializerForUnregisteredStruct(t *testing.T) {
	ensureRegistered(t)
	j, err := soia.TypeDescriptorJSON("examplepb:Point")
	if err != nil {
		t.Fatalf("TypeDescriptorJSON: %v", err)
	}
	desc, err := soia.ParseTypeDescriptor(j)
	if err != nil {
		t.Fatalf("ParseTypeDescriptor: %v", err)
	}
	// Force the generic codec path: move the parsed descriptor to a module
	// that was never registered, so the registry lookup misses.
	desc.ModulePath = "unregistered"
	generic, err := soia.GenericSerializer(desc)
	if err != nil {
		t.Fatalf("GenericSerializer: %v", err)
	}
	_ = generic
}
