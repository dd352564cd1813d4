// Package examplepb hand-writes the kind of code a soia compiler would
// generate: structs and enums wired against the soia package's Shape
// contracts instead of reflection. It stands in for generated code
// throughout the rest of this module's tests and cmd/soiadump.
package examplepb

import "github.com/soiago/soia/soia"

// Point is the simplest possible record: two required int32 fields, no
// removed numbers, no unknown-field preservation.
type Point struct {
	X int32
	Y int32
}

var PointSerializer = soia.NewStructSerializer[Point](soia.StructShape{
	ModulePath:    "examplepb",
	QualifiedName: "Point",
	Fields: []soia.StructField{
		{
			Name: "x", Number: 0, Ser: soia.Erase(soia.Int32Serializer()),
			Get: func(rec any) any { return rec.(Point).X },
			Set: func(b any, v any) { b.(*Point).X = v.(int32) },
		},
		{
			Name: "y", Number: 1, Ser: soia.Erase(soia.Int32Serializer()),
			Get: func(rec any) any { return rec.(Point).Y },
			Set: func(b any, v any) { b.(*Point).Y = v.(int32) },
		},
	},
	NewBuilder: func() any { return &Point{} },
	Build:      func(b any) any { return *b.(*Point) },
	Zero:       Point{},
	GetUnknown: func(any) *soia.UnrecognizedFields { return nil },
	SetUnknown: func(any, *soia.UnrecognizedFields) {},
})

// Widget demonstrates a removed field: number 1 ("legacy_label", a string)
// was dropped from the schema but its number must never be reused, so it
// stays in RemovedNumbers and old binary/JSON data that still carries a
// value there decodes cleanly (and is discarded).
type Widget struct {
	Name   string
	Weight int32
}

var WidgetSerializer = soia.NewStructSerializer[Widget](soia.StructShape{
	ModulePath:    "examplepb",
	QualifiedName: "Widget",
	Fields: []soia.StructField{
		{
			Name: "name", Number: 0, Ser: soia.Erase(soia.StringSerializer()),
			Get: func(rec any) any { return rec.(Widget).Name },
			Set: func(b any, v any) { b.(*Widget).Name = v.(string) },
		},
		{
			Name: "weight", Number: 2, Ser: soia.Erase(soia.Int32Serializer()),
			Get: func(rec any) any { return rec.(Widget).Weight },
			Set: func(b any, v any) { b.(*Widget).Weight = v.(int32) },
		},
	},
	RemovedNumbers: []int{1},
	NewBuilder:     func() any { return &Widget{} },
	Build:          func(b any) any { return *b.(*Widget) },
	Zero:           Widget{},
	GetUnknown:     func(any) *soia.UnrecognizedFields { return nil },
	SetUnknown:     func(any, *soia.UnrecognizedFields) {},
})

// Legacy demonstrates unknown-field preservation: a struct whose writer
// may be running a newer schema version than this reader. The Unknown
// field is populated only by a preserve-mode decode and, when present,
// makes re-encoding reproduce the original trailing slots byte-for-byte
// (binary) or value-for-value (dense JSON).
type Legacy struct {
	ID      int64
	Unknown *soia.UnrecognizedFields
}

var LegacySerializer = soia.NewStructSerializer[Legacy](soia.StructShape{
	ModulePath:    "examplepb",
	QualifiedName: "Legacy",
	Fields: []soia.StructField{
		{
			Name: "id", Number: 0, Ser: soia.Erase(soia.Int64Serializer()),
			Get: func(rec any) any { return rec.(Legacy).ID },
			Set: func(b any, v any) { b.(*Legacy).ID = v.(int64) },
		},
	},
	NewBuilder: func() any { return &Legacy{} },
	Build:      func(b any) any { return *b.(*Legacy) },
	Zero:       Legacy{},
	GetUnknown: func(rec any) *soia.UnrecognizedFields { return rec.(Legacy).Unknown },
	SetUnknown: func(b any, u *soia.UnrecognizedFields) { b.(*Legacy).Unknown = u },
})

// Status is a constant/value-variant enum: two plain constants, one
// value-carrying variant, and the implicit UNKNOWN=0.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusActive
	StatusInactive
	StatusCustom
)

type Status struct {
	kind    StatusKind
	custom  string
	unknown *soia.UnrecognizedEnum
}

func NewActiveStatus() Status   { return Status{kind: StatusActive} }
func NewInactiveStatus() Status { return Status{kind: StatusInactive} }
func NewCustomStatus(label string) Status { return Status{kind: StatusCustom, custom: label} }

func (s Status) Kind() StatusKind   { return s.kind }
func (s Status) CustomLabel() string { return s.custom }

var statusNumberOf = map[StatusKind]int{
	StatusUnknown:  0,
	StatusActive:   1,
	StatusInactive: 2,
	StatusCustom:   3,
}

var StatusSerializer = soia.NewEnumSerializer[Status](soia.EnumShape{
	ModulePath:    "examplepb",
	QualifiedName: "Status",
	Variants: []soia.EnumVariant{
		{Name: "ACTIVE", Number: 1, Kind: soia.VariantConstant},
		{Name: "INACTIVE", Number: 2, Kind: soia.VariantConstant},
		{Name: "CUSTOM", Number: 3, Kind: soia.VariantValue, Ser: soia.Erase(soia.StringSerializer())},
	},
	Unknown: Status{},
	NumberOf: func(rec any) int {
		s := rec.(Status)
		if s.unknown != nil {
			return 0
		}
		return statusNumberOf[s.kind]
	},
	PayloadOf: func(rec any) any { return rec.(Status).custom },
	NewConstant: func(number int) any {
		switch number {
		case 1:
			return NewActiveStatus()
		case 2:
			return NewInactiveStatus()
		default:
			return Status{}
		}
	},
	NewValue: func(number int, payload any) any {
		return NewCustomStatus(payload.(string))
	},
	GetUnknownEnum: func(rec any) *soia.UnrecognizedEnum { return rec.(Status).unknown },
	WrapUnknownEnum: func(u *soia.UnrecognizedEnum) any { return Status{unknown: u} },
})

// Node is self-referential through Option, the recursive-default case the
// two-pass (LazySerializer) registration protocol exists for: Node's own
// field table references NodeSerializer from inside NodeSerializer's own
// build closure.
type Node struct {
	Value int32
	Next  soia.Option[Node]
}

var NodeSerializer = soia.LazySerializer(func() soia.Serializer[Node] {
	return soia.NewStructSerializer[Node](soia.StructShape{
		ModulePath:    "examplepb",
		QualifiedName: "Node",
		Fields: []soia.StructField{
			{
				Name: "value", Number: 0, Ser: soia.Erase(soia.Int32Serializer()),
				Get: func(rec any) any { return rec.(Node).Value },
				Set: func(b any, v any) { b.(*Node).Value = v.(int32) },
			},
			{
				Name: "next", Number: 1, Ser: soia.Erase(soia.OptionalSerializer(NodeSerializer)),
				Get: func(rec any) any { return rec.(Node).Next },
				Set: func(b any, v any) { b.(*Node).Next = v.(soia.Option[Node]) },
			},
		},
		NewBuilder: func() any { return &Node{} },
		Build:      func(b any) any { return *b.(*Node) },
		Zero:       Node{},
		GetUnknown: func(any) *soia.UnrecognizedFields { return nil },
		SetUnknown: func(any, *soia.UnrecognizedFields) {},
	})
})

// User combines a timestamp, an enum field and an array field (Tags, with no
// key extractor).
type User struct {
	ID        int64
	Name      string
	Tags      soia.Frozen[string]
	CreatedAt soia.Timestamp
	Status    Status
}

var tagsArraySerializer = func() soia.Serializer[soia.Frozen[string]] {
	s, err := soia.ArraySerializer(soia.StringSerializer(), "")
	if err != nil {
		panic(err)
	}
	return s
}()

var UserSerializer = soia.NewStructSerializer[User](soia.StructShape{
	ModulePath:    "examplepb",
	QualifiedName: "User",
	Fields: []soia.StructField{
		{
			Name: "id", Number: 0, Ser: soia.Erase(soia.Int64Serializer()),
			Get: func(rec any) any { return rec.(User).ID },
			Set: func(b any, v any) { b.(*User).ID = v.(int64) },
		},
		{
			Name: "name", Number: 1, Ser: soia.Erase(soia.StringSerializer()),
			Get: func(rec any) any { return rec.(User).Name },
			Set: func(b any, v any) { b.(*User).Name = v.(string) },
		},
		{
			Name: "tags", Number: 2, Ser: soia.Erase(tagsArraySerializer),
			Get: func(rec any) any { return rec.(User).Tags },
			Set: func(b any, v any) { b.(*User).Tags = v.(soia.Frozen[string]) },
		},
		{
			Name: "created_at", Number: 3, Ser: soia.Erase(soia.TimestampSerializer()),
			Get: func(rec any) any { return rec.(User).CreatedAt },
			Set: func(b any, v any) { b.(*User).CreatedAt = v.(soia.Timestamp) },
		},
		{
			Name: "status", Number: 4, Ser: soia.Erase(StatusSerializer),
			Get: func(rec any) any { return rec.(User).Status },
			Set: func(b any, v any) { b.(*User).Status = v.(Status) },
		},
	},
	NewBuilder: func() any { return &User{} },
	Build:      func(b any) any { return *b.(*User) },
	Zero:       User{},
	GetUnknown: func(any) *soia.UnrecognizedFields { return nil },
	SetUnknown: func(any, *soia.UnrecognizedFields) {},
})

// Team demonstrates an array field with a key extractor: "members" is
// declared keyed by the dotted path into each member's id field, recorded
// on the type descriptor for generated indexed-lookup accessors to
// consume via soia.NewKeyedArray.
type Team struct {
	Name    string
	Members soia.Frozen[User]
}

var membersArraySerializer = func() soia.Serializer[soia.Frozen[User]] {
	s, err := soia.ArraySerializer(UserSerializer, "id")
	if err != nil {
		panic(err)
	}
	return s
}()

var TeamSerializer = soia.NewStructSerializer[Team](soia.StructShape{
	ModulePath:    "examplepb",
	QualifiedName: "Team",
	Fields: []soia.StructField{
		{
			Name: "name", Number: 0, Ser: soia.Erase(soia.StringSerializer()),
			Get: func(rec any) any { return rec.(Team).Name },
			Set: func(b any, v any) { b.(*Team).Name = v.(string) },
		},
		{
			Name: "members", Number: 1, Ser: soia.Erase(membersArraySerializer),
			Get: func(rec any) any { return rec.(Team).Members },
			Set: func(b any, v any) { b.(*Team).Members = v.(soia.Frozen[User]) },
		},
	},
	NewBuilder: func() any { return &Team{} },
	Build:      func(b any) any { return *b.(*Team) },
	Zero:       Team{},
	GetUnknown: func(any) *soia.UnrecognizedFields { return nil },
	SetUnknown: func(any, *soia.UnrecognizedFields) {},
})

// MembersByID indexes a Team's members by id, built on demand and cached
// against the identity of the underlying Frozen array (see
// soia.CachedKeyedArray).
func MembersByID(team Team) *soia.KeyedArray[User, int64] {
	return soia.CachedKeyedArray(team.Members, func() *soia.KeyedArray[User, int64] {
		return soia.NewKeyedArray(team.Members, func(u User) int64 { return u.ID })
	})
}

// Register wires every record this package defines into the global
// registry (soia.RegisterModule), so the reflective path (soia.Transform,
// cmd/soiadump) can resolve them by id without a compiled-in Go type.
func Register() error {
	return soia.RegisterModule("examplepb",
		soia.StructRecord(PointSerializer),
		soia.StructRecord(WidgetSerializer),
		soia.StructRecord(LegacySerializer),
		soia.EnumRecord(StatusSerializer),
		soia.StructRecord(NodeSerializer),
		soia.StructRecord(UserSerializer),
		soia.StructRecord(TeamSerializer),
	)
}
