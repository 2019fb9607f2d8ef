// Package schema provides the field descriptor model and the record type registry.
// A record type is a named list of field descriptors with an optional parent type;
// its effective fields are the parent's effective fields followed by its own.
package schema

import (
	"fmt"
	"strings"
)

// Cardinality tells whether a field holds one value or an ordered sequence
type Cardinality int

const (
	// One is a single-valued field
	One Cardinality = iota
	// Many is a sequence-valued field
	Many
)

// String returns the string representation of the cardinality
func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// ParseCardinality converts a string to a Cardinality. The empty string means One.
func ParseCardinality(s string) (Cardinality, error) {
	switch strings.ToLower(s) {
	case "", "one", "single":
		return One, nil
	case "many", "sequence":
		return Many, nil
	default:
		return 0, fmt.Errorf("unknown cardinality: %s", s)
	}
}

// Kind is the value kind of a field
type Kind int

const (
	// KindPrimitive holds a primitive value (string, number, boolean, date-time)
	KindPrimitive Kind = iota
	// KindEnum holds a code from a controlled vocabulary
	KindEnum
	// KindRecord holds a nested record or a reference to an external record
	KindRecord
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "primitive":
		return KindPrimitive, nil
	case "enum", "enumeration", "codelist":
		return KindEnum, nil
	case "record":
		return KindRecord, nil
	default:
		return 0, fmt.Errorf("unknown field kind: %s", s)
	}
}

// Primitive is the primitive value type of a KindPrimitive field
type Primitive int

const (
	// PrimitiveAny accepts any primitive value
	PrimitiveAny Primitive = iota
	// PrimitiveString is a character string
	PrimitiveString
	// PrimitiveInteger is a whole number
	PrimitiveInteger
	// PrimitiveReal is a floating point number
	PrimitiveReal
	// PrimitiveBoolean is true or false
	PrimitiveBoolean
	// PrimitiveDateTime is a point in time
	PrimitiveDateTime
)

// String returns the string representation of the primitive type
func (p Primitive) String() string {
	switch p {
	case PrimitiveAny:
		return "any"
	case PrimitiveString:
		return "string"
	case PrimitiveInteger:
		return "integer"
	case PrimitiveReal:
		return "real"
	case PrimitiveBoolean:
		return "boolean"
	case PrimitiveDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ParsePrimitive converts a string to a Primitive. The empty string means PrimitiveAny.
func ParsePrimitive(s string) (Primitive, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return PrimitiveAny, nil
	case "string", "characterstring":
		return PrimitiveString, nil
	case "integer", "int":
		return PrimitiveInteger, nil
	case "real", "float", "number":
		return PrimitiveReal, nil
	case "boolean", "bool":
		return PrimitiveBoolean, nil
	case "datetime", "date":
		return PrimitiveDateTime, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// FieldDescriptor describes one field of a record type.
// For KindEnum, RefType names an enumeration; for KindRecord it names a record type
// (possibly an external placeholder). Only the name is stored, never the type itself.
type FieldDescriptor struct {
	Name        string
	Cardinality Cardinality
	Required    bool
	Kind        Kind
	Primitive   Primitive
	RefType     string
	Doc         string
}

// String returns a compact representation, e.g. "status: []ProgressCode?"
func (f FieldDescriptor) String() string {
	var typ string
	switch f.Kind {
	case KindPrimitive:
		typ = f.Primitive.String()
	default:
		typ = f.RefType
	}
	if f.Cardinality == Many {
		typ = "[]" + typ
	}
	if f.Required {
		typ += "!"
	} else {
		typ += "?"
	}
	return f.Name + ": " + typ
}

// Field builds a single-valued primitive field descriptor
func Field(name string, primitive Primitive, required bool) FieldDescriptor {
	return FieldDescriptor{Name: name, Kind: KindPrimitive, Primitive: primitive, Required: required}
}

// EnumField builds a single-valued enumeration field descriptor
func EnumField(name, enum string, required bool) FieldDescriptor {
	return FieldDescriptor{Name: name, Kind: KindEnum, RefType: enum, Required: required}
}

// RecordField builds a single-valued record field descriptor
func RecordField(name, recordType string, required bool) FieldDescriptor {
	return FieldDescriptor{Name: name, Kind: KindRecord, RefType: recordType, Required: required}
}

// Seq returns a copy of the descriptor with Many cardinality
func (f FieldDescriptor) Seq() FieldDescriptor {
	f.Cardinality = Many
	return f
}

// WithDoc returns a copy of the descriptor with documentation attached
func (f FieldDescriptor) WithDoc(doc string) FieldDescriptor {
	f.Doc = doc
	return f
}

// Definition is the declaration of a record type before resolution
type Definition struct {
	Name     string
	Parent   string
	Abstract bool
	Doc      string
	Fields   []FieldDescriptor
}

// RecordType is a resolved record type
type RecordType struct {
	name      string
	parent    string
	abstract  bool
	external  bool
	doc       string
	own       []FieldDescriptor
	effective []FieldDescriptor
	index     map[string]int
}

// Name returns the type name
func (t *RecordType) Name() string {
	return t.name
}

// Parent returns the parent type name, or "" for a root type
func (t *RecordType) Parent() string {
	return t.parent
}

// Abstract reports whether the type can only be instantiated through a subtype
func (t *RecordType) Abstract() bool {
	return t.abstract
}

// External reports whether the type is an opaque placeholder defined elsewhere
func (t *RecordType) External() bool {
	return t.external
}

// Doc returns the type documentation
func (t *RecordType) Doc() string {
	return t.doc
}

// OwnFields returns a copy of the fields declared on the type itself
func (t *RecordType) OwnFields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(t.own))
	copy(out, t.own)
	return out
}

// EffectiveFields returns a copy of all fields, inherited fields first
func (t *RecordType) EffectiveFields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(t.effective))
	copy(out, t.effective)
	return out
}

// Field returns the effective field with the given name
func (t *RecordType) Field(name string) (FieldDescriptor, bool) {
	i, ok := t.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return t.effective[i], true
}

// FieldNames returns the effective field names in order
func (t *RecordType) FieldNames() []string {
	names := make([]string, len(t.effective))
	for i, f := range t.effective {
		names[i] = f.Name
	}
	return names
}

// RequiredFields returns the effective fields marked required
func (t *RecordType) RequiredFields() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range t.effective {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}
