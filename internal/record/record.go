// Package record provides metadata records: typed field containers bound to a
// concrete record type of a resolved schema registry.
package record

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/geomd/metaschema/internal/schema"
	utilstrings "github.com/geomd/metaschema/internal/util/strings"
)

var (
	// ErrUnknownField is returned when setting a field the record type does not have
	ErrUnknownField = errors.New("unknown field")
	// ErrCardinalityViolation is returned when a scalar is assigned to a Many field or a sequence to a One field
	ErrCardinalityViolation = errors.New("cardinality violation")
	// ErrFrozenRecordMutation is returned when mutating a frozen record
	ErrFrozenRecordMutation = errors.New("frozen record cannot be modified")
	// ErrAbstractType is returned when creating a record of an abstract type
	ErrAbstractType = errors.New("abstract record type cannot be instantiated")
	// ErrExternalType is returned when creating a record of an external placeholder type
	ErrExternalType = errors.New("external record type cannot be instantiated")
	// ErrCyclicReference is returned when a nested record would contain its parent
	ErrCyclicReference = errors.New("cyclic record reference")
)

// Record is a metadata record instance.
// A record is not safe for concurrent use until it is frozen; frozen records are
// immutable and may be shared freely.
type Record struct {
	registry *schema.Registry
	typ      *schema.RecordType
	values   map[string]any
	frozen   atomic.Bool
}

// Create returns an empty record of the named concrete type
func Create(reg *schema.Registry, typeName string) (*Record, error) {
	typ, err := reg.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	if typ.External() {
		return nil, fmt.Errorf("%w: %s", ErrExternalType, typeName)
	}
	if typ.Abstract() {
		if subs := reg.Subtypes(typeName); len(subs) > 0 {
			return nil, fmt.Errorf("%w: %s (use one of %s)", ErrAbstractType, typeName, strings.Join(subs, ", "))
		}
		return nil, fmt.Errorf("%w: %s", ErrAbstractType, typeName)
	}

	return &Record{
		registry: reg,
		typ:      typ,
		values:   make(map[string]any),
	}, nil
}

// MustCreate is Create that panics on error, for statically known types
func MustCreate(reg *schema.Registry, typeName string) *Record {
	r, err := Create(reg, typeName)
	if err != nil {
		panic(err)
	}
	return r
}

// Type returns the record type
func (r *Record) Type() *schema.RecordType {
	return r.typ
}

// TypeName returns the record type name
func (r *Record) TypeName() string {
	return r.typ.Name()
}

// Registry returns the registry the record was created against
func (r *Record) Registry() *schema.Registry {
	return r.registry
}

// Set assigns a field. Enum membership and primitive types are not checked here;
// the validator reports those. A nil value clears the field.
func (r *Record) Set(name string, value any) error {
	if r.frozen.Load() {
		return fmt.Errorf("%w: %s.%s", ErrFrozenRecordMutation, r.typ.Name(), name)
	}

	field, ok := r.typ.Field(name)
	if !ok {
		return r.unknownField(name)
	}

	if value == nil {
		delete(r.values, name)
		return nil
	}

	normalized, isSeq := normalize(value)
	if normalized == nil {
		delete(r.values, name)
		return nil
	}
	switch {
	case field.Cardinality == schema.Many && !isSeq:
		return fmt.Errorf("%w: %s.%s holds a sequence, got %T", ErrCardinalityViolation, r.typ.Name(), name, value)
	case field.Cardinality == schema.One && isSeq:
		return fmt.Errorf("%w: %s.%s holds a single value, got a sequence", ErrCardinalityViolation, r.typ.Name(), name)
	}

	if r.reaches(normalized) {
		return fmt.Errorf("%w: %s.%s", ErrCyclicReference, r.typ.Name(), name)
	}

	r.values[name] = normalized
	return nil
}

// Unset clears a field
func (r *Record) Unset(name string) error {
	return r.Set(name, nil)
}

// Append adds items to a Many field
func (r *Record) Append(name string, items ...any) error {
	current, _ := r.values[name].(Sequence)
	next := make(Sequence, 0, len(current)+len(items))
	next = append(next, current...)
	next = append(next, items...)
	return r.Set(name, next)
}

// Get returns the value of a field and whether it is set.
// Sequences are returned as copies.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	if seq, isSeq := v.(Sequence); isSeq {
		out := make(Sequence, len(seq))
		copy(out, seq)
		return out, ok
	}
	return v, ok
}

// Has reports whether a field is set
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Len returns the number of set fields
func (r *Record) Len() int {
	return len(r.values)
}

// Fields returns the names of set fields in effective-field order
func (r *Record) Fields() []string {
	var names []string
	for _, name := range r.typ.FieldNames() {
		if _, ok := r.values[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Freeze makes the record and every nested record immutable. It cannot be undone.
func (r *Record) Freeze() {
	if r.frozen.Swap(true) {
		return
	}
	for _, v := range r.values {
		eachRecord(v, func(nested *Record) {
			nested.Freeze()
		})
	}
}

// Frozen reports whether the record has been frozen
func (r *Record) Frozen() bool {
	return r.frozen.Load()
}

// String returns a short description such as "Keywords{keyword, type}"
func (r *Record) String() string {
	return fmt.Sprintf("%s{%s}", r.typ.Name(), strings.Join(r.Fields(), ", "))
}

func (r *Record) unknownField(name string) error {
	if s := utilstrings.Suggest(name, r.typ.FieldNames(), 3); len(s) > 0 {
		return fmt.Errorf("%w: %s.%s (did you mean %s?)", ErrUnknownField, r.typ.Name(), name, strings.Join(s, ", "))
	}
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, r.typ.Name(), name)
}

// reaches reports whether value contains r, directly or through nested records
func (r *Record) reaches(value any) bool {
	found := false
	var walk func(*Record)
	seen := make(map[*Record]bool)
	walk = func(n *Record) {
		if found || seen[n] {
			return
		}
		seen[n] = true
		if n == r {
			found = true
			return
		}
		for _, v := range n.values {
			eachRecord(v, walk)
		}
	}
	eachRecord(value, walk)
	return found
}

func eachRecord(value any, fn func(*Record)) {
	switch v := value.(type) {
	case *Record:
		if v != nil {
			fn(v)
		}
	case Sequence:
		for _, item := range v {
			eachRecord(item, fn)
		}
	}
}
