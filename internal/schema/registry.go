package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/geomd/metaschema/internal/vocab"
)

var (
	// ErrUnknownRecordType is returned when a record type name was never declared
	ErrUnknownRecordType = errors.New("unknown record type")
	// ErrUnresolvedParent is returned when a parent type is not declared
	ErrUnresolvedParent = errors.New("unresolved parent type")
	// ErrUnresolvedReference is returned when a record field refers to an undeclared type
	ErrUnresolvedReference = errors.New("unresolved type reference")
	// ErrDuplicateType is returned when a type name is declared twice
	ErrDuplicateType = errors.New("record type already declared")
	// ErrDuplicateField is returned when a field name collides within the effective field set
	ErrDuplicateField = errors.New("duplicate field name")
	// ErrInvalidField is returned for malformed field descriptors
	ErrInvalidField = errors.New("invalid field descriptor")
	// ErrInheritanceCycle is returned when types inherit from each other in a loop
	ErrInheritanceCycle = errors.New("inheritance cycle")
	// ErrNotResolved is returned when querying types before Resolve
	ErrNotResolved = errors.New("record type registry is not resolved")
	// ErrResolved is returned when declaring types after Resolve
	ErrResolved = errors.New("record type registry is already resolved")
)

type declaration struct {
	def      Definition
	external bool
}

// Registry maps record type names to their definitions.
// It is built in two phases: declare every type (in any order), then Resolve.
// After Resolve the registry is immutable and is read without locking.
type Registry struct {
	mu       sync.RWMutex
	vocab    *vocab.Registry
	decls    map[string]*declaration
	order    []string
	types    map[string]*RecordType
	graph    *InheritanceGraph
	resolved atomic.Bool
}

// NewRegistry creates a registry whose enum fields are checked against vocabulary
func NewRegistry(vocabulary *vocab.Registry) *Registry {
	if vocabulary == nil {
		vocabulary = vocab.NewRegistry()
	}
	return &Registry{
		vocab: vocabulary,
		decls: make(map[string]*declaration),
	}
}

// Vocabulary returns the vocabulary registry enum fields are resolved against
func (r *Registry) Vocabulary() *vocab.Registry {
	return r.vocab
}

// Define declares a type whose parent must already be declared.
// Use Declare for forward references.
func (r *Registry) Define(name, parent string, fields ...FieldDescriptor) error {
	if parent != "" {
		r.mu.RLock()
		decl, ok := r.decls[parent]
		r.mu.RUnlock()
		if !ok || decl.external {
			return fmt.Errorf("%w: %s extends %s", ErrUnresolvedParent, name, parent)
		}
	}
	return r.Declare(Definition{Name: name, Parent: parent, Fields: fields})
}

// DefineAbstract is Define for a type that can only be instantiated through a subtype
func (r *Registry) DefineAbstract(name, parent string, fields ...FieldDescriptor) error {
	if err := r.Define(name, parent, fields...); err != nil {
		return err
	}
	r.mu.Lock()
	r.decls[name].def.Abstract = true
	r.mu.Unlock()
	return nil
}

// Declare records a type definition. Parent and field references are checked by Resolve.
func (r *Registry) Declare(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: record type name cannot be empty", ErrInvalidField)
	}

	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has a field without a name", ErrInvalidField, def.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, def.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Kind != KindPrimitive && f.RefType == "" {
			return fmt.Errorf("%w: %s.%s is %s but names no type", ErrInvalidField, def.Name, f.Name, f.Kind)
		}
	}

	fields := make([]FieldDescriptor, len(def.Fields))
	copy(fields, def.Fields)
	def.Fields = fields

	return r.declare(&declaration{def: def})
}

// DeclareExternal declares opaque placeholder types. They never need a local
// definition; record fields referring to them hold opaque references.
func (r *Registry) DeclareExternal(names ...string) error {
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: external type name cannot be empty", ErrInvalidField)
		}
		if err := r.declare(&declaration{def: Definition{Name: name}, external: true}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) declare(decl *declaration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved.Load() {
		return fmt.Errorf("%w: cannot declare %s", ErrResolved, decl.def.Name)
	}
	if _, exists := r.decls[decl.def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, decl.def.Name)
	}

	r.decls[decl.def.Name] = decl
	r.order = append(r.order, decl.def.Name)
	return nil
}

// Resolve checks every declaration, computes effective fields and seals the registry
// together with its vocabulary. All problems found are returned joined.
// Resolve on a resolved registry is a no-op.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved.Load() {
		return nil
	}

	var errs []error
	parents := make(map[string]string, len(r.decls))
	for _, name := range r.order {
		decl := r.decls[name]
		parent := decl.def.Parent
		if parent == "" {
			continue
		}
		pdecl, ok := r.decls[parent]
		if !ok || pdecl.external {
			errs = append(errs, fmt.Errorf("%w: %s extends %s", ErrUnresolvedParent, name, parent))
			continue
		}
		parents[name] = parent
	}

	graph := NewInheritanceGraph(r.order, parents)
	if cycles := graph.DetectCycles(); len(cycles) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInheritanceCycle, formatCycles(cycles)))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	sorted, err := graph.TopologicalSort()
	if err != nil {
		return err
	}

	types := make(map[string]*RecordType, len(sorted))
	for _, name := range sorted {
		decl := r.decls[name]
		t := &RecordType{
			name:     name,
			parent:   decl.def.Parent,
			abstract: decl.def.Abstract,
			external: decl.external,
			doc:      decl.def.Doc,
			own:      decl.def.Fields,
			index:    make(map[string]int),
		}

		if t.parent != "" {
			t.effective = append(t.effective, types[t.parent].effective...)
		}
		for _, f := range t.own {
			for _, inherited := range t.effective {
				if inherited.Name == f.Name {
					errs = append(errs, fmt.Errorf("%w: %s.%s is already inherited", ErrDuplicateField, name, f.Name))
				}
			}
			t.effective = append(t.effective, f)
		}
		for i, f := range t.effective {
			t.index[f.Name] = i
		}

		for _, f := range t.own {
			switch f.Kind {
			case KindRecord:
				if _, ok := r.decls[f.RefType]; !ok {
					errs = append(errs, fmt.Errorf("%w: %s.%s refers to %s", ErrUnresolvedReference, name, f.Name, f.RefType))
				}
			case KindEnum:
				if _, ok := r.vocab.Lookup(f.RefType); !ok {
					errs = append(errs, fmt.Errorf("%w: %s.%s refers to %s", vocab.ErrUnknownEnumeration, name, f.Name, f.RefType))
				}
			}
		}

		types[name] = t
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.types = types
	r.graph = graph
	r.vocab.Seal()
	r.resolved.Store(true)
	return nil
}

// Resolved reports whether Resolve completed successfully
func (r *Registry) Resolved() bool {
	return r.resolved.Load()
}

// Lookup returns the resolved record type with the given name
func (r *Registry) Lookup(name string) (*RecordType, error) {
	if !r.resolved.Load() {
		return nil, ErrNotResolved
	}
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecordType, name)
	}
	return t, nil
}

// EffectiveFields returns the full ordered field list of a type, inherited fields first
func (r *Registry) EffectiveFields(name string) ([]FieldDescriptor, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.EffectiveFields(), nil
}

// IsAbstract reports whether the type can only be instantiated through a subtype
func (r *Registry) IsAbstract(name string) (bool, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return false, err
	}
	return t.Abstract(), nil
}

// IsSubtypeOf reports whether child is ancestor or inherits from it
func (r *Registry) IsSubtypeOf(child, ancestor string) bool {
	if child == ancestor {
		return true
	}
	if !r.resolved.Load() {
		return false
	}
	for _, a := range r.graph.Ancestors(child) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Subtypes returns the names of all types inheriting from name, directly or not, sorted
func (r *Registry) Subtypes(name string) []string {
	if !r.resolved.Load() {
		return nil
	}
	var out []string
	for other := range r.types {
		if other != name && r.IsSubtypeOf(other, name) {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// Names returns every declared type name, sorted. External placeholders are included.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Field returns the effective field fieldName of type typeName
func (r *Registry) Field(typeName, fieldName string) (FieldDescriptor, bool) {
	t, err := r.Lookup(typeName)
	if err != nil {
		return FieldDescriptor{}, false
	}
	return t.Field(fieldName)
}
