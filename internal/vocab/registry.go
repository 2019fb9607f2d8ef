// Package vocab provides the controlled vocabulary registry: named, closed sets
// of string codes such as ProgressCode or TopicCategoryCode.
package vocab

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnknownEnumeration is returned when an enumeration name was never registered
	ErrUnknownEnumeration = errors.New("unknown enumeration")
	// ErrDuplicateEnumeration is returned when an enumeration name is registered twice
	ErrDuplicateEnumeration = errors.New("enumeration already registered")
	// ErrInvalidEnumeration is returned for empty names, empty code lists or repeated codes
	ErrInvalidEnumeration = errors.New("invalid enumeration")
	// ErrRegistrySealed is returned when registering after Seal
	ErrRegistrySealed = errors.New("vocabulary registry is sealed")
)

// Enumeration is a named, closed set of codes. The code list is fixed at
// registration time.
type Enumeration struct {
	name  string
	codes []string
	index map[string]int
}

// Name returns the enumeration name
func (e *Enumeration) Name() string {
	return e.name
}

// Codes returns a copy of the codes in declaration order
func (e *Enumeration) Codes() []string {
	out := make([]string, len(e.codes))
	copy(out, e.codes)
	return out
}

// Contains reports whether code belongs to the enumeration
func (e *Enumeration) Contains(code string) bool {
	_, ok := e.index[code]
	return ok
}

// Len returns the number of codes
func (e *Enumeration) Len() int {
	return len(e.codes)
}

// Registry holds all enumerations of a schema.
// Registrations happen during startup; once sealed, the registry is read without locking.
type Registry struct {
	mu     sync.RWMutex
	enums  map[string]*Enumeration
	order  []string
	sealed atomic.Bool
}

// NewRegistry creates an empty vocabulary registry
func NewRegistry() *Registry {
	return &Registry{
		enums: make(map[string]*Enumeration),
	}
}

// Register adds a closed enumeration with the given codes
func (r *Registry) Register(name string, codes ...string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEnumeration)
	}
	if len(codes) == 0 {
		return fmt.Errorf("%w: %s has no codes", ErrInvalidEnumeration, name)
	}

	enum := &Enumeration{
		name:  name,
		codes: make([]string, 0, len(codes)),
		index: make(map[string]int, len(codes)),
	}
	for _, code := range codes {
		if code == "" {
			return fmt.Errorf("%w: %s contains an empty code", ErrInvalidEnumeration, name)
		}
		if _, dup := enum.index[code]; dup {
			return fmt.Errorf("%w: %s repeats code %q", ErrInvalidEnumeration, name, code)
		}
		enum.index[code] = len(enum.codes)
		enum.codes = append(enum.codes, code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %s", ErrRegistrySealed, name)
	}
	if _, exists := r.enums[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEnumeration, name)
	}

	r.enums[name] = enum
	r.order = append(r.order, name)
	return nil
}

// Seal closes the registry for further registrations. Sealing is idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether the registry has been sealed
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Lookup returns the enumeration registered under name
func (r *Registry) Lookup(name string) (*Enumeration, bool) {
	if r.sealed.Load() {
		enum, ok := r.enums[name]
		return enum, ok
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	enum, ok := r.enums[name]
	return enum, ok
}

// IsMember reports whether code belongs to the named enumeration
func (r *Registry) IsMember(name, code string) (bool, error) {
	enum, ok := r.Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownEnumeration, name)
	}
	return enum.Contains(code), nil
}

// CodesOf returns the codes of the named enumeration in declaration order
func (r *Registry) CodesOf(name string) ([]string, error) {
	enum, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnumeration, name)
	}
	return enum.Codes(), nil
}

// Names returns all enumeration names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Count returns the number of registered enumerations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.enums)
}
