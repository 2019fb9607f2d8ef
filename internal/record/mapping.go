package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/geomd/metaschema/internal/schema"
)

// TypeKey is the JSON key carrying a record's type name
const TypeKey = "@type"

// Entry is one field of a Mapping
type Entry struct {
	Name  string
	Value any
}

// Mapping is the ordered, serialization-ready form of a record: the record type
// plus its set fields in effective-field order. Nested records are Mappings too.
type Mapping struct {
	Type    string
	Entries []Entry
}

// Get returns the value stored under name
func (m Mapping) Get(name string) (any, bool) {
	for _, e := range m.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Names returns the entry names in order
func (m Mapping) Names() []string {
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Name
	}
	return names
}

// Put replaces the value stored under name, or appends a new entry
func (m *Mapping) Put(name string, value any) {
	for i, e := range m.Entries {
		if e.Name == name {
			m.Entries[i].Value = value
			return
		}
	}
	m.Entries = append(m.Entries, Entry{Name: name, Value: value})
}

// MarshalJSON writes the mapping as a JSON object with @type first and fields in order
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	typ, err := json.Marshal(m.Type)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + TypeKey + `":`)
	buf.Write(typ)

	for _, e := range m.Entries {
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Name, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToMapping returns the ordered mapping of the record for serialization handoff
func (r *Record) ToMapping() Mapping {
	m := Mapping{Type: r.typ.Name()}
	for _, name := range r.Fields() {
		m.Entries = append(m.Entries, Entry{Name: name, Value: toMappingValue(r.values[name])})
	}
	return m
}

func toMappingValue(value any) any {
	switch v := value.(type) {
	case *Record:
		return v.ToMapping()
	case Sequence:
		out := make(Sequence, len(v))
		for i, item := range v {
			out[i] = toMappingValue(item)
		}
		return out
	default:
		return v
	}
}

// FromMapping rebuilds a record from a mapping with Create and Set.
// Unlike decoding, it is strict: unknown fields and cardinality mismatches fail.
func FromMapping(reg *schema.Registry, m Mapping) (*Record, error) {
	return fromMapping(reg, m, "")
}

func fromMapping(reg *schema.Registry, m Mapping, path string) (*Record, error) {
	rec, err := Create(reg, m.Type)
	if err != nil {
		return nil, wrapPath(path, err)
	}

	for _, e := range m.Entries {
		fieldPath := joinPath(path, e.Name)
		value, err := fromMappingValue(reg, e.Value, fieldPath)
		if err != nil {
			return nil, err
		}
		if err := rec.Set(e.Name, value); err != nil {
			return nil, wrapPath(path, err)
		}
	}
	return rec, nil
}

func fromMappingValue(reg *schema.Registry, value any, path string) (any, error) {
	switch v := value.(type) {
	case Mapping:
		return fromMapping(reg, v, path)
	case Sequence:
		out := make(Sequence, len(v))
		for i, item := range v {
			converted, err := fromMappingValue(reg, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func wrapPath(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
