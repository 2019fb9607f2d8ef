package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/geomd/metaschema/internal/schema"
)

// ErrMissingType is returned when a document names no record type
var ErrMissingType = errors.New("document does not name a record type")

// RefKey is the JSON key carrying the identifier of an external reference
const RefKey = "@ref"

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// DecodeJSON decodes a JSON object into a Mapping guided by the schema.
// typeName overrides the document's @type when not empty.
//
// Decoding is lenient: unknown fields, cardinality mismatches and values of the
// wrong type are kept as they are so a validator can report every problem.
// Only an unknown top-level type is an error.
func DecodeJSON(reg *schema.Registry, data []byte, typeName string) (Mapping, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return Mapping{}, fmt.Errorf("decode record document: %w", err)
	}
	return DecodeTree(reg, tree, typeName)
}

// DecodeYAML is DecodeJSON for YAML documents
func DecodeYAML(reg *schema.Registry, data []byte, typeName string) (Mapping, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Mapping{}, fmt.Errorf("decode record document: %w", err)
	}
	if tree == nil {
		return Mapping{}, fmt.Errorf("decode record document: empty document")
	}
	return DecodeTree(reg, tree, typeName)
}

// DecodeTree is DecodeJSON for an already parsed document, e.g. from YAML
func DecodeTree(reg *schema.Registry, tree map[string]any, typeName string) (Mapping, error) {
	if typeName == "" {
		typeName, _ = tree[TypeKey].(string)
	}
	if typeName == "" {
		return Mapping{}, ErrMissingType
	}

	typ, err := reg.Lookup(typeName)
	if err != nil {
		return Mapping{}, err
	}
	return decodeObject(reg, typ, tree), nil
}

func decodeObject(reg *schema.Registry, typ *schema.RecordType, tree map[string]any) Mapping {
	m := Mapping{Type: typ.Name()}

	for _, field := range typ.EffectiveFields() {
		raw, ok := tree[field.Name]
		if !ok || raw == nil {
			continue
		}
		m.Entries = append(m.Entries, Entry{Name: field.Name, Value: decodeField(reg, field, raw)})
	}

	var unknown []string
	for key := range tree {
		if key == TypeKey {
			continue
		}
		if _, known := typ.Field(key); !known {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		m.Entries = append(m.Entries, Entry{Name: key, Value: decodeLoose(tree[key])})
	}

	return m
}

func decodeField(reg *schema.Registry, field schema.FieldDescriptor, raw any) any {
	if items, ok := raw.([]any); ok {
		out := make(Sequence, len(items))
		for i, item := range items {
			out[i] = decodeElement(reg, field, item)
		}
		return out
	}
	return decodeElement(reg, field, raw)
}

func decodeElement(reg *schema.Registry, field schema.FieldDescriptor, raw any) any {
	switch field.Kind {
	case schema.KindPrimitive:
		return decodePrimitive(field.Primitive, raw)
	case schema.KindRecord:
		return decodeRecordValue(reg, field.RefType, raw)
	default:
		return decodeLoose(raw)
	}
}

func decodePrimitive(p schema.Primitive, raw any) any {
	switch p {
	case schema.PrimitiveInteger:
		switch v := raw.(type) {
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return i
			}
			return decodeLoose(v)
		case float64:
			if v == math.Trunc(v) {
				return int64(v)
			}
			return v
		}
	case schema.PrimitiveReal:
		switch v := raw.(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	case schema.PrimitiveDateTime:
		if s, ok := raw.(string); ok {
			if t, err := ParseDateTime(s); err == nil {
				return t
			}
		}
	}
	return decodeLoose(raw)
}

// ParseDateTime parses an ISO 8601 date or date-time in the forms records accept
func ParseDateTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func decodeRecordValue(reg *schema.Registry, refType string, raw any) any {
	target, err := reg.Lookup(refType)
	if err != nil {
		return decodeLoose(raw)
	}

	if target.External() {
		switch v := raw.(type) {
		case string:
			return Ref{Type: refType, ID: v}
		case map[string]any:
			if id, ok := v[RefKey].(string); ok {
				typ, _ := v[TypeKey].(string)
				if typ == "" {
					typ = refType
				}
				return Ref{Type: typ, ID: id}
			}
		}
		return decodeLoose(raw)
	}

	obj, ok := asObject(raw)
	if !ok {
		return decodeLoose(raw)
	}
	if name, _ := obj[TypeKey].(string); name != "" {
		if nested, err := reg.Lookup(name); err == nil {
			return decodeObject(reg, nested, obj)
		}
		return decodeLoose(raw)
	}
	return decodeObject(reg, target, obj)
}

// decodeLoose converts a value without schema guidance
func decodeLoose(raw any) any {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case int:
		return int64(v)
	case []any:
		out := make(Sequence, len(v))
		for i, item := range v {
			out[i] = decodeLoose(item)
		}
		return out
	case map[any]any:
		obj, _ := asObject(v)
		return obj
	default:
		return v
	}
}

func asObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
