// Package schemadef reads and writes schema definition documents: YAML (or JSON)
// files declaring enumerations, external placeholder types and record types.
//
//	enumerations:
//	  - name: ProgressCode
//	    codes: [completed, onGoing, planned]
//	external: [Citation]
//	types:
//	  - name: Identification
//	    fields:
//	      - {name: citation, kind: record, ref: Citation, required: true}
//	      - {name: abstract, type: string, required: true}
//	      - {name: status, kind: enum, ref: ProgressCode, cardinality: many}
package schemadef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/vocab"
)

// ErrInvalidDocument is returned for documents that cannot be parsed or applied
var ErrInvalidDocument = errors.New("invalid schema document")

// Document is a schema definition document
type Document struct {
	Enumerations []EnumerationDef `yaml:"enumerations,omitempty" json:"enumerations,omitempty"`
	External     []string         `yaml:"external,omitempty" json:"external,omitempty"`
	Types        []TypeDef        `yaml:"types,omitempty" json:"types,omitempty"`
}

// EnumerationDef declares an enumeration and its codes in order
type EnumerationDef struct {
	Name  string   `yaml:"name" json:"name"`
	Codes []string `yaml:"codes" json:"codes"`
}

// TypeDef declares a record type
type TypeDef struct {
	Name     string     `yaml:"name" json:"name"`
	Parent   string     `yaml:"parent,omitempty" json:"parent,omitempty"`
	Abstract bool       `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Doc      string     `yaml:"doc,omitempty" json:"doc,omitempty"`
	Fields   []FieldDef `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// FieldDef declares a field. Kind may be omitted: a field without Ref is a
// primitive, a field whose Ref names an enumeration is an enum, otherwise a record.
type FieldDef struct {
	Name        string `yaml:"name" json:"name"`
	Kind        string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Ref         string `yaml:"ref,omitempty" json:"ref,omitempty"`
	Cardinality string `yaml:"cardinality,omitempty" json:"cardinality,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Doc         string `yaml:"doc,omitempty" json:"doc,omitempty"`
}

// Parse decodes a YAML or JSON document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// ParseFile reads and parses a document from path
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Marshal encodes the document as YAML
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Apply registers the document's enumerations in v and declares its types in r.
// Types are declared, not resolved, so documents may refer to each other in any order.
// Every problem found is returned joined.
func (d *Document) Apply(v *vocab.Registry, r *schema.Registry) error {
	return errors.Join(d.applyEnumerations(v), d.applyTypes(v, r))
}

func (d *Document) applyEnumerations(v *vocab.Registry) error {
	var errs []error
	for _, e := range d.Enumerations {
		if err := v.Register(e.Name, e.Codes...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Document) applyTypes(v *vocab.Registry, r *schema.Registry) error {
	var errs []error
	if err := r.DeclareExternal(d.External...); err != nil {
		errs = append(errs, err)
	}
	for _, t := range d.Types {
		def, err := t.definition(v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Declare(def); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t TypeDef) definition(v *vocab.Registry) (schema.Definition, error) {
	def := schema.Definition{
		Name:     t.Name,
		Parent:   t.Parent,
		Abstract: t.Abstract,
		Doc:      t.Doc,
		Fields:   make([]schema.FieldDescriptor, 0, len(t.Fields)),
	}

	for _, f := range t.Fields {
		fd, err := f.descriptor(v)
		if err != nil {
			return schema.Definition{}, fmt.Errorf("%w: %s.%s: %v", ErrInvalidDocument, t.Name, f.Name, err)
		}
		def.Fields = append(def.Fields, fd)
	}
	return def, nil
}

func (f FieldDef) descriptor(v *vocab.Registry) (schema.FieldDescriptor, error) {
	fd := schema.FieldDescriptor{
		Name:     f.Name,
		Required: f.Required,
		RefType:  f.Ref,
		Doc:      f.Doc,
	}

	card, err := schema.ParseCardinality(f.Cardinality)
	if err != nil {
		return fd, err
	}
	fd.Cardinality = card

	switch {
	case f.Kind != "":
		kind, err := schema.ParseKind(f.Kind)
		if err != nil {
			return fd, err
		}
		fd.Kind = kind
	case f.Ref == "":
		fd.Kind = schema.KindPrimitive
	default:
		if _, isEnum := v.Lookup(f.Ref); isEnum {
			fd.Kind = schema.KindEnum
		} else {
			fd.Kind = schema.KindRecord
		}
	}

	if fd.Kind == schema.KindPrimitive {
		if f.Ref != "" {
			return fd, fmt.Errorf("primitive field cannot reference %s", f.Ref)
		}
		prim, err := schema.ParsePrimitive(f.Type)
		if err != nil {
			return fd, err
		}
		fd.Primitive = prim
	} else if f.Type != "" {
		return fd, fmt.Errorf("%s field takes ref, not type", fd.Kind)
	}

	return fd, nil
}

// Load applies every document and resolves the registry. Enumerations of all
// documents are registered before any type is declared.
func Load(v *vocab.Registry, r *schema.Registry, docs ...*Document) error {
	var errs []error
	for _, d := range docs {
		if err := d.applyEnumerations(v); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range docs {
		if err := d.applyTypes(v, r); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return r.Resolve()
}

// Export builds a document describing a resolved registry: every enumeration,
// every external placeholder and every record type with its own fields.
func Export(r *schema.Registry) (*Document, error) {
	v := r.Vocabulary()
	doc := &Document{}

	for _, name := range v.Names() {
		codes, err := v.CodesOf(name)
		if err != nil {
			return nil, err
		}
		doc.Enumerations = append(doc.Enumerations, EnumerationDef{Name: name, Codes: codes})
	}

	for _, name := range r.Names() {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		if t.External() {
			doc.External = append(doc.External, name)
			continue
		}
		doc.Types = append(doc.Types, typeDef(t))
	}
	return doc, nil
}

func typeDef(t *schema.RecordType) TypeDef {
	td := TypeDef{
		Name:     t.Name(),
		Parent:   t.Parent(),
		Abstract: t.Abstract(),
		Doc:      t.Doc(),
	}
	for _, f := range t.OwnFields() {
		fd := FieldDef{
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Required: f.Required,
			Doc:      f.Doc,
		}
		if f.Cardinality == schema.Many {
			fd.Cardinality = f.Cardinality.String()
		}
		if f.Kind == schema.KindPrimitive {
			fd.Type = f.Primitive.String()
		} else {
			fd.Ref = f.RefType
		}
		td.Fields = append(td.Fields, fd)
	}
	return td
}
