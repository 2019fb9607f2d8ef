package record

import (
	"github.com/geomd/metaschema/internal/schema"
)

// Builder assembles a record with chained calls and reports the first error on Build
//
//	kw, err := record.NewBuilder(reg, "Keywords").
//		Set("keyword", record.Seq("ocean", "salinity")).
//		Set("type", "theme").
//		Build()
type Builder struct {
	rec *Record
	err error
}

// NewBuilder starts a record of the named type
func NewBuilder(reg *schema.Registry, typeName string) *Builder {
	rec, err := Create(reg, typeName)
	return &Builder{rec: rec, err: err}
}

// Set assigns a field unless an earlier call failed
func (b *Builder) Set(name string, value any) *Builder {
	if b.err == nil {
		b.err = b.rec.Set(name, value)
	}
	return b
}

// Append adds items to a Many field unless an earlier call failed
func (b *Builder) Append(name string, items ...any) *Builder {
	if b.err == nil {
		b.err = b.rec.Append(name, items...)
	}
	return b
}

// Build returns the record, or the first error encountered
func (b *Builder) Build() (*Record, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.rec, nil
}

// Frozen is Build followed by Freeze
func (b *Builder) Frozen() (*Record, error) {
	rec, err := b.Build()
	if err != nil {
		return nil, err
	}
	rec.Freeze()
	return rec, nil
}
