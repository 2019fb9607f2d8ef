package validation

import (
	"github.com/geomd/metaschema/internal/record"
)

// Rule is a custom check bound to a record type and its subtypes.
// Paths of the returned violations are relative to the checked record; the
// validator prefixes them and fills in Kind, Severity and Rule when left empty.
type Rule interface {
	Name() string
	AppliesTo() string
	Check(m record.Mapping) Violations
}

type funcRule struct {
	name      string
	appliesTo string
	check     func(record.Mapping) Violations
}

// NewRule builds a Rule from a function
func NewRule(name, appliesTo string, check func(record.Mapping) Violations) Rule {
	return &funcRule{name: name, appliesTo: appliesTo, check: check}
}

func (r *funcRule) Name() string {
	return r.name
}

func (r *funcRule) AppliesTo() string {
	return r.appliesTo
}

func (r *funcRule) Check(m record.Mapping) Violations {
	return r.check(m)
}

// MinItems returns a rule requiring a sequence field to hold at least min items
// when it is set. Absent fields are left to the required-field check.
func MinItems(name, appliesTo, field string, min int) Rule {
	return NewRule(name, appliesTo, func(m record.Mapping) Violations {
		v, ok := m.Get(field)
		if !ok {
			return nil
		}
		seq, ok := v.(record.Sequence)
		if !ok || len(seq) >= min {
			return nil
		}
		return Violations{{
			FieldPath: field,
			Message:   formatMinItems(field, min, len(seq)),
		}}
	})
}
