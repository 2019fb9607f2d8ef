// Package validation checks metadata records against their schema and reports
// every finding as a Violation. Validation never mutates its input.
package validation

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/schema"
	utilstrings "github.com/geomd/metaschema/internal/util/strings"
)

const maxSuggestions = 3

// Validator checks records against a resolved schema registry.
// A Validator is safe for concurrent use.
type Validator struct {
	registry *schema.Registry
	lenient  bool
	rules    []Rule
	logger   *zap.Logger
}

// Option configures a Validator
type Option func(*Validator)

// WithLenientMandatory reports missing required fields as warnings instead of errors
func WithLenientMandatory() Option {
	return func(v *Validator) {
		v.lenient = true
	}
}

// WithRules adds custom rules
func WithRules(rules ...Rule) Option {
	return func(v *Validator) {
		v.rules = append(v.rules, rules...)
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a validator for records of reg
func New(reg *schema.Registry, opts ...Option) *Validator {
	v := &Validator{
		registry: reg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks rec with the default options of its registry
func Validate(rec *record.Record) Violations {
	return New(rec.Registry()).Validate(rec)
}

// Rules returns the names of the configured custom rules
func (v *Validator) Rules() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name()
	}
	return names
}

// Validate checks a record and returns every violation found, in field order.
// An empty result means the record is valid.
func (v *Validator) Validate(rec *record.Record) Violations {
	return v.ValidateMapping(rec.ToMapping())
}

// ValidateMapping checks a decoded mapping. Unlike records, mappings may carry
// unknown fields and values of the wrong shape; those are reported too.
func (v *Validator) ValidateMapping(m record.Mapping) Violations {
	var out Violations

	typ, err := v.registry.Lookup(m.Type)
	if err != nil {
		out = append(out, Violation{
			Kind:     TypeMismatch,
			Severity: SeverityError,
			Message:  err.Error(),
		})
		return out
	}
	if typ.Abstract() || typ.External() {
		out = append(out, v.notInstantiable("", typ))
		return out
	}

	v.walk("", typ, m, &out)

	v.logger.Debug("validated record",
		zap.String("type", m.Type),
		zap.Int("violations", len(out)),
		zap.Bool("valid", out.Valid()),
	)
	return out
}

func (v *Validator) walk(path string, typ *schema.RecordType, m record.Mapping, out *Violations) {
	for _, field := range typ.EffectiveFields() {
		fieldPath := joinPath(path, field.Name)
		value, ok := m.Get(field.Name)

		if !ok || record.IsEmpty(value) {
			if field.Required {
				*out = append(*out, v.missing(fieldPath, typ, field))
			}
			continue
		}

		isSeq := record.IsSequence(value)
		switch {
		case field.Cardinality == schema.Many && !isSeq:
			*out = append(*out, Violation{
				FieldPath: fieldPath,
				Kind:      CardinalityViolation,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("expected a sequence of %s, got a single value", describe(field)),
			})
			continue
		case field.Cardinality == schema.One && isSeq:
			*out = append(*out, Violation{
				FieldPath: fieldPath,
				Kind:      CardinalityViolation,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("expected a single %s, got a sequence", describe(field)),
			})
			continue
		}

		if isSeq {
			for i, item := range asSlice(value) {
				v.element(fmt.Sprintf("%s[%d]", fieldPath, i), field, item, out)
			}
		} else {
			v.element(fieldPath, field, value, out)
		}
	}

	for _, name := range m.Names() {
		if _, known := typ.Field(name); known {
			continue
		}
		vio := Violation{
			FieldPath: joinPath(path, name),
			Kind:      UnknownField,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("%s has no field %q", typ.Name(), name),
		}
		if s := utilstrings.Suggest(name, typ.FieldNames(), maxSuggestions); len(s) > 0 {
			vio.Suggestion = "did you mean " + strings.Join(s, ", ") + "?"
		}
		*out = append(*out, vio)
	}

	for _, rule := range v.rules {
		if !v.registry.IsSubtypeOf(typ.Name(), rule.AppliesTo()) {
			continue
		}
		for _, vio := range rule.Check(m) {
			vio.FieldPath = joinPath(path, vio.FieldPath)
			if vio.Kind == "" {
				vio.Kind = RuleViolation
			}
			if vio.Severity == "" {
				vio.Severity = SeverityError
			}
			if vio.Rule == "" {
				vio.Rule = rule.Name()
			}
			*out = append(*out, vio)
		}
	}
}

func (v *Validator) element(path string, field schema.FieldDescriptor, value any, out *Violations) {
	switch field.Kind {
	case schema.KindEnum:
		v.enum(path, field, value, out)
	case schema.KindPrimitive:
		if !primitiveMatches(field.Primitive, value) {
			*out = append(*out, Violation{
				FieldPath: path,
				Kind:      TypeMismatch,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("expected %s, got %s", field.Primitive, typeOf(value)),
			})
		}
	case schema.KindRecord:
		v.nested(path, field, value, out)
	}
}

func (v *Validator) enum(path string, field schema.FieldDescriptor, value any, out *Violations) {
	code, ok := value.(string)
	if !ok {
		*out = append(*out, Violation{
			FieldPath: path,
			Kind:      InvalidEnumValue,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("expected a %s code, got %s", field.RefType, typeOf(value)),
		})
		return
	}

	vocabulary := v.registry.Vocabulary()
	member, err := vocabulary.IsMember(field.RefType, code)
	if member {
		return
	}

	vio := Violation{
		FieldPath: path,
		Kind:      InvalidEnumValue,
		Severity:  SeverityError,
		Message:   fmt.Sprintf("%q is not a %s code", code, field.RefType),
	}
	if err != nil {
		vio.Message = err.Error()
	} else if codes, err := vocabulary.CodesOf(field.RefType); err == nil {
		if s := utilstrings.Suggest(code, codes, maxSuggestions); len(s) > 0 {
			vio.Suggestion = "did you mean " + strings.Join(s, ", ") + "?"
		} else {
			vio.Suggestion = "expected one of " + strings.Join(codes, ", ")
		}
	}
	*out = append(*out, vio)
}

func (v *Validator) nested(path string, field schema.FieldDescriptor, value any, out *Violations) {
	target, err := v.registry.Lookup(field.RefType)
	if err != nil {
		*out = append(*out, Violation{FieldPath: path, Kind: TypeMismatch, Severity: SeverityError, Message: err.Error()})
		return
	}

	if target.External() {
		if _, ok := value.(record.Ref); !ok {
			*out = append(*out, Violation{
				FieldPath: path,
				Kind:      TypeMismatch,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("expected a reference to %s, got %s", target.Name(), typeOf(value)),
			})
		}
		return
	}

	m, ok := value.(record.Mapping)
	if !ok {
		*out = append(*out, Violation{
			FieldPath: path,
			Kind:      TypeMismatch,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("expected a %s record, got %s", target.Name(), typeOf(value)),
		})
		return
	}

	actual, err := v.registry.Lookup(m.Type)
	if err != nil {
		*out = append(*out, Violation{FieldPath: path, Kind: TypeMismatch, Severity: SeverityError, Message: err.Error()})
		return
	}
	if !v.registry.IsSubtypeOf(actual.Name(), target.Name()) {
		*out = append(*out, Violation{
			FieldPath: path,
			Kind:      TypeMismatch,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("%s is not a %s", actual.Name(), target.Name()),
		})
		return
	}
	if actual.Abstract() || actual.External() {
		*out = append(*out, v.notInstantiable(path, actual))
		return
	}

	v.walk(path, actual, m, out)
}

func (v *Validator) missing(path string, typ *schema.RecordType, field schema.FieldDescriptor) Violation {
	severity := SeverityError
	if v.lenient {
		severity = SeverityWarning
	}
	return Violation{
		FieldPath: path,
		Kind:      MissingRequiredField,
		Severity:  severity,
		Message:   fmt.Sprintf("%s requires %s", typ.Name(), field.Name),
	}
}

func (v *Validator) notInstantiable(path string, typ *schema.RecordType) Violation {
	vio := Violation{
		FieldPath: path,
		Kind:      TypeMismatch,
		Severity:  SeverityError,
		Message:   fmt.Sprintf("%s cannot be instantiated", typ.Name()),
	}
	if subs := v.registry.Subtypes(typ.Name()); len(subs) > 0 {
		vio.Suggestion = "use one of " + strings.Join(subs, ", ")
	}
	return vio
}

func primitiveMatches(p schema.Primitive, value any) bool {
	switch p {
	case schema.PrimitiveString:
		_, ok := value.(string)
		return ok
	case schema.PrimitiveInteger:
		switch value.(type) {
		case int64, int:
			return true
		}
		return false
	case schema.PrimitiveReal:
		switch value.(type) {
		case float64, int64, int:
			return true
		}
		return false
	case schema.PrimitiveBoolean:
		_, ok := value.(bool)
		return ok
	case schema.PrimitiveDateTime:
		switch t := value.(type) {
		case time.Time:
			return true
		case string:
			_, err := record.ParseDateTime(t)
			return err == nil
		}
		return false
	default:
		switch value.(type) {
		case record.Mapping, map[string]any, record.Ref:
			return false
		}
		return true
	}
}

func describe(field schema.FieldDescriptor) string {
	if field.Kind == schema.KindPrimitive {
		return field.Primitive.String()
	}
	return field.RefType
}

func typeOf(value any) string {
	switch v := value.(type) {
	case record.Mapping:
		return v.Type + " record"
	case record.Ref:
		return "reference"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case int64, int:
		return "integer"
	case float64:
		return "real"
	case bool:
		return "boolean"
	case time.Time:
		return "datetime"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func asSlice(value any) []any {
	switch v := value.(type) {
	case record.Sequence:
		return v
	case []any:
		return v
	default:
		return nil
	}
}

func joinPath(parent, field string) string {
	switch {
	case parent == "":
		return field
	case field == "":
		return parent
	default:
		return parent + "." + field
	}
}

func formatMinItems(field string, min, got int) string {
	return fmt.Sprintf("%s needs at least %d items, got %d", field, min, got)
}
