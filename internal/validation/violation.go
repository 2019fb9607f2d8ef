package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the class of a violation
type Kind string

const (
	// MissingRequiredField is a required field that is absent or empty
	MissingRequiredField Kind = "MissingRequiredField"
	// InvalidEnumValue is a code outside its enumeration or a value that is not a code
	InvalidEnumValue Kind = "InvalidEnumValue"
	// CardinalityViolation is a scalar in a sequence field or a sequence in a scalar field
	CardinalityViolation Kind = "CardinalityViolation"
	// UnknownField is a field the record type does not declare
	UnknownField Kind = "UnknownField"
	// TypeMismatch is a value of the wrong primitive or record type
	TypeMismatch Kind = "TypeMismatch"
	// RuleViolation is reported by a custom rule
	RuleViolation Kind = "RuleViolation"
)

// Severity indicates whether a violation makes a record invalid
type Severity string

const (
	// SeverityError makes the record invalid
	SeverityError Severity = "error"
	// SeverityWarning is reported but does not make the record invalid
	SeverityWarning Severity = "warning"
)

// Violation is one finding of the validator
type Violation struct {
	// FieldPath locates the field, e.g. "descriptiveKeywords[1].keyword". Empty for the record itself.
	FieldPath string `json:"field_path"`
	Kind      Kind     `json:"kind"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	// Suggestion provides a hint for fixing the violation (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Rule names the custom rule that reported the violation (optional)
	Rule string `json:"rule,omitempty"`
}

// String returns "path: message (kind)"
func (v Violation) String() string {
	path := v.FieldPath
	if path == "" {
		path = "<record>"
	}
	return fmt.Sprintf("%s: %s (%s)", path, v.Message, v.Kind)
}

// Violations is the ordered result of a validation run
type Violations []Violation

// Valid reports whether no violation has error severity
func (vs Violations) Valid() bool {
	return !vs.HasErrors()
}

// HasErrors reports whether any violation has error severity
func (vs Violations) HasErrors() bool {
	for _, v := range vs {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the violations with error severity
func (vs Violations) Errors() Violations {
	return vs.filter(func(v Violation) bool { return v.Severity == SeverityError })
}

// Warnings returns the violations with warning severity
func (vs Violations) Warnings() Violations {
	return vs.filter(func(v Violation) bool { return v.Severity == SeverityWarning })
}

// ByKind returns the violations of the given kind
func (vs Violations) ByKind(kind Kind) Violations {
	return vs.filter(func(v Violation) bool { return v.Kind == kind })
}

// At returns the violations reported at path
func (vs Violations) At(path string) Violations {
	return vs.filter(func(v Violation) bool { return v.FieldPath == path })
}

// Paths returns the field path of each violation in order
func (vs Violations) Paths() []string {
	paths := make([]string, len(vs))
	for i, v := range vs {
		paths[i] = v.FieldPath
	}
	return paths
}

func (vs Violations) filter(keep func(Violation) bool) Violations {
	var out Violations
	for _, v := range vs {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Err returns the violations as an error when any has error severity, nil otherwise
func (vs Violations) Err() error {
	if !vs.HasErrors() {
		return nil
	}
	return &Error{Violations: vs}
}

// MarshalJSON writes an empty list instead of null
func (vs Violations) MarshalJSON() ([]byte, error) {
	if vs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Violation(vs))
}

// Error adapts Violations to the error interface
type Error struct {
	Violations Violations
}

// Error implements the error interface
func (e *Error) Error() string {
	errs := e.Violations.Errors()
	if len(errs) == 1 {
		return fmt.Sprintf("validation failed: %s", errs[0])
	}

	lines := make([]string, len(errs))
	for i, v := range errs {
		lines[i] = "  - " + v.String()
	}
	return fmt.Sprintf("validation failed:\n%s", strings.Join(lines, "\n"))
}

// Report is the serialization form of a validation run
type Report struct {
	Type       string     `json:"type"`
	Valid      bool       `json:"valid"`
	Violations Violations `json:"violations"`
}

// NewReport builds the report of a validation run over a record of typeName
func NewReport(typeName string, vs Violations) Report {
	return Report{Type: typeName, Valid: vs.Valid(), Violations: vs}
}
