package record

import (
	"math"
	"time"
)

// Sequence is the value of a Many field
type Sequence []any

// Seq builds a Sequence from its arguments
func Seq(items ...any) Sequence {
	return Sequence(items)
}

// Ref is an opaque, non-owning reference to a record managed outside this schema,
// such as a Citation or a Point.
type Ref struct {
	Type string `json:"@type,omitempty"`
	ID   string `json:"@ref"`
}

// normalize converts accepted Go values to their canonical form:
// integers become int64, floats become float64 and slices become Sequence.
// The second result reports whether the value is a sequence.
func normalize(value any) (any, bool) {
	switch v := value.(type) {
	case Sequence:
		out := make(Sequence, len(v))
		for i, item := range v {
			out[i], _ = normalize(item)
		}
		return out, true
	case []any:
		return normalizeSlice(v), true
	case []string:
		return normalizeSlice(v), true
	case []int:
		return normalizeSlice(v), true
	case []int64:
		return normalizeSlice(v), true
	case []float64:
		return normalizeSlice(v), true
	case []bool:
		return normalizeSlice(v), true
	case []*Record:
		return normalizeSlice(v), true
	case []Ref:
		return normalizeSlice(v), true
	case []Mapping:
		return normalizeSlice(v), true
	case int:
		return int64(v), false
	case int8:
		return int64(v), false
	case int16:
		return int64(v), false
	case int32:
		return int64(v), false
	case uint:
		return normalizeUnsigned(uint64(v), value), false
	case uint64:
		return normalizeUnsigned(v, value), false
	case uintptr:
		return normalizeUnsigned(uint64(v), value), false
	case uint8:
		return int64(v), false
	case uint16:
		return int64(v), false
	case uint32:
		return int64(v), false
	case float32:
		return float64(v), false
	case *time.Time:
		if v == nil {
			return nil, false
		}
		return *v, false
	case *Record:
		if v == nil {
			return nil, false
		}
		return v, false
	case *Ref:
		if v == nil {
			return nil, false
		}
		return *v, false
	default:
		return value, false
	}
}

// normalizeUnsigned converts n to int64 when it fits. Larger values keep their
// original type so validation reports them.
func normalizeUnsigned(n uint64, original any) any {
	if n > math.MaxInt64 {
		return original
	}
	return int64(n)
}

func normalizeSlice[T any](items []T) Sequence {
	out := make(Sequence, len(items))
	for i, item := range items {
		out[i], _ = normalize(item)
	}
	return out
}

// IsEmpty reports whether a value counts as absent for required-field checks:
// nil, the empty string and the empty sequence.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case Sequence:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// IsSequence reports whether value is sequence-shaped
func IsSequence(value any) bool {
	switch value.(type) {
	case Sequence, []any:
		return true
	default:
		return false
	}
}
