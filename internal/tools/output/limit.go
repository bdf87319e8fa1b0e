package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOption is the sentinel wrapped by every ValidationError.
var ErrInvalidOption = errors.New("invalid option")

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidOption) succeed for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOption
}

// LimitSpec is the default and ceiling a requested page size is resolved against.
type LimitSpec struct {
	Default int
	Max     int
}

// ResolveLimit resolves a caller-requested size against spec.
//
// A nil request uses the default. Integral values, including zero and negative
// numbers, are clamped into [1, spec.Max]. Anything that is not an integer
// returns a *ValidationError.
func ResolveLimit(requested interface{}, spec LimitSpec) (int, error) {
	ceiling := max(spec.Max, 1)

	value := spec.Default
	if requested != nil {
		n, err := asInteger(requested)
		if err != nil {
			return 0, &ValidationError{Field: "limit", Message: err.Error()}
		}
		value = n
	}

	return clamp(value, 1, ceiling), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// asInteger accepts the numeric shapes MCP arguments arrive in. JSON numbers
// decode to float64, so integral floats are accepted.
func asInteger(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return saturate(float64(n)), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("must be a whole number, got %v", n)
		}
		return saturate(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be a whole number, got %q", n.String())
		}
		return saturate(float64(i)), nil
	default:
		return 0, fmt.Errorf("must be a whole number, got %T", v)
	}
}

func saturate(f float64) int {
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}
