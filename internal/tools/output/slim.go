package output

import (
	"unicode/utf8"
)

// ClipMarker is appended to text fields shortened by ClipText.
const ClipMarker = "…"

// ClipText returns a copy of rec with each named text field shortened to at
// most maxLen runes plus ClipMarker. A maxLen of zero or less disables
// clipping. The second return value reports whether anything was clipped.
func ClipText(rec Record, fields []string, maxLen int) (Record, bool) {
	if rec == nil {
		return nil, false
	}
	if maxLen <= 0 || len(fields) == 0 {
		return rec, false
	}

	var result Record
	clipped := false
	for _, f := range fields {
		s, ok := rec[f].(string)
		if !ok || utf8.RuneCountInString(s) <= maxLen {
			continue
		}
		if result == nil {
			result = deepCopyMap(rec)
		}
		result[f] = clipRunes(s, maxLen) + ClipMarker
		clipped = true
	}
	if !clipped {
		return rec, false
	}
	return result, true
}

func clipRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// deepCopyMap creates a deep copy of a map.
func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}

	return result
}

// deepCopyValue creates a deep copy of a value.
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, item := range val {
			result[i] = deepCopyValue(item)
		}
		return result
	case []string:
		result := make([]string, len(val))
		copy(result, val)
		return result
	default:
		return v
	}
}
