package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// userFacing is implemented by errors that carry a message meant for the
// agent rather than the operator.
type userFacing interface {
	UserFacingError() string
}

// ErrorResult converts err into a tool error result. Domain failures are
// never returned as Go errors so the MCP client sees the message.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(ErrorMessage(err))
}

// ErrorMessage returns the text shown to the agent for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var uf userFacing
	if errors.As(err, &uf) {
		return uf.UserFacingError()
	}

	var verr *output.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	return fmt.Sprintf("operation failed: %v", err)
}

// JSONResult encodes v as an indented JSON text result.
func JSONResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ReportResult encodes v without indentation. Reports that nest a bounded
// envelope use it so the envelope keeps the size it was assembled to.
func ReportResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Records converts Zendesk records to engine records.
func Records(recs []zendesk.Record) []output.Record {
	out := make([]output.Record, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}

// CollectionWarnings reports when a collection was cut at the fetch cap.
func CollectionWarnings(c *zendesk.Collection) []string {
	if c == nil || !c.Capped {
		return nil
	}
	if c.Count > len(c.Records) {
		return []string{fmt.Sprintf("fetched the first %d of %d matching records; total_found counts fetched records only", len(c.Records), c.Count)}
	}
	return []string{fmt.Sprintf("fetched the first %d records; more exist upstream", len(c.Records))}
}

// Int64Arg reads an integer argument. JSON numbers arrive as float64.
func Int64Arg(args map[string]interface{}, key string, required bool) (int64, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return 0, false, &output.ValidationError{Field: key, Message: "is required"}
		}
		return 0, false, nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return 0, false, &output.ValidationError{Field: key, Message: err.Error()}
	}
	return n, true, nil
}

// PositiveIDArg reads a required id argument that must be positive.
func PositiveIDArg(args map[string]interface{}, key string) (int64, error) {
	id, _, err := Int64Arg(args, key, true)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, &output.ValidationError{Field: key, Message: "must be a positive integer"}
	}
	return id, nil
}

// Int64SliceArg reads an array of ids.
func Int64SliceArg(args map[string]interface{}, key string, required bool) ([]int64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return nil, &output.ValidationError{Field: key, Message: "is required"}
		}
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, &output.ValidationError{Field: key, Message: "must be an array of integers"}
	}
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		n, err := toInt64(item)
		if err != nil || n <= 0 {
			return nil, &output.ValidationError{Field: key, Message: fmt.Sprintf("element %d must be a positive integer", i)}
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// StringArg reads a string argument, trimmed.
func StringArg(args map[string]interface{}, key string, required bool) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", &output.ValidationError{Field: key, Message: "is required"}
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &output.ValidationError{Field: key, Message: "must be a string"}
	}
	s = strings.TrimSpace(s)
	if s == "" && required {
		return "", &output.ValidationError{Field: key, Message: "must not be empty"}
	}
	return s, nil
}

// StringSliceArg reads an array of strings.
func StringSliceArg(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, &output.ValidationError{Field: key, Message: "must be an array of strings"}
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &output.ValidationError{Field: key, Message: fmt.Sprintf("element %d must be a string", i)}
		}
		out = append(out, s)
	}
	return out, nil
}

// BoolArg reads a boolean argument, returning def when absent.
func BoolArg(args map[string]interface{}, key string, def bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, &output.ValidationError{Field: key, Message: "must be a boolean"}
	}
	return b, nil
}

// EnumArg reads a string argument restricted to allowed values.
func EnumArg(args map[string]interface{}, key, def string, allowed ...string) (string, error) {
	s, err := StringArg(args, key, false)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", &output.ValidationError{Field: key, Message: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", "))}
}

// SizeArg resolves a size argument such as a window or day count against
// spec. Integral values are clamped like limit; anything else is rejected.
func SizeArg(args map[string]interface{}, key string, spec output.LimitSpec) (int, error) {
	n, err := output.ResolveLimit(args[key], spec)
	var verr *output.ValidationError
	if errors.As(err, &verr) {
		return 0, &output.ValidationError{Field: key, Message: verr.Message}
	}
	return n, err
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		if n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("out of range")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}
