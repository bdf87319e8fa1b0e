// Package tools provides shared utilities and types for MCP tool implementations.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
)

// AddOutputParams returns tool options for the response options a tool
// accepts. Full variants only take a limit.
//
// Usage in tool registration:
//
//	opts := []mcp.ToolOption{
//	    mcp.WithDescription("..."),
//	}
//	opts = append(opts, /* tool-specific params */...)
//	opts = append(opts, tools.AddOutputParams(spec)...)
//	tool := mcp.NewTool("tool_name", opts...)
func AddOutputParams(spec output.OptionSpec) []mcp.ToolOption {
	ceiling := spec.MaxLimit
	if ceiling <= 0 {
		ceiling = output.DefaultMaxLimit
	}

	opts := []mcp.ToolOption{
		mcp.WithNumber(output.OptLimit,
			mcp.Description(fmt.Sprintf("Maximum number of records to return (default %d, max %d). Out-of-range values are clamped.", output.DefaultLimit, ceiling)),
		),
	}
	if spec.Full {
		return opts
	}

	return append(opts,
		mcp.WithBoolean(output.OptCompact,
			mcp.Description("Return only the key fields of each record"),
		),
		mcp.WithBoolean(output.OptSummarize,
			mcp.Description("Return counts, breakdowns and a ranked top list instead of records; wins over compact"),
		),
		mcp.WithNumber(output.OptMaxBodyLength,
			mcp.Description(fmt.Sprintf("Clip long text fields such as descriptions and comment bodies to this many characters (default %d, 0 disables)", output.DefaultMaxBodyLength)),
		),
		mcp.WithNumber(output.OptMaxLength,
			mcp.Description(fmt.Sprintf("Maximum response size in bytes (default %d, max %d)", output.DefaultMaxLength, output.AbsoluteMaxLength)),
		),
	)
}

// outputOptionNames are validated by output.ParseOptions, which gives more
// precise messages than the schema would.
var outputOptionNames = []string{
	output.OptCompact,
	output.OptSummarize,
	output.OptLimit,
	output.OptMaxBodyLength,
	output.OptMaxLength,
}

// ArgSchema validates tool arguments against the tool's declared input
// schema with unknown properties rejected.
type ArgSchema struct {
	tool   string
	schema *jsonschema.Schema
}

// CompileArgSchema builds the argument validator for tool.
func CompileArgSchema(tool mcp.Tool) (*ArgSchema, error) {
	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema of %s: %w", tool.Name, err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode input schema of %s: %w", tool.Name, err)
	}
	doc["type"] = "object"
	doc["additionalProperties"] = false

	if props, ok := doc["properties"].(map[string]interface{}); ok {
		for _, name := range outputOptionNames {
			if _, declared := props[name]; declared {
				props[name] = map[string]interface{}{}
			}
		}
	}

	data, err = json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode argument schema of %s: %w", tool.Name, err)
	}

	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compile argument schema of %s: %w", tool.Name, err)
	}
	return &ArgSchema{tool: tool.Name, schema: schema}, nil
}

// Validate checks args. A failure is an *output.ValidationError.
func (s *ArgSchema) Validate(args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return &output.ValidationError{Message: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}

	result := s.schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}

	keys := make([]string, 0, len(result.Errors))
	for k := range result.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, result.Errors[k].Error())
	}
	return &output.ValidationError{
		Message: fmt.Sprintf("invalid arguments for %s: %s", s.tool, strings.Join(msgs, "; ")),
	}
}
