package output

import (
	"fmt"
)

// Names of the per-call response options.
const (
	OptCompact       = "compact"
	OptSummarize     = "summarize"
	OptLimit         = "limit"
	OptMaxBodyLength = "max_body_length"
	OptMaxLength     = "max_length"
)

// OptionSpec describes the response options a tool accepts.
type OptionSpec struct {
	// MaxLimit is the tool's page size ceiling. Zero means the config MaxLimit.
	MaxLimit int

	// Full marks a *_full tool: no projection, clipping or byte budget.
	Full bool
}

// Options is the validated, immutable set of response options for one call.
type Options struct {
	mode          Mode
	limit         interface{}
	limitSpec     LimitSpec
	maxBodyLength int
	maxLength     int
	full          bool
}

// ParseOptions extracts and validates the response options from tool
// arguments. Keys it does not know are left to the tool's argument schema.
func ParseOptions(args map[string]interface{}, spec OptionSpec, cfg *Config) (*Options, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.Validate()

	ceiling := cfg.MaxLimit
	if spec.MaxLimit > 0 {
		ceiling = min(spec.MaxLimit, AbsoluteMaxLimit)
	}

	compact, err := boolArg(args, OptCompact)
	if err != nil {
		return nil, err
	}
	summarize, err := boolArg(args, OptSummarize)
	if err != nil {
		return nil, err
	}

	o := &Options{
		mode:          ModeFull,
		limit:         args[OptLimit],
		limitSpec:     LimitSpec{Default: min(cfg.DefaultLimit, ceiling), Max: ceiling},
		maxBodyLength: cfg.MaxBodyLength,
		maxLength:     cfg.MaxLength,
		full:          spec.Full,
	}

	switch {
	case spec.Full && (compact || summarize):
		return nil, &ValidationError{Field: OptCompact, Message: "full variants do not accept compact or summarize"}
	case summarize:
		o.mode = ModeSummary
	case compact:
		o.mode = ModeCompact
	}

	if _, err := ResolveLimit(o.limit, o.limitSpec); err != nil {
		return nil, err
	}

	if raw, ok := args[OptMaxBodyLength]; ok && raw != nil {
		n, err := asInteger(raw)
		if err != nil {
			return nil, &ValidationError{Field: OptMaxBodyLength, Message: err.Error()}
		}
		if n < 0 {
			return nil, &ValidationError{Field: OptMaxBodyLength, Message: "must be zero or positive"}
		}
		o.maxBodyLength = n
	}

	if raw, ok := args[OptMaxLength]; ok && raw != nil {
		n, err := asInteger(raw)
		if err != nil {
			return nil, &ValidationError{Field: OptMaxLength, Message: err.Error()}
		}
		o.maxLength = clamp(n, MinMaxLength, AbsoluteMaxLength)
	}

	return o, nil
}

// DefaultOptions returns options for callers that pass no arguments.
func DefaultOptions(cfg *Config) *Options {
	o, _ := ParseOptions(nil, OptionSpec{}, cfg)
	return o
}

// WithMode returns a copy of o rendering in mode. Tools use it when the
// shape is fixed by the operation rather than the caller.
func (o *Options) WithMode(mode Mode) *Options {
	c := *o
	c.mode = mode
	return &c
}

// Mode is the rendering mode; summarize wins over compact.
func (o *Options) Mode() Mode { return o.mode }

// CompactMode reports whether compact projection applies.
func (o *Options) CompactMode() bool { return o.mode == ModeCompact }

// RequestedLimit is the raw limit the caller sent, or nil.
func (o *Options) RequestedLimit() interface{} { return o.limit }

// LimitSpec is the default and ceiling the limit resolves against.
func (o *Options) LimitSpec() LimitSpec { return o.limitSpec }

// Limit is the effective limit.
func (o *Options) Limit() int {
	n, err := ResolveLimit(o.limit, o.limitSpec)
	if err != nil {
		return o.limitSpec.Default
	}
	return n
}

// MaxBodyLength is the per-field budget for long text fields; zero disables it.
func (o *Options) MaxBodyLength() int { return o.maxBodyLength }

// MaxLength is the envelope budget in bytes.
func (o *Options) MaxLength() int { return o.maxLength }

// Full reports whether projection, clipping and the byte budget are bypassed.
func (o *Options) Full() bool { return o.full }

func boolArg(args map[string]interface{}, key string) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, &ValidationError{Field: key, Message: fmt.Sprintf("must be a boolean, got %T", raw)}
	}
	return b, nil
}
