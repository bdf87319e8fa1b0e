package output

// Default limits for response assembly.
// These are tuned for typical LLM context windows and Zendesk page sizes.
const (
	// DefaultLimit is the number of records returned when the caller does not ask for a limit.
	DefaultLimit = 10

	// DefaultMaxLimit is the per-tool ceiling applied when a tool does not declare its own.
	DefaultMaxLimit = 25

	// AbsoluteMaxLimit is the highest ceiling any tool may declare.
	AbsoluteMaxLimit = 50

	// DefaultMaxLength is the default envelope budget in bytes.
	DefaultMaxLength = 20000

	// AbsoluteMaxLength caps the envelope budget a caller can request.
	AbsoluteMaxLength = 100000

	// MinMaxLength is the smallest envelope budget accepted from a caller.
	MinMaxLength = 256

	// DefaultMaxBodyLength is the default per-field budget for long text fields.
	DefaultMaxBodyLength = 500

	// DefaultScanWindow is how far Bound looks backward for a record separator.
	DefaultScanWindow = 4096

	// DefaultMaxBuckets is the number of distinct values kept per breakdown before folding.
	DefaultMaxBuckets = 25

	// DefaultTopN is the number of ranked entries returned by summary mode.
	DefaultTopN = 10
)

// Config holds configuration for response assembly.
type Config struct {
	// DefaultLimit is used when a call carries no limit.
	// Default: 10
	DefaultLimit int `json:"defaultLimit" yaml:"defaultLimit"`

	// MaxLimit is the ceiling for tools that do not declare one.
	// Default: 25, Absolute max: 50
	MaxLimit int `json:"maxLimit" yaml:"maxLimit"`

	// MaxLength is the default envelope budget in bytes.
	// Default: 20000, Absolute max: 100000
	MaxLength int `json:"maxLength" yaml:"maxLength"`

	// MaxBodyLength clips long text fields (descriptions, comment bodies).
	// Default: 500. Zero disables clipping.
	MaxBodyLength int `json:"maxBodyLength" yaml:"maxBodyLength"`

	// ScanWindow bounds the backward search for a record separator.
	// Default: 4096
	ScanWindow int `json:"scanWindow" yaml:"scanWindow"`

	// MaxBuckets limits distinct values per summary breakdown.
	// Default: 25
	MaxBuckets int `json:"maxBuckets" yaml:"maxBuckets"`

	// RedactSecrets replaces values under sensitive keys with RedactedValue.
	// Default: true
	RedactSecrets bool `json:"redactSecrets" yaml:"redactSecrets"`
}

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultLimit:  DefaultLimit,
		MaxLimit:      DefaultMaxLimit,
		MaxLength:     DefaultMaxLength,
		MaxBodyLength: DefaultMaxBodyLength,
		ScanWindow:    DefaultScanWindow,
		MaxBuckets:    DefaultMaxBuckets,
		RedactSecrets: true,
	}
}

// Validate returns a copy with out-of-range values replaced or capped.
func (c *Config) Validate() *Config {
	validated := *c

	if validated.DefaultLimit <= 0 {
		validated.DefaultLimit = DefaultLimit
	}
	if validated.MaxLimit <= 0 {
		validated.MaxLimit = DefaultMaxLimit
	}
	if validated.MaxLength <= 0 {
		validated.MaxLength = DefaultMaxLength
	}
	if validated.MaxBodyLength < 0 {
		validated.MaxBodyLength = DefaultMaxBodyLength
	}
	if validated.ScanWindow <= 0 {
		validated.ScanWindow = DefaultScanWindow
	}
	if validated.MaxBuckets <= 0 {
		validated.MaxBuckets = DefaultMaxBuckets
	}

	validated.MaxLimit = min(validated.MaxLimit, AbsoluteMaxLimit)
	validated.MaxLength = max(min(validated.MaxLength, AbsoluteMaxLength), MinMaxLength)
	validated.DefaultLimit = min(validated.DefaultLimit, validated.MaxLimit)

	return &validated
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
