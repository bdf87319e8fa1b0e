package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// QueryMeta echoes what the caller asked for into the envelope.
type QueryMeta struct {
	Query  string
	Params map[string]interface{}

	// Warnings are copied into the envelope, e.g. when the upstream
	// collection was capped before assembly.
	Warnings []string
}

// Envelope is the bounded response returned to a caller.
type Envelope struct {
	Query       string                 `json:"query,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	TotalFound  int                    `json:"total_found"`
	Showing     int                    `json:"showing"`
	Mode        Mode                   `json:"mode"`
	CompactMode bool                   `json:"compact_mode"`
	Truncated   bool                   `json:"truncated"`
	Notice      string                 `json:"notice,omitempty"`
	Degraded    bool                   `json:"degraded,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	Items       []json.RawMessage      `json:"-"`
	PartialItem string                 `json:"partial_item,omitempty"`
	Summary     *Summary               `json:"summary,omitempty"`
}

type envelopeFields Envelope

// MarshalJSON writes items for record modes and omits them in summary mode.
func (e Envelope) MarshalJSON() ([]byte, error) {
	fields := envelopeFields(e)
	if e.Summary != nil {
		return json.Marshal(&fields)
	}
	items := e.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	return json.Marshal(struct {
		*envelopeFields
		Items []json.RawMessage `json:"items"`
	}{&fields, items})
}

// Metrics receives assembly outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordEnvelope(entity string, mode string, truncated, degraded bool)
}

// Assembler turns raw collections into bounded envelopes. It performs no I/O
// and is safe for concurrent use.
type Assembler struct {
	table   *ProjectionTable
	config  *Config
	metrics Metrics
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithMetrics reports every assembled envelope to m.
func WithMetrics(m Metrics) AssemblerOption {
	return func(a *Assembler) {
		a.metrics = m
	}
}

// NewAssembler creates an Assembler. Nil arguments fall back to the defaults.
func NewAssembler(table *ProjectionTable, config *Config, opts ...AssemblerOption) *Assembler {
	if table == nil {
		table = DefaultProjectionTable()
	}
	if config == nil {
		config = DefaultConfig()
	}
	a := &Assembler{table: table, config: config.Validate()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Table returns the projection table in use.
func (a *Assembler) Table() *ProjectionTable { return a.table }

// Config returns the validated configuration.
func (a *Assembler) Config() *Config { return a.config }

// Assemble renders raw into an envelope and its JSON encoding. Records are
// kept in the order given. The encoding never exceeds opts.MaxLength() bytes
// unless opts.Full() is set.
func (a *Assembler) Assemble(raw []Record, entity EntityType, opts *Options, meta QueryMeta) (*Envelope, []byte, error) {
	if opts == nil {
		opts = DefaultOptions(a.config)
	}

	env := &Envelope{
		Query:       meta.Query,
		Params:      meta.Params,
		Warnings:    append([]string(nil), meta.Warnings...),
		TotalFound:  len(raw),
		Mode:        opts.Mode(),
		CompactMode: opts.CompactMode(),
	}

	var data []byte
	var err error
	if opts.Mode() == ModeSummary {
		data, err = a.assembleSummary(env, raw, entity, opts)
	} else {
		data, err = a.assembleItems(env, raw, entity, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	if a.metrics != nil {
		a.metrics.RecordEnvelope(string(entity), string(env.Mode), env.Truncated, env.Degraded)
	}
	return env, data, nil
}

func (a *Assembler) assembleItems(env *Envelope, raw []Record, entity EntityType, opts *Options) ([]byte, error) {
	limit, err := ResolveLimit(opts.RequestedLimit(), opts.LimitSpec())
	if err != nil {
		return nil, err
	}
	window := raw[:min(limit, len(raw))]

	proj, known := a.table.Lookup(entity)
	mode := opts.Mode()
	if opts.Full() {
		mode = ModeFull
	}

	lines := make([]json.RawMessage, 0, len(window))
	warned := false
	for _, rec := range window {
		if a.config.RedactSecrets {
			rec = RedactSecrets(rec)
		}
		if !opts.Full() && known {
			rec, _ = ClipText(rec, proj.Text, opts.MaxBodyLength())
		}
		p, warn := a.table.Project(rec, entity, mode)
		if warn && !warned {
			warned = true
			env.Warnings = append(env.Warnings, fmt.Sprintf("no compact projection for entity type %q; records returned unchanged", entity))
		}
		line, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s record: %w", entity, err)
		}
		lines = append(lines, line)
	}

	if opts.Full() {
		return a.finish(env, lines, "")
	}

	if a.fitMeta(env, opts.MaxLength(), func(e *Envelope) int {
		return a.overhead(e, e.TotalFound) + len(Notice(e.TotalFound, e.TotalFound))
	}) {
		env.Truncated = true
	}

	reserve := 0
	if len(lines) < env.TotalFound {
		reserve = len(Notice(env.TotalFound, env.TotalFound))
	}
	budget := opts.MaxLength() - a.overhead(env, len(lines)) - reserve
	if budget <= 0 {
		return a.fallback(env, lines, opts.MaxLength())
	}

	block := string(bytes.Join(rawLines(lines), []byte{byte(RecordSeparator)}))
	bounded := Bound(block, budget, env.TotalFound, WithScanWindow(a.config.ScanWindow))

	partial := ""
	if bounded.Degraded {
		env.Degraded = true
		partial = partialRecord(bounded)
	}
	env.Truncated = env.Truncated || bounded.Truncated
	data, err := a.finish(env, lines[:bounded.Kept], "")
	if err != nil {
		return nil, err
	}
	if len(data) > opts.MaxLength() {
		return a.fallback(env, lines[:bounded.Kept], opts.MaxLength())
	}
	if partial != "" {
		return a.attachPartial(env, lines[:bounded.Kept], partial, opts.MaxLength(), data)
	}
	return data, nil
}

// finish sets the accounting fields and encodes the envelope.
func (a *Assembler) finish(env *Envelope, items []json.RawMessage, partial string) ([]byte, error) {
	env.Items = items
	env.Showing = len(items)
	env.PartialItem = partial
	env.Notice = ""
	if env.Truncated || env.Showing < env.TotalFound {
		env.Notice = Notice(env.Showing, env.TotalFound)
	}
	return encode(env)
}

func encode(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// overhead is the encoded size of env without items, with the widest notice
// and flags it can end up carrying, plus the separator Bound adds before the
// notice.
func (a *Assembler) overhead(env *Envelope, showing int) int {
	skeleton := *env
	skeleton.Items = nil
	skeleton.Showing = showing
	skeleton.Truncated = true
	skeleton.Degraded = true
	skeleton.Notice = ""
	data, err := json.Marshal(&skeleton)
	if err != nil {
		return 0
	}
	return len(data) + len(`,"notice":""`)
}

// ClippedSuffix marks an echoed query shortened to fit max_length.
const ClippedSuffix = "..."

// fitMeta shortens the echoed params, warnings and query until floor(env),
// the size of the smallest envelope the caller can still be given, fits in
// maxLength. It reports whether anything was removed.
func (a *Assembler) fitMeta(env *Envelope, maxLength int, floor func(*Envelope) int) bool {
	if floor(env) <= maxLength {
		return false
	}
	env.Params = nil
	for len(env.Warnings) > 0 && floor(env) > maxLength {
		env.Warnings = env.Warnings[:len(env.Warnings)-1]
	}
	if len(env.Warnings) == 0 {
		env.Warnings = nil
	}

	query := env.Query
	for over := floor(env) - maxLength; over > 0 && env.Query != ""; over = floor(env) - maxLength {
		query = query[:runeBoundary(query, max(len(query)-over-len(ClippedSuffix), 0))]
		if query == "" {
			env.Query = ""
			break
		}
		env.Query = query + ClippedSuffix
	}
	return true
}

// fallback drops records from the end until the envelope fits. fitMeta has
// already made room for an envelope with no records.
func (a *Assembler) fallback(env *Envelope, items []json.RawMessage, maxLength int) ([]byte, error) {
	env.Truncated = true
	for n := len(items); n >= 0; n-- {
		data, err := a.finish(env, items[:n], "")
		if err != nil {
			return nil, err
		}
		if len(data) <= maxLength {
			return data, nil
		}
	}
	return nil, fmt.Errorf("envelope for %d records does not fit max_length %d", env.TotalFound, maxLength)
}

// attachPartial adds the hard-cut fragment of the first dropped record,
// shortened until the envelope still fits.
func (a *Assembler) attachPartial(env *Envelope, items []json.RawMessage, partial string, maxLength int, fitted []byte) ([]byte, error) {
	for partial != "" {
		data, err := a.finish(env, items, partial)
		if err != nil {
			return nil, err
		}
		over := len(data) - maxLength
		if over <= 0 {
			return data, nil
		}
		partial = partial[:runeBoundary(partial, max(len(partial)-over, 0))]
	}
	env.PartialItem = ""
	return fitted, nil
}

// partialRecord extracts the unterminated tail of a hard-cut result.
func partialRecord(r BoundResult) string {
	body := strings.TrimSuffix(r.Text, r.Notice)
	body = strings.TrimSuffix(body, string(RecordSeparator))
	if i := strings.LastIndexByte(body, RecordSeparator); i >= 0 {
		body = body[i+1:]
	}
	return body
}

// Summary notices. summaryReducedNotice is kept short so that a count-only
// summary fits the smallest max_length.
const (
	summaryFoldedNotice  = "summary breakdowns folded to fit max_length; group on fewer fields or narrow the query"
	summaryReducedNotice = "summary reduced to fit max_length; narrow the query"
)

// assembleSummary shrinks the summary until the envelope fits: breakdown
// tails are folded, then the top list is dropped, then whole breakdowns from
// the end, then the fingerprint, leaving the count.
func (a *Assembler) assembleSummary(env *Envelope, raw []Record, entity EntityType, opts *Options) ([]byte, error) {
	spec := SummarySpec{TopNLimit: opts.LimitSpec()}
	if proj, ok := a.table.Lookup(entity); ok {
		spec = SummarySpecFor(proj)
		spec.TopNLimit = opts.LimitSpec()
	} else {
		env.Warnings = append(env.Warnings, fmt.Sprintf("no summary fields for entity type %q; only counts are reported", entity))
	}
	spec.TopN = opts.RequestedLimit()

	maxLength := opts.MaxLength()
	env.Showing = len(raw)
	if a.fitMeta(env, maxLength, func(e *Envelope) int { return countOnlySize(e, len(raw)) }) {
		env.Truncated = true
		env.Notice = summaryReducedNotice
	}

	for buckets := a.config.MaxBuckets; ; buckets /= 2 {
		spec.MaxBuckets = max(buckets, 1)
		summary, err := Summarize(raw, spec)
		if err != nil {
			return nil, err
		}
		env.Summary = summary
		data, err := encode(env)
		if err != nil {
			return nil, err
		}
		if len(data) <= maxLength {
			return data, nil
		}
		if buckets <= 1 {
			break
		}
		env.Truncated = true
		env.Notice = summaryFoldedNotice
	}

	env.Truncated = true
	env.Degraded = true
	env.Notice = summaryReducedNotice
	summary := env.Summary
	summary.Top = nil
	for {
		data, err := encode(env)
		if err != nil {
			return nil, err
		}
		if len(data) <= maxLength {
			return data, nil
		}
		if len(summary.Breakdown) == 0 {
			break
		}
		summary.Breakdown = summary.Breakdown[:len(summary.Breakdown)-1]
	}

	summary.Fingerprint = ""
	data, err := encode(env)
	if err != nil {
		return nil, err
	}
	if len(data) > maxLength {
		return nil, fmt.Errorf("summary of %d records does not fit max_length %d", len(raw), maxLength)
	}
	return data, nil
}

// countOnlySize is the encoded size of env reduced to a bare count.
func countOnlySize(env *Envelope, count int) int {
	reduced := *env
	reduced.Truncated = true
	reduced.Degraded = true
	reduced.Notice = summaryReducedNotice
	reduced.Summary = &Summary{Count: count, Breakdown: []Breakdown{}}
	data, err := json.Marshal(&reduced)
	if err != nil {
		return 0
	}
	return len(data)
}

func rawLines(lines []json.RawMessage) [][]byte {
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}
