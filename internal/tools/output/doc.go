// Package output bounds MCP tool responses built from Zendesk collections.
//
// Zendesk searches and listings routinely return hundreds of records with long
// descriptions and comment bodies, far more than fits an LLM context window.
// This package turns any such collection into an [Envelope] whose encoded size
// never exceeds a byte budget, while telling the caller how much was left out.
//
// # Components
//
// [ResolveLimit] resolves a requested page size against a default and a
// ceiling, clamping out-of-range values instead of rejecting them.
//
// [ProjectionTable] maps each entity type to the fields kept in compact mode,
// the long text fields subject to max_body_length, and the fields grouped in
// summary mode. The default table is embedded; operators can supply their own
// YAML file.
//
// [Bound] cuts newline-separated records at a record boundary and appends a
// notice of the form "showing first k of n results; ...", counted inside the
// budget. A single record larger than the budget is hard-cut and flagged as
// degraded.
//
// [Summarize] computes counts, full partitions per field (with an "unknown"
// bucket) and a deterministic ranked top list.
//
// [Assembler] ties these together per call:
//
//	asm := output.NewAssembler(output.DefaultProjectionTable(), cfg)
//	opts, err := output.ParseOptions(args, output.OptionSpec{MaxLimit: 50}, cfg)
//	env, data, err := asm.Assemble(records, output.EntityTicket, opts, output.QueryMeta{Query: q})
//
// Secret-looking fields (tokens, passwords) are redacted before rendering.
package output
