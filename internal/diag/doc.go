// Package diag defines the diagnostic model shared by the markup compiler, the
// compile orchestrator and the printers.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: human oriented text; keep it short and actionable.
//   - Primary: the source.Span the problem points at. A span with an empty
//     range still names the file it belongs to.
//   - Hints: optional follow-up lines ("try ...") shown under the message.
//
// # Emitting diagnostics
//
// Producers report through a Reporter. The markup parser builds diagnostics
// with ReportError/ReportWarning and chains WithHint before Emit. A Collector
// drops repeated reports and sorts the rest by position.
//
// Package diag does no formatting beyond the single-line short form; terminal
// rendering lives in internal/diagfmt.
package diag
