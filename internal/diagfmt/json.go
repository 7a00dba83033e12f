package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"vellum/internal/diag"
	"vellum/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Hints    []string     `json:"hints,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
}

func makeLocation(span source.Span, lookup diag.SourceLookup, opts JSONOpts) LocationJSON {
	loc := LocationJSON{
		File:      formatPath(span.ID, opts.PathMode, opts.Root),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if !opts.IncludePositions || lookup == nil {
		return loc
	}
	src := lookup(span.ID)
	if src == nil {
		return loc
	}
	if _, _, ok := src.Range(span); !ok {
		return loc
	}
	startPos, endPos := src.LineCol(span.Start), src.LineCol(span.End)
	loc.StartLine = startPos.Line
	loc.StartCol = startPos.Col
	loc.EndLine = endPos.Line
	loc.EndCol = endPos.Col
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
// Count is the number of entries written; Errors counts every error in diags.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, lookup diag.SourceLookup, opts JSONOpts) DiagnosticsOutput {
	maxItems := len(diags)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, maxItems)}
	for i := range diags {
		d := &diags[i]
		if d.Severity == diag.SevError {
			out.Errors++
		}
		if i >= maxItems {
			continue
		}
		out.Diagnostics = append(out.Diagnostics, DiagnosticJSON{
			Severity: strings.ToLower(d.Severity.String()),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, lookup, opts),
			Hints:    d.Hints,
		})
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, diags []diag.Diagnostic, lookup diag.SourceLookup, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(diags, lookup, opts))
}
