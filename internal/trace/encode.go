package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format is the on-disk event encoding.
type Format uint8

const (
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format %q (expected auto|text|ndjson)", s)
}

func formatForPath(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".json") {
		return FormatNDJSON
	}
	return FormatText
}

func encode(buf *bytes.Buffer, ev *Event, format Format) {
	if format == FormatNDJSON {
		encodeJSON(buf, ev)
		return
	}
	encodeText(buf, ev)
}

var kindMarks = [...]string{"", ">", "<", "*", "~"}

// encodeText writes one line:
//
//	15:04:05.000 job      < job#3 12.5ms (published) request=7
func encodeText(buf *bytes.Buffer, ev *Event) {
	buf.WriteString(ev.At.Format("15:04:05.000"))
	buf.WriteByte(' ')
	fmt.Fprintf(buf, "%-8s ", ev.Scope)
	if ev.Scope > ScopeJob {
		buf.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeJob)))
	}
	if int(ev.Kind) < len(kindMarks) {
		buf.WriteString(kindMarks[ev.Kind])
	}
	buf.WriteByte(' ')
	buf.WriteString(ev.Name)
	if ev.Span != 0 {
		buf.WriteByte('#')
		buf.WriteString(strconv.FormatUint(ev.Span, 10))
	}
	if ev.Kind == KindEnd {
		buf.WriteByte(' ')
		buf.WriteString(ev.Elapsed.Round(time.Microsecond).String())
	}
	if ev.Detail != "" {
		buf.WriteString(" (")
		buf.WriteString(ev.Detail)
		buf.WriteByte(')')
	}
	for _, a := range ev.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(a.Value)
	}
	buf.WriteByte('\n')
}

type jsonEvent struct {
	At        string            `json:"at"`
	Seq       uint64            `json:"seq"`
	Kind      string            `json:"kind"`
	Scope     string            `json:"scope"`
	Span      uint64            `json:"span,omitempty"`
	Parent    uint64            `json:"parent,omitempty"`
	Name      string            `json:"name"`
	Detail    string            `json:"detail,omitempty"`
	ElapsedUS int64             `json:"elapsed_us,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

func encodeJSON(buf *bytes.Buffer, ev *Event) {
	out := jsonEvent{
		At:        ev.At.Format(time.RFC3339Nano),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		Span:      ev.Span,
		Parent:    ev.Parent,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedUS: ev.Elapsed.Microseconds(),
	}
	if len(ev.Attrs) > 0 {
		out.Attrs = make(map[string]string, len(ev.Attrs))
		for _, a := range ev.Attrs {
			out.Attrs[a.Key] = a.Value
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	buf.Write(data)
	buf.WriteByte('\n')
}
