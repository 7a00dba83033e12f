package markup

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"slices"
	"strings"

	"vellum/internal/diag"
	"vellum/internal/fonts"
	"vellum/internal/layout"
	"vellum/internal/source"
)

var headingScale = [...]layout.Pt{1: 1.8, 2: 1.5, 3: 1.3, 4: 1.15, 5: 1.05, 6: 1}

// evalFile parses and evaluates src with src's file on top of the include stack.
func (e *engine) evalFile(src *source.Source) {
	e.files = append(e.files, src.ID())
	defer func() { e.files = e.files[:len(e.files)-1] }()

	for _, b := range parse(src, e.rep) {
		if e.aborted {
			return
		}
		switch b := b.(type) {
		case *heading:
			e.heading(b)
		case *paragraph:
			e.paragraph(b)
		}
	}
}

func (e *engine) heading(h *heading) {
	var text strings.Builder
	for _, seg := range h.body {
		if seg.call == nil {
			text.WriteString(seg.text)
			continue
		}
		if !isInline(seg.call.name) {
			if _, known := functions[seg.call.name]; known {
				diag.ReportError(e.rep, diag.SynUnexpectedToken, seg.call.nameSpan,
					fmt.Sprintf("#%s cannot be used inside a heading", seg.call.name)).Emit()
				continue
			}
		}
		if s, ok := e.call(seg.call); ok {
			text.WriteString(s)
		}
	}
	if text.Len() == 0 {
		return
	}
	size := e.st.size * headingScale[h.level]
	e.gap(size * 0.8)
	runs := inlineRuns(e.md, text.String())
	if e.title == "" && h.level == 1 {
		e.title = plainText(runs)
	}
	e.lines(splitWords(runs, layout.Bold), size)
	e.y += size * 0.3
}

func (e *engine) paragraph(p *paragraph) {
	var text strings.Builder
	flush := func() {
		if strings.TrimSpace(text.String()) == "" {
			text.Reset()
			return
		}
		e.lines(splitWords(inlineRuns(e.md, text.String()), layout.Regular), e.st.size)
		e.gap(e.st.size * 0.6)
		text.Reset()
	}
	for _, seg := range p.body {
		if e.aborted {
			return
		}
		if seg.call == nil {
			text.WriteString(seg.text)
			continue
		}
		if isInline(seg.call.name) {
			if s, ok := e.call(seg.call); ok {
				text.WriteString(s)
			}
			continue
		}
		flush()
		e.call(seg.call)
	}
	flush()
}

func plainText(runs []run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.text)
	}
	return strings.TrimSpace(b.String())
}

type function struct {
	inline bool
	named  []string
	// positional is the number of accepted positional arguments.
	positional int
	run        func(e *engine, c *call) string
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"pagebreak": {run: (*engine).pagebreak},
		"include":   {positional: 1, run: (*engine).include},
		"image":     {positional: 1, named: []string{"width", "height", "alt"}, run: (*engine).image},
		"set":       {named: []string{"font", "size", "width", "height", "margin"}, run: (*engine).set},
		"v":         {positional: 1, run: (*engine).vspace},
		"line":      {named: []string{"thickness"}, run: (*engine).rule},
		"today":     {inline: true, named: []string{"offset"}, run: (*engine).today},
	}
}

func isInline(name string) bool {
	fn, ok := functions[name]
	return !ok || fn.inline
}

// call checks the arguments of c and runs it. Inline functions return their
// text with ok set.
func (e *engine) call(c *call) (string, bool) {
	fn, ok := functions[c.name]
	if !ok {
		diag.ReportError(e.rep, diag.SemUnknownFunction, c.nameSpan, fmt.Sprintf("unknown function %q", c.name)).
			WithHint("available: " + strings.Join(functionNames(), ", ")).
			Emit()
		return "", false
	}
	pos := 0
	for _, a := range c.args {
		if a.name == "" {
			pos++
			if pos > fn.positional {
				diag.ReportError(e.rep, diag.SemBadArgument, a.span, fmt.Sprintf("unexpected argument to #%s", c.name)).Emit()
				return "", false
			}
			continue
		}
		if !slices.Contains(fn.named, a.name) {
			diag.ReportError(e.rep, diag.SemBadArgument, a.span, fmt.Sprintf("unexpected argument %q to #%s", a.name, c.name)).Emit()
			return "", false
		}
	}
	out := fn.run(e, c)
	return out, fn.inline
}

func functionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (e *engine) pagebreak(*call) string {
	e.newPage()
	return ""
}

// stringArg returns the first positional argument as a string.
func (e *engine) stringArg(c *call, what string) (arg, bool) {
	a, ok := c.positional(0)
	if !ok {
		diag.ReportError(e.rep, diag.SemMissingArgument, c.span, fmt.Sprintf("missing argument: %s", what)).Emit()
		return arg{}, false
	}
	if a.val.kind != valStr {
		diag.ReportError(e.rep, diag.SemBadArgument, a.span, fmt.Sprintf("expected string, found %s", a.val.kind)).Emit()
		return arg{}, false
	}
	return a, true
}

// length converts a length argument to points.
func (e *engine) length(a arg) (layout.Pt, bool) {
	if a.val.kind != valLen {
		diag.ReportError(e.rep, diag.SemBadArgument, a.val.span, fmt.Sprintf("expected length, found %s", a.val.kind)).
			WithHint(fmt.Sprintf("try %spt", a.val)).
			Emit()
		return 0, false
	}
	n := layout.Pt(a.val.num)
	switch a.val.unit {
	case "mm":
		n *= layout.Mm
	case "cm":
		n *= layout.Cm
	case "in":
		n *= layout.In
	case "em":
		n *= e.st.size
	}
	return n, true
}

func (e *engine) positiveLength(a arg) (layout.Pt, bool) {
	n, ok := e.length(a)
	if ok && n <= 0 {
		diag.ReportError(e.rep, diag.SemBadArgument, a.val.span, "length must be positive").Emit()
		return 0, false
	}
	return n, ok
}

// resolve maps an include or image path to a file id relative to the current file.
func (e *engine) resolve(a arg) (source.VirtualID, bool) {
	id, err := e.file().Join(a.val.str)
	if err != nil {
		diag.ReportError(e.rep, diag.IOAccessDenied, a.val.span, fmt.Sprintf("invalid path %q: %v", a.val.str, err)).Emit()
		return source.VirtualID{}, false
	}
	return id, true
}

// fileError reports a World error at span. Cancellation stops evaluation.
func (e *engine) fileError(span source.Span, verb string, err error) {
	kind := KindOf(err)
	code := diag.IOLoadFileError
	switch kind {
	case Cancelled:
		e.aborted = true
		code = diag.IOCancelled
	case AccessDenied:
		code = diag.IOAccessDenied
	case PackageNotFound:
		code = diag.IOPackage
	case NotSource:
		code = diag.IONotSource
	}
	b := diag.ReportError(e.rep, code, span, fmt.Sprintf("cannot %s: %v", verb, err))
	if kind == PackageNotFound {
		b.WithHint("packages are read from the local package cache only")
	}
	b.Emit()
}

func (e *engine) include(c *call) string {
	a, ok := e.stringArg(c, "path")
	if !ok {
		return ""
	}
	id, ok := e.resolve(a)
	if !ok {
		return ""
	}
	if slices.Contains(e.files, id) {
		diag.ReportError(e.rep, diag.SemCyclicInclude, c.span, fmt.Sprintf("cyclic include of %s", id)).Emit()
		return ""
	}
	if len(e.files) >= maxIncludeDepth {
		diag.ReportError(e.rep, diag.SemCyclicInclude, c.span, "include depth limit exceeded").Emit()
		return ""
	}
	src, err := e.world.Source(id)
	if err != nil {
		e.fileError(a.val.span, "include "+id.String(), err)
		return ""
	}
	// #set inside an included file stays local to it
	saved := e.st
	e.evalFile(src)
	e.st = saved
	e.applyPageStyle()
	return ""
}

func (e *engine) image(c *call) string {
	a, ok := e.stringArg(c, "path")
	if !ok {
		return ""
	}
	id, ok := e.resolve(a)
	if !ok {
		return ""
	}
	data, err := e.world.File(id)
	if err != nil {
		e.fileError(a.val.span, "load image "+id.String(), err)
		return ""
	}

	format, natural, ok := probeImage(data)
	if !ok {
		diag.ReportError(e.rep, diag.SemBadImage, a.val.span, fmt.Sprintf("cannot decode image %s", id)).
			WithHint("supported formats are png, jpeg, gif and svg").
			Emit()
		return ""
	}

	size := natural
	if wa, ok := c.named("width"); ok {
		w, ok := e.positiveLength(wa)
		if !ok {
			return ""
		}
		size = layout.Size{W: w, H: w * natural.H / natural.W}
	}
	if ha, ok := c.named("height"); ok {
		h, ok := e.positiveLength(ha)
		if !ok {
			return ""
		}
		if _, hasW := c.named("width"); !hasW {
			size.W = h * natural.W / natural.H
		}
		size.H = h
	}
	if avail := e.textWidth(); size.W > avail {
		size = layout.Size{W: avail, H: size.H * avail / size.W}
	}
	alt := ""
	if aa, ok := c.named("alt"); ok && aa.val.kind == valStr {
		alt = aa.val.str
	}

	e.ensure(size.H)
	e.place(layout.Point{X: e.st.margin, Y: e.y}, layout.Image{Size: size, Format: format, Data: data, Alt: alt})
	e.y += size.H
	e.gap(e.st.size * 0.6)
	return ""
}

// probeImage detects the format and natural size in points (1px = 0.75pt).
func probeImage(data []byte) (string, layout.Size, bool) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return format, layout.Size{W: layout.Pt(cfg.Width) * 0.75, H: layout.Pt(cfg.Height) * 0.75}, true
	}
	head := data[:min(len(data), 512)]
	if bytes.Contains(head, []byte("<svg")) {
		return "svg", layout.Size{W: 150, H: 150}, true
	}
	return "", layout.Size{}, false
}

func (e *engine) set(c *call) string {
	for _, a := range c.args {
		switch a.name {
		case "font":
			if a.val.kind != valStr {
				diag.ReportError(e.rep, diag.SemBadArgument, a.val.span, fmt.Sprintf("expected string, found %s", a.val.kind)).Emit()
				continue
			}
			if book := e.world.Book(); book == nil || !book.Has(a.val.str) {
				diag.ReportWarning(e.rep, diag.SemUnknownFont, a.val.span, fmt.Sprintf("unknown font family: %s", a.val.str)).
					WithHint("falling back to " + fonts.DefaultFamily).
					Emit()
				e.st.family = fonts.DefaultFamily
				continue
			}
			e.st.family = a.val.str
		case "size":
			if n, ok := e.positiveLength(a); ok {
				e.st.size = n
			}
		case "width":
			if n, ok := e.positiveLength(a); ok {
				e.st.pageW = n
			}
		case "height":
			if n, ok := e.positiveLength(a); ok {
				e.st.pageH = n
			}
		case "margin":
			if n, ok := e.length(a); ok {
				e.st.margin = max(n, 0)
			}
		}
	}
	e.applyPageStyle()
	return ""
}

func (e *engine) vspace(c *call) string {
	a, ok := c.positional(0)
	if !ok {
		diag.ReportError(e.rep, diag.SemMissingArgument, c.span, "missing argument: amount").Emit()
		return ""
	}
	if n, ok := e.length(a); ok {
		e.empty = false
		e.y = max(e.y+n, e.st.margin)
		if e.y > e.st.pageH-e.st.margin {
			e.newPage()
		}
	}
	return ""
}

func (e *engine) rule(c *call) string {
	thickness := layout.Pt(0.5)
	if a, ok := c.named("thickness"); ok {
		n, ok := e.positiveLength(a)
		if !ok {
			return ""
		}
		thickness = n
	}
	h := e.st.size
	e.ensure(h)
	e.place(layout.Point{X: e.st.margin, Y: e.y + h/2}, layout.Shape{
		Kind:      layout.ShapeLine,
		Size:      layout.Size{W: e.textWidth()},
		Stroke:    layout.Black,
		Thickness: thickness,
	})
	e.y += h
	return ""
}

func (e *engine) today(c *call) string {
	var offset *int
	if a, ok := c.named("offset"); ok {
		if a.val.kind != valNum || a.val.num != float64(int(a.val.num)) {
			diag.ReportError(e.rep, diag.SemBadArgument, a.val.span, "offset must be a whole number of hours").Emit()
			return ""
		}
		n := int(a.val.num)
		offset = &n
	}
	t, ok := e.world.Today(offset)
	if !ok {
		diag.ReportError(e.rep, diag.SemBadArgument, c.span, "the current date is unavailable").Emit()
		return ""
	}
	return t.Format("2006-01-02")
}
