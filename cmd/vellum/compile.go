package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vellum/internal/diag"
	"vellum/internal/diagfmt"
	"vellum/internal/layout"
	"vellum/internal/markup"
	"vellum/internal/observ"
	"vellum/internal/render"
	"vellum/internal/source"
	"vellum/internal/trace"
	"vellum/internal/world"
)

var errCompileFailed = errors.New("compilation failed")

var compileCmd = &cobra.Command{
	Use:   "compile [main.vel]",
	Short: "Compile a document once and optionally export its pages as SVG",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringP("out", "o", "", "directory to write page_NN.svg files into")
	compileCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
	compileCmd.Flags().Int8("context", 1, "source lines shown around each diagnostic")
	compileCmd.Flags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	compileCmd.Flags().Bool("timings", false, "print phase timings to stderr")
}

func runCompile(cmd *cobra.Command, args []string) error {
	log, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out")
	context, _ := cmd.Flags().GetInt8("context")
	maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
	showTimings, _ := cmd.Flags().GetBool("timings")
	switch format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or short)", format)
	}

	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
		defer func() { fmt.Fprint(cmd.ErrOrStderr(), timer.Summary()) }()
	}

	stop := timer.Start("load")
	env, err := loadProject(cmd, log)
	if err != nil {
		return err
	}
	stop(fmt.Sprintf("%d fonts", env.fonts.Book().Len()))

	stop = timer.Start("resolve")
	overlay := env.overlay()
	main := env.mainFile(args)
	id, err := overlay.Resolve(main)
	if err != nil {
		return fmt.Errorf("main file %s: %w", main, err)
	}
	overlay.SetMain(id)
	stop(id.String())

	stop = timer.Start("compile")
	span := trace.Begin(tracer, trace.ScopeJob, "compile", 0).WithExtra("main", id.String())
	res := markup.Compile(overlay)
	span.End(fmt.Sprintf("failed=%t", res.Failed()))
	stop(fmt.Sprintf("%d diagnostics", len(res.Diagnostics)))

	if err := printDiagnostics(cmd, env, overlay, res.Diagnostics, format, context, maxDiags); err != nil {
		return err
	}
	if res.Failed() {
		return errCompileFailed
	}

	doc := res.Document
	if outDir != "" {
		stop = timer.Start("export")
		if err := exportPages(outDir, doc); err != nil {
			return err
		}
		stop(fmt.Sprintf("%d pages", len(doc.Pages)))
	}
	size := doc.Size()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s, %gx%gpt, hash %s\n",
		id, len(doc.Pages), pluralize(len(doc.Pages), "page"), size.W, size.H, doc.Hash())
	return nil
}

func printDiagnostics(cmd *cobra.Command, env *projectEnv, overlay *world.Overlay, diags []diag.Diagnostic, format string, context int8, maxDiags int) error {
	if len(diags) == 0 {
		return nil
	}
	lookup := func(id source.VirtualID) *source.Source {
		src, err := overlay.Source(id)
		if err != nil {
			return nil
		}
		return src
	}
	shown := diags
	if maxDiags > 0 && len(shown) > maxDiags {
		shown = shown[:maxDiags]
	}

	out := cmd.ErrOrStderr()
	switch format {
	case "json":
		return diagfmt.JSON(cmd.OutOrStdout(), diags, lookup, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			Root:             env.root,
			Max:              maxDiags,
		})
	case "short":
		fmt.Fprintln(out, diag.FormatShort(shown, lookup, false))
	default:
		color, err := useColor(cmd)
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, shown, lookup, diagfmt.PrettyOpts{
			Color:    color,
			Context:  context,
			PathMode: diagfmt.PathModeAuto,
			Root:     env.root,
		})
	}
	if len(shown) < len(diags) {
		fmt.Fprintf(out, "... and %d more\n", len(diags)-len(shown))
	}
	return nil
}

func exportPages(dir string, doc *layout.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i := range doc.Pages {
		name := filepath.Join(dir, fmt.Sprintf("page_%02d.svg", i+1))
		if err := os.WriteFile(name, []byte(render.SVG(&doc.Pages[i])), 0o644); err != nil {
			return fmt.Errorf("export page %d: %w", i+1, err)
		}
	}
	return nil
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return strings.TrimSuffix(word, "s") + "s"
}
