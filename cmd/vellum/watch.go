package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"vellum/internal/compiler"
	"vellum/internal/events"
	"vellum/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [main.vel]",
	Short: "Recompile whenever a project file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("ui", "auto", "interactive view (auto|on|off)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	log, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	env, err := loadProject(cmd, log)
	if err != nil {
		return err
	}
	mainFile := env.mainFile(args)

	sink := events.NewChan(64)
	opts := env.sessionOptions(mainFile)
	opts.Publisher = sink
	opts.Tracer = tracer
	sess := compiler.NewSession("watch", opts)
	defer sess.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watchTree(watcher, env.root); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &rebuilder{sess: sess, main: mainFile, log: log}
	if !useWatchView(mode, os.Stdout) {
		go w.loop(ctx, watcher, nil)
		return printEvents(ctx, cmd.OutOrStdout(), sink)
	}

	program := tea.NewProgram(ui.NewWatchModel(env.title(), sink.C()), tea.WithContext(ctx))
	go w.loop(ctx, watcher, program.Send)
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// rebuilder turns file events into compile requests for the main file.
type rebuilder struct {
	sess *compiler.Session
	main string
	log  *slog.Logger
}

func (r *rebuilder) submit(notify func(tea.Msg)) {
	content, err := os.ReadFile(r.main)
	if err != nil {
		r.log.Error("cannot read main file", "path", r.main, "err", err)
		return
	}
	id, err := r.sess.Submit(compiler.Request{Path: r.main, Content: string(content)})
	if err != nil {
		r.log.Error("submit failed", "err", err)
		return
	}
	if notify != nil {
		notify(ui.SubmittedMsg{ID: id, Path: filepath.Base(r.main)})
	}
}

func (r *rebuilder) loop(ctx context.Context, watcher *fsnotify.Watcher, notify func(tea.Msg)) {
	r.submit(notify)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("watch error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ignored(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, ev.Name); err != nil {
						r.log.Warn("cannot watch new directory", "path", ev.Name, "err", err)
					}
					continue
				}
			}
			r.log.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			r.sess.Invalidate(ev.Name)
			r.submit(notify)
		}
	}
}

// watchTree adds root and every non-hidden directory below it.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

func printEvents(ctx context.Context, out io.Writer, sink *events.Chan) error {
	okColor := color.New(color.FgGreen, color.Bold)
	errColor := color.New(color.FgRed, color.Bold)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sink.C():
			if ev.OK() {
				doc := ev.Document
				fmt.Fprintf(out, "%s #%d: %d %s, changed %v\n",
					okColor.Sprint("ok"), ev.RequestID, doc.Pages, pluralize(doc.Pages, "page"), doc.ChangedPages)
				continue
			}
			fmt.Fprintf(out, "%s #%d\n", errColor.Sprint("error"), ev.RequestID)
			for _, d := range ev.Diagnostics {
				fmt.Fprintf(out, "  %s %s: %s (chars %d..%d)\n", d.Severity, d.Code, d.Message, d.Range[0], d.Range[1])
				for _, h := range d.Hints {
					fmt.Fprintf(out, "    hint: %s\n", h)
				}
			}
		}
	}
}
