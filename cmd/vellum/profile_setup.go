package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vellum/internal/prof"
)

var profiler *prof.Profiler

func startProfiling(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	var cfg prof.Config
	cfg.CPU, _ = flags.GetString("cpuprofile")
	cfg.Mem, _ = flags.GetString("memprofile")
	cfg.Trace, _ = flags.GetString("exectrace")
	if !cfg.Enabled() {
		return nil
	}
	p, err := prof.Start(cfg)
	if err != nil {
		return fmt.Errorf("profiling: %w", err)
	}
	profiler = p
	return nil
}

// stopProfiling runs after Execute so profiles are written even when the
// command fails.
func stopProfiling() {
	if err := profiler.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "profiling: %v\n", err)
	}
	profiler = nil
}
