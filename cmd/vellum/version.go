package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vellum/internal/version"
)

type versionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
	full     bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show vellum build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	var opts versionOptions
	flags := cmd.Flags()
	opts.format, _ = flags.GetString("format")
	opts.showHash, _ = flags.GetBool("hash")
	opts.showDate, _ = flags.GetBool("date")
	opts.full, _ = flags.GetBool("full")
	if opts.full {
		opts.showHash, opts.showDate = true, true
	}

	info := versionInfo{
		Version:   cmp.Or(strings.TrimSpace(version.Version), "dev"),
		GitCommit: strings.TrimSpace(version.GitCommit),
		BuildDate: strings.TrimSpace(version.BuildDate),
	}
	switch strings.ToLower(opts.format) {
	case "json":
		return renderVersionJSON(cmd.OutOrStdout(), info, opts)
	case "pretty":
		renderVersionPretty(cmd.OutOrStdout(), info, opts)
		return nil
	}
	return fmt.Errorf("unsupported format %q (must be pretty or json)", opts.format)
}

func renderVersionPretty(out io.Writer, info versionInfo, opts versionOptions) {
	fmt.Fprintf(out, "vellum %s\n", version.Colored())
	switch {
	case opts.full:
		for _, line := range version.Details() {
			fmt.Fprintln(out, line)
		}
	default:
		if opts.showHash {
			fmt.Fprintf(out, "commit %s\n", cmp.Or(info.GitCommit, "unknown"))
		}
		if opts.showDate {
			fmt.Fprintf(out, "built  %s\n", cmp.Or(info.BuildDate, "unknown"))
		}
	}
}

func renderVersionJSON(out io.Writer, info versionInfo, opts versionOptions) error {
	payload := versionPayload{Tool: "vellum", Version: info.Version}
	if opts.showHash {
		payload.GitCommit = cmp.Or(info.GitCommit, "unknown")
	}
	if opts.showDate {
		payload.BuildDate = cmp.Or(info.BuildDate, "unknown")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
