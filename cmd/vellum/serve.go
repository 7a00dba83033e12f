package main

import (
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"vellum/internal/compiler"
	"vellum/internal/metrics"
	"vellum/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [main.vel]",
	Short: "Serve live previews over HTTP and websockets",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:7070", "listen address")
	serveCmd.Flags().StringSlice("origin", nil, "extra websocket origin patterns to accept")
	serveCmd.Flags().Bool("no-metrics", false, "do not expose /metrics")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	addr, _ := cmd.Flags().GetString("addr")
	origins, _ := cmd.Flags().GetStringSlice("origin")
	noMetrics, _ := cmd.Flags().GetBool("no-metrics")

	env, err := loadProject(cmd, log)
	if err != nil {
		return err
	}

	hub := server.NewHub(log)
	opts := env.sessionOptions(env.mainFile(args))
	opts.Publisher = hub
	opts.Tracer = tracer

	var reg *prom.Registry
	if !noMetrics {
		reg = prom.NewRegistry()
		opts.Metrics = metrics.NewPrometheusRecorder(reg)
	}
	svc := compiler.NewService(opts)
	if _, err := svc.Open(server.DefaultSession, nil); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Addr:           addr,
		Service:        svc,
		Hub:            hub,
		Registry:       reg,
		OriginPatterns: origins,
		Logger:         log,
	})
	log.Info("serving project", "root", env.root, "addr", addr)
	return srv.Run(ctx)
}
