package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vellum/internal/ipc"
)

var ipcCmd = &cobra.Command{
	Use:   "ipc [main.vel]",
	Short: "Serve an editor over stdio JSON-RPC",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIPC,
}

func runIPC(cmd *cobra.Command, args []string) error {
	log, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	env, err := loadProject(cmd, log)
	if err != nil {
		return err
	}
	mainFile := env.mainFile(args)
	base := env.sessionOptions(mainFile)
	base.Tracer = tracer

	server, err := ipc.NewServer(os.Stdin, os.Stdout, ipc.ServerOptions{
		Base:   base,
		Root:   env.root,
		Main:   mainFile,
		Logger: log,
	})
	if err != nil {
		return err
	}
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, ipc.ErrExit) {
			return nil
		}
		if errors.Is(err, ipc.ErrExitWithoutShutdown) {
			return fmt.Errorf("ipc exit without shutdown")
		}
		return err
	}
	return nil
}
