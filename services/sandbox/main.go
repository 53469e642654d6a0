package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yangrchen/actor-runner/pkg/logging"
	"github.com/yangrchen/actor-runner/pkg/sandbox"
	"github.com/yangrchen/actor-runner/pkg/server"
)

func main() {
	var addr, catalogPath, prefix, logLevel string
	cmd := &cobra.Command{
		Use:          "sandbox",
		Short:        "Serve an in-memory emulation of the actor platform API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(logLevel, "text", os.Stderr)
			entry := logging.Component(logger, "sandbox")

			catalog, err := sandbox.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}

			e := server.New(entry)
			sandbox.New(catalog, entry).Register(e, prefix)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			entry.WithField("actors", len(catalog.Actors)).Info("Catalog loaded")
			return server.Serve(ctx, e, addr, entry)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8081", "listen address")
	cmd.Flags().StringVar(&catalogPath, "catalog", "sandbox.yaml", "path to the YAML actor catalog")
	cmd.Flags().StringVar(&prefix, "prefix", "/v2", "path prefix of the emulated API")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
