package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yangrchen/actor-runner/pkg/config"
	"github.com/yangrchen/actor-runner/pkg/logging"
	"github.com/yangrchen/actor-runner/pkg/server"
)

type flags struct {
	configPath    string
	addr          string
	baseURL       string
	featuredActor string
	logLevel      string
	logFormat     string
	maxPolls      int
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "gateway",
		Short:         "HTTP gateway between the actor dashboard and the actor platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (default :$PORT or :8080)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "platform API base URL (defaults to APIFY_BASE_URL)")
	cmd.Flags().StringVar(&f.featuredActor, "featured-actor", "", "public actor added to every listing; empty disables it")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	cmd.Flags().IntVar(&f.maxPolls, "max-polls", 0, "status checks before a run is reported as timed out")
	return cmd
}

// loadConfig layers flags the user set over the file and environment.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	set := cmd.Flags().Changed
	if set("addr") {
		cfg.Addr = f.addr
	}
	if set("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if set("featured-actor") {
		cfg.FeaturedActor = f.featuredActor
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if set("max-polls") {
		cfg.MaxPolls = f.maxPolls
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	g := newGateway(cfg, logger)
	e := newServer(g, cfg)

	g.log.WithFields(log.Fields{
		"base_url":      cfg.BaseURL,
		"poll_interval": cfg.PollInterval,
		"max_polls":     cfg.MaxPolls,
	}).Info("Starting gateway")
	return server.Serve(ctx, e, cfg.Addr, g.log)
}
