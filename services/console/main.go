package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yangrchen/actor-runner/pkg/apiclient"
	"github.com/yangrchen/actor-runner/pkg/console"
	"github.com/yangrchen/actor-runner/pkg/logging"
	"github.com/yangrchen/actor-runner/pkg/utils"
)

type rootFlags struct {
	token     string
	gateway   string
	logLevel  string
	exportDir string
}

var rf rootFlags

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "actorctl",
		Short:         "Browse, configure and run platform actors from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}

	gatewayURL := os.Getenv("ACTOR_GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&rf.token, "token", os.Getenv("APIFY_TOKEN"), "API token (defaults to APIFY_TOKEN)")
	cmd.PersistentFlags().StringVar(&rf.gateway, "gateway", gatewayURL, "gateway URL (defaults to ACTOR_GATEWAY_URL)")
	cmd.PersistentFlags().StringVar(&rf.logLevel, "log-level", "warn", "log level")
	cmd.PersistentFlags().StringVar(&rf.exportDir, "export-dir", ".", "directory downloads are written to")

	cmd.AddCommand(&cobra.Command{
		Use:   "interactive",
		Short: "Start the interactive session (default)",
		RunE:  runInteractive,
	})
	cmd.AddCommand(actorsCmd(), schemaCmd(), metadataCmd(), runCmd())
	return cmd
}

func client() *apiclient.Client {
	return apiclient.NewClient(rf.gateway)
}

func requireToken() (string, error) {
	if rf.token == "" {
		return "", fmt.Errorf("missing --token (or set APIFY_TOKEN)")
	}
	return rf.token, nil
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	logger := logging.New(rf.logLevel, "text", os.Stderr)
	out := cmd.OutOrStdout()
	app := console.NewApp(client(), console.NewSurveyDriver(out), out,
		console.WithExportDir(rf.exportDir),
		console.WithAppLogger(logging.Component(logger, "console")),
	)
	return app.Run(ctx(cmd), rf.token)
}

func actorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actors",
		Short: "List the actors available to the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := requireToken()
			if err != nil {
				return err
			}
			actors, err := client().ListActors(ctx(cmd), token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range actors {
				fmt.Fprintf(out, "%s\t%s\n", a.ID, a.DisplayName())
			}
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <actor-id>",
		Short: "Print an actor's input schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := requireToken()
			if err != nil {
				return err
			}
			schema, err := client().Schema(ctx(cmd), token, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, schema)
		},
	}
}

func metadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <actor-id>",
		Short: "Print an actor's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := requireToken()
			if err != nil {
				return err
			}
			meta, err := client().Metadata(ctx(cmd), token, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, meta)
		},
	}
}

func runCmd() *cobra.Command {
	var inputPath, format string
	var download bool
	cmd := &cobra.Command{
		Use:   "run <actor-id>",
		Short: "Run an actor and print its dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := requireToken()
			if err != nil {
				return err
			}
			input := json.RawMessage("{}")
			if inputPath != "" {
				b, err := os.ReadFile(inputPath)
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				if !json.Valid(b) {
					return fmt.Errorf("%s is not valid JSON", inputPath)
				}
				input = b
			}

			res, err := client().Run(ctx(cmd), token, args[0], input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished [%s]\n", res.RunID, console.Badge(len(res.Data)))
			if format == "json" {
				err = console.RenderJSON(out, res.Data)
			} else {
				err = console.RenderTable(out, res.Data)
			}
			if err != nil || !download {
				return err
			}
			path, err := utils.ExportResults(rf.exportDir, args[0], res.Data)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Saved results to", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a JSON input file")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table or json")
	cmd.Flags().BoolVar(&download, "download", false, "also write the results to the export directory")
	return cmd
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
