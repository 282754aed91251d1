// Package cmd implements the centyd command tree.
package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/centy-io/centy-daemon/pkg/logging"
)

// BuildInfo carries version metadata stamped at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var buildInfo BuildInfo

// Execute runs the root command with the given context.
func Execute(ctx context.Context, info BuildInfo) error {
	buildInfo = info
	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func newRootCommand() *cobra.Command {
	var logLevel string
	var logFormat string

	root := &cobra.Command{
		Use:   "centyd",
		Short: "Local-first issue and doc tracker daemon",
		Long: `centyd manages .centy directories inside your projects: it keeps
the managed structure reconciled with its manifest, stores issues and
docs as plain files, and serves a local HTTP API with real-time update
streams.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// A local .env is a convenience for development setups.
			_ = godotenv.Load()

			cfg := logging.DefaultConfig()
			if logLevel != "" {
				cfg.Level = logLevel
			}
			if logFormat != "" {
				cfg.Format = logFormat
			}
			logging.Configure(cfg)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())

	return root
}
