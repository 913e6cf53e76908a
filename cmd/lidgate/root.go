package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sweeney/lidgate/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions holds global flags for all commands.
type rootOptions struct {
	LogLevel  string
	LogFormat string

	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lidgate",
		Short: "Switch-gated input suppression",
		Long: `lidgate watches lid switches and keeps the input devices bound to them
silent while the lid is closed. Lid changes are published to MQTT and the
current state is served over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{
				Level:  opts.LogLevel,
				Format: opts.LogFormat,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			opts.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "lidgate %s\n", version)
			return nil
		},
	}
}
