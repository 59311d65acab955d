package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           "sqlowl",
		Short:         "Answer questions about a SQLite database with a language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			setupLogging(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newAskCmd(),
		newBenchCmd(),
		newWorkerCmd(),
		newTemporalWorkerCmd(),
	)
	return cmd
}
