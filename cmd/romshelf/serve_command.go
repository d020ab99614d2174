package main

import (
	"github.com/spf13/cobra"

	"romshelf/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var scanOnStart bool
	var development bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the romshelf daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
				ScanOnStart: scanOnStart,
			})
		},
	}

	cmd.Flags().BoolVar(&scanOnStart, "scan", false, "Scan the library once the API is listening")
	cmd.Flags().BoolVar(&development, "dev", false, "Development mode (debug gin routes, source locations in logs)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	return cmd
}
