package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rblogdb/rblog"
	"github.com/rblogdb/rblog/config"
)

func newUsageCommand(rootOpts *rootOptions) *cobra.Command {
	var availableBytes int64

	cmd := &cobra.Command{
		Use:           "usage",
		Short:         "Report storage usage, optionally classified against a byte budget",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsage(rootOpts, availableBytes, cmd)
		},
	}

	cmd.Flags().Int64Var(&availableBytes, "budget-bytes", 0, "available storage budget; when > 0, also reports a pressure classification")
	return cmd
}

func runUsage(rootOpts *rootOptions, availableBytes int64, cmd *cobra.Command) error {
	log, err := rblog.Open(rootOpts.DBDir, config.Default())
	if err != nil {
		return wrapExitError(exitCommandError, "open event log", err)
	}
	defer log.Close()

	ctx := context.Background()
	report, err := log.GetStorageUsage(ctx)
	if err != nil {
		return wrapExitError(exitCommandError, "get storage usage", err)
	}

	formatter := &outputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	if availableBytes <= 0 {
		return formatter.success(report)
	}

	pressure, err := log.ClassifyPressure(ctx, availableBytes)
	if err != nil {
		return wrapExitError(exitCommandError, "classify pressure", err)
	}

	return formatter.success(map[string]any{"storage": report, "pressure": pressure})
}
