package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rblogdb/rblog"
	"github.com/rblogdb/rblog/config"
)

func newCompactCommand(rootOpts *rootOptions) *cobra.Command {
	var spaceID string

	cmd := &cobra.Command{
		Use:           "compact",
		Short:         "Snapshot a space and report compaction coverage",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(rootOpts, spaceID, cmd)
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "space to compact (required)")
	cmd.MarkFlagRequired("space")

	return cmd
}

func runCompact(rootOpts *rootOptions, spaceID string, cmd *cobra.Command) error {
	log, err := rblog.Open(rootOpts.DBDir, config.Default())
	if err != nil {
		return wrapExitError(exitCommandError, "open event log", err)
	}
	defer log.Close()

	report, err := log.Compact(context.Background(), spaceID)
	if err != nil {
		return wrapExitError(exitCommandError, "compact", err)
	}

	formatter := &outputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.success(report)
}
