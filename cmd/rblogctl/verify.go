package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rblogdb/rblog"
	"github.com/rblogdb/rblog/config"
)

func newVerifyCommand(rootOpts *rootOptions) *cobra.Command {
	var spaceID string

	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Verify the hash chain of one space, or every space",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, spaceID, cmd)
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "space to verify (all spaces if omitted)")
	return cmd
}

func runVerify(rootOpts *rootOptions, spaceID string, cmd *cobra.Command) error {
	log, err := rblog.Open(rootOpts.DBDir, config.Default())
	if err != nil {
		return wrapExitError(exitCommandError, "open event log", err)
	}
	defer log.Close()

	report, err := log.VerifyIntegrity(context.Background(), spaceID)
	if err != nil {
		return wrapExitError(exitCommandError, "verify integrity", err)
	}

	formatter := &outputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.success(report); err != nil {
		return wrapExitError(exitCommandError, "write output", err)
	}

	if !report.Valid {
		return wrapExitError(exitFailure, "integrity check found a broken chain link", nil)
	}
	return nil
}
