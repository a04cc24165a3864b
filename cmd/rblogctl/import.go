package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/rblogdb/rblog"
	"github.com/rblogdb/rblog/config"
)

func newImportCommand(rootOpts *rootOptions) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:           "import",
		Short:         "Import events from a .rblogs archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, in, cmd)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "archive path to import (required)")
	cmd.MarkFlagRequired("in")

	return cmd
}

func runImport(rootOpts *rootOptions, in string, cmd *cobra.Command) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return wrapExitError(exitCommandError, "read archive file", err)
	}

	log, err := rblog.Open(rootOpts.DBDir, config.Default())
	if err != nil {
		return wrapExitError(exitCommandError, "open event log", err)
	}
	defer log.Close()

	report, err := log.ImportArchive(context.Background(), data)
	if err != nil {
		return wrapExitError(exitCommandError, "import archive", err)
	}

	formatter := &outputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.success(report)
}
