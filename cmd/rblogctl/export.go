package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/rblogdb/rblog"
	"github.com/rblogdb/rblog/config"
)

func newExportCommand(rootOpts *rootOptions) *cobra.Command {
	var spaceID, before, out string

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Export a space's events into a .rblogs archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, spaceID, before, out, cmd)
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "space to export (required)")
	cmd.Flags().StringVar(&before, "before", "", "ISO-8601 instant; only events strictly before it are exported (required)")
	cmd.Flags().StringVar(&out, "out", "archive.rblogs", "output archive path")
	cmd.MarkFlagRequired("space")
	cmd.MarkFlagRequired("before")

	return cmd
}

func runExport(rootOpts *rootOptions, spaceID, before, out string, cmd *cobra.Command) error {
	log, err := rblog.Open(rootOpts.DBDir, config.Default())
	if err != nil {
		return wrapExitError(exitCommandError, "open event log", err)
	}
	defer log.Close()

	data, err := log.ExportArchive(context.Background(), spaceID, before)
	if err != nil {
		return wrapExitError(exitCommandError, "export archive", err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return wrapExitError(exitCommandError, "write archive file", err)
	}

	formatter := &outputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.success(map[string]any{"path": out, "bytes": len(data)})
}
