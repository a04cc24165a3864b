package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags shared by every subcommand.
type rootOptions struct {
	DBDir  string
	Format string
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rblogctl",
		Short: "rblogctl operates an rblog event log",
		Long:  "rblogctl is an operator CLI for an embedded rblog event log: integrity checks, archive export/import, compaction, and storage usage reporting.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBDir, "db-dir", ".", "directory containing the event log database")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newCompactCommand(opts))
	cmd.AddCommand(newUsageCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
