// Command rblogctl is an operator CLI for an rblog event log:
// integrity verification, archive export/import, compaction, and
// storage usage reporting.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(getExitCode(err))
	}
}
