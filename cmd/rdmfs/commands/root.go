// Package commands implements the rdmfs CLI surface (spec.md §6).
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rdmfs mountpoint",
	Short: "Mount a remote research-data-management project as a filesystem",
	Long: `rdmfs mounts a remote OSF-like research-data-management service —
projects, their attached storage providers, and nested folders/files — as a
POSIX filesystem at the given mountpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// usageError carries the exit code spec.md §6 assigns to
// mutually-exclusive-flag violations and a missing project selector.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }
func (e *usageError) ExitCode() int { return 2 }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
