// Package cmdutil provides small process-entry helpers shared by the
// minerd command tree, following the host program's error-reporting
// conventions rather than letting Cobra print raw Go errors.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal prints an error message to standard error and terminates the
// process with a non-zero exit code.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Mainify wraps a Cobra entry point that returns an error into the standard
// Cobra RunE-less signature, calling Fatal on failure. It exists so entry
// points can still rely on defer-based cleanup (os.Exit skips deferred
// calls, so we only invoke it after the entry point itself has returned).
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}
