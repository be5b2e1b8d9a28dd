// Command minerd is a minimal host program for the filesystem metadata
// mining pipeline: it wires a real crawler, monitor, and store backend to
// pkg/miner.Miner and exposes the host surface (add-directory,
// remove-directory, set-throttle, status) as cobra subcommands, standing in
// for the daemon/DBus surface spec.md places out of scope.
package main

import (
	"github.com/spf13/cobra"

	"github.com/localmesh/fsminer/internal/cmdutil"
)

var rootCommand = &cobra.Command{
	Use:   "minerd",
	Short: "minerd indexes filesystem metadata into a semantic store",
}

var rootConfiguration struct {
	configPath string
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.configPath, "config", "minerd.yml", "path to the YAML configuration file")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		runCommand,
		addDirectoryCommand,
		removeDirectoryCommand,
		setThrottleCommand,
		statusCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		cmdutil.Fatal(err)
	}
}
