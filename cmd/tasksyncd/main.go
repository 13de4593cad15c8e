// Command tasksyncd is the CLI entrypoint for the hybrid task sync engine:
// local file-backed store <-> remote board-based store, with conflict
// resolution, an offline queue, and a live connectivity-aware status view.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/credentials"
	"tasksync/internal/telemetry"
)

func main() {
	if err := credentials.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: .env load failed: %v\n", err)
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if suggestion, ok := err.(*telemetry.ErrorWithSuggestion); ok {
			fmt.Fprintln(os.Stderr, suggestion.Error())
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tasksyncd",
		Short: "Hybrid task sync engine: local file store <-> remote board",
		Long: `tasksyncd keeps a local JSON task document and a remote board-based
task tracker in sync, detecting and resolving conflicts, queuing writes
made while offline, and reporting connectivity changes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			telemetry.Get().SetVerbose(verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newQueueCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}

func loadConfigOrExit() *config.Config {
	return config.Get()
}
