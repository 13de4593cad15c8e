package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tasksync/internal/syncengine"
)

// newSyncCmd creates the sync command with its conflict subcommands,
// grounded on the teacher's newSyncCmd (cmd/gosynctasks/sync.go) Use/Short/
// Long/Examples shape.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [taskId]",
		Short: "Synchronize the local store with the remote board",
		Long: `Synchronize performs a full bidirectional sync pass between the local
file-backed store and the remote board by default. Pass a task id to sync
a single task instead.

Examples:
  tasksyncd sync            # full bidirectional sync
  tasksyncd sync 42         # sync task 42 only
  tasksyncd sync conflicts  # list unresolved conflicts
  tasksyncd sync resolve 42 --strategy local-wins`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			ctx := context.Background()

			if len(args) == 1 {
				var id int64
				if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
					return fmt.Errorf("invalid task id %q: %w", args[0], err)
				}
				result, err := sys.engine.SyncTask(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("task %d: %s (success=%v)\n", id, result.Action, result.Success)
				return nil
			}

			result, err := sys.engine.SyncAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("local->remote: %d created, %d updated\n", result.LocalToRemote.Created, result.LocalToRemote.Updated)
			fmt.Printf("remote->local: %d created, %d updated\n", result.RemoteToLocal.Created, result.RemoteToLocal.Updated)
			fmt.Printf("conflicts: %d detected, %d resolved, %d remaining\n", result.Conflicts.Detected, result.Conflicts.Resolved, result.Conflicts.Remaining)
			fmt.Printf("finished in %dms\n", result.DurationMs)
			return nil
		},
	}

	cmd.AddCommand(newConflictsCmd())
	cmd.AddCommand(newResolveCmd())

	return cmd
}

func newConflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List unresolved conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			conflicts := sys.engine.Conflicts()
			if len(conflicts) == 0 {
				fmt.Println("no unresolved conflicts")
				return nil
			}
			for _, c := range conflicts {
				fmt.Printf("task %d: detected %s, local=%q remote=%q\n",
					c.TaskID, c.DetectedAt.Format("2006-01-02T15:04:05"), c.LocalSnapshot.Title, c.RemoteSnapshot.Title)
			}
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "resolve <taskId>",
		Short: "Resolve a pending conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid task id %q: %w", args[0], err)
			}

			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			if err := sys.engine.ResolveConflict(context.Background(), id, syncengine.Strategy(strategy)); err != nil {
				return err
			}
			fmt.Printf("task %d resolved via %s\n", id, strategy)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "local-wins", "local-wins, remote-wins, or newest-wins")
	return cmd
}
