package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newQueueCmd exposes the offline queue's operator interface, grounded on
// the teacher's cmd/gosynctasks subcommand-factory style.
func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline write queue",
	}

	cmd.AddCommand(newQueueLenCmd())
	cmd.AddCommand(newQueueDeadLetterCmd())
	cmd.AddCommand(newQueueRequeueCmd())
	cmd.AddCommand(newQueueDropCmd())

	return cmd
}

func newQueueLenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "len",
		Short: "Print the number of entries currently queued",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			n, err := sys.queue.Len(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func newQueueDeadLetterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dead-letter",
		Short: "List entries that exhausted their retry budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			entries, err := sys.queue.ListDeadLetter(context.Background())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no dead-lettered entries")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  task=%d  op=%s  retries=%d  last_error=%q\n",
					e.ID, e.TaskID, e.Operation, e.RetryCount, e.LastError)
			}
			return nil
		},
	}
}

func newQueueRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <entryId>",
		Short: "Clear dead-letter status and retry an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			if err := sys.queue.Requeue(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s requeued\n", args[0])
			return nil
		},
	}
}

func newQueueDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <entryId>",
		Short: "Permanently discard a dead-lettered entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			if err := sys.queue.Drop(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s dropped\n", args[0])
			return nil
		},
	}
}
