package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tasksync/internal/adapter"
	"tasksync/internal/model"
	"tasksync/internal/utils"
)

// newTasksCmd groups the CRUD surface exposed through the hybrid facade,
// grounded on the teacher's cmd/gosynctasks/list.go and view.go.
func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, view, and edit tasks through the hybrid facade",
	}

	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksViewCmd())
	cmd.AddCommand(newTasksCreateCmd())
	cmd.AddCommand(newTasksDeleteCmd())

	return cmd
}

func outputTasks(format string, data interface{}) error {
	if format == "yaml" {
		return utils.OutputYAML(data)
	}
	return utils.OutputJSON(data)
}

func newTasksListCmd() *cobra.Command {
	var format string
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			var filter adapter.Filter
			if status != "" {
				s := model.Status(status)
				filter.Status = &s
			}

			tasks, err := sys.facade.GetTasks(context.Background(), filter)
			if err != nil {
				return err
			}
			return outputTasks(format, tasks)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newTasksViewCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "view <taskId>",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			ref, err := sys.facade.GetTask(context.Background(), args[0])
			if err != nil {
				return err
			}
			return outputTasks(format, ref.Task)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func newTasksCreateCmd() *cobra.Command {
	var title, description, priority string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}

			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			t := model.Task{
				Title:       title,
				Description: description,
				Status:      model.StatusPending,
				Priority:    model.Priority(priority),
			}
			created, err := sys.facade.CreateTask(context.Background(), t)
			if err != nil {
				return err
			}
			fmt.Printf("created task %d\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "", "task priority")
	return cmd
}

func newTasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <taskId>",
		Short: "Delete a task from both stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			if err := sys.facade.DeleteTask(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("task %s deleted\n", args[0])
			return nil
		},
	}
}
