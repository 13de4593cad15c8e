package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/utils"
)

// newInitCmd writes the sample config to its on-disk location, grounded on
// the teacher's PromptYesNo confirmation idiom (internal/utils/inputs.go)
// for overwrite confirmation.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(path); statErr == nil && !force {
				if !utils.PromptYesNo(fmt.Sprintf("%s already exists. Overwrite?", path)) {
					fmt.Println("aborted")
					return nil
				}
			}

			if err := config.WriteFile(path, config.SampleConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config without prompting")
	return cmd
}
