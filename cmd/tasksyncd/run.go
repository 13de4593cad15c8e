package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tasksync/internal/autosync"
)

// newRunCmd starts tasksyncd as a long-running daemon: the connectivity
// monitor probes the remote board, the auto-sync driver runs a full sync
// pass every syncInterval and drains the offline queue immediately on
// reconnect, and the process blocks until SIGINT/SIGTERM. One-shot
// subcommands (sync, tasks, queue) each build and tear down their own
// system; run is the only subcommand that keeps one alive.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the connectivity monitor and auto-sync driver as a daemon",
		Long: `run keeps tasksyncd alive in the foreground, periodically syncing the
local and remote stores and draining the offline queue as soon as
connectivity is restored. Disabled by persistence.autoSync=false in
config.json, in which case run still monitors connectivity but performs
no periodic or reconnect-triggered sync.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			driver := autosync.New(sys.facade, cfg.SyncInterval(), cfg.Persistence.AutoSync)
			sys.withConnectivity(driver.HandleTransition)
			driver.Start()
			defer driver.Stop()

			fmt.Println("tasksyncd running, press ctrl+c to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			fmt.Println("\nshutting down")
			return nil
		},
	}
}
