package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell/calsync/internal/scheduler"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile remote calendars",
	Long: `Run one reconciliation pass over every enabled provider, pulling remote
events for the next 30 days.

With --watch the pass repeats on the configured interval until interrupted.
Overlapping ticks are skipped, never queued.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolP("watch", "w", false, "Keep syncing on the configured interval")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	connectProviders(cmd)

	s := scheduler.New(coord, intCfg.SyncInterval, logger)

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		fmt.Printf("Watching, syncing every %s. Ctrl-C to stop.\n", intCfg.SyncInterval)
		s.Run(cmd.Context())
		return nil
	}

	if !s.RunOnce(cmd.Context()) {
		return fmt.Errorf("a sync pass is already in flight")
	}
	fmt.Println(okStyle.Render("✅ Sync pass complete"))
	return nil
}
