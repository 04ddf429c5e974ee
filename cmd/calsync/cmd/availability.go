package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/calsync/internal/availability"
	"github.com/inkwell/calsync/internal/core"
)

var availabilityCmd = &cobra.Command{
	Use:     "availability",
	Aliases: []string{"busy"},
	Short:   "Show busy intervals across providers",
	Long: `Fetch busy intervals from every enabled provider for the given range.

Per-provider lists are shown raw, followed by the merged view. Gaps in the
output mean free time.`,
	RunE: runAvailability,
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Find open slots across providers",
	Long:  `Find slots of the given duration that are free on the merged calendars.`,
	RunE:  runSlots,
}

func init() {
	addRangeFlags(availabilityCmd)
	addRangeFlags(slotsCmd)
	slotsCmd.Flags().Duration("duration", 30*time.Minute, "Slot duration (e.g. 30m, 1h30m)")
	rootCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(slotsCmd)
}

func runAvailability(cmd *cobra.Command, args []string) error {
	start, end, err := rangeFromFlags(cmd)
	if err != nil {
		return err
	}

	connectProviders(cmd)
	perProvider := coord.GetArtistAvailability(cmd.Context(), start, end)

	if len(perProvider) == 0 {
		fmt.Println("No connected providers reported availability.")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("🗓  Busy %s to %s",
		start.Format("Jan 2 15:04"), end.Format("Jan 2 15:04"))))

	var all []core.Interval
	for name, intervals := range perProvider {
		fmt.Printf("\n%s\n", providerStyle.Render(name))
		if len(intervals) == 0 {
			fmt.Println(mutedStyle.Render("  (free)"))
			continue
		}
		for _, iv := range intervals {
			fmt.Printf("  %s %s\n",
				timeStyle.Render(iv.Start.Format("Jan 2 15:04")),
				iv.End.Format("Jan 2 15:04"))
		}
		all = append(all, intervals...)
	}

	merged := availability.MergeBusy(all)
	fmt.Printf("\n%s\n", providerStyle.Render("merged"))
	if len(merged) == 0 {
		fmt.Println(mutedStyle.Render("  (free)"))
	}
	for _, slot := range merged {
		fmt.Printf("  %s %s\n",
			timeStyle.Render(slot.Start.Format("Jan 2 15:04")),
			slot.End.Format("Jan 2 15:04"))
	}
	return nil
}

func runSlots(cmd *cobra.Command, args []string) error {
	start, end, err := rangeFromFlags(cmd)
	if err != nil {
		return err
	}
	duration, _ := cmd.Flags().GetDuration("duration")
	if duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	connectProviders(cmd)
	slots := coord.FindAvailableSlots(cmd.Context(), duration, start, end)

	if len(slots) == 0 {
		fmt.Println("No open slots in that range.")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("🕐 Open %s slots", duration)))
	for _, slot := range slots {
		fmt.Printf("  %s %s\n",
			timeStyle.Render(slot.Start.Format("Jan 2 15:04")),
			slot.End.Format("Jan 2 15:04"))
	}
	fmt.Printf("\nTotal: %d slots\n", len(slots))
	return nil
}
