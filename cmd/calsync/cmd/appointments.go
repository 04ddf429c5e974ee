package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkwell/calsync/internal/core"
	"github.com/inkwell/calsync/internal/util"
)

const apptTimeLayout = "2006-01-02 15:04"

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Mirror an appointment to every enabled provider",
	Long: `Project an appointment into a calendar event and create it on every
enabled provider. Providers reporting conflicts are handled by the
configured conflict policy (manual, auto or skip).`,
	RunE: runBook,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Check an appointment window for conflicts",
	Long: `Check whether an appointment window collides with existing remote events.
Read-only: nothing is written to any calendar. Providers without conflicts
are omitted from the output.`,
	RunE: runConflicts,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <provider> <event-id> <keep_local|keep_remote|merge>",
	Short: "Resolve a detected conflict on one provider",
	Args:  cobra.ExactArgs(3),
	RunE:  runResolve,
}

func init() {
	for _, c := range []*cobra.Command{bookCmd, conflictsCmd} {
		c.Flags().String("service", "", "Service name (required)")
		c.Flags().String("client", "", "Client name (required)")
		c.Flags().String("client-email", "", "Client email address")
		c.Flags().String("staff", "", "Staff name")
		c.Flags().String("staff-email", "", "Staff email address")
		c.Flags().String("start", "", "Start time (YYYY-MM-DD HH:MM, required)")
		c.Flags().String("end", "", "End time (YYYY-MM-DD HH:MM, required)")
		c.Flags().String("location", "", "Location")
		c.Flags().String("notes", "", "Notes for the event description")
		c.MarkFlagRequired("service")
		c.MarkFlagRequired("client")
		c.MarkFlagRequired("start")
		c.MarkFlagRequired("end")
	}
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(resolveCmd)
}

func appointmentFromFlags(cmd *cobra.Command) (core.Appointment, error) {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	start, err := time.ParseInLocation(apptTimeLayout, get("start"), time.Local)
	if err != nil {
		return core.Appointment{}, fmt.Errorf("invalid --start (want YYYY-MM-DD HH:MM): %w", err)
	}
	end, err := time.ParseInLocation(apptTimeLayout, get("end"), time.Local)
	if err != nil {
		return core.Appointment{}, fmt.Errorf("invalid --end (want YYYY-MM-DD HH:MM): %w", err)
	}
	if !end.After(start) {
		return core.Appointment{}, fmt.Errorf("--end must be after --start")
	}

	return core.Appointment{
		ID:          uuid.New().String(),
		ServiceName: get("service"),
		ClientName:  get("client"),
		ClientEmail: get("client-email"),
		StaffName:   get("staff"),
		StaffEmail:  get("staff-email"),
		Start:       start,
		End:         end,
		Location:    get("location"),
		Notes:       get("notes"),
	}, nil
}

func runBook(cmd *cobra.Command, args []string) error {
	appt, err := appointmentFromFlags(cmd)
	if err != nil {
		return err
	}

	connectProviders(cmd)
	results := coord.SyncAppointmentToCalendars(cmd.Context(), appt)

	fmt.Println(headerStyle.Render("📌 " + appt.ServiceName + " - " + appt.ClientName))

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		res := results[name]
		switch {
		case res.Success:
			fmt.Printf("  %s %s (event %s)\n",
				okStyle.Render("✓"), name, res.ExternalID)
		case len(res.Conflicts) > 0:
			failed++
			fmt.Printf("  %s %s: %s\n", warnStyle.Render("!"), name, res.Error)
			for _, c := range res.Conflicts {
				fmt.Printf("      %s %s (%s to %s)\n",
					mutedStyle.Render("conflicts with"), util.TruncateText(c.Title, 48),
					c.Start.Format(apptTimeLayout), c.End.Format(apptTimeLayout))
			}
		default:
			failed++
			fmt.Printf("  %s %s: %s\n", errStyle.Render("✗"), name, res.Error)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(results))
	}
	return nil
}

func runConflicts(cmd *cobra.Command, args []string) error {
	appt, err := appointmentFromFlags(cmd)
	if err != nil {
		return err
	}

	connectProviders(cmd)
	conflicts := coord.DetectConflictsForAppointment(cmd.Context(), appt)

	if len(conflicts) == 0 {
		fmt.Println(okStyle.Render("✅ No conflicts on any provider"))
		return nil
	}

	for name, list := range conflicts {
		fmt.Printf("%s\n", providerStyle.Render(name))
		for _, c := range list {
			fmt.Printf("  %s %s (%s to %s)\n",
				warnStyle.Render("!"), util.TruncateText(c.Title, 48),
				c.Start.Format(apptTimeLayout), c.End.Format(apptTimeLayout))
			fmt.Printf("    %s\n", mutedStyle.Render(c.Suggestion))
			fmt.Printf("    event id: %s\n", c.EventID)
		}
	}
	fmt.Println("\nUse 'calsync resolve <provider> <event-id> <resolution>' to resolve.")
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	name, eventID, resolution := args[0], args[1], core.Resolution(args[2])

	switch resolution {
	case core.ResolutionKeepLocal, core.ResolutionKeepRemote, core.ResolutionMerge:
	default:
		return fmt.Errorf("invalid resolution %q (want keep_local, keep_remote or merge)", args[2])
	}

	adapter, ok := coord.Adapter(name)
	if !ok {
		return fmt.Errorf("provider %q is not configured", name)
	}

	connectProviders(cmd)
	provider, _ := coord.Provider(name)
	if !provider.SyncEnabled {
		return fmt.Errorf("provider %q has sync disabled", name)
	}
	if !provider.Connected {
		return fmt.Errorf("provider %q is not connected; run 'calsync auth %s' first", name, name)
	}

	if err := adapter.ResolveConflict(cmd.Context(), eventID, resolution); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("✅ Conflict resolved"))
	return nil
}
