package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"prov"},
	Short:   "List configured providers",
	Long:    `List every configured provider with its connection and sync state.`,
	RunE:    runProviders,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <provider>",
	Short: "Disconnect a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := coord.DisconnectProvider(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Disconnected %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(disconnectCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	connectProviders(cmd)

	providers := coord.Providers()
	if len(providers) == 0 {
		fmt.Println("No providers configured.")
		fmt.Println("\nAdd them to the providers file and run 'calsync auth <provider>'.")
		return nil
	}

	fmt.Println(headerStyle.Render("📅 Configured providers"))
	fmt.Println("─────────────────────────────────────────────────")

	for _, p := range providers {
		status := errStyle.Render("disconnected")
		if p.Connected {
			status = okStyle.Render("connected")
		}
		sync := mutedStyle.Render("sync off")
		if p.SyncEnabled {
			sync = "sync on"
		}

		fmt.Printf("\n  • %s (%s)\n", providerStyle.Render(p.DisplayName), p.Name)
		fmt.Printf("    %s, %s\n", status, sync)
		if !p.LastSync.IsZero() {
			fmt.Printf("    last sync: %s\n", mutedStyle.Render(p.LastSync.Format("2006-01-02 15:04:05")))
		}
	}

	fmt.Printf("\nTotal: %d providers\n", len(providers))
	return nil
}
