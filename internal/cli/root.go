package cli

import (
	"routine_notification_bot/internal/cli/commands"

	"github.com/spf13/cobra"
)

func Execute() error {
	return NewRoot().Execute()
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "routinectl",
		Short:        "Inspect routine cadences and manage company settings",
		SilenceUsage: true,
	}
	root.AddCommand(
		commands.WindowsCmd(),
		commands.OutdatedCmd(),
		commands.SeedSettingsCmd(),
	)
	return root
}
