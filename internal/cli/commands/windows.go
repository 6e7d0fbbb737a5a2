package commands

import (
	"fmt"

	"routine_notification_bot/internal/domain/schedule"

	"github.com/spf13/cobra"
)

func WindowsCmd() *cobra.Command {
	var (
		cadence string
		at      string
		count   int
		newest  bool
	)
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List the answer windows of a cadence up to a moment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseAt(at)
			if err != nil {
				return err
			}
			interval, err := schedule.ParseCadence(cadence, ref)
			if err != nil {
				return err
			}
			order := schedule.OldestFirst
			if newest {
				order = schedule.NewestFirst
			}
			windows, err := schedule.MultipleWindows(interval, count, order)
			if err != nil {
				return err
			}
			for _, w := range windows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", w.StartDate.Format("2006-01-02"), w.FinishDate.Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cadence, "cron", "0 0 * * 5", "Five-field cron cadence")
	cmd.Flags().StringVar(&at, "at", "", "Reference moment (RFC 3339 or YYYY-MM-DD, default now)")
	cmd.Flags().IntVar(&count, "count", 5, fmt.Sprintf("Number of windows (at most %d)", schedule.MaxWindows))
	cmd.Flags().BoolVar(&newest, "newest-first", false, "List the current window first")
	return cmd
}
