package commands

import (
	"fmt"

	"routine_notification_bot/internal/domain/schedule"

	"github.com/spf13/cobra"
)

func OutdatedCmd() *cobra.Command {
	var (
		cadence string
		at      string
	)
	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "Show the current occurrence of a cadence and how many days it is outdated",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseAt(at)
			if err != nil {
				return err
			}
			interval, err := schedule.ParseCadence(cadence, ref)
			if err != nil {
				return err
			}
			w := schedule.WindowFor(interval)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "current\t%s\n", interval.Current().Format("2006-01-02 15:04"))
			fmt.Fprintf(out, "window\t%s\t%s\n", w.StartDate.Format("2006-01-02"), w.FinishDate.Format("2006-01-02"))
			fmt.Fprintf(out, "days_outdated\t%d\n", schedule.DaysOutdated(interval, ref))
			return nil
		},
	}
	cmd.Flags().StringVar(&cadence, "cron", "0 0 * * 5", "Five-field cron cadence")
	cmd.Flags().StringVar(&at, "at", "", "Reference moment (RFC 3339 or YYYY-MM-DD, default now)")
	return cmd
}
