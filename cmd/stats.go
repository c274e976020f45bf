package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openhiit/openhiit/internal/output"
	"github.com/openhiit/openhiit/internal/stats"
	"github.com/openhiit/openhiit/internal/timefmt"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-user training statistics",
	Long: `Show each user's session count, current and longest daily streaks,
average sessions per week, and cumulated exercise time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(ctx context.Context) error {
	store, err := getStore()
	if err != nil {
		return err
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ui.Info("No users yet. Add one with `openhiit user add <name>`.")
		return nil
	}

	now := time.Now()
	loc := time.Local

	table := ui.Table([]string{"USER", "SESSIONS", "STREAK", "BEST STREAK", "AVG/WEEK", "TOTAL TIME"})
	for _, u := range users {
		stamps, err := store.Timestamps(ctx, u.ID)
		if err != nil {
			return err
		}
		count, totalMs, err := store.UserTotals(ctx, u.ID)
		if err != nil {
			return err
		}

		table.Append([]string{
			output.Cyan(u.Name),
			fmt.Sprintf("%d", count),
			output.StreakColor(stats.CurrentStreak(stamps, now, loc)),
			fmt.Sprintf("%d", stats.LongestStreak(stamps, loc)),
			stats.AveragePerWeek(stamps, now),
			timefmt.Format(totalMs),
		})
	}
	return table.Render()
}
