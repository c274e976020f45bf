package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openhiit/openhiit/internal/history"
	"github.com/openhiit/openhiit/internal/output"
	"github.com/openhiit/openhiit/internal/timefmt"
)

var (
	historyUser  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sessions",
	Long:  "List the most recent recorded sessions, per user.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd.Context())
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete a user's session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyUser == "" {
			return fmt.Errorf("--user is required")
		}
		return historyClearRun(cmd.Context(), historyUser)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Records to show per user")
	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "", "Only this user (by name)")
	historyClearCmd.Flags().StringVarP(&historyUser, "user", "u", "", "User whose history to delete (by name)")
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// resolveUserByName finds a user by display name.
func resolveUserByName(ctx context.Context, name string) (history.User, error) {
	store, err := getStore()
	if err != nil {
		return history.User{}, err
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		return history.User{}, err
	}
	for _, u := range users {
		if u.Name == name {
			return u, nil
		}
	}
	return history.User{}, fmt.Errorf("unknown user %q", name)
}

func historyListRun(ctx context.Context) error {
	store, err := getStore()
	if err != nil {
		return err
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if historyUser != "" {
		u, err := resolveUserByName(ctx, historyUser)
		if err != nil {
			return err
		}
		users = []history.User{u}
	}
	if len(users) == 0 {
		ui.Info("No users yet. Add one with `openhiit user add <name>`.")
		return nil
	}

	table := ui.Table([]string{"USER", "DATE", "EXERCISE TIME"})
	empty := true
	for _, u := range users {
		recs, err := store.Records(ctx, u.ID, historyLimit)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			empty = false
			table.Append([]string{
				output.Cyan(u.Name),
				rec.Timestamp.Format("Mon 2006-01-02 15:04"),
				timefmt.Format(rec.DurationMs),
			})
		}
	}
	if empty {
		ui.Info("No sessions recorded yet.")
		return nil
	}
	return table.Render()
}

func historyClearRun(ctx context.Context, name string) error {
	store, err := getStore()
	if err != nil {
		return err
	}

	u, err := resolveUserByName(ctx, name)
	if err != nil {
		return err
	}

	n, err := store.DeleteRecordsFor(ctx, u.ID)
	if err != nil {
		return err
	}
	ui.Success("Deleted %d record(s) for %s.", n, u.Name)
	return nil
}
