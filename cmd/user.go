package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openhiit/openhiit/internal/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the participant directory",
	Long: `Manage who takes part in sessions. Every selected user gets one
history record per completed session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun(cmd.Context())
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a user (selected by default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun(cmd.Context(), args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun(cmd.Context())
	},
}

var userSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Include a user in upcoming sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userSetSelectedRun(cmd.Context(), args[0], true)
	},
}

var userDeselectCmd = &cobra.Command{
	Use:   "deselect <name>",
	Short: "Leave a user out of upcoming sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userSetSelectedRun(cmd.Context(), args[0], false)
	},
}

func init() {
	userCmd.AddCommand(userAddCmd, userListCmd, userSelectCmd, userDeselectCmd)
	rootCmd.AddCommand(userCmd)
}

func userAddRun(ctx context.Context, name string) error {
	store, err := getStore()
	if err != nil {
		return err
	}

	u, err := store.CreateUser(ctx, name)
	if err != nil {
		return err
	}
	ui.Success("Added %s.", u.Name)
	return nil
}

func userListRun(ctx context.Context) error {
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

	table := ui.Table([]string{"USER", "SELECTED"})
	for _, u := range users {
		selected := "no"
		if u.Selected {
			selected = output.Green("yes")
		}
		table.Append([]string{output.Cyan(u.Name), selected})
	}
	return table.Render()
}

func userSetSelectedRun(ctx context.Context, name string, selected bool) error {
	store, err := getStore()
	if err != nil {
		return err
	}

	u, err := resolveUserByName(ctx, name)
	if err != nil {
		return err
	}
	if err := store.SetUserSelected(ctx, u.ID, selected); err != nil {
		return err
	}
	if selected {
		ui.Success("%s is in.", u.Name)
	} else {
		ui.Success("%s is sitting out.", u.Name)
	}
	return nil
}
