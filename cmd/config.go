package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openhiit/openhiit/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func configShowRun() error {
	_, st, err := getSettings()
	if err != nil {
		return err
	}

	if file := viper.ConfigFileUsed(); file != "" {
		ui.Info("Config file: %s", file)
	} else {
		ui.Info("No config file found, showing defaults.")
	}

	beep := "off"
	if st.BeepEnabled {
		beep = "on"
	}

	table := ui.Table([]string{"SETTING", "VALUE"})
	table.Append([]string{"Work period", fmt.Sprintf("%ds", st.WorkPeriodSec)})
	table.Append([]string{"Rest period", fmt.Sprintf("%ds", st.RestPeriodSec)})
	table.Append([]string{"Work periods per cycle", fmt.Sprintf("%d", st.WorkPeriodsPerCycle)})
	table.Append([]string{"Cycles", fmt.Sprintf("%d", st.Cycles)})
	table.Append([]string{"Prepare length", fmt.Sprintf("%ds", st.PrepareLengthSec)})
	table.Append([]string{"Period countdown", fmt.Sprintf("%ds", st.PeriodCountDownSec)})
	table.Append([]string{"Beep", beep})
	table.Append([]string{"Exercise types", output.Yellow(strings.Join(st.ExerciseTypes, ", "))})
	table.Append([]string{"Database", viper.GetString("db_path")})
	return table.Render()
}
