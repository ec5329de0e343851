package cmd

import (
	"github.com/spf13/cobra"

	"trainboard/pkg/tui"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch the interactive TUI",
	Long:  `Launch the Text User Interface to view departures, check upstream access, export and change settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd, true); err != nil {
			return err
		}
		return tui.RunTUI(configPath)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
