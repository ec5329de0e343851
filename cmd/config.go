package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"trainboard/pkg/config"
	"trainboard/pkg/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage trainboard configuration",
	Long:  "View or edit your local configuration settings (station, fetch mode, theme).",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}

		changed := false
		if cmd.Flags().Changed("station") {
			cfg.Station.Name, _ = cmd.Flags().GetString("station")
			changed = true
		}
		if cmd.Flags().Changed("station-id") {
			cfg.Station.ID, _ = cmd.Flags().GetString("station-id")
			changed = true
		}
		if cmd.Flags().Changed("mode") {
			cfg.Fetch.Mode, _ = cmd.Flags().GetString("mode")
			changed = true
		}
		if cmd.Flags().Changed("shape") {
			cfg.Upstream.Shape, _ = cmd.Flags().GetString("shape")
			changed = true
		}

		// If no flags are given, launch the interactive TUI flow
		if !changed {
			return tui.RunConfigTUI(configPath)
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg, configPath); err != nil {
			return err
		}

		path, _ := config.Path(configPath)
		fmt.Printf("✅ Configuration saved to %s (station %s, %s source, %s fetch)\n",
			path, cfg.Station.Name, cfg.Upstream.Shape, cfg.ResolvedMode())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringP("station", "s", "", "Station name as shown on the live train times page")
	configCmd.Flags().String("station-id", "", "Stop id for the timetable endpoint")
	configCmd.Flags().StringP("mode", "m", "", "Fetch mode: direct, proxied or rendered")
	configCmd.Flags().String("shape", "", "Upstream source: html or json")
}
