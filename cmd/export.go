package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"trainboard/pkg/exporter"
	"trainboard/pkg/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current departures to an ICS or CSV file",
	Long:  `Fetch the station once and write the departures as calendar events (.ics) or a spreadsheet (.csv).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(output), ".")
		}
		if format != "ics" && format != "csv" {
			return fmt.Errorf("unknown export format %q, use ics or csv", format)
		}

		p, err := pipeline.FromConfig(cfg, nil)
		if err != nil {
			return err
		}

		var res pipeline.Result
		_ = spinner.New().
			Title(fmt.Sprintf("Exporting departures for %s to %s...", cfg.Station.Name, output)).
			Action(func() {
				res = p.Run(cmd.Context(), "")
			}).
			Run()

		if !res.Success {
			return fmt.Errorf("failed to fetch departures: %s", res.Error)
		}
		if res.Board.Len() == 0 {
			return fmt.Errorf("no departures found for %s", cfg.Station.Name)
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()

		if format == "csv" {
			err = exporter.GenerateCSV(res.Board, res.LastUpdated, file)
		} else {
			err = exporter.GenerateICS(res.Board, res.LastUpdated, cfg.Station.Name, file)
		}
		if err != nil {
			return fmt.Errorf("failed to generate %s: %w", format, err)
		}

		fmt.Printf("Successfully exported %d departures to %s\n", res.Board.Len(), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "departures.ics", "Output file path")
	exportCmd.Flags().StringP("format", "f", "", "ics or csv (default: from the output file extension)")
}
