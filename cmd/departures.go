package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trainboard/pkg/departures"
	"trainboard/pkg/pipeline"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

var departuresCmd = &cobra.Command{
	Use:   "departures",
	Short: "Print the next departures from the configured station",
	Long:  "Fetch the station once and print the trains toward and away from the city as tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}

		station, _ := cmd.Flags().GetString("station")
		asJSON, _ := cmd.Flags().GetBool("json")

		p, err := pipeline.FromConfig(cfg, nil)
		if err != nil {
			return err
		}

		var board departures.Board
		_ = spinner.New().
			Title(fmt.Sprintf("Fetching live departures for %s...", cfg.Station.Name)).
			Action(func() {
				board, err = p.Departures(cmd.Context(), station)
			}).
			Run()

		if err != nil {
			return fmt.Errorf("could not fetch departures: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string][]departures.Departure{
				"toward": board.Toward,
				"away":   board.Away,
			})
		}

		name := cfg.Station.Name
		if station != "" {
			name = station
		}
		fmt.Fprintf(out, "\n--- 🚆 Next Departures: %s ---\n", name)
		printBoard(out, board, cfg.Station.CityName)
		return nil
	},
}

func printBoard(w io.Writer, board departures.Board, city string) {
	printBucket(w, fmt.Sprintf("Toward %s", city), board.Toward)
	printBucket(w, fmt.Sprintf("Away from %s", city), board.Away)
}

func printBucket(w io.Writer, title string, deps []departures.Departure) {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(deps) == 0 {
		fmt.Fprintln(w, "No departures listed.")
		return
	}

	caser := cases.Title(language.English)
	tbl := table.New("Min", "Destination", "Platform", "Time", "Stops").
		WithWriter(w).
		WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return headerStyle.Render(fmt.Sprintf(format, vals...))
		})

	for _, d := range deps {
		tbl.AddRow(d.Minutes, caser.String(d.Destination), d.Platform, d.TimeDisplay, d.Stops)
	}
	tbl.Print()
}

func init() {
	rootCmd.AddCommand(departuresCmd)
	departuresCmd.Flags().StringP("station", "s", "", "station to query instead of the configured one (id for the json source)")
	departuresCmd.Flags().Bool("json", false, "print the board as JSON")
}
