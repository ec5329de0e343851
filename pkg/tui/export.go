package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"

	"trainboard/pkg/config"
	"trainboard/pkg/exporter"
	"trainboard/pkg/pipeline"
)

// RunExportTUI asks for a format and file name and writes the current board there
func RunExportTUI(cfg *config.AppConfig) error {
	format := "ics"
	var output string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Options(
					huh.NewOption("Calendar (.ics)", "ics"),
					huh.NewOption("Spreadsheet (.csv)", "csv"),
				).
				Value(&format),
			huh.NewInput().
				Title("Output file").
				Description("Leave empty for departures.<format> in the current directory.").
				Value(&output),
		),
	).WithTheme(GetTheme(cfg))

	if err := form.Run(); err != nil {
		return err
	}

	output = strings.TrimSpace(output)
	if output == "" {
		output = "departures." + format
	}

	p, err := pipeline.FromConfig(cfg, nil)
	if err != nil {
		return err
	}

	var res pipeline.Result
	_ = spinner.New().
		Title(fmt.Sprintf("Fetching departures for %s...", cfg.Station.Name)).
		Action(func() {
			res = p.Run(context.Background(), "")
		}).
		Run()

	if !res.Success {
		fmt.Println(errorStyle.Render("Could not fetch departures: " + res.Error))
		return nil
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
		return err
	}

	fmt.Println(accentStyle.Render(fmt.Sprintf("\n✅ Exported %d departures to %s\n", res.Board.Len(), output)))
	return nil
}
