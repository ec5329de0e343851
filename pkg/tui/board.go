package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"

	"trainboard/pkg/config"
	"trainboard/pkg/departures"
	"trainboard/pkg/pipeline"
)

var (
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	lineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

// RunBoardTUI fetches the configured station and prints the chosen direction(s)
func RunBoardTUI(cfg *config.AppConfig) error {
	var which string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Departures from %s", cfg.Station.Name)).
				Options(
					huh.NewOption("Both directions", "both"),
					huh.NewOption(fmt.Sprintf("Toward %s", cfg.Station.CityName), "toward"),
					huh.NewOption(fmt.Sprintf("Away from %s", cfg.Station.CityName), "away"),
				).
				Value(&which),
		),
	).WithTheme(GetTheme(cfg))

	if err := form.Run(); err != nil {
		return err
	}

	p, err := pipeline.FromConfig(cfg, nil)
	if err != nil {
		return err
	}

	var res pipeline.Result
	_ = spinner.New().
		Title(fmt.Sprintf("Fetching live departures for %s...", cfg.Station.Name)).
		Action(func() {
			res = p.Run(context.Background(), "")
		}).
		Run()

	if !res.Success {
		fmt.Println(errorStyle.Render("Could not fetch departures: " + res.Error))
		return nil
	}

	fmt.Println(accentStyle.Render(fmt.Sprintf("\n--- 🚆 %s (updated %s) ---", cfg.Station.Name, res.LastUpdated.Format("15:04"))))
	if which != "away" {
		fmt.Print(renderBucket(fmt.Sprintf("Toward %s", cfg.Station.CityName), res.Board.Toward))
	}
	if which != "toward" {
		fmt.Print(renderBucket(fmt.Sprintf("Away from %s", cfg.Station.CityName), res.Board.Away))
	}
	fmt.Println()

	return nil
}

// renderBucket formats one direction as a titled list
func renderBucket(title string, deps []departures.Departure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", lineStyle.Render(title))

	if len(deps) == 0 {
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render("No departures listed."))
		return b.String()
	}

	for _, d := range deps {
		when := fmt.Sprintf("%d min", d.Minutes)
		if d.Minutes == 0 {
			when = "now"
		}
		fmt.Fprintf(&b, "  • [%s] %s  %s\n",
			timeStyle.Render(when),
			d.Destination,
			mutedStyle.Render(fmt.Sprintf("platform %s, %s", d.Platform, d.Stops)),
		)
	}
	return b.String()
}

// RunDiagnoseTUI checks each upstream stage and prints the outcome
func RunDiagnoseTUI(cfg *config.AppConfig) error {
	p, err := pipeline.FromConfig(cfg, nil)
	if err != nil {
		return err
	}

	var diag pipeline.Diagnostics
	_ = spinner.New().
		Title("Checking upstream access...").
		Action(func() {
			diag = p.Diagnose(context.Background())
		}).
		Run()

	fmt.Print(renderDiagnostics(diag))
	return nil
}

func renderDiagnostics(diag pipeline.Diagnostics) string {
	check := func(ok bool) string {
		if ok {
			return accentStyle.Render("✓")
		}
		return errorStyle.Render("✗")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s Station page reachable\n", check(diag.PageAccess))
	fmt.Fprintf(&b, "%s Session token extracted\n", check(diag.TokenExtracted))
	fmt.Fprintf(&b, "%s Departures request succeeded\n", check(diag.APICall))
	fmt.Fprintf(&b, "%s %d departure records\n", check(diag.Records > 0), diag.Records)
	fmt.Fprintf(&b, "\n%s\n\n", diag.Message)
	return b.String()
}
