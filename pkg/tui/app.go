package tui

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"trainboard/pkg/config"
)

// defaultAccent is Transperth green
const defaultAccent = "#00A650"

var (
	// These act as fallbacks until GetTheme has seen the config
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// GetTheme builds the form theme from the saved accent color.
func GetTheme(cfg *config.AppConfig) *huh.Theme {
	baseColor := defaultAccent
	if cfg != nil && cfg.AccentColor != "" {
		baseColor = cfg.AccentColor
	}

	// Plain CLI output shares the accent
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(baseColor))

	return GetCustomTheme(baseColor)
}

// GetCustomTheme returns a new huh.Theme instantiated with the provided lipgloss color string.
// This is used for live-previewing styles before they are officially saved.
func GetCustomTheme(baseColor string) *huh.Theme {
	t := huh.ThemeCharm()
	p := lipgloss.Color(baseColor)

	t.Focused.Title = t.Focused.Title.Foreground(p).Bold(true)
	t.Focused.Base = t.Focused.Base.Border(lipgloss.RoundedBorder()).BorderForeground(p).Padding(0, 1)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(p)
	t.Focused.MultiSelectSelector = t.Focused.MultiSelectSelector.Foreground(p)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(p)
	t.Focused.SelectedPrefix = t.Focused.SelectedPrefix.Foreground(p)
	t.Focused.UnselectedPrefix = t.Focused.UnselectedPrefix.Foreground(lipgloss.AdaptiveColor{Light: "", Dark: "235"})
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(p)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(p)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Foreground(lipgloss.Color("0")).Background(p)

	// Softer borders for unfocused elements
	t.Blurred.Base = t.Blurred.Base.Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)

	return t
}

// RunTUI launches the main menu. configPath may be empty for the default location.
func RunTUI(configPath string) error {
	for {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		var action string
		menu := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("What would you like to do?").
					Options(
						huh.NewOption("🚆 View Departures", "board"),
						huh.NewOption("🩺 Check Upstream Access", "diagnose"),
						huh.NewOption("📅 Export Departures", "export"),
						huh.NewOption("⚙️ Settings", "config"),
						huh.NewOption("Quit", "quit"),
					).
					Value(&action),
			),
		).WithTheme(GetTheme(cfg))

		if err := menu.Run(); err != nil {
			return err
		}

		switch action {
		case "board":
			err = RunBoardTUI(cfg)
		case "diagnose":
			err = RunDiagnoseTUI(cfg)
		case "export":
			err = RunExportTUI(cfg)
		case "config":
			err = RunConfigTUI(configPath)
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
}
