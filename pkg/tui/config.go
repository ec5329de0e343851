package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"trainboard/pkg/config"
)

// RunConfigTUI launches the interactive experience for managing configurations
func RunConfigTUI(configPath string) error {
	for {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		var action string

		initialForm := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Configuration Settings").
					Options(
						huh.NewOption("Set Accent Color (Theme)", "theme"),
						huh.NewOption("Set Station", "station"),
						huh.NewOption("Set Fetch Mode", "fetch"),
						huh.NewOption("View Current Config", "view"),
						huh.NewOption("Back to Main Menu", "back"),
					).
					Value(&action),
			),
		).WithTheme(GetTheme(cfg))

		if err := initialForm.Run(); err != nil {
			return err
		}

		switch action {
		case "theme":
			err = runSetThemeTUI(cfg, configPath)
		case "station":
			err = runSetStationTUI(cfg, configPath)
		case "fetch":
			err = runSetFetchTUI(cfg, configPath)
		case "view":
			err = printConfig(cfg, configPath)
		default:
			return nil
		}

		if err != nil {
			return err
		}
	}
}

func printConfig(cfg *config.AppConfig, configPath string) error {
	path, err := config.Path(configPath)
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Fetch.ProxyAPIKey != "" {
		shown.Fetch.ProxyAPIKey = "********"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}

	fmt.Println(accentStyle.Render(fmt.Sprintf("\n--- Current Configuration (%s) ---", path)))
	fmt.Println(string(data))
	fmt.Printf("Effective fetch mode: %s\n\n", cfg.ResolvedMode())
	return nil
}

func runSetStationTUI(cfg *config.AppConfig, configPath string) error {
	name := cfg.Station.Name
	id := cfg.Station.ID
	lines := strings.Join(cfg.Station.Lines, ", ")
	shape := cfg.Upstream.Shape

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Station name").
				Description("As it appears on the live train times page, e.g. Queens Park Stn").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("station name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Lines").
				Description("Comma separated; each line is fetched in turn.").
				Value(&lines),
			huh.NewSelect[string]().
				Title("Upstream source").
				Options(
					huh.NewOption("Live train times page (html)", "html"),
					huh.NewOption("Timetable endpoint (json, needs station id)", "json"),
				).
				Value(&shape),
			huh.NewInput().
				Title("Station id").
				Description("Only needed for the timetable endpoint.").
				Value(&id),
		),
	).WithTheme(GetTheme(cfg))

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Station.Name = strings.TrimSpace(name)
	cfg.Station.ID = strings.TrimSpace(id)
	cfg.Station.Lines = splitList(lines)
	cfg.Upstream.Shape = shape

	if err := cfg.Validate(); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return nil
	}
	if err := config.Save(cfg, configPath); err != nil {
		return err
	}

	fmt.Println(accentStyle.Render(fmt.Sprintf("\n✅ Station set to %s\n", cfg.Station.Name)))
	return nil
}

func runSetFetchTUI(cfg *config.AppConfig, configPath string) error {
	mode := cfg.Fetch.Mode
	render := cfg.Fetch.ProxyRender
	session := cfg.Session.Enabled

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should the station page be fetched?").
				Options(
					huh.NewOption("Direct (browser-like HTTP client)", "direct"),
					huh.NewOption("Scraping proxy (needs "+config.EnvProxyAPIKey+")", "proxied"),
					huh.NewOption("Local headless Chrome", "rendered"),
				).
				Value(&mode),
			huh.NewConfirm().
				Title("Ask the proxy to render JavaScript?").
				Value(&render),
			huh.NewConfirm().
				Title("Load the landing page for a session token first?").
				Value(&session),
		),
	).WithTheme(GetTheme(cfg))

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Fetch.Mode = mode
	cfg.Fetch.ProxyRender = render
	cfg.Session.Enabled = session

	if err := config.Save(cfg, configPath); err != nil {
		return err
	}

	msg := fmt.Sprintf("\n✅ Fetch mode set to %s\n", mode)
	if cfg.ResolvedMode() != mode {
		msg += fmt.Sprintf("No %s set, so requests go out directly for now.\n", config.EnvProxyAPIKey)
	}
	fmt.Println(accentStyle.Render(msg))
	return nil
}

func colorBlock(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("██")
}

func runSetThemeTUI(cfg *config.AppConfig, configPath string) error {
	var input string

	inputForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose an Accent Color").
				Description("Select a curated style or choose Custom to enter your own Hex.").
				Options(
					huh.NewOption(fmt.Sprintf("%s Transperth Green", colorBlock(defaultAccent)), defaultAccent),
					huh.NewOption(fmt.Sprintf("%s Swan Blue", colorBlock("#0072CE")), "#0072CE"),
					huh.NewOption(fmt.Sprintf("%s Sunset Orange", colorBlock("#FF8200")), "#FF8200"),
					huh.NewOption(fmt.Sprintf("%s Armadale Yellow", colorBlock("#FFC72C")), "#FFC72C"),
					huh.NewOption("✨ Custom Hex Code", "custom"),
				).
				Value(&input),
		),
	).WithTheme(GetTheme(cfg))

	if err := inputForm.Run(); err != nil {
		return err
	}

	if input == "custom" {
		var hexInput string
		hexForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Enter a Hex Color Code").
					Description("Include the `#` symbol. Example: #FF00FF").
					Placeholder("#").
					Value(&hexInput).
					Validate(validHex),
			),
		).WithTheme(GetTheme(cfg))

		if err := hexForm.Run(); err != nil {
			return err
		}
		cfg.AccentColor = hexInput
	} else {
		cfg.AccentColor = input
	}

	if err := config.Save(cfg, configPath); err != nil {
		return err
	}

	GetTheme(cfg)
	fmt.Println(accentStyle.Render("\n✅ The theme color is now saved.\n"))
	return nil
}

func validHex(s string) error {
	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return fmt.Errorf("must be a valid 6-character hex code starting with #")
	}
	for _, c := range strings.ToLower(s[1:]) {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return fmt.Errorf("%q is not a hex digit", c)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
