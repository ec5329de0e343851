package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file
const (
	EnvProxyAPIKey = "SCRAPER_API_KEY"
	EnvPort        = "PORT"
)

const fileName = ".trainboard.yml"

// AppConfig holds all user-defined persistent settings
type AppConfig struct {
	Server      ServerConfig   `yaml:"server"`
	Station     StationConfig  `yaml:"station"`
	Upstream    UpstreamConfig `yaml:"upstream"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Session     SessionConfig  `yaml:"session"`
	Log         LogConfig      `yaml:"log"`
	AccentColor string         `yaml:"accent_color,omitempty" validate:"omitempty,hexcolor"`

	env envOverrides
}

// envOverrides remembers what the environment replaced so Save writes the file's own values back
type envOverrides struct {
	proxyKey, fileProxyKey string
	addr, fileAddr         string
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// StationConfig describes the monitored station and what counts as "toward the city"
type StationConfig struct {
	Name string `yaml:"name" validate:"required"`
	// ID is the stop identifier the timetable endpoint expects; required for the json shape
	ID    string   `yaml:"id,omitempty"`
	Lines []string `yaml:"lines,omitempty"`

	CityName          string `yaml:"city_name" validate:"required"`
	CityDirectionCode string `yaml:"city_direction_code"`
}

type UpstreamConfig struct {
	LiveTimesURL    string `yaml:"live_times_url" validate:"required,url"`
	TimetableAPIURL string `yaml:"timetable_api_url" validate:"required,url"`
	Shape           string `yaml:"shape" validate:"oneof=html json"`
	TableSelector   string `yaml:"table_selector,omitempty"`
	ModuleID        string `yaml:"module_id,omitempty"`
	TabID           string `yaml:"tab_id,omitempty"`
}

type FetchConfig struct {
	Mode          string        `yaml:"mode" validate:"oneof=direct proxied rendered"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	Attempts      int           `yaml:"attempts" validate:"min=1,max=5"`
	RetryDelay    time.Duration `yaml:"retry_delay" validate:"gte=0"`
	ProxyEndpoint string        `yaml:"proxy_endpoint,omitempty" validate:"omitempty,url"`
	ProxyAPIKey   string        `yaml:"proxy_api_key,omitempty"`
	ProxyRender   bool          `yaml:"proxy_render"`
	WaitFor       string        `yaml:"wait_for,omitempty"`
	ChromePath    string        `yaml:"chrome_path,omitempty"`
}

type SessionConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file exists
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Addr: ":8080"},
		Station: StationConfig{
			Name:              "Queens Park Stn",
			Lines:             []string{"Armadale Line"},
			CityName:          "Perth",
			CityDirectionCode: "1",
		},
		Upstream: UpstreamConfig{
			LiveTimesURL:    "https://www.transperth.wa.gov.au/Timetables/Live-Train-Times",
			TimetableAPIURL: "https://www.transperth.wa.gov.au/API/SilverRailRestService/SilverRailService/GetStopTimetable",
			Shape:           "html",
			TableSelector:   "#tblStationStatus",
		},
		Fetch: FetchConfig{
			Mode:       "direct",
			Timeout:    30 * time.Second,
			Attempts:   2,
			RetryDelay: time.Second,
		},
		Session: SessionConfig{
			Enabled: false,
			TTL:     5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Path returns override, or ~/.trainboard.yml when override is empty
func Path(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find user home directory: %w", err)
	}
	return filepath.Join(homeDir, fileName), nil
}

// Load reads the application configuration from path (or the default location),
// applies environment overrides and validates the result.
// Returns the defaults if the file does not exist.
func Load(path string) (*AppConfig, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*AppConfig, error) {
	path, err := Path(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	if key := strings.TrimSpace(os.Getenv(EnvProxyAPIKey)); key != "" {
		c.env.proxyKey, c.env.fileProxyKey = key, c.Fetch.ProxyAPIKey
		c.Fetch.ProxyAPIKey = key
	}
	if port := strings.TrimSpace(os.Getenv(EnvPort)); port != "" {
		addr := ":" + strings.TrimPrefix(port, ":")
		c.env.addr, c.env.fileAddr = addr, c.Server.Addr
		c.Server.Addr = addr
	}
}

var validate = validator.New()

// Validate checks the struct tags and the cross-field rules
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Upstream.Shape == "json" && c.Station.ID == "" {
		return fmt.Errorf("invalid config: station.id is required for the json shape")
	}
	return nil
}

// ResolvedMode is the fetch mode actually used: proxied falls back to direct
// when no API key is available.
func (c *AppConfig) ResolvedMode() string {
	if c.Fetch.Mode == "proxied" && c.Fetch.ProxyAPIKey == "" {
		return "direct"
	}
	return c.Fetch.Mode
}

// Save writes the application configuration back to path (or the default location).
// Values that came from the environment are not persisted; the file keeps its own.
func Save(cfg *AppConfig, path string) error {
	path, err := Path(path)
	if err != nil {
		return err
	}

	out := *cfg
	if out.env.proxyKey != "" && out.Fetch.ProxyAPIKey == out.env.proxyKey {
		out.Fetch.ProxyAPIKey = out.env.fileProxyKey
	}
	if out.env.addr != "" && out.Server.Addr == out.env.addr {
		out.Server.Addr = out.env.fileAddr
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
