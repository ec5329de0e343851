package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trainboard/pkg/config"
)

var (
	configPath string
	logLevel   string
	logPretty  bool
)

var rootCmd = &cobra.Command{
	Use:   "trainboard",
	Short: "Live train departures for a Transperth station",
	Long: `trainboard scrapes the live train times of one Transperth station, sorts the departures
into trains toward and away from Perth, and serves them as a small JSON API or prints them in the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.trainboard.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human readable log output")
}

// loadConfig reads the config and sets up logging. Terminal commands stay quiet below warn
// unless a level is asked for, so log lines do not break up the output.
func loadConfig(cmd *cobra.Command, quiet bool) (*config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	switch {
	case cmd.Flags().Changed("log-level"):
		level = logLevel
	case quiet:
		level = "warn"
	}
	if err := setupLogging(level, logPretty || cfg.Log.Pretty); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging(level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}
