package cmd

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trainboard/pkg/pipeline"
	"trainboard/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the departures JSON API",
	Long: `Start the HTTP API. Every request to /api/departures runs one fetch against the upstream site;
/api/test reports which stage of the fetch works, /api/health answers without touching the upstream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		p, err := pipeline.FromConfig(cfg, nil)
		if err != nil {
			return err
		}

		log.Info().
			Str("station", cfg.Station.Name).
			Str("shape", cfg.Upstream.Shape).
			Str("fetch_mode", cfg.ResolvedMode()).
			Bool("session", cfg.Session.Enabled).
			Msg("starting departures api")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.ListenAndServe(ctx, cfg.Server.Addr, server.New(p, cfg.Station.Name).Handler())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "listen address (overrides config and PORT)")
}
