package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"trainboard/pkg/pipeline"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check each stage of the upstream fetch",
	Long:  "Load the station page, extract a fresh session token, request the departures and report which step fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}

		p, err := pipeline.FromConfig(cfg, nil)
		if err != nil {
			return err
		}

		var diag pipeline.Diagnostics
		_ = spinner.New().
			Title("Checking upstream access...").
			Action(func() {
				diag = p.Diagnose(cmd.Context())
			}).
			Run()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fetch mode:       %s\n", cfg.ResolvedMode())
		fmt.Fprintf(out, "page access:      %s\n", yesNo(diag.PageAccess))
		fmt.Fprintf(out, "token extracted:  %s\n", yesNo(diag.TokenExtracted))
		fmt.Fprintf(out, "departures call:  %s\n", yesNo(diag.APICall))
		fmt.Fprintf(out, "records:          %d\n", diag.Records)
		fmt.Fprintf(out, "\n%s\n", diag.Message)

		if !diag.Success {
			return fmt.Errorf("upstream check failed")
		}
		return nil
	},
}

func yesNo(ok bool) string {
	if ok {
		return "✅ yes"
	}
	return "❌ no"
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
