package cmd

import (
	"printops-snapshot/internal/application"

	"github.com/spf13/cobra"
)

func (c *cli) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the configured stores are reachable",
		Long: `Probe the backing store, the preference file and, when enabled, the
artifact archive. Probes only read. The command fails when any component
is unhealthy; degraded components are reported but do not fail it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			ds, err := c.display(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			report := app.HealthCheck(cmd.Context())
			if err := ds.Health(report); err != nil {
				return err
			}
			if report.OverallHealth == application.HealthUnhealthy {
				return errReported
			}
			return nil
		},
	}
}
