package cmd

import (
	"printops-snapshot/internal/confirmation"

	"github.com/spf13/cobra"
)

func (c *cli) newMigrateLocalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-local",
		Short: "Copy the legacy local store into the backing store",
		Long: `Copy every collection of the legacy embedded store (local.path) into the
backing store, then carry the report selection preference over. Records
are added in batches; existing backing records are left in place. A
collection that fails is reported and the rest still run.

Examples:
  printops-snapshot migrate-local
  printops-snapshot migrate-local --yes --no-progress`,
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

			if err := c.confirm(cmd, confirmation.Request{
				Action:  "Copy the local store into the backing store",
				Details: []string{"Records are added; nothing in the backing store is removed"},
			}); err != nil {
				return err
			}

			onProgress, finish := ds.MigrationProgress()
			result := app.MigrateLocalToRemote(cmd.Context(), onProgress)
			finish()

			if err := ds.LocalMigration(result); err != nil {
				return err
			}
			if !result.Success {
				return errReported
			}
			return nil
		},
	}
}
