package cmd

import (
	"fmt"

	"printops-snapshot/internal/archive"
	"printops-snapshot/internal/confirmation"

	"github.com/spf13/cobra"
)

func (c *cli) newArchiveCmd() *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived snapshots",
		Long: `List, delete and prune snapshots kept in the configured archive.

The archive stores exported snapshots on the local filesystem, S3, Azure
Blob Storage or Google Cloud Storage, optionally compressed (gzip, lz4,
zstd) and encrypted (AES-256-GCM). Use "export --archive" to add one and
"import --from-archive" to restore one.

Examples:
  printops-snapshot archive list
  printops-snapshot archive delete snapshot-20260101-120000-1a2b3c4d
  printops-snapshot archive prune --keep 5`,
	}

	archiveCmd.AddCommand(c.newArchiveListCmd(), c.newArchiveDeleteCmd(), c.newArchivePruneCmd())
	return archiveCmd
}

func (c *cli) newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots, newest first",
		Args:  cobra.NoArgs,
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

			artifacts, err := app.ListArchived(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list archived snapshots: %w", err)
			}
			return ds.ArchiveList(artifacts)
		},
	}
}

func (c *cli) newArchiveDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete archived snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if !archive.ValidID(id) {
					return fmt.Errorf("invalid archive id %q", id)
				}
			}

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
				Action:      fmt.Sprintf("Delete %d archived snapshot(s)", len(args)),
				Details:     args,
				Destructive: true,
			}); err != nil {
				return err
			}

			for _, id := range args {
				if err := app.DeleteArchived(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				ds.Success("Deleted " + id)
			}
			return nil
		},
	}
}

func (c *cli) newArchivePruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest archived snapshots",
		Long: `Delete archived snapshots beyond the newest --keep. Without --keep the
archive.retention.max_artifacts setting applies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}

			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			ds, err := c.display(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			req := confirmation.Request{Action: "Prune the snapshot archive", Destructive: true}
			if keep > 0 {
				req.Details = []string{fmt.Sprintf("Keep the newest %d", keep)}
			}
			if err := c.confirm(cmd, req); err != nil {
				return err
			}

			deleted, err := app.PruneArchive(cmd.Context(), keep)
			if err != nil {
				ds.Pruned(deleted)
				return fmt.Errorf("prune stopped: %w", err)
			}
			return ds.Pruned(deleted)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "number of newest snapshots to keep (default from configuration)")
	return cmd
}
