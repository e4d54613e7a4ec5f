package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"printops-snapshot/internal/display"

	"github.com/spf13/cobra"
)

func (c *cli) newExportCmd() *cobra.Command {
	var (
		output    string
		toArchive bool
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the backing store to a snapshot",
		Long: `Export every collection and the dashboard preferences as a version 2.0
snapshot. The snapshot carries a checksum over its collections and
preferences that import verifies before writing anything.

Examples:
  # Write the snapshot to a file
  printops-snapshot export --output snapshot.json

  # Write the snapshot to stdout
  printops-snapshot export --output -

  # Keep a copy in the configured archive
  printops-snapshot export --archive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" && !toArchive {
				return fmt.Errorf("nothing to do: set --output, --archive or both")
			}

			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			// Keep stdout clean when the snapshot itself goes there.
			out := cmd.OutOrStdout()
			if output == "-" {
				out = cmd.ErrOrStderr()
			}
			ds, err := c.display(out)
			if err != nil {
				return err
			}

			if toArchive && !app.ArchiveEnabled() {
				return fmt.Errorf("--archive requires archive.enabled in the configuration")
			}

			data, snap, err := app.BuildExportArtifact(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			summary := display.NewExportSummary(snap, output, len(data))

			switch output {
			case "":
			case "-":
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return fmt.Errorf("failed to write snapshot: %w", err)
				}
			default:
				if err := writeArtifact(output, data, overwrite); err != nil {
					return err
				}
			}

			if toArchive {
				md, err := app.ArchiveArtifact(cmd.Context(), data, snap)
				if err != nil {
					return fmt.Errorf("failed to archive snapshot: %w", err)
				}
				summary.ArchiveID = md.ID
			}
			if output == "-" && summary.ArchiveID == "" {
				summary.Path = "stdout"
			}
			return ds.Export(summary)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write, - for stdout")
	cmd.Flags().BoolVar(&toArchive, "archive", false, "store the snapshot in the configured archive")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing output file")
	return cmd
}

// writeArtifact writes data next to path first and renames it into place
func writeArtifact(path string, data []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
