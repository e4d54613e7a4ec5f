package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"printops-snapshot/internal/confirmation"
	"printops-snapshot/internal/snapshot"

	"github.com/spf13/cobra"
)

func (c *cli) newImportCmd() *cobra.Command {
	var (
		merge          bool
		skipValidation bool
		fromArchive    string
		batchSize      int
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a snapshot into the backing store",
		Long: `Import a snapshot file (or - for stdin) into the backing store.

The snapshot's structure, version and checksum are checked before anything
is written. Snapshots from versions 1.0, 1.1 and 1.2 are migrated to 2.0
first. By default every collection present in the snapshot replaces the
stored one; --merge adds and updates records instead.

Examples:
  # Replace the stored data with a snapshot
  printops-snapshot import snapshot.json

  # Merge without prompting
  printops-snapshot import snapshot.json --merge --yes

  # Restore an archived snapshot
  printops-snapshot import --from-archive snapshot-20260101-120000-1a2b3c4d`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (fromArchive != "") {
				return fmt.Errorf("give either a snapshot file or --from-archive")
			}
			if batchSize > 0 {
				c.v.Set("import.batch_size", batchSize)
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

			opts := snapshot.ImportOptions{MergeMode: merge, SkipValidation: skipValidation}
			req := confirmation.Request{
				Action:      "Replace stored collections with the snapshot",
				Destructive: true,
			}
			if merge {
				req = confirmation.Request{Action: "Merge the snapshot into the stored collections"}
			}

			var result *snapshot.MigrationResult
			if fromArchive != "" {
				req.Details = []string{"Archived snapshot: " + fromArchive}
				if err := c.confirm(cmd, req); err != nil {
					return err
				}
				result = app.ImportFromArchive(cmd.Context(), fromArchive, opts)
			} else {
				data, err := readArtifact(cmd, args[0])
				if err != nil {
					return err
				}
				// Rejected artifacts never reach the store; prompt only for
				// importable ones.
				if report, err := app.Inspect(bytes.NewReader(data)); err == nil && report.Importable() {
					req.Details = []string{
						"File: " + args[0],
						"Version: " + report.Version.Version,
						fmt.Sprintf("Records: %d", report.TotalRecords),
					}
					if err := c.confirm(cmd, req); err != nil {
						return err
					}
				}
				result = app.ImportArtifact(cmd.Context(), bytes.NewReader(data), opts)
			}

			if err := ds.ImportResult(result); err != nil {
				return err
			}
			if !result.Success {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "merge into existing data instead of replacing it")
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "skip checksum verification")
	cmd.Flags().StringVar(&fromArchive, "from-archive", "", "import the archived snapshot with this id")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per batch write (default from configuration)")
	return cmd
}

func (c *cli) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Check a snapshot without importing it",
		Long: `Inspect reports a snapshot's version, record counts and checksum status,
and whether import would accept it. Nothing is written.`,
		Args: cobra.ExactArgs(1),
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

			data, err := readArtifact(cmd, args[0])
			if err != nil {
				return err
			}
			report, err := app.Inspect(bytes.NewReader(data))
			if err != nil {
				return err
			}
			if err := ds.Inspect(report); err != nil {
				return err
			}
			if !report.Importable() {
				return errReported
			}
			return nil
		},
	}
}

// readArtifact reads path, or the command's input for -
func readArtifact(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}
