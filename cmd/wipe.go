package cmd

import (
	"fmt"
	"strings"

	"printops-snapshot/internal/confirmation"
	"printops-snapshot/internal/store"

	"github.com/spf13/cobra"
)

const wipePhrase = "delete all"

func (c *cli) newWipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe",
		Short: "Delete every record from the backing store",
		Long: `Clear every collection of the backing store. Preferences are kept.
Every collection is attempted even when one fails.

The prompt asks for the phrase "` + wipePhrase + `"; --yes skips it.`,
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
				Action:      "Delete all dashboard data",
				Details:     []string{"Collections: " + strings.Join(store.Collections(), ", ")},
				Destructive: true,
				Phrase:      wipePhrase,
			}); err != nil {
				return err
			}

			if err := app.DeleteAllData(cmd.Context()); err != nil {
				ds.Error(fmt.Sprintf("Some collections could not be cleared: %v", err))
				return errReported
			}
			if ok, err := ds.Structured(map[string]interface{}{"cleared": store.Collections()}); ok {
				return err
			}
			ds.Success("All collections cleared")
			return nil
		},
	}
}
