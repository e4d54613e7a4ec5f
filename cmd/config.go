package cmd

import (
	"fmt"

	"printops-snapshot/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Generate and describe the configuration file",
		Long: `Print a configuration template, write one to disk, or list the
environment variables that override configuration keys.

Examples:
  # Print the template
  printops-snapshot config template > .printops-snapshot.yaml

  # Write the template to a new file
  printops-snapshot config init ~/.printops-snapshot.yaml

  # List environment overrides
  printops-snapshot config env`,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "template",
			Short: "Print a configuration template with every default",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				content, err := config.Template()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init [path]",
			Short: "Write the configuration template to a file",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := config.DefaultFileName + ".yaml"
				if len(args) == 1 {
					path = args[0]
				}
				if err := config.WriteTemplate(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "env",
			Short: "List the environment variables that override configuration keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, name := range config.EnvironmentVariables() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			},
		},
	)
	return configCmd
}
