package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"printops-snapshot/internal/application"
	"printops-snapshot/internal/config"
	"printops-snapshot/internal/confirmation"
	"printops-snapshot/internal/display"
	apperrors "printops-snapshot/internal/errors"
	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/snapshot"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "printops-snapshot"

// errReported marks a failure whose details were already rendered
var errReported = errors.New("operation failed")

// rootOptions holds the persistent flags
type rootOptions struct {
	cfgFile    string
	verbose    bool
	quiet      bool
	format     string
	theme      string
	noColor    bool
	noIcons    bool
	noProgress bool
	yes        bool
	driver     string
	logLevel   string
}

// cli carries the state shared by every subcommand of one root command
type cli struct {
	opts    rootOptions
	v       *viper.Viper
	openApp func(ctx context.Context, cfg *config.Config, producer snapshot.ProducerInfo, logger *logging.Logger) (*application.Application, error)
}

// Execute runs the root command. Interrupts cancel the running operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", apperrors.FormatUserError(err))
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&cli{v: viper.New(), openApp: application.Open})
}

func buildRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Export, import and migrate printer dashboard snapshots",
		Long: `printops-snapshot moves the printer and toner dashboard data between
stores as versioned, checksummed JSON snapshots.

A snapshot holds every collection (printers, tickets, users, orders, loans,
fuser models) together with the dashboard preferences. Snapshots written
by older dashboard releases (1.0, 1.1, 1.2) are migrated to the current
2.0 layout on import. Nothing is written when a snapshot fails its
structure, version or checksum checks.

Examples:
  # Export the backing store to a file
  printops-snapshot export --output snapshot.json

  # Replace the backing store with a snapshot
  printops-snapshot import snapshot.json

  # Merge a snapshot into the existing data
  printops-snapshot import snapshot.json --merge

  # Move the legacy local store into the backing store
  printops-snapshot migrate-local

  # Store an export in the configured archive
  printops-snapshot export --archive`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.validateFlags()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.opts.cfgFile, "config", "", "config file (default is ./.printops-snapshot.yaml or $HOME/.printops-snapshot.yaml)")
	flags.BoolVarP(&c.opts.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVarP(&c.opts.quiet, "quiet", "q", false, "only print errors and results")
	flags.StringVar(&c.opts.format, "format", string(display.FormatTable), "output format (table, json, yaml, compact)")
	flags.StringVar(&c.opts.theme, "theme", string(display.ThemeDark), "color theme (dark, light)")
	flags.BoolVar(&c.opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&c.opts.noIcons, "no-icons", false, "use text labels instead of icons")
	flags.BoolVar(&c.opts.noProgress, "no-progress", false, "disable progress bars")
	flags.BoolVarP(&c.opts.yes, "yes", "y", false, "approve destructive operations without prompting")
	flags.StringVar(&c.opts.driver, "driver", "", "backing store driver override (mysql, memory)")
	flags.StringVar(&c.opts.logLevel, "log-level", "", "log level override (quiet, normal, verbose, debug)")

	c.v.BindPFlag("display.output_format", flags.Lookup("format"))
	c.v.BindPFlag("display.theme", flags.Lookup("theme"))
	c.v.BindPFlag("display.no_color", flags.Lookup("no-color"))
	c.v.BindPFlag("display.no_icons", flags.Lookup("no-icons"))
	c.v.BindPFlag("display.no_progress", flags.Lookup("no-progress"))
	c.v.BindPFlag("backing.driver", flags.Lookup("driver"))
	c.v.BindPFlag("logging.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		c.newExportCmd(),
		c.newImportCmd(),
		c.newInspectCmd(),
		c.newMigrateLocalCmd(),
		c.newWipeCmd(),
		c.newArchiveCmd(),
		c.newCheckCmd(),
		newVersionCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// validateFlags rejects conflicting persistent flags
func (c *cli) validateFlags() error {
	if c.opts.verbose && c.opts.quiet {
		return fmt.Errorf("--verbose and --quiet cannot be used together")
	}
	switch display.OutputFormat(c.opts.format) {
	case display.FormatTable, display.FormatJSON, display.FormatYAML, display.FormatCompact:
	default:
		return fmt.Errorf("invalid output format '%s', must be one of: table, json, yaml, compact", c.opts.format)
	}
	return nil
}

// loadConfig reads the configuration file, environment and flag overrides
func (c *cli) loadConfig() (*config.Config, error) {
	switch {
	case c.opts.verbose:
		c.v.Set("logging.level", string(logging.LogLevelVerbose))
	case c.opts.quiet:
		c.v.Set("logging.level", string(logging.LogLevelQuiet))
	}
	cfg, err := config.LoadWith(c.v, c.opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// open loads the configuration and opens the application. The caller closes it.
func (c *cli) open(ctx context.Context) (*application.Application, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"config_file": c.v.ConfigFileUsed(),
		"driver":      cfg.Backing.Driver,
		"archive":     cfg.Archive.Enabled,
	}).Debug("Configuration loaded")

	app, err := c.openApp(ctx, cfg, snapshot.ProducerInfo{Name: appName, Version: version}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	return app, nil
}

// display builds the output service writing to w
func (c *cli) display(w io.Writer) (*display.Service, error) {
	dc := &display.DisplayConfig{
		ColorEnabled:  !c.v.GetBool("display.no_color"),
		Theme:         c.v.GetString("display.theme"),
		OutputFormat:  c.v.GetString("display.output_format"),
		UseIcons:      !c.v.GetBool("display.no_icons"),
		ShowProgress:  !c.v.GetBool("display.no_progress"),
		QuietMode:     c.opts.quiet,
		MaxTableWidth: c.v.GetInt("display.max_table_width"),
		Writer:        w,
	}
	dc.SetDefaults()
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("display configuration validation failed: %w", err)
	}
	return display.NewService(dc), nil
}

// confirm asks on the command's input unless --yes was given
func (c *cli) confirm(cmd *cobra.Command, req confirmation.Request) error {
	svc := confirmation.NewConfirmationService(cmd.InOrStdin(), cmd.ErrOrStderr(), !c.v.GetBool("display.no_color"))
	ok, err := svc.Confirm(cmd.Context(), req, c.opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		return confirmation.ErrInterrupted
	}
	return nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  "Print the version information for printops-snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", appName, version)
			fmt.Fprintf(out, "Snapshot format: %s (imports %v)\n", snapshot.CurrentVersion, snapshot.SupportedVersions)
			fmt.Fprintf(out, "Built: %s\n", buildTime)
			fmt.Fprintf(out, "Commit: %s\n", gitCommit)
			fmt.Fprintf(out, "Go version: %s\n", goVersion)
		},
	}
}
