package display

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DisplayConfig holds the output options of the CLI
type DisplayConfig struct {
	ColorEnabled  bool   `mapstructure:"color_enabled" yaml:"color_enabled"`
	Theme         string `mapstructure:"theme" yaml:"theme"`
	OutputFormat  string `mapstructure:"output_format" yaml:"output_format"`
	UseIcons      bool   `mapstructure:"use_icons" yaml:"use_icons"`
	ShowProgress  bool   `mapstructure:"show_progress" yaml:"show_progress"`
	QuietMode     bool   `mapstructure:"quiet" yaml:"quiet"`
	MaxTableWidth int    `mapstructure:"max_table_width" yaml:"max_table_width"`

	Writer io.Writer `mapstructure:"-" yaml:"-"`
}

// ThemeName represents available color themes
type ThemeName string

const (
	ThemeDark  ThemeName = "dark"
	ThemeLight ThemeName = "light"
)

// DefaultDisplayConfig returns the default display configuration
func DefaultDisplayConfig() *DisplayConfig {
	return &DisplayConfig{
		ColorEnabled:  true,
		Theme:         string(ThemeDark),
		OutputFormat:  string(FormatTable),
		UseIcons:      true,
		ShowProgress:  true,
		MaxTableWidth: 120,
		Writer:        os.Stdout,
	}
}

// Validate checks theme, format and table width
func (dc *DisplayConfig) Validate() error {
	var errs []error

	switch ThemeName(dc.Theme) {
	case ThemeDark, ThemeLight:
	default:
		errs = append(errs, fmt.Errorf("invalid theme '%s', must be one of: dark, light", dc.Theme))
	}

	switch OutputFormat(dc.OutputFormat) {
	case FormatTable, FormatJSON, FormatYAML, FormatCompact:
	default:
		errs = append(errs, fmt.Errorf("invalid output format '%s', must be one of: table, json, yaml, compact", dc.OutputFormat))
	}

	if dc.MaxTableWidth < 40 || dc.MaxTableWidth > 300 {
		errs = append(errs, fmt.Errorf("max table width must be between 40 and 300, got %d", dc.MaxTableWidth))
	}

	return errors.Join(errs...)
}

// SetDefaults fills unset options
func (dc *DisplayConfig) SetDefaults() {
	if dc.Theme == "" {
		dc.Theme = string(ThemeDark)
	}
	if dc.OutputFormat == "" {
		dc.OutputFormat = string(FormatTable)
	}
	if dc.MaxTableWidth == 0 {
		dc.MaxTableWidth = 120
	}
	if dc.Writer == nil {
		dc.Writer = os.Stdout
	}
}

// IsStructured reports whether output is meant for machines
func (dc *DisplayConfig) IsStructured() bool {
	return dc.OutputFormat == string(FormatJSON) || dc.OutputFormat == string(FormatYAML)
}

// IsProgressEnabled returns true if progress bars should be drawn
func (dc *DisplayConfig) IsProgressEnabled() bool {
	return dc.ShowProgress && !dc.QuietMode && !dc.IsStructured()
}
