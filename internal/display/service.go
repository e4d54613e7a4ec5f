// Package display renders command results for terminals and scripts.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Service writes headers, status lines, tables and structured results in
// the configured format
type Service struct {
	config  *DisplayConfig
	colors  ColorSystem
	theme   ColorTheme
	unicode bool
}

// NewService creates a display service. A nil config uses the defaults.
func NewService(config *DisplayConfig) *Service {
	if config == nil {
		config = DefaultDisplayConfig()
	}
	config.SetDefaults()
	return &Service{
		config:  config,
		colors:  NewColorSystem(config.Writer, config.ColorEnabled && !config.IsStructured()),
		theme:   GetThemeByName(config.Theme),
		unicode: config.UseIcons && detectUnicodeSupport(),
	}
}

// Config returns the display configuration
func (s *Service) Config() *DisplayConfig {
	return s.config
}

// Writer returns the output writer
func (s *Service) Writer() io.Writer {
	return s.config.Writer
}

// Header prints a title with an underline
func (s *Service) Header(title string) {
	if s.config.IsStructured() || s.config.QuietMode {
		return
	}
	w := s.config.Writer
	fmt.Fprintln(w, s.colors.Colorize(title, s.theme.Primary))
	fmt.Fprintln(w, s.colors.Colorize(strings.Repeat("=", len([]rune(title))), s.theme.Muted))
}

// Success prints a success status line
func (s *Service) Success(message string) {
	s.status("success", "SUCCESS", message, s.theme.Success)
}

// Warning prints a warning status line
func (s *Service) Warning(message string) {
	s.status("warning", "WARNING", message, s.theme.Warning)
}

// Error prints an error status line; it is shown even in quiet mode
func (s *Service) Error(message string) {
	s.status("error", "ERROR", message, s.theme.Error)
}

// Info prints an informational line
func (s *Service) Info(message string) {
	if s.config.QuietMode {
		return
	}
	s.status("info", "INFO", message, s.theme.Info)
}

func (s *Service) status(icon, level, message string, clr Color) {
	if s.config.IsStructured() {
		return
	}
	prefix := "[" + level + "]"
	if s.config.UseIcons && s.unicode {
		prefix = renderIcon(icon, true)
	}
	fmt.Fprintf(s.config.Writer, "%s %s\n", s.colors.Colorize(prefix, clr), message)
}

// KeyValues prints aligned "key: value" lines
func (s *Service) KeyValues(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		if n := len([]rune(p[0])); n > width {
			width = n
		}
	}
	for _, p := range pairs {
		key := pad(p[0]+":", width+1, AlignLeft)
		fmt.Fprintf(s.config.Writer, "  %s %s\n", s.colors.Colorize(key, s.theme.Muted), p[1])
	}
}

// NewTable creates a table styled like the rest of the output
func (s *Service) NewTable(headers ...string) *Table {
	return NewTable(s.colors, s.config.MaxTableWidth, headers...)
}

// RenderTable writes t
func (s *Service) RenderTable(t *Table) {
	t.Render(s.config.Writer)
}

// NewProgressBar returns a bar, or nil when progress output is disabled
func (s *Service) NewProgressBar(total int) *ProgressBar {
	if !s.config.IsProgressEnabled() {
		return nil
	}
	return NewProgressBar(total, s.config.Writer, s.colors, s.theme, s.unicode)
}

// Structured writes v as JSON or YAML. It reports false when the format is
// not structured and nothing was written.
func (s *Service) Structured(v interface{}) (bool, error) {
	switch OutputFormat(s.config.OutputFormat) {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to format JSON: %w", err)
		}
		fmt.Fprintln(s.config.Writer, string(data))
		return true, nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to format YAML: %w", err)
		}
		fmt.Fprint(s.config.Writer, string(data))
		return true, nil
	default:
		return false, nil
	}
}

// Compact reports whether one-line output was requested
func (s *Service) Compact() bool {
	return s.config.OutputFormat == string(FormatCompact)
}

// Println writes a plain line
func (s *Service) Println(a ...interface{}) {
	fmt.Fprintln(s.config.Writer, a...)
}
