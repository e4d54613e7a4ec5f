// Package config loads the printops-snapshot configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"printops-snapshot/internal/archive"
	"printops-snapshot/internal/database"
	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/snapshot"
)

// Backing store drivers
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config is the full application configuration
type Config struct {
	Backing     BackingConfig     `mapstructure:"backing" yaml:"backing"`
	Local       LocalConfig       `mapstructure:"local" yaml:"local"`
	Preferences PreferencesConfig `mapstructure:"preferences" yaml:"preferences"`
	Import      ImportConfig      `mapstructure:"import" yaml:"import"`
	Checksum    ChecksumConfig    `mapstructure:"checksum" yaml:"checksum"`
	Archive     archive.Config    `mapstructure:"archive" yaml:"archive"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	ExportedBy  string            `mapstructure:"exported_by" yaml:"exported_by"`
}

// BackingConfig selects the hosted backing store
type BackingConfig struct {
	Driver      string                  `mapstructure:"driver" yaml:"driver"`
	TablePrefix string                  `mapstructure:"table_prefix" yaml:"table_prefix"`
	MySQL       database.DatabaseConfig `mapstructure:"mysql" yaml:"mysql"`
}

// LocalConfig points at the legacy embedded store
type LocalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PreferencesConfig points at the preference file
type PreferencesConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ImportConfig tunes the import executor
type ImportConfig struct {
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// ChecksumConfig selects the checksum used for new artifacts
type ChecksumConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
}

// LoggingConfig configures the logrus logger
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills in every unset field
func (c *Config) SetDefaults() {
	if c.Backing.Driver == "" {
		c.Backing.Driver = DriverMySQL
	}
	c.Backing.Driver = strings.ToLower(c.Backing.Driver)
	if c.Backing.TablePrefix == "" {
		c.Backing.TablePrefix = "printops_"
	}
	c.Backing.MySQL.SetDefaults()

	if c.Local.Path == "" {
		c.Local.Path = "printops-local.db"
	}
	if c.Preferences.Path == "" {
		c.Preferences.Path = "printops-preferences.json"
	}

	c.Import.BatchSize = snapshot.ClampBatchSize(c.Import.BatchSize)

	if c.Checksum.Algorithm == "" {
		c.Checksum.Algorithm = string(snapshot.ChecksumSHA256)
	}
	c.Checksum.Algorithm = strings.ToLower(c.Checksum.Algorithm)

	c.Archive.SetDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = string(logging.LogLevelNormal)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.ExportedBy == "" {
		c.ExportedBy = currentUser()
	}
}

// Validate checks the configuration after defaults are applied
func (c *Config) Validate() error {
	var errs []error

	switch c.Backing.Driver {
	case DriverMySQL:
		if err := c.Backing.MySQL.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("backing.mysql: %w", err))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("backing.driver: must be %q or %q, got %q", DriverMySQL, DriverMemory, c.Backing.Driver))
	}

	switch snapshot.ChecksumAlgorithm(c.Checksum.Algorithm) {
	case snapshot.ChecksumSHA256, snapshot.ChecksumRolling:
	default:
		errs = append(errs, fmt.Errorf("checksum.algorithm: must be %q or %q, got %q", snapshot.ChecksumSHA256, snapshot.ChecksumRolling, c.Checksum.Algorithm))
	}

	if logging.ParseLevel(c.Logging.Level) != logging.LogLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format: must be text or json, got %q", c.Logging.Format))
	}

	if c.Archive.Enabled {
		if err := c.Archive.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoggerConfig converts the logging section for logging.NewLogger
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:   logging.ParseLevel(c.Logging.Level),
		Format:  c.Logging.Format,
		LogFile: c.Logging.File,
		Output:  os.Stderr,
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
