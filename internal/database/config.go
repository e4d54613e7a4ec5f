package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DatabaseConfig holds the connection parameters for the hosted backing store
type DatabaseConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	Username     string        `mapstructure:"username" yaml:"username"`
	Password     string        `mapstructure:"password" yaml:"password"`
	Database     string        `mapstructure:"database" yaml:"database"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// SetDefaults fills in port, timeout and pool sizes when unset
func (dc *DatabaseConfig) SetDefaults() {
	if dc.Port == 0 {
		dc.Port = 3306
	}
	if dc.Timeout <= 0 {
		dc.Timeout = 30 * time.Second
	}
	if dc.MaxOpenConns <= 0 {
		dc.MaxOpenConns = 10
	}
	if dc.MaxIdleConns <= 0 {
		dc.MaxIdleConns = 5
	}
}

// Validate checks if the database configuration has all required parameters
func (dc *DatabaseConfig) Validate() error {
	var errs []error

	if dc.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if dc.Port <= 0 || dc.Port > 65535 {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}
	if dc.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if dc.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the Data Source Name for the MySQL driver
func (dc *DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = dc.Username
	cfg.Passwd = dc.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", dc.Host, dc.Port)
	cfg.DBName = dc.Database
	cfg.Timeout = dc.Timeout
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// String describes the target without credentials
func (dc *DatabaseConfig) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", dc.Username, dc.Host, dc.Port, dc.Database)
}
