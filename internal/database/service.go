package database

import (
	"context"
	"database/sql"
	"time"

	"printops-snapshot/internal/errors"
	"printops-snapshot/internal/logging"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// OpenFunc opens a database handle. It matches sql.Open and lets tests swap
// in a sqlmock connection.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// Service opens and checks connections to the hosted backing store
type Service struct {
	connectionTimeout time.Duration
	logger            *logging.Logger
	retryHandler      *errors.RetryHandler
	open              OpenFunc
}

// NewService creates a new database service with default settings
func NewService(logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logger,
		retryHandler:      errors.NewDefaultRetryHandler(),
		open:              sql.Open,
	}
}

// WithRetry replaces the retry policy used by Connect
func (s *Service) WithRetry(config errors.RetryConfig) *Service {
	s.retryHandler = errors.NewRetryHandler(config)
	return s
}

// WithOpener replaces the function used to open connections
func (s *Service) WithOpener(open OpenFunc) *Service {
	s.open = open
	return s
}

// Connect validates config, then opens and pings a connection with retry
func (s *Service) Connect(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "invalid backing store configuration", err)
	}
	if config.Timeout > 0 {
		s.connectionTimeout = config.Timeout
	}

	startTime := time.Now()
	s.logger.WithFields(map[string]interface{}{
		"host":     config.Host,
		"database": config.Database,
		"port":     config.Port,
	}).Debug("Connecting to backing store")

	var db *sql.DB
	err := s.retryHandler.Retry(ctx, func() error {
		var openErr error
		db, openErr = s.open("mysql", config.DSN())
		if openErr != nil {
			return errors.WrapError(openErr, "failed to open database connection")
		}

		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)

		if pingErr := s.Ping(ctx, db); pingErr != nil {
			db.Close()
			return pingErr
		}
		return nil
	})

	s.logger.LogDatabaseConnection(config.Host, config.Database, err == nil, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Ping verifies that the database connection is working
func (s *Service) Ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database")
	}
	return nil
}

// Close closes db, tolerating nil
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.WrapError(err, "failed to close database connection")
	}
	return nil
}
