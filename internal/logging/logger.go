package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows per-collection and per-batch detail
	LogLevelVerbose LogLevel = "verbose"
	// LogLevelDebug shows everything, including per-record failures
	LogLevelDebug LogLevel = "debug"
)

type contextKey string

const operationIDKey contextKey = "operation_id"

// Logger provides structured logging for snapshot operations
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Output     io.Writer
	Format     string // "text" or "json"
	ShowCaller bool
	LogFile    string
}

// ParseLevel maps a configuration string onto a LogLevel, defaulting to normal.
func ParseLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelQuiet, LogLevelNormal, LogLevelVerbose, LogLevelDebug:
		return LogLevel(s)
	default:
		return LogLevelNormal
	}
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	logger.SetOutput(output)

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	logger.SetLevel(toLogrusLevel(config.Level))

	if config.ShowCaller {
		logger.SetReportCaller(true)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}

	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}
		logger.SetOutput(io.MultiWriter(output, file))
	}

	level := config.Level
	if level == "" {
		level = LogLevelNormal
	}

	return &Logger{
		logger: logger,
		level:  level,
	}, nil
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: os.Stderr,
		Format: "text",
	})
	return logger
}

// NewDiscardLogger returns a logger that drops everything. Used by tests and
// by library callers that do not want output.
func NewDiscardLogger() *Logger {
	logger, _ := NewLogger(Config{
		Level:  LogLevelQuiet,
		Output: io.Discard,
	})
	return logger
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelQuiet:
		return logrus.ErrorLevel
	case LogLevelVerbose:
		return logrus.DebugLevel
	case LogLevelDebug:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// WithContext returns an entry carrying the operation id stored in ctx, if any
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)
	if id := OperationIDFromContext(ctx); id != "" {
		entry = entry.WithField(string(operationIDKey), id)
	}
	return entry
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns a logger with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// Snapshot operation logging methods

// LogCollectionRead logs the outcome of reading one collection
func (l *Logger) LogCollectionRead(source, collection string, count int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation":  "collection_read",
		"source":     source,
		"collection": collection,
		"records":    count,
		"duration":   duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Collection read failed")
		return
	}
	l.logger.WithFields(fields).Debug("Collection read")
}

// LogBatchWrite logs a bulk insert attempt. A failed batch is logged as a
// warning because the caller falls back to record-at-a-time writes.
func (l *Logger) LogBatchWrite(collection string, batchIndex, size int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation":  "batch_write",
		"collection": collection,
		"batch":      batchIndex,
		"size":       size,
		"duration":   duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Warn("Batch insert failed, retrying record by record")
		return
	}
	l.logger.WithFields(fields).Debug("Batch inserted")
}

// LogRecordSkipped logs a single record that could not be written
func (l *Logger) LogRecordSkipped(collection, id string, err error) {
	fields := logrus.Fields{
		"operation":  "record_write",
		"collection": collection,
		"id":         id,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.logger.WithFields(fields).Trace("Record skipped")
}

// LogCollectionImport logs the per-collection outcome of an import
func (l *Logger) LogCollectionImport(collection, mode string, migrated, skipped int, err error) {
	fields := logrus.Fields{
		"operation":  "collection_import",
		"collection": collection,
		"mode":       mode,
		"migrated":   migrated,
		"skipped":    skipped,
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Collection import failed")
		return
	}
	if skipped > 0 {
		l.logger.WithFields(fields).Warn("Collection imported with skipped records")
		return
	}
	l.logger.WithFields(fields).Debug("Collection imported")
}

// LogImportResult logs the aggregate outcome of an import attempt
func (l *Logger) LogImportResult(version string, success bool, migrated, skipped, warnings int, errMsg string) {
	fields := logrus.Fields{
		"operation": "import",
		"version":   version,
		"success":   success,
		"migrated":  migrated,
		"skipped":   skipped,
		"warnings":  warnings,
	}

	if !success {
		fields["error"] = errMsg
		l.logger.WithFields(fields).Error("Import failed")
		return
	}
	l.logger.WithFields(fields).Info("Import completed")
}

// LogSchemaMigration logs a snapshot schema upgrade
func (l *Logger) LogSchemaMigration(fromVersion, toVersion string, warnings int) {
	l.logger.WithFields(logrus.Fields{
		"operation":    "schema_migration",
		"from_version": fromVersion,
		"to_version":   toVersion,
		"warnings":     warnings,
	}).Info("Snapshot migrated to current schema")
}

// LogMigrationProgress logs a local-to-remote progress event
func (l *Logger) LogMigrationProgress(collection string, current, total int, status string) {
	fields := logrus.Fields{
		"operation":  "local_migration",
		"collection": collection,
		"current":    current,
		"total":      total,
		"status":     status,
	}

	if status == "error" {
		l.logger.WithFields(fields).Error("Local migration progress")
		return
	}
	l.logger.WithFields(fields).Debug("Local migration progress")
}

// LogDatabaseConnection logs backing store connection attempts
func (l *Logger) LogDatabaseConnection(host, database string, success bool, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "database_connection",
		"host":      host,
		"database":  database,
		"duration":  duration.String(),
		"success":   success,
	}

	if success {
		l.logger.WithFields(fields).Info("Database connection established")
		return
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.logger.WithFields(fields).Error("Database connection failed")
}

// Standard logging methods

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.logger.SetLevel(toLogrusLevel(level))
}

// IsLevelEnabled checks if a log level is enabled
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	return l.logger.IsLevelEnabled(toLogrusLevel(level))
}

// LogOperationStart logs the start of an operation and returns a function to log completion
func (l *Logger) LogOperationStart(operation string, fields map[string]interface{}) func(error) {
	startTime := time.Now()

	logFields := logrus.Fields{
		"operation": operation,
		"status":    "started",
	}
	for k, v := range fields {
		logFields[k] = v
	}

	l.logger.WithFields(logFields).Debug("Operation started")

	return func(err error) {
		logFields["status"] = "completed"
		logFields["duration"] = time.Since(startTime).String()

		if err != nil {
			logFields["error"] = err.Error()
			logFields["success"] = false
			l.logger.WithFields(logFields).Error("Operation failed")
			return
		}
		logFields["success"] = true
		l.logger.WithFields(logFields).Info("Operation completed")
	}
}

// NewOperationContext returns a context tagged with a fresh operation id
func NewOperationContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, operationIDKey, uuid.NewString())
}

// OperationIDFromContext extracts the operation id from ctx
func OperationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}
