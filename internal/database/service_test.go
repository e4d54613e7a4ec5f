package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "printops-snapshot/internal/errors"
	"printops-snapshot/internal/logging"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     "db.internal",
		Port:     3306,
		Username: "ops",
		Password: "secret",
		Database: "printops",
		Timeout:  time.Second,
	}
}

func fastRetry() apperrors.RetryConfig {
	return apperrors.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestNewService(t *testing.T) {
	service := NewService(nil)
	require.NotNil(t, service)
	assert.Equal(t, 30*time.Second, service.connectionTimeout)
	assert.NotNil(t, service.logger)
	assert.NotNil(t, service.open)
}

func TestConnect_InvalidConfig(t *testing.T) {
	service := NewService(logging.NewDiscardLogger()).WithOpener(func(string, string) (*sql.DB, error) {
		t.Fatal("opener should not be called for an invalid config")
		return nil, nil
	})

	_, err := service.Connect(context.Background(), DatabaseConfig{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetErrorType(err))
}

func TestConnect_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	var gotDriver, gotDSN string
	service := NewService(logging.NewDiscardLogger()).WithOpener(func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	})

	conn, err := service.Connect(context.Background(), validConfig())
	require.NoError(t, err)
	assert.Same(t, db, conn)
	assert.Equal(t, "mysql", gotDriver)
	assert.Contains(t, gotDSN, "tcp(db.internal:3306)/printops")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("handshake failed"))

	service := NewService(logging.NewDiscardLogger()).
		WithRetry(fastRetry()).
		WithOpener(func(string, string) (*sql.DB, error) { return db, nil })

	_, err = service.Connect(context.Background(), validConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestConnect_OpenFailure(t *testing.T) {
	calls := 0
	service := NewService(logging.NewDiscardLogger()).
		WithRetry(fastRetry()).
		WithOpener(func(string, string) (*sql.DB, error) {
			calls++
			return nil, errors.New("unknown driver")
		})

	_, err := service.Connect(context.Background(), validConfig())
	require.Error(t, err)
	assert.Equal(t, 1, calls, "unclassified errors are not retried")
}

func TestPing_NilDB(t *testing.T) {
	service := NewService(logging.NewDiscardLogger())
	err := service.Ping(context.Background(), nil)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetErrorType(err))
}

func TestClose(t *testing.T) {
	service := NewService(logging.NewDiscardLogger())
	assert.NoError(t, service.Close(nil))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	assert.NoError(t, service.Close(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
