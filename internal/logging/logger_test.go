package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: level, Output: &buf, Format: format})
	require.NoError(t, err)
	return logger, &buf
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   LogLevel
	}{
		{name: "normal text", config: Config{Level: LogLevelNormal, Format: "text"}, want: LogLevelNormal},
		{name: "verbose json", config: Config{Level: LogLevelVerbose, Format: "json"}, want: LogLevelVerbose},
		{name: "quiet", config: Config{Level: LogLevelQuiet}, want: LogLevelQuiet},
		{name: "empty level", config: Config{}, want: LogLevelNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelQuiet, ParseLevel("quiet"))
	assert.Equal(t, LogLevelNormal, ParseLevel("loud"))
	assert.Equal(t, LogLevelNormal, ParseLevel(""))
}

func TestLoggerWithFields(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelVerbose, "text")

	logger.WithFields(map[string]interface{}{
		"collection": "printers",
		"records":    42,
	}).Info("read done")

	output := buf.String()
	assert.Contains(t, output, "collection=printers")
	assert.Contains(t, output, "records=42")
	assert.Contains(t, output, "read done")
}

func TestLoggerWithOperationContext(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "text")

	ctx := NewOperationContext(context.Background())
	id := OperationIDFromContext(ctx)
	require.NotEmpty(t, id)

	logger.WithContext(ctx).Info("tagged")
	assert.Contains(t, buf.String(), "operation_id="+id)

	assert.Empty(t, OperationIDFromContext(context.Background()))
}

func TestLogCollectionRead(t *testing.T) {
	t.Run("success only at verbose", func(t *testing.T) {
		logger, buf := newBufferLogger(t, LogLevelNormal, "text")
		logger.LogCollectionRead("backing", "printers", 3, 0, nil)
		assert.Empty(t, buf.String())

		logger.SetLevel(LogLevelVerbose)
		logger.LogCollectionRead("backing", "printers", 3, 0, nil)
		assert.Contains(t, buf.String(), "collection=printers")
	})

	t.Run("failure always logged", func(t *testing.T) {
		logger, buf := newBufferLogger(t, LogLevelQuiet, "text")
		logger.LogCollectionRead("local", "orders", 0, 0, errors.New("disk gone"))
		assert.Contains(t, buf.String(), "Collection read failed")
		assert.Contains(t, buf.String(), "disk gone")
	})
}

func TestLogBatchWriteFailureIsWarning(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "json")
	logger.LogBatchWrite("inventory", 2, 500, 0, errors.New("duplicate key"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "inventory", entry["collection"])
	assert.Equal(t, float64(2), entry["batch"])
}

func TestLogImportResult(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "text")

	logger.LogImportResult("2.0", true, 10, 1, 1, "")
	assert.Contains(t, buf.String(), "Import completed")

	buf.Reset()
	logger.LogImportResult("2.0", false, 0, 0, 0, "checksum mismatch")
	assert.Contains(t, buf.String(), "Import failed")
	assert.Contains(t, buf.String(), "checksum mismatch")
}

func TestLogOperationStart(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelVerbose, "text")

	done := logger.LogOperationStart("export", map[string]interface{}{"collections": 13})
	assert.Contains(t, buf.String(), "Operation started")
	done(nil)
	assert.Contains(t, buf.String(), "Operation completed")
	assert.Contains(t, buf.String(), "success=true")

	buf.Reset()
	done = logger.LogOperationStart("import", nil)
	done(errors.New("boom"))
	out := buf.String()
	assert.Contains(t, out, "Operation failed")
	assert.True(t, strings.Contains(out, "error=boom"))
}

func TestSetLevel(t *testing.T) {
	logger, _ := newBufferLogger(t, LogLevelNormal, "text")
	assert.False(t, logger.IsLevelEnabled(LogLevelDebug))

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())
	assert.True(t, logger.IsLevelEnabled(LogLevelDebug))
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	require.NotNil(t, logger)
	logger.Error("nothing to see")
	assert.Equal(t, LogLevelQuiet, logger.GetLevel())
}
