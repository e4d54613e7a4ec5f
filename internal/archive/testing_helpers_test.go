package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newLocalProvider(t *testing.T) *LocalStorageProvider {
	t.Helper()
	p, err := NewLocalStorageProvider(&LocalConfig{BasePath: t.TempDir(), Permissions: 0755})
	require.NoError(t, err)
	return p
}

func testMetadata(at time.Time, payload []byte) *Metadata {
	return &Metadata{
		ID:             NewID(at),
		CreatedAt:      at,
		SchemaVersion:  "2.0",
		RecordCount:    3,
		Compression:    CompressionTypeNone,
		OriginalSize:   int64(len(payload)),
		StoredSize:     int64(len(payload)),
		StoredChecksum: storedChecksum(payload),
	}
}

// steppingClock advances one minute per call
func steppingClock() func() time.Time {
	next := baseTime
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}
