package snapshot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/store"
	"printops-snapshot/internal/store/memory"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.New()
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func seed(t *testing.T, s store.BackingStore, collection string, records ...Record) {
	t.Helper()
	require.NoError(t, s.AddBatch(context.Background(), collection, records))
}

func quietLogger() *logging.Logger {
	return logging.NewDiscardLogger()
}

// currentSnapshot returns a stamped 2.0 snapshot holding the given collections
func currentSnapshot(t *testing.T, collections map[string][]Record, preferences map[string]any) *Snapshot {
	t.Helper()
	if preferences == nil {
		preferences = map[string]any{
			PrefLastReportSelection: []any{},
			PrefDefaultPrinterTab:   nil,
			PrefCopiedTicketIDs:     []any{},
		}
	}
	snap := &Snapshot{
		Version:     CurrentVersion,
		ExportedAt:  fixedNow,
		Metadata:    Metadata{ProducerName: "printops", ProducerVersion: "test", SchemaVersion: CurrentVersion},
		Collections: collections,
		Preferences: preferences,
	}
	require.NoError(t, NewChecksummer(ChecksumSHA256).Stamp(snap))
	return snap
}

func records(prefix string, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"id": fmt.Sprintf("%s-%03d", prefix, i)}
	}
	return out
}

func newPrefs(values map[string]any) *prefs.MemoryStore {
	return prefs.NewMemoryStore(values)
}
