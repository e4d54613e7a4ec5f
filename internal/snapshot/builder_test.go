package snapshot

import (
	"context"
	"errors"
	"testing"

	"printops-snapshot/internal/store"
	"printops-snapshot/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenPrefs struct{}

func (brokenPrefs) Get(string) (any, bool, error) { return nil, false, errors.New("disk on fire") }
func (brokenPrefs) Set(string, any) error         { return errors.New("disk on fire") }

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	backing := newMemoryStore(t)
	seed(t, backing, store.CollectionPrinters, Record{"id": "p1"}, Record{"id": "p2"})
	seed(t, backing, store.CollectionTickets, Record{"id": "t1", "title": "Jam"})

	prefStore := newPrefs(map[string]any{
		PrefDefaultPrinterTab: "toners",
		PrefCopiedTicketIDs:   []any{"t1"},
	})

	producer := ProducerInfo{Name: "printops", Version: "1.4.0", ExportedBy: "ops@example.com"}
	snap, err := NewBuilder(backing, prefStore, nil, producer, quietLogger()).WithClock(fixedClock).Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, snap.Version)
	assert.Equal(t, CurrentVersion, snap.Metadata.SchemaVersion)
	assert.Equal(t, fixedNow, snap.ExportedAt)
	assert.Equal(t, "printops", snap.Metadata.ProducerName)
	assert.Equal(t, "ops@example.com", snap.Metadata.ExportedBy)

	// every known collection is present, even when empty
	for _, name := range store.Collections() {
		assert.Contains(t, snap.Collections, name)
	}
	assert.Len(t, snap.Collections[store.CollectionPrinters], 2)
	assert.Empty(t, snap.Collections[store.CollectionUsers])

	// missing preference takes its default
	assert.Equal(t, []any{}, snap.Preferences[PrefLastReportSelection])
	assert.Equal(t, "toners", snap.Preferences[PrefDefaultPrinterTab])

	// 3 records plus 2 non-empty preferences
	assert.Equal(t, 5, snap.Metadata.TotalRecordCount)

	assert.NotEmpty(t, snap.Checksum)
	assert.True(t, NewChecksummer(ChecksumSHA256).Verify(snap))
}

func TestBuilder_ReadFailureFailsBuild(t *testing.T) {
	faulty := storetest.NewFaulty(newMemoryStore(t))
	faulty.Unavailable[store.CollectionOrders] = true

	snap, err := NewBuilder(faulty, nil, nil, ProducerInfo{}, quietLogger()).Build(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)

	snapErr, ok := AsSnapshotError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeCollection, snapErr.Type)
	assert.True(t, errors.Is(err, store.ErrCollectionUnavailable))
}

func TestBuilder_PreferenceErrorsUseDefaults(t *testing.T) {
	snap, err := NewBuilder(newMemoryStore(t), brokenPrefs{}, nil, ProducerInfo{}, quietLogger()).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{}, snap.Preferences[PrefLastReportSelection])
	assert.Nil(t, snap.Preferences[PrefDefaultPrinterTab])
	assert.Equal(t, []any{}, snap.Preferences[PrefCopiedTicketIDs])
	assert.Equal(t, 0, snap.Metadata.TotalRecordCount)
}

func TestBuilder_RollingChecksum(t *testing.T) {
	snap, err := NewBuilder(newMemoryStore(t), nil, NewChecksummer(ChecksumRolling), ProducerInfo{}, quietLogger()).Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snap.Checksum, "r32:")
}
