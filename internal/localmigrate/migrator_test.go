package localmigrate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/store"
	"printops-snapshot/internal/store/memory"
	"printops-snapshot/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.New()
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func seedN(t *testing.T, s store.BackingStore, collection string, n int) {
	t.Helper()
	recs := make([]store.Record, n)
	for i := range recs {
		recs[i] = store.Record{"id": fmt.Sprintf("%s-%02d", collection, i)}
	}
	require.NoError(t, s.AddBatch(context.Background(), collection, recs))
}

type progressLog []Progress

func (p *progressLog) record(pr Progress) { *p = append(*p, pr) }

func TestMigrateAll_EmptySourceWritesNothing(t *testing.T) {
	backing := storetest.NewFaulty(newMemory(t))

	var log progressLog
	result := NewMigrator(newMemory(t), backing, nil, logging.NewDiscardLogger()).MigrateAll(context.Background(), log.record)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "nothing to migrate")
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, backing.Writes())
	assert.Equal(t, 0, backing.Calls("Get"))
	require.Len(t, log, 1)
	assert.Equal(t, StatusError, log[0].Status)
}

func TestMigrateAll_CopiesEveryCollection(t *testing.T) {
	ctx := context.Background()
	local := newMemory(t)
	seedN(t, local, store.CollectionPrinters, 3)
	seedN(t, local, store.CollectionTickets, 2)

	backing := newMemory(t)
	result := NewMigrator(local, backing, nil, logging.NewDiscardLogger()).MigrateAll(ctx, nil)

	require.True(t, result.Success, result.Message)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "migrated 5 records", result.Message)

	for _, name := range []string{store.CollectionPrinters, store.CollectionTickets} {
		want, err := local.GetAll(ctx, name)
		require.NoError(t, err)
		got, err := backing.GetAll(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMigrateAll_UpdatesExistingRemoteRecords(t *testing.T) {
	ctx := context.Background()
	local := newMemory(t)
	require.NoError(t, local.Add(ctx, store.CollectionInventory, store.Record{"id": "A", "quantity": 9}))
	require.NoError(t, local.Add(ctx, store.CollectionInventory, store.Record{"id": "C", "quantity": 1}))

	remote := newMemory(t)
	require.NoError(t, remote.Add(ctx, store.CollectionInventory, store.Record{"id": "A", "quantity": 5}))
	require.NoError(t, remote.Add(ctx, store.CollectionInventory, store.Record{"id": "B", "quantity": 3}))
	backing := storetest.NewFaulty(remote)

	result := NewMigrator(local, backing, nil, logging.NewDiscardLogger()).MigrateAll(ctx, nil)
	require.True(t, result.Success)

	assert.Equal(t, 1, backing.Calls("Update"))
	assert.Equal(t, 1, backing.Calls("Add"))

	got, err := remote.Get(ctx, store.CollectionInventory, "A")
	require.NoError(t, err)
	assert.Equal(t, 9, got["quantity"])

	all, err := remote.GetAll(ctx, store.CollectionInventory)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMigrateAll_RecordFailuresAreCollected(t *testing.T) {
	local := newMemory(t)
	seedN(t, local, store.CollectionUsers, 5)

	backing := storetest.NewFaulty(newMemory(t))
	backing.FailRecord = func(collection, id string) error {
		if id == "users-01" || id == "users-03" {
			return errors.New("write rejected")
		}
		return nil
	}

	result := NewMigrator(local, backing, nil, logging.NewDiscardLogger()).MigrateAll(context.Background(), nil)
	assert.True(t, result.Success)
	assert.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "users/users-01")
	assert.Equal(t, "migrated 3 of 5 records with 2 errors", result.Message)
}

func TestMigrateAll_AllRecordsFail(t *testing.T) {
	local := newMemory(t)
	seedN(t, local, store.CollectionOrders, 2)

	backing := storetest.NewFaulty(newMemory(t))
	backing.Unavailable[store.CollectionOrders] = true

	var log progressLog
	result := NewMigrator(local, backing, nil, logging.NewDiscardLogger()).MigrateAll(context.Background(), log.record)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, StatusError, log[len(log)-1].Status)
}

func TestMigrateAll_ReadFailureContributesError(t *testing.T) {
	inner := newMemory(t)
	seedN(t, inner, store.CollectionPrinters, 1)
	seedN(t, inner, store.CollectionLoans, 4)
	local := &storetest.FaultyLocal{
		Inner:    inner,
		FailRead: map[string]error{store.CollectionLoans: errors.New("corrupt page")},
	}

	backing := newMemory(t)
	result := NewMigrator(local, backing, nil, logging.NewDiscardLogger()).MigrateAll(context.Background(), nil)

	assert.True(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "loans: read failed")

	loans, err := backing.GetAll(context.Background(), store.CollectionLoans)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestMigrateAll_ProgressCadence(t *testing.T) {
	local := newMemory(t)
	seedN(t, local, store.CollectionPrinters, 25)
	seedN(t, local, store.CollectionUsers, 3)

	var log progressLog
	result := NewMigrator(local, newMemory(t), nil, logging.NewDiscardLogger()).MigrateAll(context.Background(), log.record)
	require.True(t, result.Success)

	// printers start, after 10, after 20, users start, completed
	require.Len(t, log, 5)
	assert.Equal(t, Progress{Total: 28, Current: 0, Collection: store.CollectionPrinters, Status: StatusInProgress, Message: "migrating 25 records from printers"}, log[0])
	assert.Equal(t, 10, log[1].Current)
	assert.Equal(t, 20, log[2].Current)
	assert.Equal(t, store.CollectionUsers, log[3].Collection)
	assert.Equal(t, 25, log[3].Current)
	assert.Equal(t, StatusCompleted, log[4].Status)
	assert.Equal(t, 28, log[4].Current)
	for _, p := range log {
		assert.Equal(t, 28, p.Total)
	}
}

func TestMigrateAll_CopiesSettings(t *testing.T) {
	ctx := context.Background()
	local := newMemory(t)
	seedN(t, local, store.CollectionPrinters, 1)

	prefStore := prefs.NewMemoryStore(map[string]any{
		"defaultPrinterTab":   "fusers",
		"ticketSortOrder":     "newest",
		"lastReportSelection": []any{"ignored"},
	})

	backing := newMemory(t)
	result := NewMigrator(local, backing, prefStore, logging.NewDiscardLogger()).MigrateAll(ctx, nil)
	require.True(t, result.Success)

	v, err := backing.GetSetting(ctx, "defaultPrinterTab")
	require.NoError(t, err)
	assert.Equal(t, "fusers", v)

	v, err = backing.GetSetting(ctx, "ticketSortOrder")
	require.NoError(t, err)
	assert.Equal(t, "newest", v)

	// absent locally, so never written
	v, err = backing.GetSetting(ctx, "printerViewMode")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = backing.GetSetting(ctx, "lastReportSelection")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMigrateAll_SettingFailureIsError(t *testing.T) {
	local := newMemory(t)
	seedN(t, local, store.CollectionPrinters, 1)

	backing := storetest.NewFaulty(newMemory(t))
	backing.FailSetSetting = errors.New("settings table locked")

	prefStore := prefs.NewMemoryStore(map[string]any{"printerViewMode": "grid"})
	result := NewMigrator(local, backing, prefStore, logging.NewDiscardLogger()).MigrateAll(context.Background(), nil)

	assert.True(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "printerViewMode")
}
