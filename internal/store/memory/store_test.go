package memory

import (
	"context"
	"errors"
	"testing"

	"printops-snapshot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rec := store.Record{"id": "p1", "name": "Lobby", "tags": []any{"a"}}
	require.NoError(t, s.Add(ctx, store.CollectionPrinters, rec))

	got, err := s.Get(ctx, store.CollectionPrinters, "p1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// stored values are isolated from caller mutation
	rec["name"] = "changed"
	got["tags"].([]any)[0] = "z"
	again, err := s.Get(ctx, store.CollectionPrinters, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lobby", again["name"])
	assert.Equal(t, []any{"a"}, again["tags"])
}

func TestStore_GetMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(context.Background(), store.CollectionPrinters, "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_UnknownCollection(t *testing.T) {
	s := newStore(t)
	_, err := s.GetAll(context.Background(), "widgets")
	assert.True(t, errors.Is(err, store.ErrUnknownCollection))
}

func TestStore_AddDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Add(ctx, store.CollectionUsers, store.Record{"id": "u1"}))
	err := s.Add(ctx, store.CollectionUsers, store.Record{"id": "u1"})
	assert.True(t, errors.Is(err, store.ErrDuplicateID))
}

func TestStore_AddBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.AddBatch(ctx, store.CollectionOrders, []store.Record{
		{"id": "o1"}, {"id": "o2"}, {"qty": 3},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrMissingID))

	all, err := s.GetAll(ctx, store.CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_GetAllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.AddBatch(ctx, store.CollectionInventory, []store.Record{
		{"id": "z"}, {"id": "a"}, {"id": "m"},
	}))
	require.NoError(t, s.Update(ctx, store.CollectionInventory, store.Record{"id": "z", "qty": 1}))

	all, err := s.GetAll(ctx, store.CollectionInventory)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "z", all[0]["id"])
	assert.Equal(t, 1, all[0]["qty"])
	assert.Equal(t, "a", all[1]["id"])
	assert.Equal(t, "m", all[2]["id"])
}

func TestStore_UpdateAndUpsert(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.Update(ctx, store.CollectionTickets, store.Record{"id": "t1"})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, s.Upsert(ctx, store.CollectionTickets, store.Record{"id": "t1", "state": "open"}))
	require.NoError(t, s.Upsert(ctx, store.CollectionTickets, store.Record{"id": "t1", "state": "closed"}))

	got, err := s.Get(ctx, store.CollectionTickets, "t1")
	require.NoError(t, err)
	assert.Equal(t, "closed", got["state"])

	n, err := s.Count(ctx, store.CollectionTickets)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.AddBatch(ctx, store.CollectionLoans, []store.Record{{"id": "1"}, {"id": "2"}}))
	require.NoError(t, s.Delete(ctx, store.CollectionLoans, "1"))
	require.NoError(t, s.Delete(ctx, store.CollectionLoans, "missing"))

	n, err := s.Count(ctx, store.CollectionLoans)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Clear(ctx, store.CollectionLoans))
	n, err = s.Count(ctx, store.CollectionLoans)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_Settings(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	v, err := s.GetSetting(ctx, "printerViewMode")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.SetSetting(ctx, "printerViewMode", "grid"))
	require.NoError(t, s.SetSetting(ctx, "printerViewMode", "list"))

	v, err = s.GetSetting(ctx, "printerViewMode")
	require.NoError(t, err)
	assert.Equal(t, "list", v)
}

func TestStore_CanceledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Add(ctx, store.CollectionPrinters, store.Record{"id": "p"})
	assert.True(t, errors.Is(err, context.Canceled))
}
