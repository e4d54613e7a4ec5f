// Package memory implements the backing and local store interfaces on top of
// go-memdb. It backs the "memory" driver and most tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"printops-snapshot/internal/store"

	"github.com/hashicorp/go-memdb"
)

// Store is an in-memory store holding every known collection plus settings
type Store struct {
	db  *memdb.MemDB
	seq atomic.Uint64
}

var (
	_ store.BackingStore = (*Store)(nil)
	_ store.LocalStore   = (*Store)(nil)
	_ store.Upserter     = (*Store)(nil)
)

// New creates an empty store
func New() (*Store, error) {
	db, err := memdb.NewMemDB(newSchema())
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &Store{db: db}, nil
}

// Init is a no-op; the schema is created by New
func (s *Store) Init(ctx context.Context) error {
	return ctx.Err()
}

// Get returns a copy of the record with the given id
func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(collection, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return store.CloneRecord(raw.(*record).Data), nil
}

// GetAll returns copies of every record in insertion order
func (s *Store) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(collection, "id")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}

	var rows []*record
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		rows = append(rows, raw.(*record))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })

	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.CloneRecord(r.Data))
	}
	return out, nil
}

// Add inserts a record, failing if the id already exists
func (s *Store) Add(ctx context.Context, collection string, rec store.Record) error {
	return s.AddBatch(ctx, collection, []store.Record{rec})
}

// AddBatch inserts every record in one transaction. Any invalid or
// duplicate record aborts the whole batch.
func (s *Store) AddBatch(ctx context.Context, collection string, records []store.Record) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	for _, rec := range records {
		id, err := store.RecordID(rec)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
		existing, err := txn.First(collection, "id", id)
		if err != nil {
			return fmt.Errorf("find %s/%s: %w", collection, id, err)
		}
		if existing != nil {
			return fmt.Errorf("insert %s/%s: %w", collection, id, store.ErrDuplicateID)
		}
		row := &record{ID: id, Seq: s.seq.Add(1), Data: store.CloneRecord(rec)}
		if err := txn.Insert(collection, row); err != nil {
			return fmt.Errorf("insert %s/%s: %w", collection, id, err)
		}
	}

	txn.Commit()
	return nil
}

// Update replaces an existing record, keeping its position
func (s *Store) Update(ctx context.Context, collection string, rec store.Record) error {
	return s.put(ctx, collection, rec, false)
}

// Upsert inserts or replaces a record in a single transaction
func (s *Store) Upsert(ctx context.Context, collection string, rec store.Record) error {
	return s.put(ctx, collection, rec, true)
}

func (s *Store) put(ctx context.Context, collection string, rec store.Record, insertMissing bool) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}
	id, err := store.RecordID(rec)
	if err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(collection, "id", id)
	if err != nil {
		return fmt.Errorf("find %s/%s: %w", collection, id, err)
	}

	var seq uint64
	switch {
	case raw != nil:
		seq = raw.(*record).Seq
	case insertMissing:
		seq = s.seq.Add(1)
	default:
		return fmt.Errorf("update %s/%s: %w", collection, id, store.ErrNotFound)
	}

	if err := txn.Insert(collection, &record{ID: id, Seq: seq, Data: store.CloneRecord(rec)}); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	txn.Commit()
	return nil
}

// Delete removes a record; deleting a missing id is not an error
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(collection, "id", id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	txn.Commit()
	return nil
}

// Clear removes every record of a collection
func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(collection, "id"); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	txn.Commit()
	return nil
}

// GetSetting returns the stored value, or nil when the key is absent
func (s *Store) GetSetting(ctx context.Context, key string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSettings, "id", key)
	if err != nil {
		return nil, fmt.Errorf("find setting %s: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*setting).Value, nil
}

// SetSetting stores a key/value setting
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tblSettings, &setting{Key: key, Value: value}); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	txn.Commit()
	return nil
}

// Count returns the number of records in a collection
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	records, err := s.GetAll(ctx, collection)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Store) check(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return store.CheckCollection(collection)
}
