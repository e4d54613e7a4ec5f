package store

import (
	"context"
)

// Record is a single domain record. Every record carries a string "id" field
// that is unique within its collection; all other fields are opaque.
type Record = map[string]any

// BackingStore is the hosted database the running application reads and writes.
type BackingStore interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, collection, id string) (Record, error)
	GetAll(ctx context.Context, collection string) ([]Record, error)
	Add(ctx context.Context, collection string, record Record) error
	AddBatch(ctx context.Context, collection string, records []Record) error
	Update(ctx context.Context, collection string, record Record) error
	Delete(ctx context.Context, collection, id string) error
	Clear(ctx context.Context, collection string) error
	GetSetting(ctx context.Context, key string) (any, error)
	SetSetting(ctx context.Context, key string, value any) error
}

// Upserter is an optional BackingStore capability: insert-or-update in a single
// round trip. Callers prefer it over get-then-put when the adapter offers it.
type Upserter interface {
	Upsert(ctx context.Context, collection string, record Record) error
}

// LocalStore is the embedded store used before the one-time migration to the
// backing store. It is read-only from this module's point of view.
type LocalStore interface {
	Init(ctx context.Context) error
	GetAll(ctx context.Context, collection string) ([]Record, error)
}
