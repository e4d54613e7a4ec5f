// Package storetest provides store wrappers for exercising failure paths.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"printops-snapshot/internal/store"
)

// Faulty wraps a BackingStore and injects failures. It deliberately does not
// implement store.Upserter so callers take the get-then-put path.
type Faulty struct {
	Inner store.BackingStore

	// FailBatch makes AddBatch fail for the named collections.
	FailBatch map[string]bool
	// FailRecord returns an error for individual writes (Add, Update) of a record.
	FailRecord func(collection, id string) error
	// FailGet returns an error for Get calls.
	FailGet func(collection, id string) error
	// Unavailable makes every call on the named collections fail with
	// store.ErrCollectionUnavailable.
	Unavailable map[string]bool
	// FailClear makes Clear fail for the named collections.
	FailClear map[string]bool
	// PanicOn panics inside any write to the named collection.
	PanicOn string
	// FailSetSetting makes SetSetting fail.
	FailSetSetting error

	mu     sync.Mutex
	writes int
	calls  map[string]int
}

var _ store.BackingStore = (*Faulty)(nil)

// NewFaulty wraps inner.
func NewFaulty(inner store.BackingStore) *Faulty {
	return &Faulty{
		Inner:       inner,
		FailBatch:   map[string]bool{},
		Unavailable: map[string]bool{},
		FailClear:   map[string]bool{},
		calls:       map[string]int{},
	}
}

// Writes returns the number of mutating calls that reached the wrapper.
func (f *Faulty) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Calls returns how many times method was invoked.
func (f *Faulty) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Faulty) record(method string, write bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if write {
		f.writes++
	}
}

func (f *Faulty) unavailable(collection string) error {
	if f.Unavailable[collection] {
		return fmt.Errorf("%s: %w", collection, store.ErrCollectionUnavailable)
	}
	return nil
}

func (f *Faulty) maybePanic(collection string) {
	if f.PanicOn != "" && f.PanicOn == collection {
		panic(fmt.Sprintf("injected panic writing %s", collection))
	}
}

func (f *Faulty) Init(ctx context.Context) error {
	return f.Inner.Init(ctx)
}

func (f *Faulty) Get(ctx context.Context, collection, id string) (store.Record, error) {
	f.record("Get", false)
	if err := f.unavailable(collection); err != nil {
		return nil, err
	}
	if f.FailGet != nil {
		if err := f.FailGet(collection, id); err != nil {
			return nil, err
		}
	}
	return f.Inner.Get(ctx, collection, id)
}

func (f *Faulty) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	f.record("GetAll", false)
	if err := f.unavailable(collection); err != nil {
		return nil, err
	}
	return f.Inner.GetAll(ctx, collection)
}

func (f *Faulty) Add(ctx context.Context, collection string, rec store.Record) error {
	f.record("Add", true)
	f.maybePanic(collection)
	if err := f.unavailable(collection); err != nil {
		return err
	}
	if err := f.recordErr(collection, rec); err != nil {
		return err
	}
	return f.Inner.Add(ctx, collection, rec)
}

func (f *Faulty) AddBatch(ctx context.Context, collection string, records []store.Record) error {
	f.record("AddBatch", true)
	f.maybePanic(collection)
	if err := f.unavailable(collection); err != nil {
		return err
	}
	if f.FailBatch[collection] {
		return fmt.Errorf("bulk insert into %s rejected", collection)
	}
	for _, rec := range records {
		if err := f.recordErr(collection, rec); err != nil {
			return err
		}
	}
	return f.Inner.AddBatch(ctx, collection, records)
}

func (f *Faulty) Update(ctx context.Context, collection string, rec store.Record) error {
	f.record("Update", true)
	f.maybePanic(collection)
	if err := f.unavailable(collection); err != nil {
		return err
	}
	if err := f.recordErr(collection, rec); err != nil {
		return err
	}
	return f.Inner.Update(ctx, collection, rec)
}

func (f *Faulty) Delete(ctx context.Context, collection, id string) error {
	f.record("Delete", true)
	if err := f.unavailable(collection); err != nil {
		return err
	}
	return f.Inner.Delete(ctx, collection, id)
}

func (f *Faulty) Clear(ctx context.Context, collection string) error {
	f.record("Clear", true)
	if err := f.unavailable(collection); err != nil {
		return err
	}
	if f.FailClear[collection] {
		return fmt.Errorf("clear %s: permission denied", collection)
	}
	return f.Inner.Clear(ctx, collection)
}

func (f *Faulty) GetSetting(ctx context.Context, key string) (any, error) {
	f.record("GetSetting", false)
	return f.Inner.GetSetting(ctx, key)
}

func (f *Faulty) SetSetting(ctx context.Context, key string, value any) error {
	f.record("SetSetting", true)
	if f.FailSetSetting != nil {
		return f.FailSetSetting
	}
	return f.Inner.SetSetting(ctx, key, value)
}

func (f *Faulty) recordErr(collection string, rec store.Record) error {
	if f.FailRecord == nil {
		return nil
	}
	id, _ := store.RecordID(rec)
	return f.FailRecord(collection, id)
}

// FaultyLocal wraps a LocalStore and fails reads of the named collections.
type FaultyLocal struct {
	Inner    store.LocalStore
	FailRead map[string]error
}

var _ store.LocalStore = (*FaultyLocal)(nil)

func (f *FaultyLocal) Init(ctx context.Context) error {
	return f.Inner.Init(ctx)
}

func (f *FaultyLocal) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	if err, ok := f.FailRead[collection]; ok {
		return nil, err
	}
	return f.Inner.GetAll(ctx, collection)
}
