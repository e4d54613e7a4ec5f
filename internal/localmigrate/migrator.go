// Package localmigrate copies records kept in the on-device store into the
// hosted backing store.
package localmigrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/store"
)

// Progress statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ProgressInterval is how many successfully migrated records pass between
// progress reports within a collection
const ProgressInterval = 10

// SettingKeys are the scalar local preferences copied into the backing
// store's settings
var SettingKeys = []string{"defaultPrinterTab", "printerViewMode", "ticketSortOrder"}

// Progress is one report of a running migration. Current and Total are
// cumulative across collections.
type Progress struct {
	Total      int    `json:"total"`
	Current    int    `json:"current"`
	Collection string `json:"collection"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// ProgressFunc receives progress reports. It must not block for long.
type ProgressFunc func(Progress)

// Result is the outcome of MigrateAll
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Migrator copies every collection from a local store into a backing store
type Migrator struct {
	local   store.LocalStore
	backing store.BackingStore
	prefs   prefs.Store
	logger  *logging.Logger
}

// NewMigrator creates a migrator. prefStore may be nil, in which case no
// settings are copied.
func NewMigrator(local store.LocalStore, backing store.BackingStore, prefStore prefs.Store, logger *logging.Logger) *Migrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Migrator{local: local, backing: backing, prefs: prefStore, logger: logger}
}

// MigrateAll reads every local collection, then upserts each record into the
// backing store one collection at a time. Record failures are collected and
// do not stop the run. Success means at least one record was migrated.
func (m *Migrator) MigrateAll(ctx context.Context, onProgress ProgressFunc) Result {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	result := Result{Errors: []string{}}
	done := m.logger.LogOperationStart("migrate_local", nil)

	data, total := m.readAll(ctx, &result)
	if total == 0 {
		result.Message = "nothing to migrate: local store is empty"
		if len(result.Errors) > 0 {
			result.Message = fmt.Sprintf("nothing to migrate: %d local %s could not be read", len(result.Errors), plural(len(result.Errors), "collection"))
		}
		onProgress(Progress{Status: StatusError, Message: result.Message})
		done(errors.New(result.Message))
		return result
	}

	upsert := m.upsertFunc()
	migrated := 0
	for _, name := range store.Collections() {
		records := data[name]
		if len(records) == 0 {
			continue
		}

		m.report(onProgress, Progress{
			Total: total, Current: migrated, Collection: name, Status: StatusInProgress,
			Message: fmt.Sprintf("migrating %d %s from %s", len(records), plural(len(records), "record"), name),
		})

		sinceReport := 0
		for _, rec := range records {
			id, err := store.RecordID(rec)
			if err == nil {
				err = upsert(ctx, name, id, rec)
			}
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", name, displayID(id), err))
				m.logger.LogRecordSkipped(name, id, err)
				continue
			}

			migrated++
			sinceReport++
			if sinceReport == ProgressInterval {
				sinceReport = 0
				m.report(onProgress, Progress{
					Total: total, Current: migrated, Collection: name, Status: StatusInProgress,
					Message: fmt.Sprintf("%d of %d records migrated", migrated, total),
				})
			}
		}
	}

	m.copySettings(ctx, &result)

	result.Success = migrated > 0
	final := Progress{Total: total, Current: migrated, Status: StatusCompleted}
	switch {
	case !result.Success:
		final.Status = StatusError
		result.Message = fmt.Sprintf("no records migrated, %d %s", len(result.Errors), plural(len(result.Errors), "error"))
	case len(result.Errors) > 0:
		result.Message = fmt.Sprintf("migrated %d of %d records with %d %s", migrated, total, len(result.Errors), plural(len(result.Errors), "error"))
	default:
		result.Message = fmt.Sprintf("migrated %d %s", migrated, plural(migrated, "record"))
	}
	final.Message = result.Message
	m.report(onProgress, final)

	if result.Success {
		done(nil)
	} else {
		done(errors.New(result.Message))
	}
	return result
}

// readAll loads every known collection from the local store. A collection
// that cannot be read contributes an error and no records.
func (m *Migrator) readAll(ctx context.Context, result *Result) (map[string][]store.Record, int) {
	data := make(map[string][]store.Record)
	total := 0
	for _, name := range store.Collections() {
		start := time.Now()
		records, err := m.local.GetAll(ctx, name)
		m.logger.LogCollectionRead("local", name, len(records), time.Since(start), err)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read failed: %v", name, err))
			continue
		}
		data[name] = records
		total += len(records)
	}
	return data, total
}

type writeFunc func(ctx context.Context, collection, id string, rec store.Record) error

func (m *Migrator) upsertFunc() writeFunc {
	if u, ok := m.backing.(store.Upserter); ok {
		return func(ctx context.Context, collection, _ string, rec store.Record) error {
			return u.Upsert(ctx, collection, rec)
		}
	}
	return func(ctx context.Context, collection, id string, rec store.Record) error {
		_, err := m.backing.Get(ctx, collection, id)
		switch {
		case err == nil:
			return m.backing.Update(ctx, collection, rec)
		case errors.Is(err, store.ErrNotFound):
			return m.backing.Add(ctx, collection, rec)
		default:
			return err
		}
	}
}

// copySettings copies every scalar preference present locally
func (m *Migrator) copySettings(ctx context.Context, result *Result) {
	if m.prefs == nil {
		return
	}
	for _, key := range SettingKeys {
		value, ok, err := m.prefs.Get(key)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("setting %s: read failed: %v", key, err))
			continue
		}
		if !ok || value == nil {
			continue
		}
		if err := m.backing.SetSetting(ctx, key, value); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("setting %s: %v", key, err))
		}
	}
}

func (m *Migrator) report(onProgress ProgressFunc, p Progress) {
	m.logger.LogMigrationProgress(p.Collection, p.Current, p.Total, p.Status)
	onProgress(p)
}

func displayID(id string) string {
	if id == "" {
		return "<none>"
	}
	return id
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
