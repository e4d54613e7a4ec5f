package snapshot

import (
	"fmt"
	"time"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/store"
)

// MigrationFunc upgrades a working copy of a snapshot from one source
// version straight to CurrentVersion and returns what it defaulted.
// It only adds missing fields, collections and preference keys.
type MigrationFunc func(snap *Snapshot, now time.Time) []string

// migrations has exactly one entry per supported source version
var migrations = map[string]MigrationFunc{
	Version10: migrateFrom10,
	Version11: migrateFrom11,
	Version12: migrateFrom12,
}

// Migrator upgrades older snapshots to the current schema
type Migrator struct {
	checksummer *Checksummer
	logger      *logging.Logger
	now         func() time.Time
}

// NewMigrator creates a migrator that re-stamps migrated snapshots with checksummer
func NewMigrator(checksummer *Checksummer, logger *logging.Logger) *Migrator {
	if checksummer == nil {
		checksummer = NewChecksummer(ChecksumSHA256)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Migrator{checksummer: checksummer, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for defaulted timestamps
func (m *Migrator) WithClock(now func() time.Time) *Migrator {
	m.now = now
	return m
}

// Migrate returns a new snapshot at CurrentVersion plus advisory warnings.
// snap itself is left untouched. An unsupported version is a
// CompatibilityError and nothing is attempted.
func (m *Migrator) Migrate(snap *Snapshot) (*Snapshot, []string, error) {
	info := ClassifyVersion(snap)
	if !info.IsCompatible {
		return nil, nil, NewCompatibilityError(fmt.Sprintf("unsupported snapshot version %q", info.Version), nil).
			WithContext("supported", SupportedVersions)
	}

	out := snap.Clone()
	if out.Collections == nil {
		out.Collections = map[string][]Record{}
	}
	if out.Preferences == nil {
		out.Preferences = map[string]any{}
	}
	if !info.NeedsMigration {
		return out, []string{}, nil
	}

	migrate, ok := migrations[info.Version]
	if !ok {
		return nil, nil, NewCompatibilityError(fmt.Sprintf("no migration registered for version %q", info.Version), nil)
	}

	warnings := migrate(out, m.now().UTC())
	if warnings == nil {
		warnings = []string{}
	}

	// keys a source artifact dropped even though its version had them
	for _, name := range store.Collections() {
		if _, ok := out.Collections[name]; !ok {
			out.Collections[name] = []Record{}
		}
	}

	out.Version = CurrentVersion
	out.Metadata.SchemaVersion = CurrentVersion
	if err := m.checksummer.Stamp(out); err != nil {
		return nil, nil, err
	}

	m.logger.LogSchemaMigration(info.Version, CurrentVersion, len(warnings))
	return out, warnings, nil
}

func migrateFrom10(snap *Snapshot, now time.Time) []string {
	var w warnings
	defaultPrinters(snap, now, &w)
	w.field(snap, store.CollectionInventory, "category", constant("toner"))
	w.field(snap, store.CollectionInventory, "minQuantity", constant(0))
	w.field(snap, store.CollectionChanges, "changeType", constant("toner"))
	w.field(snap, store.CollectionUsers, "disabled", constant(false))
	w.collections(snap, Version10)
	w.preferences(snap, Version10)
	return w
}

func migrateFrom11(snap *Snapshot, now time.Time) []string {
	var w warnings
	defaultPrinters(snap, now, &w)
	w.field(snap, store.CollectionInventory, "category", constant("toner"))
	w.field(snap, store.CollectionInventory, "minQuantity", constant(0))
	w.field(snap, store.CollectionChanges, "changeType", constant("toner"))
	w.field(snap, store.CollectionLoans, "returned", constant(false))
	w.field(snap, store.CollectionEmptyToners, "status", constant("pending"))
	w.field(snap, store.CollectionUsers, "disabled", constant(false))
	w.field(snap, store.CollectionOperators, "disabled", constant(false))
	w.collections(snap, Version11)
	w.preferences(snap, Version11)
	return w
}

func migrateFrom12(snap *Snapshot, now time.Time) []string {
	var w warnings
	defaultPrinters(snap, now, &w)
	w.field(snap, store.CollectionInventory, "minQuantity", constant(0))
	w.field(snap, store.CollectionPrinterFusers, "installedAt", timestampFrom("createdAt", now))
	w.field(snap, store.CollectionUsers, "disabled", constant(false))
	w.field(snap, store.CollectionOperators, "disabled", constant(false))
	w.collections(snap, Version12)
	w.preferences(snap, Version12)
	return w
}

func defaultPrinters(snap *Snapshot, now time.Time, w *warnings) {
	w.field(snap, store.CollectionPrinters, "archived", constant(false))
	w.field(snap, store.CollectionPrinters, "updatedAt", timestampFrom("createdAt", now))
}

// warnings accumulates the human-readable account of what was defaulted
type warnings []string

// field sets field on every record of collection that lacks it
func (w *warnings) field(snap *Snapshot, collection, field string, value func(Record) any) {
	records := snap.Collections[collection]
	n := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, present := rec[field]; present {
			continue
		}
		rec[field] = value(rec)
		n++
	}
	if n > 0 {
		*w = append(*w, fmt.Sprintf("%s: set %s on %d %s", collection, field, n, plural(n, "record")))
	}
}

// collections initializes every collection introduced after source
func (w *warnings) collections(snap *Snapshot, source string) {
	existed := map[string]bool{}
	for _, c := range CollectionsFor(source) {
		existed[c] = true
	}
	for _, c := range CollectionsFor(CurrentVersion) {
		if existed[c] {
			continue
		}
		if _, ok := snap.Collections[c]; ok {
			continue
		}
		snap.Collections[c] = []Record{}
		*w = append(*w, fmt.Sprintf("%s: collection did not exist in version %s, initialized empty", c, source))
	}
}

// preferences adds every current preference key the snapshot lacks
func (w *warnings) preferences(snap *Snapshot, source string) {
	for _, key := range PreferenceKeysFor(CurrentVersion) {
		if _, ok := snap.Preferences[key]; ok {
			continue
		}
		def := PreferenceDefault(key)
		snap.Preferences[key] = def
		*w = append(*w, fmt.Sprintf("preference %s missing in version %s, set to %s", key, source, describe(def)))
	}
}

func constant(v any) func(Record) any {
	return func(Record) any { return v }
}

// timestampFrom copies another timestamp field of the same record, or uses now
func timestampFrom(field string, now time.Time) func(Record) any {
	return func(rec Record) any {
		if v, ok := rec[field]; ok && !isEmptyValue(v) {
			return v
		}
		return now.Format(time.RFC3339Nano)
	}
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case []any:
		if len(t) == 0 {
			return "an empty list"
		}
	}
	return fmt.Sprintf("%v", v)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
