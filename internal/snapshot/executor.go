package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/store"
)

// Batch size bounds for replace-mode bulk inserts
const (
	DefaultBatchSize = 500
	MinBatchSize     = 100
	MaxBatchSize     = 1000
)

// ClampBatchSize keeps n within [MinBatchSize, MaxBatchSize]; zero or
// negative selects the default
func ClampBatchSize(n int) int {
	switch {
	case n <= 0:
		return DefaultBatchSize
	case n < MinBatchSize:
		return MinBatchSize
	case n > MaxBatchSize:
		return MaxBatchSize
	default:
		return n
	}
}

// Executor writes a current-version snapshot into the backing store
type Executor struct {
	backing     store.BackingStore
	prefs       prefs.Store
	checksummer *Checksummer
	batchSize   int
	logger      *logging.Logger
}

// NewExecutor creates an executor. prefStore may be nil, in which case
// preferences are not restored.
func NewExecutor(backing store.BackingStore, prefStore prefs.Store, checksummer *Checksummer, logger *logging.Logger) *Executor {
	if checksummer == nil {
		checksummer = NewChecksummer(ChecksumSHA256)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Executor{
		backing:     backing,
		prefs:       prefStore,
		checksummer: checksummer,
		batchSize:   DefaultBatchSize,
		logger:      logger,
	}
}

// WithBatchSize sets the replace-mode batch size, clamped to the allowed range
func (e *Executor) WithBatchSize(n int) *Executor {
	e.batchSize = ClampBatchSize(n)
	return e
}

// BatchSize returns the effective batch size
func (e *Executor) BatchSize() int {
	return e.batchSize
}

// Execute applies snap to the backing store. It always returns a result;
// validation failures return before any write, and a panic during writing
// becomes a failed result carrying the counts reached so far.
func (e *Executor) Execute(ctx context.Context, snap *Snapshot, opts ImportOptions) (result *MigrationResult) {
	if snap == nil {
		return NewFailedResult("", NewStructuralError("no snapshot to import", nil))
	}

	result = &MigrationResult{Version: snap.Version, Warnings: []string{}}
	mode := "replace"
	if opts.MergeMode {
		mode = "merge"
	}
	done := e.logger.LogOperationStart("import", map[string]interface{}{
		"mode":            mode,
		"version":         snap.Version,
		"skip_validation": opts.SkipValidation,
	})

	defer func() {
		if r := recover(); r != nil {
			result.fail(NewAdapterError("import aborted", fmt.Errorf("%v", r)))
		}
		e.logger.LogImportResult(result.Version, result.Success, result.MigratedRecords, result.SkippedRecords, len(result.Warnings), result.Error)
		if result.Success {
			done(nil)
		} else {
			done(errors.New(result.Error))
		}
	}()

	if err := e.validate(snap, opts); err != nil {
		result.fail(err)
		return result
	}

	var clearFailed map[string]error
	if !opts.MergeMode {
		clearFailed = e.clearAll(ctx, result)
	}

	for _, name := range store.Collections() {
		records := snap.Collections[name]

		if err, failed := clearFailed[name]; failed {
			if len(records) > 0 {
				result.SkippedRecords += len(records)
				result.Warn(NewCollectionError(name, fmt.Sprintf("not cleared, %d %s skipped", len(records), plural(len(records), "record")), err).Error())
			}
			continue
		}
		if len(records) == 0 {
			continue
		}

		var migrated, skipped int
		if opts.MergeMode {
			migrated, skipped = e.mergeCollection(ctx, name, records, result)
		} else {
			migrated, skipped = e.replaceCollection(ctx, name, records, result)
		}
		result.MigratedRecords += migrated
		result.SkippedRecords += skipped
		e.logger.LogCollectionImport(name, mode, migrated, skipped, nil)
	}

	for _, name := range unknownCollections(snap) {
		result.Warn(fmt.Sprintf("%s: not a known collection, %d %s ignored", name, len(snap.Collections[name]), plural(len(snap.Collections[name]), "record")))
	}

	e.restorePreferences(snap, result)

	result.Success = true
	return result
}

func (e *Executor) validate(snap *Snapshot, opts ImportOptions) error {
	info := ClassifyVersion(snap)
	if !info.IsCompatible {
		return NewCompatibilityError(fmt.Sprintf("unsupported snapshot version %q", info.Version), nil)
	}
	if info.NeedsMigration {
		return NewCompatibilityError(fmt.Sprintf("snapshot version %s must be migrated to %s before import", info.Version, CurrentVersion), nil)
	}
	if opts.SkipValidation {
		return nil
	}
	if snap.Checksum == "" {
		return NewIntegrityError("snapshot has no checksum", nil)
	}
	if !e.checksummer.Verify(snap) {
		return NewIntegrityError("checksum mismatch: snapshot is corrupted or was modified", nil)
	}
	return nil
}

// clearAll empties every known collection and returns the ones that failed
func (e *Executor) clearAll(ctx context.Context, result *MigrationResult) map[string]error {
	failed := map[string]error{}
	for _, name := range store.Collections() {
		if err := e.backing.Clear(ctx, name); err != nil {
			failed[name] = err
			e.logger.LogCollectionImport(name, "replace", 0, 0, err)
		}
	}
	return failed
}

// replaceCollection bulk-inserts records in sequential batches. A failed
// batch is retried one record at a time so only the failing records are lost.
func (e *Executor) replaceCollection(ctx context.Context, name string, records []Record, result *MigrationResult) (migrated, skipped int) {
	valid := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, err := store.RecordID(rec); err != nil {
			skipped++
			result.Warn(NewRecordError(name, "<none>", err).Error())
			continue
		}
		valid = append(valid, rec)
	}

	for start, batchIndex := 0, 0; start < len(valid); start, batchIndex = start+e.batchSize, batchIndex+1 {
		end := min(start+e.batchSize, len(valid))
		batch := valid[start:end]

		began := time.Now()
		err := e.backing.AddBatch(ctx, name, batch)
		e.logger.LogBatchWrite(name, batchIndex, len(batch), time.Since(began), err)
		if err == nil {
			migrated += len(batch)
			continue
		}

		if errors.Is(err, store.ErrCollectionUnavailable) {
			remaining := len(valid) - start
			skipped += remaining
			result.Warn(NewCollectionError(name, fmt.Sprintf("unavailable, %d %s skipped", remaining, plural(remaining, "record")), err).Error())
			return migrated, skipped
		}

		for i, rec := range batch {
			id, _ := store.RecordID(rec)
			err := e.backing.Add(ctx, name, rec)
			if err == nil {
				migrated++
				continue
			}
			if errors.Is(err, store.ErrCollectionUnavailable) {
				remaining := len(valid) - (start + i)
				skipped += remaining
				result.Warn(NewCollectionError(name, fmt.Sprintf("unavailable, %d %s skipped", remaining, plural(remaining, "record")), err).Error())
				return migrated, skipped
			}
			skipped++
			e.logger.LogRecordSkipped(name, id, err)
			result.Warn(NewRecordError(name, id, err).Error())
		}
	}
	return migrated, skipped
}

// mergeCollection upserts each record independently
func (e *Executor) mergeCollection(ctx context.Context, name string, records []Record, result *MigrationResult) (migrated, skipped int) {
	upserter, canUpsert := e.backing.(store.Upserter)

	for i, rec := range records {
		id, err := store.RecordID(rec)
		if err != nil {
			skipped++
			result.Warn(NewRecordError(name, "<none>", err).Error())
			continue
		}

		if canUpsert {
			err = upserter.Upsert(ctx, name, rec)
		} else {
			err = getThenPut(ctx, e.backing, name, id, rec)
		}
		if err == nil {
			migrated++
			continue
		}

		if errors.Is(err, store.ErrCollectionUnavailable) {
			remaining := len(records) - i
			skipped += remaining
			result.Warn(NewCollectionError(name, fmt.Sprintf("unavailable, %d %s skipped", remaining, plural(remaining, "record")), err).Error())
			return migrated, skipped
		}
		skipped++
		e.logger.LogRecordSkipped(name, id, err)
		result.Warn(NewRecordError(name, id, err).Error())
	}
	return migrated, skipped
}

// getThenPut updates rec when a record with the same id exists and inserts
// it otherwise
func getThenPut(ctx context.Context, backing store.BackingStore, collection, id string, rec Record) error {
	_, err := backing.Get(ctx, collection, id)
	switch {
	case err == nil:
		return backing.Update(ctx, collection, rec)
	case errors.Is(err, store.ErrNotFound):
		return backing.Add(ctx, collection, rec)
	default:
		return err
	}
}

// restorePreferences writes every carried preference with a non-empty value.
// Failures are warnings.
func (e *Executor) restorePreferences(snap *Snapshot, result *MigrationResult) {
	if e.prefs == nil {
		return
	}
	for _, key := range PreferenceKeysFor(CurrentVersion) {
		value, ok := snap.Preferences[key]
		if !ok || isEmptyValue(value) {
			continue
		}
		if err := e.prefs.Set(key, value); err != nil {
			result.Warn(fmt.Sprintf("preference %s not restored: %v", key, err))
		}
	}
}

func unknownCollections(snap *Snapshot) []string {
	var out []string
	for name := range snap.Collections {
		if !store.IsKnownCollection(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
