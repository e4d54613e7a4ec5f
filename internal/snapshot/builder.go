package snapshot

import (
	"context"
	"time"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/store"

	"golang.org/x/sync/errgroup"
)

// ProducerInfo identifies the program that wrote an artifact
type ProducerInfo struct {
	Name       string
	Version    string
	ExportedBy string
}

// Builder assembles a Snapshot from the backing store and local preferences
type Builder struct {
	backing     store.BackingStore
	prefs       prefs.Store
	checksummer *Checksummer
	producer    ProducerInfo
	logger      *logging.Logger
	now         func() time.Time
}

// NewBuilder creates a builder. prefStore may be nil, in which case every
// preference takes its default.
func NewBuilder(backing store.BackingStore, prefStore prefs.Store, checksummer *Checksummer, producer ProducerInfo, logger *logging.Logger) *Builder {
	if checksummer == nil {
		checksummer = NewChecksummer(ChecksumSHA256)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Builder{
		backing:     backing,
		prefs:       prefStore,
		checksummer: checksummer,
		producer:    producer,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for exportedAt
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build reads every known collection concurrently and returns a stamped
// snapshot. Any collection read failure fails the whole build.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	done := b.logger.LogOperationStart("build_snapshot", nil)

	collections, err := b.readCollections(ctx)
	if err != nil {
		done(err)
		return nil, err
	}

	preferences := b.readPreferences()

	total := 0
	for _, records := range collections {
		total += len(records)
	}
	for _, v := range preferences {
		if !isEmptyValue(v) {
			total++
		}
	}

	snap := &Snapshot{
		Version:    CurrentVersion,
		ExportedAt: b.now().UTC().Truncate(time.Millisecond),
		Metadata: Metadata{
			ProducerName:     b.producer.Name,
			ProducerVersion:  b.producer.Version,
			SchemaVersion:    CurrentVersion,
			TotalRecordCount: total,
			ExportedBy:       b.producer.ExportedBy,
		},
		Collections: collections,
		Preferences: preferences,
	}

	if err := b.checksummer.Stamp(snap); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return snap, nil
}

func (b *Builder) readCollections(ctx context.Context) (map[string][]Record, error) {
	names := store.Collections()
	results := make([][]Record, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			start := time.Now()
			records, err := b.backing.GetAll(gctx, name)
			b.logger.LogCollectionRead("backing", name, len(records), time.Since(start), err)
			if err != nil {
				return NewCollectionError(name, "read failed, snapshot not built", err)
			}
			if records == nil {
				records = []Record{}
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collections := make(map[string][]Record, len(names))
	for i, name := range names {
		collections[name] = results[i]
	}
	return collections, nil
}

func (b *Builder) readPreferences() map[string]any {
	preferences := make(map[string]any)

	for _, key := range PreferenceKeysFor(CurrentVersion) {
		value := PreferenceDefault(key)
		if b.prefs != nil {
			v, ok, err := b.prefs.Get(key)
			switch {
			case err != nil:
				b.logger.WithFields(map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				}).Warn("Preference unreadable, using default")
			case ok && v != nil:
				value = v
			}
		}
		preferences[key] = value
	}
	return preferences
}
