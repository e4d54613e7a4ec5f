// Package application wires the snapshot pipeline behind the entry points
// the dashboard and the CLI call.
package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"printops-snapshot/internal/archive"
	"printops-snapshot/internal/localmigrate"
	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/snapshot"
	"printops-snapshot/internal/store"
)

// ErrArchiveDisabled is returned by archive operations when no archive is configured
var ErrArchiveDisabled = errors.New("artifact archive is not configured")

// ErrNoLocalStore is returned when no local store is configured
var ErrNoLocalStore = errors.New("no local store configured")

// Options are the collaborators of an Application. Only Backing is required.
type Options struct {
	Backing store.BackingStore
	// Local is used as is; otherwise OpenLocal is called on first use.
	Local     store.LocalStore
	OpenLocal func(ctx context.Context) (store.LocalStore, error)
	Prefs     prefs.Store
	Archive   *archive.Manager
	Producer  snapshot.ProducerInfo
	Checksum  snapshot.ChecksumAlgorithm
	BatchSize int
	Logger    *logging.Logger
	Clock     func() time.Time
}

// Application exposes export, import, local migration, wipe and archive operations
type Application struct {
	backing     store.BackingStore
	local       store.LocalStore
	openLocal   func(ctx context.Context) (store.LocalStore, error)
	prefs       prefs.Store
	archive     *archive.Manager
	producer    snapshot.ProducerInfo
	checksummer *snapshot.Checksummer
	batchSize   int
	logger      *logging.Logger
	now         func() time.Time
	closers     []func() error
}

// New creates an application from opts
func New(opts Options) (*Application, error) {
	if opts.Backing == nil {
		return nil, errors.New("backing store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	algorithm := opts.Checksum
	if algorithm == "" {
		algorithm = snapshot.ChecksumSHA256
	}

	return &Application{
		backing:     opts.Backing,
		local:       opts.Local,
		openLocal:   opts.OpenLocal,
		prefs:       opts.Prefs,
		archive:     opts.Archive,
		producer:    opts.Producer,
		checksummer: snapshot.NewChecksummer(algorithm),
		batchSize:   snapshot.ClampBatchSize(opts.BatchSize),
		logger:      logger,
		now:         now,
	}, nil
}

// OnClose registers fn to run on Close, in reverse registration order
func (app *Application) OnClose(fn func() error) {
	app.closers = append(app.closers, fn)
}

// Close releases every resource registered with OnClose
func (app *Application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

// Logger returns the application logger
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// ArchiveEnabled reports whether archive operations are available
func (app *Application) ArchiveEnabled() bool {
	return app.archive != nil
}

// BuildExportArtifact builds a snapshot of the backing store and serializes it
func (app *Application) BuildExportArtifact(ctx context.Context) ([]byte, *snapshot.Snapshot, error) {
	snap, err := snapshot.NewBuilder(app.backing, app.prefs, app.checksummer, app.producer, app.logger).
		WithClock(app.now).
		Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	data, err := snap.ToJSON()
	if err != nil {
		return nil, nil, err
	}
	return data, snap, nil
}

// ImportArtifact reads an artifact and applies it to the backing store.
// Structure, version and checksum are all checked before any write; an older
// artifact is verified as exported and then migrated.
func (app *Application) ImportArtifact(ctx context.Context, r io.Reader, opts snapshot.ImportOptions) *snapshot.MigrationResult {
	raw, err := snapshot.ParseArtifact(r)
	if err != nil {
		return app.rejected("", err)
	}
	if err := snapshot.ValidateStructure(raw); err != nil {
		return app.rejected("", err)
	}

	info := snapshot.ClassifyRawVersion(raw)
	if !info.IsCompatible {
		return app.rejected(info.Version, snapshot.NewCompatibilityError(fmt.Sprintf("unsupported snapshot version %q", info.Version), nil).
			WithContext("supported", snapshot.SupportedVersions))
	}

	if !opts.SkipValidation {
		if err := app.checksummer.VerifyRaw(raw); err != nil {
			return app.rejected(info.Version, err)
		}
	}

	snap, err := snapshot.Decode(raw)
	if err != nil {
		return app.rejected(info.Version, err)
	}

	var migrationWarnings []string
	if info.NeedsMigration {
		migrated, warnings, err := snapshot.NewMigrator(app.checksummer, app.logger).WithClock(app.now).Migrate(snap)
		if err != nil {
			return app.rejected(info.Version, err)
		}
		snap, migrationWarnings = migrated, warnings
	}

	result := snapshot.NewExecutor(app.backing, app.prefs, app.checksummer, app.logger).
		WithBatchSize(app.batchSize).
		Execute(ctx, snap, snapshot.ImportOptions{MergeMode: opts.MergeMode, SkipValidation: true})

	result.Version = info.Version
	if len(migrationWarnings) > 0 {
		result.Warnings = append(migrationWarnings, result.Warnings...)
	}
	return result
}

func (app *Application) rejected(version string, err error) *snapshot.MigrationResult {
	app.logger.WithFields(map[string]interface{}{
		"version": version,
		"error":   err.Error(),
	}).Warn("Artifact rejected")
	return snapshot.NewFailedResult(version, err)
}

// MigrateLocalToRemote copies the legacy local store into the backing store
func (app *Application) MigrateLocalToRemote(ctx context.Context, onProgress localmigrate.ProgressFunc) localmigrate.Result {
	local, err := app.localStore(ctx)
	if err != nil {
		if onProgress != nil {
			onProgress(localmigrate.Progress{Status: localmigrate.StatusError, Message: err.Error()})
		}
		return localmigrate.Result{Success: false, Message: err.Error(), Errors: []string{err.Error()}}
	}
	return localmigrate.NewMigrator(local, app.backing, app.prefs, app.logger).MigrateAll(ctx, onProgress)
}

func (app *Application) localStore(ctx context.Context) (store.LocalStore, error) {
	if app.local != nil {
		return app.local, nil
	}
	if app.openLocal == nil {
		return nil, ErrNoLocalStore
	}
	local, err := app.openLocal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	closer, _ := local.(interface{ Close() error })
	if err := local.Init(ctx); err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}
	if closer != nil {
		app.OnClose(closer.Close)
	}
	app.local = local
	return local, nil
}

// DeleteAllData clears every known collection. Every collection is attempted;
// failures are joined.
func (app *Application) DeleteAllData(ctx context.Context) error {
	done := app.logger.LogOperationStart("delete_all_data", nil)

	var errs []error
	for _, name := range store.Collections() {
		if err := app.backing.Clear(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	err := errors.Join(errs...)
	done(err)
	return err
}

// ExportToArchive builds an artifact and stores it in the archive
func (app *Application) ExportToArchive(ctx context.Context) (*archive.Metadata, error) {
	if app.archive == nil {
		return nil, ErrArchiveDisabled
	}
	data, snap, err := app.BuildExportArtifact(ctx)
	if err != nil {
		return nil, err
	}
	return app.ArchiveArtifact(ctx, data, snap)
}

// ArchiveArtifact stores an artifact already built by BuildExportArtifact
func (app *Application) ArchiveArtifact(ctx context.Context, data []byte, snap *snapshot.Snapshot) (*archive.Metadata, error) {
	if app.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return app.archive.Save(ctx, data, archive.ArtifactInfo{
		SchemaVersion:  snap.Version,
		RecordCount:    snap.RecordCount(),
		ExportedBy:     snap.Metadata.ExportedBy,
		SnapshotDigest: snap.Checksum,
	})
}

// ImportFromArchive loads an archived artifact and imports it like a file
func (app *Application) ImportFromArchive(ctx context.Context, id string, opts snapshot.ImportOptions) *snapshot.MigrationResult {
	if app.archive == nil {
		return snapshot.NewFailedResult("", snapshot.NewAdapterError("cannot load archived artifact", ErrArchiveDisabled))
	}
	data, _, err := app.archive.Load(ctx, id)
	if err != nil {
		return snapshot.NewFailedResult("", snapshot.NewAdapterError(fmt.Sprintf("cannot load archived artifact %s", id), err))
	}
	return app.ImportArtifact(ctx, bytes.NewReader(data), opts)
}

// ListArchived returns archived artifacts, newest first
func (app *Application) ListArchived(ctx context.Context) ([]*archive.Metadata, error) {
	if app.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return app.archive.List(ctx)
}

// DeleteArchived removes one archived artifact
func (app *Application) DeleteArchived(ctx context.Context, id string) error {
	if app.archive == nil {
		return ErrArchiveDisabled
	}
	return app.archive.Delete(ctx, id)
}

// PruneArchive keeps the newest keep artifacts; keep <= 0 uses the configured retention
func (app *Application) PruneArchive(ctx context.Context, keep int) ([]string, error) {
	if app.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return app.archive.Prune(ctx, keep)
}
