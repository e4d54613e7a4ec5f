package application

import (
	"context"
	"fmt"
	"os"

	"printops-snapshot/internal/archive"
	"printops-snapshot/internal/config"
	"printops-snapshot/internal/database"
	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/prefs"
	"printops-snapshot/internal/snapshot"
	"printops-snapshot/internal/store"
	"printops-snapshot/internal/store/memory"
	"printops-snapshot/internal/store/mysql"
	"printops-snapshot/internal/store/sqlite"
)

// Open builds an application from cfg: it connects the backing store,
// prepares the preference file and archive, and defers opening the local
// store until a local migration asks for it. Close releases everything.
func Open(ctx context.Context, cfg *config.Config, producer snapshot.ProducerInfo, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if producer.ExportedBy == "" {
		producer.ExportedBy = cfg.ExportedBy
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	backing, closeBacking, err := openBacking(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeBacking != nil {
		closers = append(closers, closeBacking)
	}

	var manager *archive.Manager
	if cfg.Archive.Enabled {
		manager, err = archive.NewManagerFromConfig(ctx, cfg.Archive, logger)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to set up artifact archive: %w", err)
		}
		if c, ok := manager.Storage().(interface{ Close() error }); ok {
			closers = append(closers, c.Close)
		}
	}

	app, err := New(Options{
		Backing:   backing,
		OpenLocal: localOpener(cfg.Local.Path, logger),
		Prefs:     prefs.NewFileStore(cfg.Preferences.Path),
		Archive:   manager,
		Producer:  producer,
		Checksum:  snapshot.ChecksumAlgorithm(cfg.Checksum.Algorithm),
		BatchSize: cfg.Import.BatchSize,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	for _, c := range closers {
		app.OnClose(c)
	}
	return app, nil
}

func openBacking(ctx context.Context, cfg *config.Config, logger *logging.Logger) (store.BackingStore, func() error, error) {
	switch cfg.Backing.Driver {
	case config.DriverMemory:
		backing, err := memory.New()
		if err != nil {
			return nil, nil, err
		}
		return backing, nil, nil

	case config.DriverMySQL, "":
		service := database.NewService(logger)
		db, err := service.Connect(ctx, cfg.Backing.MySQL)
		if err != nil {
			return nil, nil, err
		}
		backing := mysql.New(db, cfg.Backing.TablePrefix, logger)
		if err := backing.Init(ctx); err != nil {
			service.Close(db)
			return nil, nil, fmt.Errorf("failed to initialize backing store: %w", err)
		}
		return backing, func() error { return service.Close(db) }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backing driver %q", cfg.Backing.Driver)
	}
}

// localOpener opens the legacy store only if its file exists, so commands
// that never migrate do not create one.
func localOpener(path string, logger *logging.Logger) func(ctx context.Context) (store.LocalStore, error) {
	if path == "" {
		return nil
	}
	return func(ctx context.Context) (store.LocalStore, error) {
		if path != ":memory:" {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrNoLocalStore, path)
			}
		}
		return sqlite.Open(path, logger)
	}
}
