// Package sqlite implements store.LocalStore on an embedded SQLite file, the
// store the dashboard used before moving to the hosted backing store.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/store"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	position   INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_records_collection ON records (collection, position);
`

// Store is the embedded local store
type Store struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
}

var _ store.LocalStore = (*Store)(nil)

// Open opens (creating if needed) the SQLite file at path. ":memory:" is
// accepted and pinned to a single connection.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// Init creates the schema and checks the connection
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping local store %s: %w", s.path, err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create local schema: %w", err)
	}
	return nil
}

// GetAll returns every record of a collection in insertion order
func (s *Store) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM records WHERE collection = ? ORDER BY position", collection)
	if err != nil {
		s.logger.LogCollectionRead("sqlite", collection, 0, time.Since(start), err)
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	records := []store.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(data)))
		dec.UseNumber()
		var rec store.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	s.logger.LogCollectionRead("sqlite", collection, len(records), time.Since(start), nil)
	return records, nil
}

// Put writes records into a collection, replacing any with the same id.
// The migration only reads; Put exists for seeding and tooling.
func (s *Store) Put(ctx context.Context, collection string, records ...store.Record) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (collection, id, data) VALUES (?, ?, ?) "+
			"ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		id, err := store.RecordID(rec)
		if err != nil {
			return fmt.Errorf("put %s: %w", collection, err)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, id, string(data)); err != nil {
			return fmt.Errorf("put %s/%s: %w", collection, id, err)
		}
	}
	return tx.Commit()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
