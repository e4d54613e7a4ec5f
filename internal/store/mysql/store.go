// Package mysql implements store.BackingStore on a MySQL database. Each
// collection is a table of (id, position, data JSON); settings live in a
// key/value table.
package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "printops-snapshot/internal/errors"
	"printops-snapshot/internal/logging"
	"printops-snapshot/internal/store"

	driver "github.com/go-sql-driver/mysql"
)

const settingsTable = "app_settings"

// Store is the hosted backing store adapter
type Store struct {
	db         *sql.DB
	prefix     string
	logger     *logging.Logger
	classifier *apperrors.ErrorClassifier
}

var (
	_ store.BackingStore = (*Store)(nil)
	_ store.Upserter     = (*Store)(nil)
)

// New wraps an open connection. prefix is prepended to every table name.
func New(db *sql.DB, prefix string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Store{
		db:         db,
		prefix:     prefix,
		logger:     logger,
		classifier: apperrors.NewErrorClassifier(),
	}
}

func (s *Store) table(collection string) string {
	return "`" + s.prefix + collection + "`"
}

// Init creates the collection and settings tables if they do not exist
func (s *Store) Init(ctx context.Context) error {
	for _, c := range store.Collections() {
		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
			"id VARCHAR(191) NOT NULL PRIMARY KEY, "+
			"position BIGINT NOT NULL AUTO_INCREMENT UNIQUE, "+
			"data JSON NOT NULL"+
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", s.table(c))
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return apperrors.WrapError(err, fmt.Sprintf("failed to create table for %s", c))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s%s` ("+
		"setting_key VARCHAR(191) NOT NULL PRIMARY KEY, "+
		"value JSON NULL"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", s.prefix, settingsTable)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.WrapError(err, "failed to create settings table")
	}
	return nil
}

// Get returns one record by id
func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}

	var data []byte
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", s.table(collection))
	err := s.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, s.wrap(err, collection, "get")
	}
	return decodeRecord(data)
}

// GetAll returns every record of a collection in insertion order
func (s *Store) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}

	start := time.Now()
	query := fmt.Sprintf("SELECT data FROM %s ORDER BY position", s.table(collection))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.wrap(err, collection, "select")
	}
	defer rows.Close()

	records := []store.Record{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrap(err, collection, "scan")
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err, collection, "iterate")
	}

	s.logger.LogCollectionRead("mysql", collection, len(records), time.Since(start), nil)
	return records, nil
}

// Add inserts one record
func (s *Store) Add(ctx context.Context, collection string, rec store.Record) error {
	return s.AddBatch(ctx, collection, []store.Record{rec})
}

// AddBatch inserts records with one multi-row INSERT inside a transaction
func (s *Store) AddBatch(ctx context.Context, collection string, records []store.Record) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*2)
	for _, rec := range records {
		id, data, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
		placeholders = append(placeholders, "(?, ?)")
		args = append(args, id, data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(err, collection, "begin")
	}
	defer tx.Rollback()

	query := fmt.Sprintf("INSERT INTO %s (id, data) VALUES %s", s.table(collection), strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return s.wrap(err, collection, "insert")
	}
	if err := tx.Commit(); err != nil {
		return s.wrap(err, collection, "commit")
	}
	return nil
}

// Update replaces the data of an existing record
func (s *Store) Update(ctx context.Context, collection string, rec store.Record) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	id, data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}

	query := fmt.Sprintf("UPDATE %s SET data = ? WHERE id = ?", s.table(collection))
	res, err := s.db.ExecContext(ctx, query, data, id)
	if err != nil {
		return s.wrap(err, collection, "update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap(err, collection, "update")
	}
	if n == 0 {
		// MySQL reports 0 for an unchanged row too
		if _, getErr := s.Get(ctx, collection, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// Upsert inserts or replaces a record in one statement
func (s *Store) Upsert(ctx context.Context, collection string, rec store.Record) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	id, data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data)", s.table(collection))
	if _, err := s.db.ExecContext(ctx, query, id, data); err != nil {
		return s.wrap(err, collection, "upsert")
	}
	return nil
}

// Delete removes one record
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table(collection))
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return s.wrap(err, collection, "delete")
	}
	return nil
}

// Clear removes every record of a collection
func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table(collection))); err != nil {
		return s.wrap(err, collection, "clear")
	}
	return nil
}

// GetSetting returns the decoded setting value, or nil when absent
func (s *Store) GetSetting(ctx context.Context, key string) (any, error) {
	var raw []byte
	query := fmt.Sprintf("SELECT value FROM `%s%s` WHERE setting_key = ?", s.prefix, settingsTable)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapError(err, fmt.Sprintf("failed to read setting %s", key))
	}
	if raw == nil {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a setting value as JSON
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	query := fmt.Sprintf("INSERT INTO `%s%s` (setting_key, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)", s.prefix, settingsTable)
	if _, err := s.db.ExecContext(ctx, query, key, raw); err != nil {
		return apperrors.WrapError(err, fmt.Sprintf("failed to write setting %s", key))
	}
	return nil
}

// wrap classifies a driver error. Errors that mean the whole collection is
// unreachable also match store.ErrCollectionUnavailable.
func (s *Store) wrap(err error, collection, op string) error {
	appErr := apperrors.WrapError(err, fmt.Sprintf("%s %s failed", op, collection))
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return fmt.Errorf("%w: %w", store.ErrDuplicateID, appErr)
	}
	if s.classifier.IsCollectionLevel(err) {
		return fmt.Errorf("%w: %w", store.ErrCollectionUnavailable, appErr)
	}
	return appErr
}

func encodeRecord(rec store.Record) (string, []byte, error) {
	id, err := store.RecordID(rec)
	if err != nil {
		return "", nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("encode record %s: %w", id, err)
	}
	return id, data, nil
}

func decodeRecord(data []byte) (store.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec store.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
