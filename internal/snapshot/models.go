package snapshot

import (
	"encoding/json"
	"time"

	"printops-snapshot/internal/store"
)

// Record is an opaque domain record with at least a string "id" field
type Record = store.Record

// Snapshot is the exported artifact: every collection plus carried
// preferences, stamped with a schema version and a checksum.
type Snapshot struct {
	Version     string              `json:"version"`
	ExportedAt  time.Time           `json:"exportedAt"`
	Metadata    Metadata            `json:"metadata"`
	Collections map[string][]Record `json:"collections"`
	Preferences map[string]any      `json:"preferences"`
	Checksum    string              `json:"checksum,omitempty"`
}

// Metadata describes the artifact. It is informational only and never used
// for integrity decisions.
type Metadata struct {
	ProducerName     string `json:"producerName"`
	ProducerVersion  string `json:"producerVersion"`
	SchemaVersion    string `json:"version"`
	TotalRecordCount int    `json:"totalRecordCount"`
	ExportedBy       string `json:"exportedBy"`
}

// ImportOptions selects the import mode
type ImportOptions struct {
	// MergeMode upserts incoming records and leaves unrelated records alone.
	// When false every known collection is cleared first.
	MergeMode bool `json:"mergeMode"`
	// SkipValidation disables the checksum check.
	SkipValidation bool `json:"skipValidation"`
}

// MigrationResult is the outcome of one import attempt
type MigrationResult struct {
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	ErrorType       SnapshotErrorType `json:"errorType,omitempty"`
	Warnings        []string          `json:"warnings"`
	MigratedRecords int               `json:"migratedRecords"`
	SkippedRecords  int               `json:"skippedRecords"`
	Version         string            `json:"version"`
}

// NewFailedResult builds a failed result from err
func NewFailedResult(version string, err error) *MigrationResult {
	result := &MigrationResult{Version: version, Warnings: []string{}}
	result.fail(err)
	return result
}

func (r *MigrationResult) fail(err error) {
	r.Success = false
	r.Error = err.Error()
	if snapErr, ok := AsSnapshotError(err); ok {
		r.ErrorType = snapErr.Type
	}
}

// Warn appends an advisory message
func (r *MigrationResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// VersionInfo is the outcome of classifying an artifact's version
type VersionInfo struct {
	Version        string `json:"version"`
	IsCompatible   bool   `json:"isCompatible"`
	NeedsMigration bool   `json:"needsMigration"`
}

// RecordCount returns the number of records across all collections
func (s *Snapshot) RecordCount() int {
	n := 0
	for _, records := range s.Collections {
		n += len(records)
	}
	return n
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	cp := *s
	cp.Collections = make(map[string][]Record, len(s.Collections))
	for name, records := range s.Collections {
		cp.Collections[name] = store.CloneRecords(records)
	}
	if s.Preferences != nil {
		cp.Preferences = store.CloneRecord(s.Preferences)
	}
	return &cp
}

// ToJSON serializes the snapshot as the indented artifact document
func (s *Snapshot) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, NewStructuralError("failed to serialize snapshot", err)
	}
	return data, nil
}

// isEmptyValue reports whether a preference value carries nothing worth
// restoring: nil, an empty string, or an empty list or object.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
