package archive

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompressionType selects the envelope compression of a stored artifact
type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeLZ4  CompressionType = "LZ4"
	CompressionTypeZstd CompressionType = "ZSTD"
)

// ProviderType selects where artifacts are kept
type ProviderType string

const (
	ProviderLocal ProviderType = "LOCAL"
	ProviderS3    ProviderType = "S3"
	ProviderAzure ProviderType = "AZURE"
	ProviderGCS   ProviderType = "GCS"
)

// Object names inside an artifact's directory or key prefix
const (
	payloadObject  = "artifact.bin"
	metadataObject = "metadata.json"
)

var idPattern = regexp.MustCompile(`^snapshot-\d{8}-\d{6}-[0-9a-f]{8}$`)

// Metadata describes one archived artifact. It is stored next to the payload
// so listing never has to download artifacts.
type Metadata struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	SchemaVersion   string          `json:"schema_version"`
	RecordCount     int             `json:"record_count"`
	ExportedBy      string          `json:"exported_by,omitempty"`
	Compression     CompressionType `json:"compression"`
	Encrypted       bool            `json:"encrypted"`
	OriginalSize    int64           `json:"original_size"`
	StoredSize      int64           `json:"stored_size"`
	StoredChecksum  string          `json:"stored_checksum"`
	SnapshotDigest  string          `json:"snapshot_checksum,omitempty"`
	StorageLocation string          `json:"storage_location,omitempty"`
}

// NewID returns an artifact id for t: snapshot-YYYYMMDD-HHMMSS-<8 hex>
func NewID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("snapshot-%s-%s", t.UTC().Format("20060102-150405"), suffix)
}

// ValidID reports whether id has the artifact id shape
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate checks the fields every stored metadata document must carry
func (m *Metadata) Validate() error {
	var errs ValidationErrors
	if !ValidID(m.ID) {
		errs.Add("id", "invalid artifact id", m.ID)
	}
	if m.CreatedAt.IsZero() {
		errs.Add("created_at", "creation time is required", nil)
	}
	if m.StoredChecksum == "" {
		errs.Add("stored_checksum", "stored checksum is required", nil)
	}
	if !isValidCompressionType(m.Compression) {
		errs.Add("compression", "invalid compression type", m.Compression)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ToJSON serializes metadata for the sidecar object
func (m *Metadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, NewStorageError("failed to unmarshal metadata", err)
	}
	if err := md.Validate(); err != nil {
		return nil, NewValidationError("invalid metadata", err)
	}
	return &md, nil
}

func isValidCompressionType(c CompressionType) bool {
	switch c {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}
