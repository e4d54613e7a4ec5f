package archive

import (
	"context"
	"strings"
)

// StorageProvider keeps artifact payloads and their metadata sidecars
type StorageProvider interface {
	// Store writes the payload and metadata. It sets meta.StorageLocation.
	Store(ctx context.Context, meta *Metadata, payload []byte) error
	Retrieve(ctx context.Context, id string) ([]byte, error)
	GetMetadata(ctx context.Context, id string) (*Metadata, error)
	Delete(ctx context.Context, id string) error
	// List returns metadata for every readable artifact, in no particular order
	List(ctx context.Context) ([]*Metadata, error)
	HealthCheck(ctx context.Context) error
}

// objectName joins prefix, artifact id and object name into a key
func objectName(prefix, id, name string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if name == "" {
		return prefix + sanitizeID(id) + "/"
	}
	return prefix + sanitizeID(id) + "/" + name
}

// idFromMetadataKey extracts the artifact id from <prefix><id>/metadata.json
func idFromMetadataKey(prefix, key string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	rest := strings.TrimPrefix(key, prefix)
	id, name, ok := strings.Cut(rest, "/")
	if !ok || name != metadataObject {
		return ""
	}
	return id
}

// sanitizeID keeps ids from escaping their directory or prefix
func sanitizeID(id string) string {
	sanitized := strings.ReplaceAll(id, "/", "_")
	sanitized = strings.ReplaceAll(sanitized, "\\", "_")
	return strings.ReplaceAll(sanitized, "..", "_")
}
