package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorageProvider keeps artifacts under a base directory, one
// subdirectory per artifact
type LocalStorageProvider struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStorageProvider creates the base directory if needed
func NewLocalStorageProvider(config *LocalConfig) (*LocalStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}
	if config.BasePath == "" {
		return nil, NewValidationError("local storage base path is required", nil)
	}

	perm := config.Permissions
	if perm == 0 {
		perm = 0755
	}

	provider := &LocalStorageProvider{basePath: config.BasePath, permissions: perm}
	if err := os.MkdirAll(provider.basePath, provider.permissions); err != nil {
		return nil, NewStorageError("failed to create base directory", err)
	}
	return provider, nil
}

// Store writes artifact.bin and metadata.json into the artifact directory
func (lsp *LocalStorageProvider) Store(ctx context.Context, meta *Metadata, payload []byte) error {
	if meta == nil {
		return NewValidationError("metadata cannot be nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("store cancelled", err)
	}

	dir := lsp.artifactDir(meta.ID)
	if err := os.MkdirAll(dir, lsp.permissions); err != nil {
		return NewStorageError("failed to create artifact directory", err)
	}
	meta.StorageLocation = dir

	if err := meta.Validate(); err != nil {
		return NewValidationError("invalid artifact metadata", err)
	}

	if err := os.WriteFile(filepath.Join(dir, payloadObject), payload, 0644); err != nil {
		return NewStorageError("failed to write artifact file", err)
	}

	data, err := meta.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize metadata", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataObject), data, 0644); err != nil {
		return NewStorageError("failed to write metadata file", err)
	}
	return nil
}

// Retrieve reads the stored payload
func (lsp *LocalStorageProvider) Retrieve(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	data, err := os.ReadFile(filepath.Join(lsp.artifactDir(id), payloadObject))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewNotFoundError(id, err)
	}
	if err != nil {
		return nil, NewStorageError("failed to read artifact file", err)
	}
	return data, nil
}

// GetMetadata reads the metadata sidecar
func (lsp *LocalStorageProvider) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	data, err := os.ReadFile(filepath.Join(lsp.artifactDir(id), metadataObject))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewNotFoundError(id, err)
	}
	if err != nil {
		return nil, NewStorageError("failed to read metadata file", err)
	}
	return decodeMetadata(data)
}

// Delete removes the artifact directory
func (lsp *LocalStorageProvider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("artifact ID cannot be empty", nil)
	}
	dir := lsp.artifactDir(id)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewNotFoundError(id, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return NewStorageError("failed to delete artifact directory", err)
	}
	return nil
}

// List reads the metadata of every artifact directory. Directories with
// missing or unreadable metadata are skipped.
func (lsp *LocalStorageProvider) List(ctx context.Context) ([]*Metadata, error) {
	entries, err := os.ReadDir(lsp.basePath)
	if err != nil {
		return nil, NewStorageError("failed to list artifacts", err)
	}

	var artifacts []*Metadata
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, NewStorageError("listing cancelled", err)
		}
		if !entry.IsDir() {
			continue
		}
		md, err := lsp.GetMetadata(ctx, entry.Name())
		if err != nil {
			continue
		}
		artifacts = append(artifacts, md)
	}
	return artifacts, nil
}

// HealthCheck verifies the base directory is writable
func (lsp *LocalStorageProvider) HealthCheck(ctx context.Context) error {
	testFile := filepath.Join(lsp.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("health_check"), 0644); err != nil {
		return NewStorageError("storage provider health check failed: cannot write to base directory", err)
	}
	if _, err := os.ReadFile(testFile); err != nil {
		return NewStorageError("storage provider health check failed: cannot read from base directory", err)
	}
	_ = os.Remove(testFile)
	return nil
}

// BasePath returns the directory artifacts are written under
func (lsp *LocalStorageProvider) BasePath() string {
	return lsp.basePath
}

func (lsp *LocalStorageProvider) artifactDir(id string) string {
	return filepath.Join(lsp.basePath, sanitizeID(id))
}
