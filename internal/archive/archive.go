package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"printops-snapshot/internal/logging"
)

// ArtifactInfo describes the artifact being archived
type ArtifactInfo struct {
	SchemaVersion  string
	RecordCount    int
	ExportedBy     string
	SnapshotDigest string
}

// Manager stores and restores exported artifacts through a StorageProvider,
// applying the configured compression and encryption envelopes
type Manager struct {
	storage     StorageProvider
	compressors *Compressors
	encryptor   *Encryptor
	config      Config
	logger      *logging.Logger
	now         func() time.Time
}

// NewManager creates a manager. A nil logger falls back to the default logger.
func NewManager(storage StorageProvider, config Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	m := &Manager{
		storage:     storage,
		compressors: NewCompressors(),
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
	m.encryptor = NewEncryptor(&m.config.Encryption)
	return m
}

// NewManagerFromConfig builds the storage provider from config first
func NewManagerFromConfig(ctx context.Context, config Config, logger *logging.Logger) (*Manager, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid archive configuration", err)
	}
	storage, err := NewStorageProvider(ctx, config.Storage)
	if err != nil {
		return nil, err
	}
	return NewManager(storage, config, logger), nil
}

// WithClock replaces the clock used for ids and timestamps
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Storage returns the underlying provider
func (m *Manager) Storage() StorageProvider {
	return m.storage
}

// Save archives artifact and returns its metadata
func (m *Manager) Save(ctx context.Context, artifact []byte, info ArtifactInfo) (*Metadata, error) {
	if len(artifact) == 0 {
		return nil, NewValidationError("artifact is empty", nil)
	}

	createdAt := m.now().UTC()
	meta := &Metadata{
		ID:             NewID(createdAt),
		CreatedAt:      createdAt,
		SchemaVersion:  info.SchemaVersion,
		RecordCount:    info.RecordCount,
		ExportedBy:     info.ExportedBy,
		Compression:    m.config.Compression.Algorithm,
		Encrypted:      m.encryptor.Enabled(),
		OriginalSize:   int64(len(artifact)),
		SnapshotDigest: info.SnapshotDigest,
	}
	if meta.Compression == "" {
		meta.Compression = CompressionTypeNone
	}
	done := m.logger.LogOperationStart("archive_save", map[string]interface{}{
		"artifact_id": meta.ID,
		"compression": meta.Compression,
		"encrypted":   meta.Encrypted,
	})

	payload, err := m.compressors.Compress(artifact, meta.Compression, m.config.Compression.Level)
	if err != nil {
		done(err)
		return nil, err
	}
	if meta.Encrypted {
		if payload, err = m.encryptor.Encrypt(payload); err != nil {
			done(err)
			return nil, err
		}
	}

	meta.StoredSize = int64(len(payload))
	meta.StoredChecksum = storedChecksum(payload)

	if err := m.storage.Store(ctx, meta, payload); err != nil {
		done(err)
		return nil, err
	}
	done(nil)
	return meta, nil
}

// Load returns the artifact JSON stored under id, with the storage envelopes
// removed
func (m *Manager) Load(ctx context.Context, id string) ([]byte, *Metadata, error) {
	meta, err := m.storage.GetMetadata(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	payload, err := m.storage.Retrieve(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if got := storedChecksum(payload); got != meta.StoredChecksum {
		return nil, nil, NewCorruptionError("stored checksum mismatch", nil).
			WithContext("id", id).
			WithContext("expected", meta.StoredChecksum).
			WithContext("actual", got)
	}

	if meta.Encrypted {
		if !m.encryptor.Enabled() {
			return nil, nil, NewConfigurationError(fmt.Sprintf("artifact %s is encrypted but encryption is not configured", id), nil)
		}
		if payload, err = m.encryptor.Decrypt(payload); err != nil {
			return nil, nil, err
		}
	}

	artifact, err := m.compressors.Decompress(payload, meta.Compression)
	if err != nil {
		return nil, nil, err
	}
	if int64(len(artifact)) != meta.OriginalSize {
		return nil, nil, NewCorruptionError(fmt.Sprintf("restored size %d does not match recorded size %d", len(artifact), meta.OriginalSize), nil).
			WithContext("id", id)
	}

	m.logger.WithFields(map[string]interface{}{
		"artifact_id": id,
		"size":        len(artifact),
	}).Debug("Archived artifact loaded")
	return artifact, meta, nil
}

// List returns archived artifacts, newest first
func (m *Manager) List(ctx context.Context) ([]*Metadata, error) {
	artifacts, err := m.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].ID > artifacts[j].ID
		}
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// Delete removes one archived artifact
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.storage.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.WithField("artifact_id", id).Info("Archived artifact deleted")
	return nil
}

// Prune deletes all but the newest keep artifacts. keep <= 0 uses the
// configured retention. It returns the deleted ids; deletion stops at the
// first failure.
func (m *Manager) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep <= 0 {
		keep = m.config.Retention.MaxArtifacts
	}
	if keep <= 0 {
		return nil, NewConfigurationError("retention must keep at least one artifact", nil)
	}

	artifacts, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(artifacts) <= keep {
		return nil, nil
	}

	var deleted []string
	for _, md := range artifacts[keep:] {
		if err := m.storage.Delete(ctx, md.ID); err != nil {
			return deleted, err
		}
		deleted = append(deleted, md.ID)
	}
	m.logger.WithFields(map[string]interface{}{
		"kept":    keep,
		"deleted": len(deleted),
	}).Info("Archive pruned")
	return deleted, nil
}

// HealthCheck verifies the storage provider is reachable and, when
// encryption is enabled, that the key can seal and open a payload
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.storage.HealthCheck(ctx); err != nil {
		return err
	}
	if !m.encryptor.Enabled() {
		return nil
	}
	probe := []byte("printops-snapshot-health")
	sealed, err := m.encryptor.Encrypt(probe)
	if err != nil {
		return err
	}
	opened, err := m.encryptor.Decrypt(sealed)
	if err != nil {
		return err
	}
	if !bytes.Equal(opened, probe) {
		return NewEncryptionError("encryption round trip returned different data", nil)
	}
	return nil
}

// Config returns the effective archive configuration
func (m *Manager) Config() Config {
	return m.config
}

func storedChecksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
