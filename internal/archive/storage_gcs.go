package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorageProvider keeps artifacts in a Google Cloud Storage bucket
type GCSStorageProvider struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSStorageProvider uses the credentials file when set, otherwise the
// default credential chain
func NewGCSStorageProvider(ctx context.Context, config *GCSConfig, prefix string) (*GCSStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("GCS bucket is required", nil)
	}

	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStorageProvider{client: client, bucketName: config.Bucket, prefix: prefix}, nil
}

// Store uploads the payload, then the metadata sidecar
func (gcsp *GCSStorageProvider) Store(ctx context.Context, meta *Metadata, payload []byte) error {
	if meta == nil {
		return NewValidationError("metadata cannot be nil", nil)
	}
	meta.StorageLocation = fmt.Sprintf("gs://%s/%s", gcsp.bucketName, objectName(gcsp.prefix, meta.ID, ""))
	if err := meta.Validate(); err != nil {
		return NewValidationError("invalid artifact metadata", err)
	}

	if err := gcsp.upload(ctx, objectName(gcsp.prefix, meta.ID, payloadObject), payload, "application/octet-stream", map[string]string{
		"artifact-id":     meta.ID,
		"compression":     string(meta.Compression),
		"stored-checksum": meta.StoredChecksum,
	}); err != nil {
		return NewStorageError("failed to upload artifact to GCS", err)
	}

	data, err := meta.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize metadata", err)
	}
	if err := gcsp.upload(ctx, objectName(gcsp.prefix, meta.ID, metadataObject), data, "application/json", map[string]string{
		"artifact-id": meta.ID,
	}); err != nil {
		return NewStorageError("failed to upload metadata to GCS", err)
	}
	return nil
}

// Retrieve downloads the payload
func (gcsp *GCSStorageProvider) Retrieve(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	return gcsp.download(ctx, id, payloadObject)
}

// GetMetadata downloads the metadata sidecar
func (gcsp *GCSStorageProvider) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	data, err := gcsp.download(ctx, id, metadataObject)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(data)
}

// Delete removes every object under the artifact's prefix
func (gcsp *GCSStorageProvider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("artifact ID cannot be empty", nil)
	}

	bucket := gcsp.client.Bucket(gcsp.bucketName)
	it := bucket.Objects(ctx, &storage.Query{Prefix: objectName(gcsp.prefix, id, "")})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return NewStorageError("failed to list artifact objects", err)
		}
		names = append(names, attrs.Name)
	}

	if len(names) == 0 {
		return NewNotFoundError(id, nil)
	}

	for _, name := range names {
		if err := bucket.Object(name).Delete(ctx); err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete object %s", name), err)
		}
	}
	return nil
}

// List walks the bucket prefix and loads each metadata sidecar
func (gcsp *GCSStorageProvider) List(ctx context.Context) ([]*Metadata, error) {
	it := gcsp.client.Bucket(gcsp.bucketName).Objects(ctx, &storage.Query{Prefix: gcsp.prefix})

	var artifacts []*Metadata
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, NewStorageError("failed to list artifacts from GCS", err)
		}

		id := idFromMetadataKey(gcsp.prefix, attrs.Name)
		if id == "" {
			continue
		}
		md, err := gcsp.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, md)
	}
	return artifacts, nil
}

// HealthCheck verifies the bucket is reachable
func (gcsp *GCSStorageProvider) HealthCheck(ctx context.Context) error {
	if _, err := gcsp.client.Bucket(gcsp.bucketName).Attrs(ctx); err != nil {
		return NewStorageError("GCS storage provider health check failed: bucket not accessible", err)
	}
	return nil
}

// Close closes the GCS client
func (gcsp *GCSStorageProvider) Close() error {
	return gcsp.client.Close()
}

func (gcsp *GCSStorageProvider) upload(ctx context.Context, name string, data []byte, contentType string, md map[string]string) error {
	w := gcsp.client.Bucket(gcsp.bucketName).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = md
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (gcsp *GCSStorageProvider) download(ctx context.Context, id, name string) ([]byte, error) {
	reader, err := gcsp.client.Bucket(gcsp.bucketName).Object(objectName(gcsp.prefix, id, name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, NewNotFoundError(id, err)
	}
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to download %s for artifact %s from GCS", name, id), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewStorageError("failed to read GCS object", err)
	}
	return data, nil
}
