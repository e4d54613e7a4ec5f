package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorageProvider keeps artifacts in an Azure Blob Storage container
type AzureStorageProvider struct {
	containerURL  azblob.ContainerURL
	containerName string
	prefix        string
}

// NewAzureStorageProvider authenticates with a shared key
func NewAzureStorageProvider(config *AzureConfig, prefix string) (*AzureStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if config.AccountName == "" || config.AccountKey == "" || config.ContainerName == "" {
		return nil, NewValidationError("Azure account name, account key and container name are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureStorageProvider{
		containerURL:  azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		containerName: config.ContainerName,
		prefix:        prefix,
	}, nil
}

// Store uploads the payload, then the metadata sidecar
func (azp *AzureStorageProvider) Store(ctx context.Context, meta *Metadata, payload []byte) error {
	if meta == nil {
		return NewValidationError("metadata cannot be nil", nil)
	}
	meta.StorageLocation = fmt.Sprintf("azure://%s/%s", azp.containerName, objectName(azp.prefix, meta.ID, ""))
	if err := meta.Validate(); err != nil {
		return NewValidationError("invalid artifact metadata", err)
	}

	if err := azp.upload(ctx, objectName(azp.prefix, meta.ID, payloadObject), payload, "application/octet-stream", azblob.Metadata{
		"artifactid":     meta.ID,
		"compression":    string(meta.Compression),
		"storedchecksum": meta.StoredChecksum,
	}); err != nil {
		return NewStorageError("failed to upload artifact to Azure", err)
	}

	data, err := meta.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize metadata", err)
	}
	if err := azp.upload(ctx, objectName(azp.prefix, meta.ID, metadataObject), data, "application/json", azblob.Metadata{
		"artifactid": meta.ID,
	}); err != nil {
		return NewStorageError("failed to upload metadata to Azure", err)
	}
	return nil
}

// Retrieve downloads the payload
func (azp *AzureStorageProvider) Retrieve(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	return azp.download(ctx, id, payloadObject)
}

// GetMetadata downloads the metadata sidecar
func (azp *AzureStorageProvider) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	data, err := azp.download(ctx, id, metadataObject)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(data)
}

// Delete removes every blob under the artifact's prefix
func (azp *AzureStorageProvider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("artifact ID cannot be empty", nil)
	}

	var blobs []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResponse, err := azp.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: objectName(azp.prefix, id, ""),
		})
		if err != nil {
			return NewStorageError("failed to list artifact blobs", err)
		}
		for _, blob := range listResponse.Segment.BlobItems {
			blobs = append(blobs, blob.Name)
		}
		marker = listResponse.NextMarker
	}

	if len(blobs) == 0 {
		return NewNotFoundError(id, nil)
	}

	for _, name := range blobs {
		blobURL := azp.containerURL.NewBlockBlobURL(name)
		if _, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{}); err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete blob %s", name), err)
		}
	}
	return nil
}

// List walks the container prefix and loads each metadata sidecar
func (azp *AzureStorageProvider) List(ctx context.Context) ([]*Metadata, error) {
	var artifacts []*Metadata
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResponse, err := azp.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: azp.prefix,
		})
		if err != nil {
			return nil, NewStorageError("failed to list artifacts from Azure", err)
		}

		for _, blob := range listResponse.Segment.BlobItems {
			id := idFromMetadataKey(azp.prefix, blob.Name)
			if id == "" {
				continue
			}
			md, err := azp.GetMetadata(ctx, id)
			if err != nil {
				continue
			}
			artifacts = append(artifacts, md)
		}
		marker = listResponse.NextMarker
	}
	return artifacts, nil
}

// HealthCheck verifies the container is reachable
func (azp *AzureStorageProvider) HealthCheck(ctx context.Context) error {
	if _, err := azp.containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{}); err != nil {
		return NewStorageError("Azure storage provider health check failed: container not accessible", err)
	}
	return nil
}

func (azp *AzureStorageProvider) upload(ctx context.Context, name string, data []byte, contentType string, md azblob.Metadata) error {
	blobURL := azp.containerURL.NewBlockBlobURL(name)
	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:       4 * 1024 * 1024,
		Parallelism:     16,
		Metadata:        md,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: contentType},
	})
	return err
}

func (azp *AzureStorageProvider) download(ctx context.Context, id, name string) ([]byte, error) {
	blobURL := azp.containerURL.NewBlockBlobURL(objectName(azp.prefix, id, name))
	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		var serr azblob.StorageError
		if errors.As(err, &serr) && serr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, NewNotFoundError(id, err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download %s for artifact %s from Azure", name, id), err)
	}

	body := resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20})
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, NewStorageError("failed to read blob data", err)
	}
	return data, nil
}
