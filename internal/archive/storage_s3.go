package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3StorageProvider keeps artifacts in an S3 bucket under a key prefix
type S3StorageProvider struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3StorageProvider creates a provider backed by a new AWS session.
// Empty credentials fall back to the default AWS credential chain.
func NewS3StorageProvider(config *S3Config, prefix string) (*S3StorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("S3 bucket is required", nil)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}
	return NewS3StorageProviderWithClient(s3.New(sess), config.Bucket, prefix), nil
}

// NewS3StorageProviderWithClient wraps an existing S3 client
func NewS3StorageProviderWithClient(client s3iface.S3API, bucket, prefix string) *S3StorageProvider {
	return &S3StorageProvider{client: client, bucket: bucket, prefix: prefix}
}

// Store uploads the payload, then the metadata sidecar
func (s3p *S3StorageProvider) Store(ctx context.Context, meta *Metadata, payload []byte) error {
	if meta == nil {
		return NewValidationError("metadata cannot be nil", nil)
	}
	meta.StorageLocation = fmt.Sprintf("s3://%s/%s", s3p.bucket, objectName(s3p.prefix, meta.ID, ""))
	if err := meta.Validate(); err != nil {
		return NewValidationError("invalid artifact metadata", err)
	}

	_, err := s3p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3p.bucket),
		Key:         aws.String(objectName(s3p.prefix, meta.ID, payloadObject)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]*string{
			"artifact-id":     aws.String(meta.ID),
			"compression":     aws.String(string(meta.Compression)),
			"stored-checksum": aws.String(meta.StoredChecksum),
		},
	})
	if err != nil {
		return NewStorageError("failed to upload artifact to S3", err)
	}

	data, err := meta.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize metadata", err)
	}
	_, err = s3p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3p.bucket),
		Key:         aws.String(objectName(s3p.prefix, meta.ID, metadataObject)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]*string{"artifact-id": aws.String(meta.ID)},
	})
	if err != nil {
		return NewStorageError("failed to upload metadata to S3", err)
	}
	return nil
}

// Retrieve downloads the payload
func (s3p *S3StorageProvider) Retrieve(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	return s3p.download(ctx, id, payloadObject)
}

// GetMetadata downloads the metadata sidecar
func (s3p *S3StorageProvider) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("artifact ID cannot be empty", nil)
	}
	data, err := s3p.download(ctx, id, metadataObject)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(data)
}

// Delete removes every object under the artifact's key prefix
func (s3p *S3StorageProvider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("artifact ID cannot be empty", nil)
	}

	listResult, err := s3p.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s3p.bucket),
		Prefix: aws.String(objectName(s3p.prefix, id, "")),
	})
	if err != nil {
		return NewStorageError("failed to list artifact objects", err)
	}
	if len(listResult.Contents) == 0 {
		return NewNotFoundError(id, nil)
	}

	objects := make([]*s3.ObjectIdentifier, 0, len(listResult.Contents))
	for _, obj := range listResult.Contents {
		objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
	}
	_, err = s3p.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s3p.bucket),
		Delete: &s3.Delete{Objects: objects},
	})
	if err != nil {
		return NewStorageError("failed to delete artifact objects from S3", err)
	}
	return nil
}

// List pages through the prefix and loads each metadata sidecar
func (s3p *S3StorageProvider) List(ctx context.Context) ([]*Metadata, error) {
	var ids []string
	err := s3p.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s3p.bucket),
		Prefix: aws.String(s3p.prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if id := idFromMetadataKey(s3p.prefix, aws.StringValue(obj.Key)); id != "" {
				ids = append(ids, id)
			}
		}
		return true
	})
	if err != nil {
		return nil, NewStorageError("failed to list artifacts from S3", err)
	}

	artifacts := make([]*Metadata, 0, len(ids))
	for _, id := range ids {
		md, err := s3p.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, md)
	}
	return artifacts, nil
}

// HealthCheck verifies the bucket is reachable
func (s3p *S3StorageProvider) HealthCheck(ctx context.Context) error {
	_, err := s3p.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s3p.bucket)})
	if err != nil {
		return NewStorageError("S3 storage provider health check failed: bucket not accessible", err)
	}
	return nil
}

func (s3p *S3StorageProvider) download(ctx context.Context, id, name string) ([]byte, error) {
	result, err := s3p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3p.bucket),
		Key:    aws.String(objectName(s3p.prefix, id, name)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, NewNotFoundError(id, err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download %s for artifact %s from S3", name, id), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, NewStorageError("failed to read S3 object body", err)
	}
	return data, nil
}
