package archive

import (
	"context"
	"fmt"
)

// NewStorageProvider creates the provider selected by config.Provider
func NewStorageProvider(ctx context.Context, config StorageConfig) (StorageProvider, error) {
	switch config.Provider {
	case ProviderLocal, "":
		return NewLocalStorageProvider(&config.Local)
	case ProviderS3:
		return NewS3StorageProvider(&config.S3, config.Prefix)
	case ProviderAzure:
		return NewAzureStorageProvider(&config.Azure, config.Prefix)
	case ProviderGCS:
		return NewGCSStorageProvider(ctx, &config.GCS, config.Prefix)
	default:
		return nil, NewConfigurationError(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}

// SupportedProviders lists the providers NewStorageProvider accepts
func SupportedProviders() []ProviderType {
	return []ProviderType{ProviderLocal, ProviderS3, ProviderAzure, ProviderGCS}
}
