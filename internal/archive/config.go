package archive

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Config is the archive section of the application configuration
type Config struct {
	Enabled     bool              `mapstructure:"enabled" yaml:"enabled"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Encryption  EncryptionConfig  `mapstructure:"encryption" yaml:"encryption"`
	Retention   RetentionConfig   `mapstructure:"retention" yaml:"retention"`
}

// StorageConfig selects and configures the storage provider
type StorageConfig struct {
	Provider ProviderType `mapstructure:"provider" yaml:"provider"`
	Prefix   string       `mapstructure:"prefix" yaml:"prefix"`
	Local    LocalConfig  `mapstructure:"local" yaml:"local"`
	S3       S3Config     `mapstructure:"s3" yaml:"s3"`
	Azure    AzureConfig  `mapstructure:"azure" yaml:"azure"`
	GCS      GCSConfig    `mapstructure:"gcs" yaml:"gcs"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

// S3Config for Amazon S3 storage
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

// CompressionConfig defines compression settings
type CompressionConfig struct {
	Algorithm CompressionType `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int             `mapstructure:"level" yaml:"level"`
}

// EncryptionConfig defines encryption settings
type EncryptionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	KeySource  string `mapstructure:"key_source" yaml:"key_source"` // "env", "file", "passphrase"
	KeyPath    string `mapstructure:"key_path" yaml:"key_path"`
	KeyEnvVar  string `mapstructure:"key_env_var" yaml:"key_env_var"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase,omitempty"`

	// KeyRetriever overrides key lookup, mainly for tests
	KeyRetriever func() ([]byte, error) `mapstructure:"-" yaml:"-"`
}

// RetentionConfig defines how many artifacts prune keeps
type RetentionConfig struct {
	MaxArtifacts int `mapstructure:"max_artifacts" yaml:"max_artifacts"`
}

// Key sources
const (
	KeySourceEnv        = "env"
	KeySourceFile       = "file"
	KeySourcePassphrase = "passphrase"
)

// DefaultKeyEnvVar holds a hex-encoded 32 byte key
const DefaultKeyEnvVar = "PRINTOPS_SNAPSHOT_ARCHIVE_KEY"

// SetDefaults sets default values for the archive configuration
func (c *Config) SetDefaults() {
	if c.Storage.Provider == "" {
		c.Storage.Provider = ProviderLocal
	}
	c.Storage.Provider = ProviderType(strings.ToUpper(string(c.Storage.Provider)))
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "snapshots/"
	}
	if c.Storage.Local.BasePath == "" {
		c.Storage.Local.BasePath = "./snapshots"
	}
	if c.Storage.Local.Permissions == 0 {
		c.Storage.Local.Permissions = 0755
	}
	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = "us-east-1"
	}
	if c.Storage.GCS.CredentialsPath == "" {
		c.Storage.GCS.CredentialsPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	if c.Compression.Algorithm == "" {
		c.Compression.Algorithm = CompressionTypeNone
	}
	c.Compression.Algorithm = CompressionType(strings.ToUpper(string(c.Compression.Algorithm)))
	if c.Compression.Level == 0 {
		switch c.Compression.Algorithm {
		case CompressionTypeGzip:
			c.Compression.Level = 6
		case CompressionTypeLZ4:
			c.Compression.Level = 1
		case CompressionTypeZstd:
			c.Compression.Level = 3
		}
	}

	if c.Encryption.Enabled && c.Encryption.KeySource == "" {
		c.Encryption.KeySource = KeySourceEnv
	}
	if c.Encryption.KeySource == KeySourceEnv && c.Encryption.KeyEnvVar == "" {
		c.Encryption.KeyEnvVar = DefaultKeyEnvVar
	}

	if c.Retention.MaxArtifacts == 0 {
		c.Retention.MaxArtifacts = 10
	}
}

// Validate validates the archive configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	switch c.Storage.Provider {
	case ProviderLocal:
		if c.Storage.Local.BasePath == "" {
			errs.Add("storage.local.base_path", "base path is required", nil)
		}
	case ProviderS3:
		if c.Storage.S3.Bucket == "" {
			errs.Add("storage.s3.bucket", "bucket is required", nil)
		}
		if c.Storage.S3.Region == "" {
			errs.Add("storage.s3.region", "region is required", nil)
		}
	case ProviderAzure:
		if c.Storage.Azure.AccountName == "" {
			errs.Add("storage.azure.account_name", "account name is required", nil)
		}
		if c.Storage.Azure.AccountKey == "" {
			errs.Add("storage.azure.account_key", "account key is required", nil)
		}
		if c.Storage.Azure.ContainerName == "" {
			errs.Add("storage.azure.container_name", "container name is required", nil)
		}
	case ProviderGCS:
		if c.Storage.GCS.Bucket == "" {
			errs.Add("storage.gcs.bucket", "bucket is required", nil)
		}
	default:
		errs.Add("storage.provider", "must be one of LOCAL, S3, AZURE, GCS", c.Storage.Provider)
	}

	if !isValidCompressionType(c.Compression.Algorithm) {
		errs.Add("compression.algorithm", "must be one of NONE, GZIP, LZ4, ZSTD", c.Compression.Algorithm)
	} else if lo, hi, ok := levelRange(c.Compression.Algorithm); ok && (c.Compression.Level < lo || c.Compression.Level > hi) {
		errs.Add("compression.level", fmt.Sprintf("%s level must be between %d and %d", strings.ToLower(string(c.Compression.Algorithm)), lo, hi), c.Compression.Level)
	}

	if c.Encryption.Enabled {
		switch c.Encryption.KeySource {
		case KeySourceEnv:
			if c.Encryption.KeyEnvVar == "" {
				errs.Add("encryption.key_env_var", "key environment variable name is required for env key source", nil)
			}
		case KeySourceFile:
			if c.Encryption.KeyPath == "" {
				errs.Add("encryption.key_path", "key file path is required for file key source", nil)
			}
		case KeySourcePassphrase:
			if c.Encryption.Passphrase == "" {
				errs.Add("encryption.passphrase", "passphrase is required for passphrase key source", nil)
			}
		default:
			errs.Add("encryption.key_source", "must be one of env, file, passphrase", c.Encryption.KeySource)
		}
	}

	if c.Retention.MaxArtifacts < 0 {
		errs.Add("retention.max_artifacts", "cannot be negative", c.Retention.MaxArtifacts)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func levelRange(c CompressionType) (int, int, bool) {
	switch c {
	case CompressionTypeGzip:
		return 1, 9, true
	case CompressionTypeLZ4:
		return 1, 12, true
	case CompressionTypeZstd:
		return 1, 22, true
	default:
		return 0, 0, false
	}
}

// rawKey returns the 32 byte key for env and file sources. Passphrase keys
// are derived per artifact and never come through here.
func (ec *EncryptionConfig) rawKey() ([]byte, error) {
	if ec.KeyRetriever != nil {
		return ec.KeyRetriever()
	}

	var key []byte
	switch ec.KeySource {
	case KeySourceEnv:
		keyStr := os.Getenv(ec.KeyEnvVar)
		if keyStr == "" {
			return nil, fmt.Errorf("encryption key not found in environment variable %s", ec.KeyEnvVar)
		}
		decoded, err := hex.DecodeString(strings.TrimSpace(keyStr))
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex key from environment variable: %w", err)
		}
		key = decoded
	case KeySourceFile:
		data, err := os.ReadFile(ec.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read encryption key from file %s: %w", ec.KeyPath, err)
		}
		key = data
		if decoded, err := hex.DecodeString(strings.TrimSpace(string(data))); err == nil && len(decoded) == keySize {
			key = decoded
		}
	default:
		return nil, fmt.Errorf("key source %q has no stored key", ec.KeySource)
	}

	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes for AES-256, got %d bytes", keySize, len(key))
	}
	return key, nil
}
