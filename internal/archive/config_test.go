package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()

	assert.Equal(t, ProviderLocal, c.Storage.Provider)
	assert.Equal(t, "./snapshots", c.Storage.Local.BasePath)
	assert.Equal(t, "snapshots/", c.Storage.Prefix)
	assert.Equal(t, CompressionTypeNone, c.Compression.Algorithm)
	assert.Equal(t, 10, c.Retention.MaxArtifacts)
	assert.False(t, c.Encryption.Enabled)
	require.NoError(t, c.Validate())
}

func TestConfig_SetDefaultsNormalizesCase(t *testing.T) {
	c := Config{
		Storage:     StorageConfig{Provider: "s3", S3: S3Config{Bucket: "b"}},
		Compression: CompressionConfig{Algorithm: "zstd"},
		Encryption:  EncryptionConfig{Enabled: true},
	}
	c.SetDefaults()

	assert.Equal(t, ProviderS3, c.Storage.Provider)
	assert.Equal(t, CompressionTypeZstd, c.Compression.Algorithm)
	assert.Equal(t, 3, c.Compression.Level)
	assert.Equal(t, KeySourceEnv, c.Encryption.KeySource)
	assert.Equal(t, DefaultKeyEnvVar, c.Encryption.KeyEnvVar)
	require.NoError(t, c.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown provider", func(c *Config) { c.Storage.Provider = "FTP" }, "storage.provider"},
		{"s3 without bucket", func(c *Config) { c.Storage.Provider = ProviderS3 }, "storage.s3.bucket"},
		{"azure without account", func(c *Config) { c.Storage.Provider = ProviderAzure }, "storage.azure.account_name"},
		{"gcs without bucket", func(c *Config) { c.Storage.Provider = ProviderGCS }, "storage.gcs.bucket"},
		{"bad compression", func(c *Config) { c.Compression.Algorithm = "RAR" }, "compression.algorithm"},
		{"gzip level", func(c *Config) {
			c.Compression.Algorithm = CompressionTypeGzip
			c.Compression.Level = 12
		}, "compression.level"},
		{"passphrase missing", func(c *Config) {
			c.Encryption.Enabled = true
			c.Encryption.KeySource = KeySourcePassphrase
		}, "encryption.passphrase"},
		{"unknown key source", func(c *Config) {
			c.Encryption.Enabled = true
			c.Encryption.KeySource = "kms"
		}, "encryption.key_source"},
		{"negative retention", func(c *Config) { c.Retention.MaxArtifacts = -1 }, "retention.max_artifacts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.SetDefaults()
			tt.mutate(&c)

			err := c.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestNewStorageProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewStorageProvider(ctx, StorageConfig{Provider: ProviderLocal, Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorageProvider{}, p)

	_, err = NewStorageProvider(ctx, StorageConfig{Provider: ProviderS3})
	require.Error(t, err)

	_, err = NewStorageProvider(ctx, StorageConfig{Provider: ProviderAzure})
	require.Error(t, err)

	_, err = NewStorageProvider(ctx, StorageConfig{Provider: ProviderGCS})
	require.Error(t, err)

	_, err = NewStorageProvider(ctx, StorageConfig{Provider: "FTP"})
	require.Error(t, err)

	assert.Len(t, SupportedProviders(), 4)
}
