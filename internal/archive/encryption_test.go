package archive

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	return key
}

func TestEncryptor_RoundTripWithKey(t *testing.T) {
	key := testKey(t)
	enc := NewEncryptor(&EncryptionConfig{
		Enabled:      true,
		KeyRetriever: func() ([]byte, error) { return key, nil },
	})

	plaintext := []byte(`{"version":"2.0"}`)
	sealed, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncryptor_NonceIsRandom(t *testing.T) {
	key := testKey(t)
	enc := NewEncryptor(&EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return key, nil }})

	a, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptor_Passphrase(t *testing.T) {
	enc := NewEncryptor(&EncryptionConfig{Enabled: true, KeySource: KeySourcePassphrase, Passphrase: "toner-room"})

	sealed, err := enc.Encrypt([]byte("payload"))
	require.NoError(t, err)

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)

	wrong := NewEncryptor(&EncryptionConfig{Enabled: true, KeySource: KeySourcePassphrase, Passphrase: "other"})
	_, err = wrong.Decrypt(sealed)
	require.Error(t, err)
}

func TestEncryptor_WrongKeyFails(t *testing.T) {
	k1, k2 := testKey(t), testKey(t)
	sealed, err := NewEncryptor(&EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return k1, nil }}).Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = NewEncryptor(&EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return k2, nil }}).Decrypt(sealed)
	require.Error(t, err)

	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, ErrorTypeEncryption, archiveErr.Type)
}

func TestEncryptor_KeyErrors(t *testing.T) {
	tests := []struct {
		name   string
		config *EncryptionConfig
	}{
		{"retriever fails", &EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return nil, errors.New("vault sealed") }}},
		{"short key", &EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return []byte("short"), nil }}},
		{"missing env", &EncryptionConfig{Enabled: true, KeySource: KeySourceEnv, KeyEnvVar: "PRINTOPS_SNAPSHOT_TEST_UNSET_KEY"}},
		{"empty passphrase", &EncryptionConfig{Enabled: true, KeySource: KeySourcePassphrase}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncryptor(tt.config).Encrypt([]byte("data"))
			assert.Error(t, err)
		})
	}
}

func TestEncryptionConfig_KeySources(t *testing.T) {
	key := testKey(t)

	t.Run("env", func(t *testing.T) {
		t.Setenv("PRINTOPS_SNAPSHOT_TEST_KEY", hex.EncodeToString(key))
		got, err := (&EncryptionConfig{KeySource: KeySourceEnv, KeyEnvVar: "PRINTOPS_SNAPSHOT_TEST_KEY"}).rawKey()
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})

	t.Run("env not hex", func(t *testing.T) {
		t.Setenv("PRINTOPS_SNAPSHOT_TEST_KEY", "zz")
		_, err := (&EncryptionConfig{KeySource: KeySourceEnv, KeyEnvVar: "PRINTOPS_SNAPSHOT_TEST_KEY"}).rawKey()
		assert.Error(t, err)
	})

	t.Run("raw file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.bin")
		require.NoError(t, os.WriteFile(path, key, 0600))
		got, err := (&EncryptionConfig{KeySource: KeySourceFile, KeyPath: path}).rawKey()
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})

	t.Run("hex file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.hex")
		require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0600))
		got, err := (&EncryptionConfig{KeySource: KeySourceFile, KeyPath: path}).rawKey()
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})
}
