package archive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32 // AES-256
	saltSize         = 16
	pbkdf2Iterations = 100000
)

// Encryptor seals artifact payloads with AES-256-GCM. The nonce is prepended
// to the ciphertext; passphrase keys additionally prepend their salt.
type Encryptor struct {
	config *EncryptionConfig
}

// NewEncryptor creates an encryptor for the given settings
func NewEncryptor(config *EncryptionConfig) *Encryptor {
	return &Encryptor{config: config}
}

// Enabled reports whether payloads are encrypted
func (e *Encryptor) Enabled() bool {
	return e != nil && e.config != nil && e.config.Enabled
}

// Encrypt seals data
func (e *Encryptor) Encrypt(data []byte) ([]byte, error) {
	var prefix []byte
	key, err := e.config.rawKeyOrNil()
	if err != nil {
		return nil, NewEncryptionError("failed to retrieve encryption key", err)
	}
	if key == nil {
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, NewEncryptionError("failed to generate salt", err)
		}
		key = deriveKey(e.config.Passphrase, salt)
		prefix = salt
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, NewEncryptionError("failed to generate nonce", err)
	}

	out := make([]byte, 0, len(prefix)+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, prefix...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Decrypt opens data sealed by Encrypt with the same settings
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	key, err := e.config.rawKeyOrNil()
	if err != nil {
		return nil, NewEncryptionError("failed to retrieve encryption key", err)
	}
	if key == nil {
		if len(data) < saltSize {
			return nil, NewEncryptionError("ciphertext too short", nil)
		}
		key = deriveKey(e.config.Passphrase, data[:saltSize])
		data = data[saltSize:]
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, NewEncryptionError("ciphertext too short", nil)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, NewEncryptionError("failed to decrypt data", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, NewEncryptionError(fmt.Sprintf("invalid key size: expected %d bytes, got %d", keySize, len(key)), nil)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM", err)
	}
	return gcm, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

// rawKeyOrNil returns nil for passphrase keys, which are derived per payload
func (ec *EncryptionConfig) rawKeyOrNil() ([]byte, error) {
	if ec.KeyRetriever == nil && ec.KeySource == KeySourcePassphrase {
		if ec.Passphrase == "" {
			return nil, fmt.Errorf("passphrase is empty")
		}
		return nil, nil
	}
	return ec.rawKey()
}

// GenerateKey returns a random AES-256 key
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}
