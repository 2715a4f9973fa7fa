// Package vault seals listing credentials at rest.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ucmarket/backend/internal/models"
	"golang.org/x/crypto/argon2"
)

// Sealer encrypts and decrypts credential payloads
type Sealer interface {
	Seal(fields []models.CredentialField) (string, error)
	Open(sealed string) ([]models.CredentialField, error)
}

// Config holds vault configuration
type Config struct {
	MasterKey string
	Salt      string
}

// Vault implements Sealer with an AES-256-GCM key derived from the master key
type Vault struct {
	aead cipher.AEAD
}

var ErrEmptyPayload = errors.New("empty credential payload")

// New derives the data key and prepares the cipher
func New(config Config) (*Vault, error) {
	if config.MasterKey == "" {
		return nil, errors.New("master key required")
	}
	if config.Salt == "" {
		return nil, errors.New("salt required")
	}

	key := deriveKey(config.MasterKey, config.Salt, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Vault{aead: gcm}, nil
}

// Seal encrypts credential fields to a base64 string
func (v *Vault) Seal(fields []models.CredentialField) (string, error) {
	if len(fields) == 0 {
		return "", ErrEmptyPayload
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := v.aead.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a sealed credential payload. An empty string opens to no
// fields, which is how listings without credentials are stored.
func (v *Vault) Open(sealed string) ([]models.CredentialField, error) {
	if sealed == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("invalid sealed data format: %w", err)
	}

	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var fields []models.CredentialField
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return fields, nil
}

func deriveKey(password, salt string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), []byte(salt), 3, 32*1024, 4, keyLen)
}
