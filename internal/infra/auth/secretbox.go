// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"bazaar/config"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/service"
)

// sealedPrefix versions the sealed format so a future scheme change can
// coexist with already-stored values.
const sealedPrefix = "v1"

// aesSecretBox is a concrete implementation of the SecretBox interface using
// AES-256-GCM. The key is derived from the configured master key; a fresh
// nonce is drawn per Seal so equal plaintexts never produce equal outputs.
type aesSecretBox struct {
	aead cipher.AEAD
}

// NewAESSecretBox is the constructor for aesSecretBox.
func NewAESSecretBox(cfg *config.Config) (service.SecretBox, error) {
	if cfg.SecretStore == nil || cfg.SecretStore.MasterKey == "" {
		return nil, errors.New("secret store master key must be provided")
	}

	key := sha256.Sum256([]byte(cfg.SecretStore.MasterKey))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "create cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "create GCM")
	}

	return &aesSecretBox{aead: aead}, nil
}

// Seal encrypts the plaintext into "v1.<nonce>.<ciphertext>" with both parts
// base64url encoded. The GCM tag rides inside the ciphertext part.
func (b *aesSecretBox) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "generate nonce")
	}

	ciphertext := b.aead.Seal(nil, nonce, plaintext, nil)

	return sealedPrefix + "." +
		base64.RawURLEncoding.EncodeToString(nonce) + "." +
		base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a sealed value. Any malformed envelope fails with
// SECRET_FORMAT_INVALID; an authentication failure, including a single
// flipped bit, fails with DECRYPTION_FAILED. Partial plaintext is never
// returned.
func (b *aesSecretBox) Open(sealed string) ([]byte, error) {
	parts := strings.Split(sealed, ".")
	if len(parts) != 3 || parts[0] != sealedPrefix {
		return nil, domainerrors.ErrSecretFormatInvalid
	}

	nonce, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || len(nonce) != b.aead.NonceSize() {
		return nil, domainerrors.ErrSecretFormatInvalid
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, domainerrors.ErrSecretFormatInvalid
	}

	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domainerrors.ErrDecryptionFailed
	}

	return plaintext, nil
}
