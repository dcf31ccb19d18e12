package cache

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrEncryptionKeyRequired is returned when EnableEncryption is set but
// no 32-byte EncryptionKey was supplied.
var ErrEncryptionKeyRequired = errors.New("cache: encryption enabled but no 32-byte key configured")

// sealPayload AEAD-seals data with chacha20poly1305 using a freshly
// generated nonce prefixed to the ciphertext, when enabled is true.
// Implements the enable_encryption config option for persisted kernel
// payload bytes.
func sealPayload(data, key []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return data, nil
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrEncryptionKeyRequired
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cache: chacha20poly1305.New: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cache: generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

// openPayload reverses sealPayload. When enabled is false it returns
// data unchanged; the caller (preload) never mixes encrypted and
// plaintext entries under one runtime configuration.
func openPayload(data, key []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return data, nil
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrEncryptionKeyRequired
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cache: chacha20poly1305.New: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, fmt.Errorf("cache: sealed payload shorter than nonce size")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
