// Package crypto seals the content API access token before it is written to
// the session cookie.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned for sealed values that cannot be opened.
var ErrMalformed = errors.New("malformed sealed token")

// TokenSealer encrypts access tokens with AES-256-GCM.
type TokenSealer struct {
	gcm cipher.AEAD
}

// NewTokenSealer creates a TokenSealer from a base64 encoded 32 byte key.
func NewTokenSealer(base64Key string) (*TokenSealer, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("encryption key is required")
	}

	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}
	return newSealer(key)
}

// NewTokenSealerFromSecret derives the key from an arbitrary secret. Used
// when no dedicated ENCRYPTION_KEY is configured.
func NewTokenSealerFromSecret(secret string) (*TokenSealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	key := sha256.Sum256([]byte("unipost-token:" + secret))
	return newSealer(key[:])
}

func newSealer(key []byte) (*TokenSealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}
	return &TokenSealer{gcm: gcm}, nil
}

// Seal returns base64(nonce || ciphertext). The empty token seals to "".
func (s *TokenSealer) Seal(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(token), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (s *TokenSealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	nonceSize := s.gcm.NonceSize()
	if len(raw) < nonceSize+s.gcm.Overhead() {
		return "", ErrMalformed
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(plain), nil
}
