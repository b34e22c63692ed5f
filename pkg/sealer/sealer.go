package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const separator = "\x1f"

var ErrInvalidToken = errors.New("invalid token")

// Sealer produces opaque AES-GCM tokens carrying a few string fields.
type Sealer struct {
	aead cipher.AEAD
}

// New builds a sealer from a base64 encoded 32 byte key.
func New(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(fields ...string) (string, error) {
	for _, f := range fields {
		if strings.Contains(f, separator) {
			return "", fmt.Errorf("field contains reserved separator")
		}
	}
	plaintext := []byte(strings.Join(fields, separator))

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open returns exactly want fields or ErrInvalidToken.
func (s *Sealer) Open(token string, want int) ([]string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) <= nonceSize {
		return nil, ErrInvalidToken
	}

	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	fields := strings.Split(string(pt), separator)
	if len(fields) != want {
		return nil, ErrInvalidToken
	}
	return fields, nil
}
