// Package crypto seals customer contact fields at rest with AES-256-GCM.
package crypto

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

// sealedPrefix marks values produced by Seal. Anything without it is
// treated as plaintext written before a key was configured.
const sealedPrefix = "enc:v1:"

var ErrNoKey = errors.New("sealed value but no encryption key configured")

type Client interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
	Enabled() bool
}

type gcmClient struct {
	aead cipher.AEAD
}

// NewClient builds a client from a base64 encoded 32 byte key. An empty
// key yields a passthrough client that stores values as given.
func NewClient(keyStr string) (Client, error) {
	if keyStr == "" {
		return passthrough{}, nil
	}

	key, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &gcmClient{aead: aead}, nil
}

func (c *gcmClient) Enabled() bool { return true }

func (c *gcmClient) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *gcmClient) Open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}

	n := c.aead.NonceSize()
	if len(data) < n {
		return "", errors.New("sealed value too short")
	}

	plaintext, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plaintext), nil
}

type passthrough struct{}

func (passthrough) Enabled() bool { return false }

func (passthrough) Seal(plaintext string) (string, error) { return plaintext, nil }

func (passthrough) Open(value string) (string, error) {
	if strings.HasPrefix(value, sealedPrefix) {
		return "", ErrNoKey
	}
	return value, nil
}
