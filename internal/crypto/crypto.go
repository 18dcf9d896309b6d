package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealVersion byte = 1

var additionalData = []byte("ckksgate keystore v1")

var ErrUnsealFailed = errors.New("failed to unseal key material")

type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// NoopSealer stores key material unencrypted (dev/test mode).
type NoopSealer struct{}

func (NoopSealer) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (NoopSealer) Open(sealed []byte) ([]byte, error)    { return sealed, nil }

type XChaChaSealer struct {
	aead cipher.AEAD
}

func NewXChaChaSealer(hexKey string) (*XChaChaSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &XChaChaSealer{aead: aead}, nil
}

// Seal returns version || nonce || ciphertext || tag.
func (s *XChaChaSealer) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, 1+s.aead.NonceSize(), 1+s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	out[0] = sealVersion
	nonce := out[1:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(out, nonce, plaintext, additionalData), nil
}

func (s *XChaChaSealer) Open(sealed []byte) ([]byte, error) {
	headerSize := 1 + s.aead.NonceSize()
	if len(sealed) < headerSize+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed data too short", ErrUnsealFailed)
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrUnsealFailed, sealed[0])
	}

	nonce, body := sealed[1:headerSize], sealed[headerSize:]
	plaintext, err := s.aead.Open(nil, nonce, body, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	return plaintext, nil
}
