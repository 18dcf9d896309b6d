package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 64 hex chars = 32 bytes = valid XChaCha20-Poly1305 key
const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNewXChaChaSealer_ValidKey(t *testing.T) {
	s, err := NewXChaChaSealer(testKey)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewXChaChaSealer_InvalidHex(t *testing.T) {
	s, err := NewXChaChaSealer("zzzz")
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestNewXChaChaSealer_WrongKeyLength(t *testing.T) {
	tests := []struct {
		name   string
		hexKey string
	}{
		{"too short (31 bytes)", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"},
		{"too long (33 bytes)", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef00"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewXChaChaSealer(tt.hexKey)
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestSealOpen_Roundtrip(t *testing.T) {
	s, err := NewXChaChaSealer(testKey)
	require.NoError(t, err)

	plaintext := []byte("CKKSCTX1 secret bundle")

	sealed, err := s.Seal(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "secret bundle")
	assert.Equal(t, sealVersion, sealed[0])

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSeal_UniqueNonces(t *testing.T) {
	s, err := NewXChaChaSealer(testKey)
	require.NoError(t, err)

	// Sealing the same plaintext twice should produce different output
	a, err := s.Seal([]byte("same-value"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same-value"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpen_Rejects(t *testing.T) {
	s, err := NewXChaChaSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff

	wrongVersion := append([]byte(nil), sealed...)
	wrongVersion[0] = 2

	other, err := NewXChaChaSealer("ff" + testKey[2:])
	require.NoError(t, err)

	for name, fn := range map[string]func() ([]byte, error){
		"too short":     func() ([]byte, error) { return s.Open([]byte{sealVersion, 1, 2}) },
		"tampered":      func() ([]byte, error) { return s.Open(tampered) },
		"wrong version": func() ([]byte, error) { return s.Open(wrongVersion) },
		"wrong key":     func() ([]byte, error) { return other.Open(sealed) },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn()
			assert.ErrorIs(t, err, ErrUnsealFailed)
		})
	}
}

func TestNoopSealer_Passthrough(t *testing.T) {
	s := NoopSealer{}

	sealed, err := s.Seal([]byte("plaintext"))
	require.NoError(t, err)
	assert.Equal(t, []byte("plaintext"), sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("plaintext"), opened)
}
