package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/ckksgate/internal/domain"
)

func TestPutGet(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "last_encrypted.b64", []byte("AAAA")))
	require.NoError(t, s.Put(ctx, "last_encrypted.b64", []byte("BBBB")))

	data, err := s.Get(ctx, "last_encrypted.b64")
	require.NoError(t, err)
	assert.Equal(t, []byte("BBBB"), data)

	onDisk, err := os.ReadFile(filepath.Join(dir, "last_encrypted.b64"))
	require.NoError(t, err)
	assert.Equal(t, "BBBB", string(onDisk))
}

func TestGet_NotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing_context.b64")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestRejectsPathEscapes(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../x", "a/b", ".hidden"} {
		assert.ErrorIs(t, s.Put(context.Background(), id, nil), domain.ErrInvalidArtifactName, id)
	}
}

func TestPut_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	err = s.Put(context.Background(), "last_context.b64", []byte("x"))
	require.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

func TestPut_CancelledContext(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "x", nil), context.Canceled)
}
