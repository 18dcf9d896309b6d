// Package keystore persists the secret-bearing context bundle on disk, sealed
// with a crypto.Sealer.
package keystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pscheid92/ckksgate/internal/crypto"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/fsutil"
)

const (
	fileName = "context.key"
	dirPerm  = 0o700
	filePerm = 0o600
)

type FileKeyStore struct {
	dir    string
	sealer crypto.Sealer
}

func New(dir string, sealer crypto.Sealer) *FileKeyStore {
	return &FileKeyStore{dir: dir, sealer: sealer}
}

func (s *FileKeyStore) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Load returns domain.ErrKeyMaterialNotFound when no key has been saved yet.
func (s *FileKeyStore) Load(_ context.Context) ([]byte, error) {
	sealed, err := os.ReadFile(s.Path())
	if fsutil.IsNotExist(err) {
		return nil, domain.ErrKeyMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key store: %w", err)
	}

	data, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open key store %s: %w", s.Path(), err)
	}
	return data, nil
}

func (s *FileKeyStore) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to seal key material: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.Path(), sealed, filePerm); err != nil {
		return fmt.Errorf("failed to write key store: %w", err)
	}
	return nil
}
