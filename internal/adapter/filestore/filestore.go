// Package filestore keeps persisted artifacts as files in one directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/fsutil"
)

const filePerm = 0o644

var _ domain.ArtifactStore = (*Store)(nil)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidArtifactName, id)
	}
	return filepath.Join(s.dir, id), nil
}

func (s *Store) Put(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(p, data, filePerm); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if fsutil.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}
	return data, nil
}

func (s *Store) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return errors.New("store path is not a directory")
	}
	return nil
}
