package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/ckksgate/internal/domain"
)

const keyPrefix = "ckksgate:artifact:"

var _ domain.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore keeps each artifact as a plain string key. A zero ttl keeps keys forever.
type ArtifactStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewArtifactStore(rdb *goredis.Client, ttl time.Duration) *ArtifactStore {
	return &ArtifactStore{rdb: rdb, ttl: ttl}
}

func artifactKey(id string) string {
	return keyPrefix + id
}

func (s *ArtifactStore) Put(ctx context.Context, id string, data []byte) error {
	if err := s.rdb.Set(ctx, artifactKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", id, err)
	}
	return nil
}

func (s *ArtifactStore) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, artifactKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	return data, nil
}

func (s *ArtifactStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
