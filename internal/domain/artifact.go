package domain

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

const DefaultArtifactName = "last"

var artifactNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// StoredArtifacts records where a persisted envelope was written.
type StoredArtifacts struct {
	Name     string
	Files    []string
	StoredAt time.Time
}

// ArtifactPair is a stored envelope read back from the store.
type ArtifactPair struct {
	Name      string
	Encrypted string
	Context   string
}

type ArtifactStore interface {
	// Put overwrites any previous artifact with the same id.
	Put(ctx context.Context, id string, data []byte) error
	// Get returns ErrArtifactNotFound when the id is unknown.
	Get(ctx context.Context, id string) ([]byte, error)
	Ping(ctx context.Context) error
}

// ValidateArtifactName rejects names that could escape the store namespace.
func ValidateArtifactName(name string) error {
	if !artifactNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	return nil
}

// ArtifactIDs returns the ids of the ciphertext and context artifacts for name.
func ArtifactIDs(name string) (encrypted, context string) {
	return name + "_encrypted.b64", name + "_context.b64"
}
