package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
	"github.com/pscheid92/ckksgate/internal/codec"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/logging"
)

const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation"
	outcomeCapacity   = "capacity"
	outcomeCancelled  = "cancelled"
	outcomeError      = "error"
)

// Service is the application layer. It owns the rule that only public context
// exports ever leave the process.
type Service struct {
	provider domain.ContextProvider
	library  domain.CryptoLibrary
	codec    codec.Codec
	store    domain.ArtifactStore
	metrics  *metrics.EncryptionMetrics
	clock    clockwork.Clock
	reads    singleflight.Group
}

// NewService creates the application layer service.
// m may be nil when metrics are not collected.
func NewService(provider domain.ContextProvider, library domain.CryptoLibrary, c codec.Codec, store domain.ArtifactStore, m *metrics.EncryptionMetrics, clock clockwork.Clock) *Service {
	return &Service{
		provider: provider,
		library:  library,
		codec:    c,
		store:    store,
		metrics:  m,
		clock:    clock,
	}
}

// Encrypt packs values into one ciphertext under the provider's context.
func (s *Service) Encrypt(ctx context.Context, values []float64) (*domain.TransportEnvelope, error) {
	start := s.clock.Now()
	env, err := s.encrypt(ctx, domain.PlaintextVector(values))
	s.metrics.ObserveEncrypt(outcome(err), len(values), s.clock.Since(start))
	return env, err
}

func (s *Service) encrypt(ctx context.Context, values domain.PlaintextVector) (*domain.TransportEnvelope, error) {
	// Validation runs before a context is requested so bad input never costs a key generation.
	if err := values.Validate(s.provider.Bounds()); err != nil {
		return nil, err
	}

	cc, err := s.provider.Context(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain crypto context: %w", err)
	}

	ct, err := s.library.EncodeEncrypt(ctx, cc, values)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt values: %w", err)
	}
	ctBytes, err := s.library.Serialize(ct)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ciphertext: %w", err)
	}

	export, err := s.provider.PublicExport(cc)
	if err != nil {
		return nil, fmt.Errorf("failed to export public context: %w", err)
	}
	if err := s.verifyPublic(ctx, export); err != nil {
		return nil, err
	}

	return &domain.TransportEnvelope{
		Encrypted:   s.codec.Encode(ctBytes),
		Context:     s.codec.Encode(export),
		Length:      len(values),
		Fingerprint: cc.Describe().Fingerprint,
		CreatedAt:   s.clock.Now(),
	}, nil
}

// verifyPublic checks the exact bytes about to leave the process.
func (s *Service) verifyPublic(ctx context.Context, export []byte) error {
	err := s.library.VerifyPublic(export)
	if err == nil {
		return nil
	}

	slog.ErrorContext(ctx, "Refusing to release context export", "error", err)
	if errors.Is(err, domain.ErrSecretMaterialInExport) {
		return err
	}
	return fmt.Errorf("%w: context export failed verification: %w", domain.ErrSerialization, err)
}

// Persist writes the envelope's two blobs under name, overwriting earlier ones.
// An empty name means domain.DefaultArtifactName.
func (s *Service) Persist(ctx context.Context, env *domain.TransportEnvelope, name string) (*domain.StoredArtifacts, error) {
	stored, err := s.persist(ctx, env, name)
	if err != nil {
		s.metrics.ObservePersist(outcomeError)
		return nil, err
	}
	s.metrics.ObservePersist(outcomeSuccess)
	return stored, nil
}

func (s *Service) persist(ctx context.Context, env *domain.TransportEnvelope, name string) (*domain.StoredArtifacts, error) {
	if name == "" {
		name = domain.DefaultArtifactName
	}
	if err := domain.ValidateArtifactName(name); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, errors.New("nothing to persist")
	}

	export, err := s.codec.Decode(env.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: envelope context: %w", domain.ErrSerialization, err)
	}
	if err := s.verifyPublic(ctx, export); err != nil {
		return nil, err
	}

	encID, ctxID := domain.ArtifactIDs(name)
	writes := []struct {
		id   string
		data string
	}{
		{encID, env.Encrypted},
		{ctxID, env.Context},
	}

	log := logging.WithArtifact(name)
	for _, w := range writes {
		if err := s.store.Put(ctx, w.id, []byte(w.data)); err != nil {
			log.ErrorContext(ctx, "Failed to persist artifact", "id", w.id, "error", err)
			return nil, fmt.Errorf("%w: write %s: %w", domain.ErrStorage, w.id, err)
		}
	}

	log.InfoContext(ctx, "Persisted artifacts", "fingerprint", env.Fingerprint)
	return &domain.StoredArtifacts{
		Name:     name,
		Files:    []string{encID, ctxID},
		StoredAt: s.clock.Now(),
	}, nil
}

// EncryptAndStore encrypts values and persists the result under name.
func (s *Service) EncryptAndStore(ctx context.Context, values []float64, name string) (*domain.TransportEnvelope, *domain.StoredArtifacts, error) {
	if name != "" {
		if err := domain.ValidateArtifactName(name); err != nil {
			return nil, nil, err
		}
	}

	env, err := s.Encrypt(ctx, values)
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.Persist(ctx, env, name)
	if err != nil {
		return nil, nil, err
	}
	return env, stored, nil
}

// LoadArtifacts reads a stored pair back. Concurrent reads of the same name share one store round trip.
func (s *Service) LoadArtifacts(ctx context.Context, name string) (*domain.ArtifactPair, error) {
	if err := domain.ValidateArtifactName(name); err != nil {
		return nil, err
	}

	v, err, _ := s.reads.Do(name, func() (any, error) {
		encID, ctxID := domain.ArtifactIDs(name)

		encrypted, err := s.get(ctx, encID)
		if err != nil {
			return nil, err
		}
		export, err := s.get(ctx, ctxID)
		if err != nil {
			return nil, err
		}

		return &domain.ArtifactPair{Name: name, Encrypted: string(encrypted), Context: string(export)}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ArtifactPair), nil
}

func (s *Service) get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.store.Get(ctx, id)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, id, err)
}

// PublicContext returns the public export clients need to work with ciphertexts.
func (s *Service) PublicContext(ctx context.Context) (*domain.PublishedContext, error) {
	cc, err := s.provider.Context(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain crypto context: %w", err)
	}

	export, err := s.provider.PublicExport(cc)
	if err != nil {
		return nil, fmt.Errorf("failed to export public context: %w", err)
	}
	if err := s.verifyPublic(ctx, export); err != nil {
		return nil, err
	}

	info, err := s.provider.Describe()
	if err != nil {
		return nil, err
	}
	info.Context = cc.Describe()

	return &domain.PublishedContext{Context: s.codec.Encode(export), Info: info}, nil
}

// CheckProvider reports whether a crypto context can be handed out.
func (s *Service) CheckProvider(ctx context.Context) error {
	return s.provider.Check(ctx)
}

// CheckStore reports whether the artifact store is reachable.
func (s *Service) CheckStore(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, domain.ErrCapacityExceeded):
		return outcomeCapacity
	case errors.Is(err, domain.ErrEmptyVector),
		errors.Is(err, domain.ErrNonFiniteValue),
		errors.Is(err, domain.ErrValueOutOfRange):
		return outcomeValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	default:
		return outcomeError
	}
}
