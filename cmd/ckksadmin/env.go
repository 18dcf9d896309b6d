package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/ckksgate/internal/adapter/keystore"
	"github.com/pscheid92/ckksgate/internal/adapter/lattigo"
	"github.com/pscheid92/ckksgate/internal/crypto"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/keyring"
	"github.com/pscheid92/ckksgate/internal/platform/config"
	"github.com/pscheid92/ckksgate/internal/platform/logging"
)

const capabilityHolder = "ckksadmin"

// adminEnv bundles what every subcommand needs. Logs go to stderr so stdout
// stays clean for exported material.
type adminEnv struct {
	cfg     *config.Config
	library *lattigo.Library
	store   *keystore.FileKeyStore
}

func loadAdminEnv() (*adminEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	env := &adminEnv{cfg: cfg, library: lattigo.New(cfg.EncryptConcurrency)}
	if cfg.KeyDir == "" {
		return env, nil
	}

	var sealer crypto.Sealer = crypto.NoopSealer{}
	if cfg.KeyEncryptionKey != "" {
		s, err := crypto.NewXChaChaSealer(cfg.KeyEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create key store sealer: %w", err)
		}
		sealer = s
	}
	env.store = keystore.New(cfg.KeyDir, sealer)
	return env, nil
}

func (e *adminEnv) params() domain.SchemeParameters {
	return domain.SchemeParameters{
		LogN:            e.cfg.LogN,
		LogQ:            e.cfg.LogQ,
		LogP:            e.cfg.LogP,
		LogDefaultScale: e.cfg.LogScale,
		Rotations:       e.cfg.Rotations,
	}
}

// openProvider opens the shared context with administrative access. Unless
// create is set, missing key material is an error instead of a fresh key set.
func (e *adminEnv) openProvider(ctx context.Context, create bool) (*keyring.Provider, error) {
	if e.store == nil {
		return nil, errors.New("KEY_DIR must be set")
	}
	if !create {
		if _, err := e.store.Load(ctx); err != nil {
			if errors.Is(err, domain.ErrKeyMaterialNotFound) {
				return nil, fmt.Errorf("no key material in %s, run keygen first", e.cfg.KeyDir)
			}
			return nil, err
		}
	}

	return keyring.New(ctx, e.library, keyring.Config{
		Mode:        keyring.ModeShared,
		Params:      e.params(),
		Store:       e.store,
		AdminAccess: true,
	}, clockwork.NewRealClock())
}

func (e *adminEnv) secretContext(ctx context.Context) (*keyring.Provider, domain.CryptoContext, error) {
	provider, err := e.openProvider(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	cc, err := provider.SecretContext(domain.GrantAdministrative(capabilityHolder))
	if err != nil {
		_ = provider.Close()
		return nil, nil, err
	}
	return provider, cc, nil
}
