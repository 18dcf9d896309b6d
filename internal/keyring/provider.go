package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/logging"
)

const (
	ModeShared    = "shared"
	ModeEphemeral = "ephemeral"
)

// KeyStore persists the secret-bearing context bundle.
type KeyStore interface {
	// Load returns domain.ErrKeyMaterialNotFound when nothing has been saved.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type Config struct {
	Mode   string
	Params domain.SchemeParameters
	// Store may be nil, in which case the shared context lives in memory only.
	Store KeyStore
	// AdminAccess keeps the secret key in memory so SecretExport can serve it.
	// Only out-of-band tooling sets this.
	AdminAccess bool
	// OnContextCreated, if set, is called after every key generation.
	OnContextCreated func()
}

var _ domain.ContextProvider = (*Provider)(nil)

type Provider struct {
	library domain.CryptoLibrary
	cfg     Config
	clock   clockwork.Clock
	bounds  domain.VectorBounds

	mu        sync.RWMutex
	shared    domain.CryptoContext
	secret    domain.CryptoContext
	export    []byte
	createdAt time.Time
	closed    bool

	created atomic.Int64
}

// New validates the parameters and, in shared mode, prepares the shared context.
func New(ctx context.Context, library domain.CryptoLibrary, cfg Config, clock clockwork.Clock) (*Provider, error) {
	switch cfg.Mode {
	case ModeShared, ModeEphemeral:
	default:
		return nil, fmt.Errorf("%w: unknown context mode %q", domain.ErrConfiguration, cfg.Mode)
	}

	desc, err := library.DescribeParameters(cfg.Params)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		library: library,
		cfg:     cfg,
		clock:   clock,
		bounds:  desc.Bounds(),
	}

	if cfg.Mode == ModeShared {
		if err := p.initShared(ctx); err != nil {
			return nil, err
		}
	} else {
		slog.Warn("Ephemeral context mode: every request generates fresh keys that are discarded afterwards")
	}
	return p, nil
}

func (p *Provider) initShared(ctx context.Context) error {
	cc, err := p.loadOrCreate(ctx)
	if err != nil {
		return err
	}

	if p.cfg.AdminAccess {
		p.secret = cc
	}
	p.shared = cc.Public()
	p.createdAt = p.clock.Now()

	export, err := p.library.SerializeContext(p.shared, false)
	if err != nil {
		return err
	}
	p.export = export

	desc := p.shared.Describe()
	logging.WithFingerprint(desc.Fingerprint).Info("Shared crypto context ready",
		"log_n", desc.LogN,
		"slots", desc.Slots,
		"export_bytes", len(export))
	return nil
}

func (p *Provider) loadOrCreate(ctx context.Context) (domain.CryptoContext, error) {
	if p.cfg.Store == nil {
		slog.Warn("No key store configured: the shared context lives in memory only and its ciphertexts cannot be decrypted after restart")
		return p.create()
	}

	data, err := p.cfg.Store.Load(ctx)
	switch {
	case err == nil:
		cc, err := p.library.LoadContext(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored context: %w", err)
		}
		if cc.Visibility() != domain.VisibilitySecretBearing {
			return nil, fmt.Errorf("%w: stored context has no secret key", domain.ErrConfiguration)
		}
		if err := matchParameters(cc.Describe(), p.cfg.Params); err != nil {
			return nil, err
		}
		logging.WithFingerprint(cc.Describe().Fingerprint).Info("Loaded shared crypto context from key store")
		return cc, nil

	case errors.Is(err, domain.ErrKeyMaterialNotFound):
		cc, err := p.create()
		if err != nil {
			return nil, err
		}
		bundle, err := p.library.SerializeContext(cc, true)
		if err != nil {
			return nil, err
		}
		if err := p.cfg.Store.Save(ctx, bundle); err != nil {
			return nil, fmt.Errorf("failed to save generated context: %w", err)
		}
		logging.WithFingerprint(cc.Describe().Fingerprint).Info("Generated and stored new shared crypto context")
		return cc, nil

	default:
		return nil, fmt.Errorf("failed to read key store: %w", err)
	}
}

// matchParameters refuses a stored key set generated for different parameters.
func matchParameters(desc domain.ContextDescription, want domain.SchemeParameters) error {
	if desc.LogN != want.LogN ||
		desc.LogDefaultScale != want.LogDefaultScale ||
		!slices.Equal(desc.LogQ, want.LogQ) ||
		!slices.Equal(desc.LogP, want.LogP) {
		return fmt.Errorf("%w: stored context (log N %d, log Q %v, log P %v, scale 2^%d) does not match configured parameters",
			domain.ErrConfiguration, desc.LogN, desc.LogQ, desc.LogP, desc.LogDefaultScale)
	}
	return nil
}

func (p *Provider) create() (domain.CryptoContext, error) {
	cc, err := p.library.CreateContext(p.cfg.Params)
	if err != nil {
		return nil, err
	}
	p.created.Add(1)
	if p.cfg.OnContextCreated != nil {
		p.cfg.OnContextCreated()
	}
	return cc, nil
}

// Context returns a public view: the shared one, or a fresh one in ephemeral mode.
func (p *Provider) Context(ctx context.Context) (domain.CryptoContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.cfg.Mode == ModeEphemeral {
		p.mu.RLock()
		closed := p.closed
		p.mu.RUnlock()
		if closed {
			return nil, domain.ErrProviderClosed
		}

		cc, err := p.create()
		if err != nil {
			return nil, err
		}
		return cc.Public(), nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, domain.ErrProviderClosed
	}
	return p.shared, nil
}

// PublicExport returns parameters and public keys only. The shared export is
// computed once and must not be modified by callers.
func (p *Provider) PublicExport(cc domain.CryptoContext) ([]byte, error) {
	p.mu.RLock()
	if cc == p.shared && p.export != nil {
		export := p.export
		p.mu.RUnlock()
		return export, nil
	}
	p.mu.RUnlock()

	return p.library.SerializeContext(cc, false)
}

// SecretContext returns the secret-bearing shared context.
func (p *Provider) SecretContext(capability domain.AdminCapability) (domain.CryptoContext, error) {
	if !p.cfg.AdminAccess || !capability.Valid() {
		return nil, domain.ErrAdminRequired
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, domain.ErrProviderClosed
	}
	if p.secret == nil {
		return nil, domain.ErrSecretKeyUnavailable
	}
	return p.secret, nil
}

// SecretExport serializes cc including its secret key.
func (p *Provider) SecretExport(capability domain.AdminCapability, cc domain.CryptoContext) ([]byte, error) {
	if !p.cfg.AdminAccess || !capability.Valid() {
		return nil, domain.ErrAdminRequired
	}
	if cc == nil || cc.Visibility() != domain.VisibilitySecretBearing {
		return nil, domain.ErrSecretKeyUnavailable
	}

	logging.WithFingerprint(cc.Describe().Fingerprint).Warn("Exporting secret-bearing context", "holder", capability.Holder())
	return p.library.SerializeContext(cc, true)
}

func (p *Provider) Bounds() domain.VectorBounds {
	return p.bounds
}

func (p *Provider) Mode() string {
	return p.cfg.Mode
}

// Describe reports the shared context; in ephemeral mode only parameter data is known.
func (p *Provider) Describe() (domain.ProviderInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ProviderInfo{}, domain.ErrProviderClosed
	}

	info := domain.ProviderInfo{Mode: p.cfg.Mode, CreatedAt: p.createdAt}
	if p.shared != nil {
		info.Context = p.shared.Describe()
		return info, nil
	}

	desc, err := p.library.DescribeParameters(p.cfg.Params)
	if err != nil {
		return domain.ProviderInfo{}, err
	}
	info.Context = desc
	return info, nil
}

// ContextsCreated counts key generations performed by this provider.
func (p *Provider) ContextsCreated() int64 {
	return p.created.Load()
}

// Check reports whether a context can be handed out.
func (p *Provider) Check(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ErrProviderClosed
	}
	if p.cfg.Mode == ModeShared && p.shared == nil {
		return errors.New("shared context not initialized")
	}
	return nil
}

// Close drops all key material references. Further calls fail with
// domain.ErrProviderClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.shared = nil
	p.secret = nil
	p.export = nil
	return nil
}
