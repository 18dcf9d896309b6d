package domain

import (
	"context"
	"time"
)

// Visibility marks whether a context carries secret key material.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilitySecretBearing
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilitySecretBearing:
		return "secret"
	default:
		return "unknown"
	}
}

// SchemeParameters fix the CKKS ring, modulus chain, and scale for a context.
type SchemeParameters struct {
	LogN            int
	LogQ            []int
	LogP            []int
	LogDefaultScale int
	Rotations       []int
}

// ContextDescription is the non-secret summary of a crypto context.
type ContextDescription struct {
	Fingerprint     string
	Visibility      Visibility
	LogN            int
	Slots           int
	MaxLevel        int
	LogDefaultScale int
	LogQ            []int
	LogP            []int
	GaloisKeys      int
	MaxMagnitude    float64
}

// Bounds returns the limits plaintext vectors must respect under this context.
func (d ContextDescription) Bounds() VectorBounds {
	return VectorBounds{Capacity: d.Slots, MaxMagnitude: d.MaxMagnitude}
}

// CryptoContext is an opaque handle on scheme parameters plus key material.
type CryptoContext interface {
	Describe() ContextDescription
	Visibility() Visibility
	// Public returns a view of the same context with the secret key removed.
	Public() CryptoContext
}

// Ciphertext is an opaque encrypted vector.
type Ciphertext interface {
	Length() int
}

// CryptoLibrary is the homomorphic encryption backend.
type CryptoLibrary interface {
	DescribeParameters(params SchemeParameters) (ContextDescription, error)
	CreateContext(params SchemeParameters) (CryptoContext, error)
	EncodeEncrypt(ctx context.Context, cc CryptoContext, values PlaintextVector) (Ciphertext, error)
	Serialize(ct Ciphertext) ([]byte, error)
	SerializeContext(cc CryptoContext, includeSecret bool) ([]byte, error)
	LoadContext(data []byte) (CryptoContext, error)
	DescribeContext(data []byte) (ContextDescription, error)
	// VerifyPublic fails unless data is a context export free of secret key material.
	VerifyPublic(data []byte) error
	Decrypt(ctx context.Context, cc CryptoContext, ciphertext []byte, length int) ([]float64, error)
}

// ContextProvider hands out crypto contexts and their public exports.
// It deliberately has no way to export secret key material.
type ContextProvider interface {
	Context(ctx context.Context) (CryptoContext, error)
	PublicExport(cc CryptoContext) ([]byte, error)
	Bounds() VectorBounds
	Describe() (ProviderInfo, error)
	Check(ctx context.Context) error
}

// ProviderInfo describes the provider's current state for operators.
type ProviderInfo struct {
	Mode      string
	CreatedAt time.Time
	Context   ContextDescription
}

// PublishedContext is a public context export with its metadata.
type PublishedContext struct {
	Context string
	Info    ProviderInfo
}

// AdminCapability is held by out-of-band tooling allowed to export secret keys.
type AdminCapability struct {
	holder string
}

// GrantAdministrative issues a capability naming the tool that holds it.
func GrantAdministrative(holder string) AdminCapability {
	return AdminCapability{holder: holder}
}

func (c AdminCapability) Valid() bool {
	return c.holder != ""
}

func (c AdminCapability) Holder() string {
	return c.holder
}
