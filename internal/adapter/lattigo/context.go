package lattigo

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
	"github.com/zeebo/blake3"

	"github.com/pscheid92/ckksgate/internal/domain"
)

const fingerprintBytes = 16

// Context holds CKKS parameters and keys. The secret key is optional; a
// context without one can encrypt but not decrypt.
type Context struct {
	params ckks.Parameters
	pk     *rlwe.PublicKey
	rlk    *rlwe.RelinearizationKey
	gks    []*rlwe.GaloisKey
	sk     *rlwe.SecretKey

	desc     domain.ContextDescription
	sessions *sessionPool
}

func newContext(params ckks.Parameters, pk *rlwe.PublicKey, rlk *rlwe.RelinearizationKey, gks []*rlwe.GaloisKey, sk *rlwe.SecretKey, concurrency int) (*Context, error) {
	fp, err := fingerprint(params, pk)
	if err != nil {
		return nil, err
	}

	visibility := domain.VisibilityPublic
	if sk != nil {
		visibility = domain.VisibilitySecretBearing
	}

	desc := describeParameters(params)
	desc.Fingerprint = fp
	desc.Visibility = visibility
	desc.GaloisKeys = len(gks)

	return &Context{
		params:   params,
		pk:       pk,
		rlk:      rlk,
		gks:      gks,
		sk:       sk,
		desc:     desc,
		sessions: &sessionPool{params: params, pk: pk, size: concurrency},
	}, nil
}

func describeParameters(params ckks.Parameters) domain.ContextDescription {
	logQ := params.LogQi()
	return domain.ContextDescription{
		LogN:            params.LogN(),
		Slots:           params.MaxSlots(),
		MaxLevel:        params.MaxLevel(),
		LogDefaultScale: params.LogDefaultScale(),
		LogQ:            logQ,
		LogP:            params.LogPi(),
		MaxMagnitude:    math.Exp2(float64(logQ[0] - params.LogDefaultScale() - 1)),
	}
}

// fingerprint identifies a key set by hashing the parameters and public key.
func fingerprint(params ckks.Parameters, pk *rlwe.PublicKey) (string, error) {
	paramBytes, err := params.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: marshal parameters: %v", domain.ErrSerialization, err)
	}
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: marshal public key: %v", domain.ErrSerialization, err)
	}

	h := blake3.New()
	_, _ = h.Write(paramBytes)
	_, _ = h.Write(pkBytes)
	return hex.EncodeToString(h.Sum(nil)[:fingerprintBytes]), nil
}

func (c *Context) Describe() domain.ContextDescription {
	return c.desc
}

func (c *Context) Visibility() domain.Visibility {
	return c.desc.Visibility
}

// Public shares parameters, public keys, and the session pool with c.
func (c *Context) Public() domain.CryptoContext {
	if c.sk == nil {
		return c
	}
	pub := *c
	pub.sk = nil
	pub.desc.Visibility = domain.VisibilityPublic
	return &pub
}

// Parameters exposes the underlying scheme parameters.
func (c *Context) Parameters() ckks.Parameters {
	return c.params
}

// session is an encoder/encryptor pair. Lattigo encoders and encryptors
// carry scratch buffers and must not be used concurrently.
type session struct {
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
}

// sessionPool is filled lazily so that contexts loaded only for inspection
// never allocate encoders.
type sessionPool struct {
	params ckks.Parameters
	pk     *rlwe.PublicKey
	size   int

	once sync.Once
	ch   chan *session
}

func (p *sessionPool) fill() {
	p.ch = make(chan *session, p.size)
	encoder := ckks.NewEncoder(p.params)
	encryptor := ckks.NewEncryptor(p.params, p.pk)
	p.ch <- &session{encoder: encoder, encryptor: encryptor}
	for i := 1; i < p.size; i++ {
		p.ch <- &session{encoder: encoder.ShallowCopy(), encryptor: encryptor.ShallowCopy()}
	}
}

func (p *sessionPool) acquire(ctx context.Context) (*session, error) {
	p.once.Do(p.fill)
	select {
	case s := <-p.ch:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *sessionPool) release(s *session) {
	p.ch <- s
}
