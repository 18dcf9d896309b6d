package lattigo

import (
	"context"
	"encoding"
	"fmt"
	"runtime"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/pscheid92/ckksgate/internal/domain"
)

var _ domain.CryptoLibrary = (*Library)(nil)

type Library struct {
	concurrency int
}

// New returns a library whose contexts allow up to concurrency parallel
// encryptions. Zero or less means GOMAXPROCS.
func New(concurrency int) *Library {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Library{concurrency: concurrency}
}

type part struct {
	kind sectionKind
	m    encoding.BinaryMarshaler
}

type ciphertext struct {
	ct     *rlwe.Ciphertext
	length int
}

func (c *ciphertext) Length() int {
	return c.length
}

func asContext(cc domain.CryptoContext) (*Context, error) {
	c, ok := cc.(*Context)
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: unsupported context type %T", domain.ErrSerialization, cc)
	}
	return c, nil
}

func (l *Library) DescribeParameters(sp domain.SchemeParameters) (domain.ContextDescription, error) {
	params, err := buildParameters(sp)
	if err != nil {
		return domain.ContextDescription{}, err
	}
	desc := describeParameters(params)
	desc.GaloisKeys = len(sp.Rotations)
	return desc, nil
}

func (l *Library) CreateContext(sp domain.SchemeParameters) (domain.CryptoContext, error) {
	params, err := buildParameters(sp)
	if err != nil {
		return nil, err
	}

	kgen := ckks.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)

	var gks []*rlwe.GaloisKey
	if len(sp.Rotations) > 0 {
		galEls := make([]uint64, 0, len(sp.Rotations))
		for _, rot := range sp.Rotations {
			galEls = append(galEls, params.GaloisElementForRotation(rot))
		}
		gks = kgen.GenGaloisKeysNew(galEls, sk)
	}

	return newContext(params, pk, rlk, gks, sk, l.concurrency)
}

func (l *Library) EncodeEncrypt(ctx context.Context, cc domain.CryptoContext, values domain.PlaintextVector) (domain.Ciphertext, error) {
	c, err := asContext(cc)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.ErrEmptyVector
	}
	if slots := c.params.MaxSlots(); len(values) > slots {
		return nil, &domain.CapacityExceededError{Length: len(values), Capacity: slots}
	}

	s, err := c.sessions.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.sessions.release(s)

	pt := ckks.NewPlaintext(c.params, c.params.MaxLevel())
	if err := s.encoder.Encode([]float64(values), pt); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrSerialization, err)
	}
	ct, err := s.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt: %v", domain.ErrSerialization, err)
	}
	return &ciphertext{ct: ct, length: len(values)}, nil
}

func (l *Library) Serialize(ct domain.Ciphertext) ([]byte, error) {
	c, ok := ct.(*ciphertext)
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: unsupported ciphertext type %T", domain.ErrSerialization, ct)
	}
	data, err := c.ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: marshal ciphertext: %v", domain.ErrSerialization, err)
	}
	return data, nil
}

func (l *Library) SerializeContext(cc domain.CryptoContext, includeSecret bool) ([]byte, error) {
	c, err := asContext(cc)
	if err != nil {
		return nil, err
	}
	if includeSecret && c.sk == nil {
		return nil, domain.ErrSecretKeyUnavailable
	}

	parts := []part{
		{sectionParameters, c.params},
		{sectionPublicKey, c.pk},
	}
	if c.rlk != nil {
		parts = append(parts, part{sectionRelinearizationKey, c.rlk})
	}
	for _, gk := range c.gks {
		parts = append(parts, part{sectionGaloisKey, gk})
	}
	if includeSecret {
		parts = append(parts, part{sectionSecretKey, c.sk})
	}

	sections := make([]section, 0, len(parts))
	for _, p := range parts {
		data, err := p.m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("%w: marshal section %d: %v", domain.ErrSerialization, p.kind, err)
		}
		sections = append(sections, section{kind: p.kind, data: data})
	}
	return encodeBundle(sections), nil
}

func (l *Library) LoadContext(data []byte) (domain.CryptoContext, error) {
	_, sections, err := decodeBundle(data)
	if err != nil {
		return nil, err
	}

	var (
		params    ckks.Parameters
		hasParams bool
		pk        *rlwe.PublicKey
		rlk       *rlwe.RelinearizationKey
		gks       []*rlwe.GaloisKey
		sk        *rlwe.SecretKey
	)
	for _, s := range sections {
		switch s.kind {
		case sectionParameters:
			if hasParams {
				return nil, malformedf("duplicate parameters section")
			}
			if err := params.UnmarshalBinary(s.data); err != nil {
				return nil, malformedf("parameters: %v", err)
			}
			hasParams = true
		case sectionPublicKey:
			if pk != nil {
				return nil, malformedf("duplicate public key section")
			}
			pk = new(rlwe.PublicKey)
			if err := pk.UnmarshalBinary(s.data); err != nil {
				return nil, malformedf("public key: %v", err)
			}
		case sectionRelinearizationKey:
			if rlk != nil {
				return nil, malformedf("duplicate relinearization key section")
			}
			rlk = new(rlwe.RelinearizationKey)
			if err := rlk.UnmarshalBinary(s.data); err != nil {
				return nil, malformedf("relinearization key: %v", err)
			}
		case sectionGaloisKey:
			gk := new(rlwe.GaloisKey)
			if err := gk.UnmarshalBinary(s.data); err != nil {
				return nil, malformedf("galois key: %v", err)
			}
			gks = append(gks, gk)
		case sectionSecretKey:
			if sk != nil {
				return nil, malformedf("duplicate secret key section")
			}
			sk = new(rlwe.SecretKey)
			if err := sk.UnmarshalBinary(s.data); err != nil {
				return nil, malformedf("secret key: %v", err)
			}
		}
	}
	if !hasParams || pk == nil {
		return nil, malformedf("parameters and public key sections are required")
	}
	return newContext(params, pk, rlk, gks, sk, l.concurrency)
}

func (l *Library) DescribeContext(data []byte) (domain.ContextDescription, error) {
	cc, err := l.LoadContext(data)
	if err != nil {
		return domain.ContextDescription{}, err
	}
	return cc.Describe(), nil
}

// VerifyPublic inspects framing only, so it is cheap enough to run on every export.
func (l *Library) VerifyPublic(data []byte) error {
	secret, sections, err := decodeBundle(data)
	if err != nil {
		return err
	}
	if secret {
		return domain.ErrSecretMaterialInExport
	}
	for _, s := range sections {
		if s.kind == sectionSecretKey {
			return domain.ErrSecretMaterialInExport
		}
	}
	return nil
}

func (l *Library) Decrypt(ctx context.Context, cc domain.CryptoContext, data []byte, length int) ([]float64, error) {
	c, err := asContext(cc)
	if err != nil {
		return nil, err
	}
	if c.sk == nil {
		return nil, domain.ErrSecretKeyUnavailable
	}
	if slots := c.params.MaxSlots(); length < 1 || length > slots {
		return nil, fmt.Errorf("%w: length %d outside [1, %d]", domain.ErrMalformedInput, length, slots)
	}

	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", domain.ErrMalformedInput, err)
	}
	if ct.Level() > c.params.MaxLevel() {
		return nil, fmt.Errorf("%w: ciphertext level %d above max level %d", domain.ErrMalformedInput, ct.Level(), c.params.MaxLevel())
	}

	s, err := c.sessions.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.sessions.release(s)

	pt := ckks.NewDecryptor(c.params, c.sk).DecryptNew(ct)
	values := make([]float64, c.params.MaxSlots())
	if err := s.encoder.Decode(pt, values); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrSerialization, err)
	}
	return values[:length], nil
}
