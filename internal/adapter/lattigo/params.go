package lattigo

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/pscheid92/ckksgate/internal/domain"
)

const (
	minLogN      = 10
	maxLogN      = 17
	minPrimeBits = 20
	maxPrimeBits = 61
)

// Largest log2(QP) giving 128-bit classical security with a ternary secret,
// per the homomorphic encryption standard.
var maxLogQPByLogN = map[int]int{
	10: 27,
	11: 54,
	12: 109,
	13: 218,
	14: 438,
	15: 881,
	16: 1761,
	17: 3524,
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}

func checkParameters(sp domain.SchemeParameters) error {
	if sp.LogN < minLogN || sp.LogN > maxLogN {
		return configErrorf("log N %d outside [%d, %d]", sp.LogN, minLogN, maxLogN)
	}
	if len(sp.LogQ) == 0 {
		return configErrorf("modulus chain must contain at least one prime")
	}
	if len(sp.LogP) == 0 {
		return configErrorf("key-switching modulus must contain at least one prime")
	}

	total := 0
	for _, bits := range sp.LogQ {
		if bits < minPrimeBits || bits > maxPrimeBits {
			return configErrorf("prime size %d bits outside [%d, %d]", bits, minPrimeBits, maxPrimeBits)
		}
		total += bits
	}
	for _, bits := range sp.LogP {
		if bits < minPrimeBits || bits > maxPrimeBits {
			return configErrorf("prime size %d bits outside [%d, %d]", bits, minPrimeBits, maxPrimeBits)
		}
		total += bits
	}

	if sp.LogDefaultScale <= 0 || sp.LogDefaultScale >= sp.LogQ[0] {
		return configErrorf("scale 2^%d leaves no headroom under the first modulus prime of %d bits", sp.LogDefaultScale, sp.LogQ[0])
	}
	if limit := maxLogQPByLogN[sp.LogN]; total > limit {
		return configErrorf("modulus of %d bits exceeds the %d-bit bound for 128-bit security at log N %d", total, limit, sp.LogN)
	}
	return nil
}

func buildParameters(sp domain.SchemeParameters) (ckks.Parameters, error) {
	if err := checkParameters(sp); err != nil {
		return ckks.Parameters{}, err
	}

	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            sp.LogN,
		LogQ:            sp.LogQ,
		LogP:            sp.LogP,
		LogDefaultScale: sp.LogDefaultScale,
	})
	if err != nil {
		return ckks.Parameters{}, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	for _, rot := range sp.Rotations {
		if rot == 0 || rot >= params.MaxSlots() || -rot >= params.MaxSlots() {
			return ckks.Parameters{}, configErrorf("rotation %d must be non-zero and smaller than %d slots", rot, params.MaxSlots())
		}
	}
	return params, nil
}
