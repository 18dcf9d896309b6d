package domain

import "math"

// PlaintextVector is an ordered list of real numbers to be packed into one ciphertext.
type PlaintextVector []float64

// VectorBounds are the limits a plaintext vector must respect for a given context.
type VectorBounds struct {
	Capacity     int
	MaxMagnitude float64
}

// Validate checks emptiness, capacity, and that every element is finite and
// small enough to survive encoding at the context's scale.
func (v PlaintextVector) Validate(bounds VectorBounds) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	if bounds.Capacity > 0 && len(v) > bounds.Capacity {
		return &CapacityExceededError{Length: len(v), Capacity: bounds.Capacity}
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &ValueError{Index: i, Value: x, Err: ErrNonFiniteValue}
		}
		if bounds.MaxMagnitude > 0 && math.Abs(x) >= bounds.MaxMagnitude {
			return &ValueError{Index: i, Value: x, Err: ErrValueOutOfRange}
		}
	}
	return nil
}
