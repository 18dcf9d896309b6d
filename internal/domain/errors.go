package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyVector      = errors.New("values must be a non-empty list of numbers")
	ErrNonFiniteValue   = errors.New("value is not a finite number")
	ErrValueOutOfRange  = errors.New("value exceeds the encodable magnitude")
	ErrCapacityExceeded = errors.New("values exceed ciphertext slot capacity")

	ErrMalformedInput = errors.New("malformed input")
	ErrConfiguration  = errors.New("invalid scheme configuration")
	ErrSerialization  = errors.New("serialization failed")

	ErrSecretKeyUnavailable   = errors.New("secret key is not available in this context")
	ErrSecretMaterialInExport = errors.New("export contains secret key material")
	ErrAdminRequired          = errors.New("administrative capability required")
	ErrProviderClosed         = errors.New("context provider is closed")
	ErrKeyMaterialNotFound    = errors.New("key material not found")

	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrInvalidArtifactName = errors.New("invalid artifact name")
	ErrStorage             = errors.New("artifact storage failed")
)

// ValueError reports which element of a plaintext vector was rejected.
type ValueError struct {
	Index int
	Value float64
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("values[%d]: %v", e.Index, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// CapacityExceededError carries the sizes involved in a capacity violation.
type CapacityExceededError struct {
	Length   int
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%d values exceed slot capacity of %d", e.Length, e.Capacity)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
