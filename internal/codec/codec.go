// Package codec converts binary artifacts to and from their text transport form.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pscheid92/ckksgate/internal/domain"
)

type Codec interface {
	Encode(data []byte) string
	Decode(text string) ([]byte, error)
}

// Base64 uses the standard alphabet with padding and no line wrapping.
type Base64 struct{}

var Standard Codec = Base64{}

func (Base64) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode is strict: bad padding, characters outside the alphabet, and line
// breaks are rejected.
func (Base64) Decode(text string) ([]byte, error) {
	if strings.ContainsAny(text, "\r\n") {
		return nil, fmt.Errorf("%w: base64 text must not contain line breaks", domain.ErrMalformedInput)
	}
	data, err := base64.StdEncoding.Strict().DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	return data, nil
}
