package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/ckksgate/internal/domain"
)

func TestEncodeKnownVectors(t *testing.T) {
	assert.Equal(t, "", Standard.Encode(nil))
	assert.Equal(t, "Zg==", Standard.Encode([]byte("f")))
	assert.Equal(t, "Zm9vYmFy", Standard.Encode([]byte("foobar")))
	assert.Equal(t, "+/8=", Standard.Encode([]byte{0xfb, 0xff}))
}

func TestRoundTripArbitraryBytes(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i * 7)
	}

	decoded, err := Standard.Decode(Standard.Encode(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEncodeHasNoLineBreaks(t *testing.T) {
	text := Standard.Encode(make([]byte, 1<<16))
	assert.NotContains(t, text, "\n")
}

func TestDecodeRejectsMalformed(t *testing.T) {
	inputs := map[string]string{
		"bad alphabet":  "Zm9v!mFy",
		"url alphabet":  "-_8=",
		"bad padding":   "Zg=",
		"line break":    "Zm9v\nYmFy",
		"trailing bits": "Zh==",
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Standard.Decode(in)
			assert.ErrorIs(t, err, domain.ErrMalformedInput)
		})
	}
}
