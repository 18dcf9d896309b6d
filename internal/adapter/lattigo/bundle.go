package lattigo

import (
	"encoding/binary"
	"fmt"

	"github.com/pscheid92/ckksgate/internal/domain"
)

// Bundle layout, all integers big-endian:
//
//	magic   [8]byte  "CKKSCTX1"
//	flags   uint8    bit 0 set when a secret key section is present
//	count   uint16
//	count x { kind uint8, length uint64, payload [length]byte }
const bundleMagic = "CKKSCTX1"

const (
	flagSecret   byte = 1 << 0
	knownFlags        = flagSecret
	headerLen         = len(bundleMagic) + 1 + 2
	sectionHdLen      = 1 + 8
)

type sectionKind uint8

const (
	sectionParameters sectionKind = iota + 1
	sectionPublicKey
	sectionRelinearizationKey
	sectionGaloisKey
	sectionSecretKey
)

type section struct {
	kind sectionKind
	data []byte
}

func encodeBundle(sections []section) []byte {
	size := headerLen
	var flags byte
	for _, s := range sections {
		size += sectionHdLen + len(s.data)
		if s.kind == sectionSecretKey {
			flags |= flagSecret
		}
	}

	out := make([]byte, 0, size)
	out = append(out, bundleMagic...)
	out = append(out, flags)
	out = binary.BigEndian.AppendUint16(out, uint16(len(sections)))
	for _, s := range sections {
		out = append(out, byte(s.kind))
		out = binary.BigEndian.AppendUint64(out, uint64(len(s.data)))
		out = append(out, s.data...)
	}
	return out
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: context bundle: %s", domain.ErrMalformedInput, fmt.Sprintf(format, args...))
}

// decodeBundle validates framing only; payloads are returned as sub-slices of data.
func decodeBundle(data []byte) (secret bool, sections []section, err error) {
	if len(data) < headerLen {
		return false, nil, malformedf("truncated header")
	}
	if string(data[:len(bundleMagic)]) != bundleMagic {
		return false, nil, malformedf("bad magic")
	}

	flags := data[len(bundleMagic)]
	if flags&^knownFlags != 0 {
		return false, nil, malformedf("unknown flags %#x", flags)
	}
	count := int(binary.BigEndian.Uint16(data[len(bundleMagic)+1:]))

	rest := data[headerLen:]
	sections = make([]section, 0, count)
	hasSecret := false
	for i := 0; i < count; i++ {
		if len(rest) < sectionHdLen {
			return false, nil, malformedf("truncated section %d header", i)
		}
		kind := sectionKind(rest[0])
		if kind < sectionParameters || kind > sectionSecretKey {
			return false, nil, malformedf("unknown section kind %d", kind)
		}
		length := binary.BigEndian.Uint64(rest[1:sectionHdLen])
		rest = rest[sectionHdLen:]
		if length > uint64(len(rest)) {
			return false, nil, malformedf("section %d length %d exceeds remaining %d bytes", i, length, len(rest))
		}
		if kind == sectionSecretKey {
			hasSecret = true
		}
		sections = append(sections, section{kind: kind, data: rest[:length]})
		rest = rest[length:]
	}
	if len(rest) != 0 {
		return false, nil, malformedf("%d trailing bytes", len(rest))
	}

	secret = flags&flagSecret != 0
	if secret != hasSecret {
		return false, nil, malformedf("secret flag does not match sections")
	}
	return secret, sections, nil
}
