package intent

import (
	"encoding/binary"
	"fmt"

	"github.com/minio/highwayhash"
)

// hashKey is a fixed 32-byte key for the content hash. The hash only needs
// to be stable across a single fuzzer run (it names trace files and
// dedup-cache entries), not cryptographically keyed, so a constant key is
// sufficient and keeps Hash() a pure function of the input alone.
var hashKey = [32]byte{
	0x69, 0x6e, 0x74, 0x65, 0x6e, 0x74, 0x2d, 0x66,
	0x75, 0x7a, 0x7a, 0x65, 0x72, 0x2d, 0x68, 0x61,
	0x73, 0x68, 0x2d, 0x6b, 0x65, 0x79, 0x2d, 0x76,
	0x31, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Hash returns a 128-bit content fingerprint of the input's serializable
// fields, rendered as 32 lowercase hex digits. It is a pure function of
// component, action, category, data, mime type, flags, and extras — the
// same fields shell_command() draws from.
func (i *IntentInput) Hash() string {
	var buf []byte
	write := func(b []byte) { buf = append(buf, b...) }
	writeStr := func(s string) { write([]byte(s)) }

	writeStr(i.Component())
	writeStr(i.Action)
	writeStr(i.Category)
	write(canonicalURI(i.Data))
	writeStr(i.MimeType.String())

	var flagsLE [4]byte
	binary.LittleEndian.PutUint32(flagsLE[:], i.Flags)
	write(flagsLE[:])

	for _, extra := range i.Extras {
		writeStr(extra.Key)
		write(canonicalExtra(&extra.Value))
	}

	sum := highwayhash.Sum128(buf, hashKey[:])
	return fmt.Sprintf("%032x", sum)
}

// canonicalURI is a deterministic textual encoding of an optional URIInput,
// including a presence tag so "no data" never collides with "data present
// with empty content".
func canonicalURI(u *URIInput) []byte {
	if u == nil {
		return []byte{0}
	}
	out := []byte{1, byte(u.Scheme), byte(u.Suffix)}
	return append(out, u.Content...)
}

// canonicalExtra is a deterministic textual encoding of a tagged-union
// value: its tag byte followed by its payload bytes.
func canonicalExtra(e *ExtraType) []byte {
	out := []byte{byte(e.Kind)}
	if e.Kind == ExtraURI {
		return append(out, canonicalURI(&e.URI)...)
	}
	return append(out, e.Direct.Buffer...)
}
