package intent

import "strings"

// hexEscape renders bytes as a concatenated \xHH sequence, lowercase,
// no separators — the wire format used both by the device's
// `echo -n -e` writes and as a stable inline encoding for opaque bytes.
func hexEscape(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 4)
	const hexDigits = "0123456789abcdef"
	for _, c := range b {
		sb.WriteByte('\\')
		sb.WriteByte('x')
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}
