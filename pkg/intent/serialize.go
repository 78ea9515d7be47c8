package intent

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	contentProviderPath = "org.gts3.jnifuzz.contentprovider.provider/external_files"
	fileProviderPath    = "/data/local/tmp"
)

// Identifier renders the URI string the device will resolve: the
// content:// / file:// form for Content and File schemes, or the
// hex-escape of the content itself when scheme is Other — no side-channel
// provisioning occurs for Other, the bytes are inlined as the URI.
func (u *URIInput) Identifier(slot int) string {
	switch u.Scheme {
	case URISchemeContent:
		return fmt.Sprintf("content://%s/extra_input_%d%s", contentProviderPath, slot, u.Suffix)
	case URISchemeFile:
		return fmt.Sprintf("file://%s/extra_input_%d%s", fileProviderPath, slot, u.Suffix)
	default: // URISchemeOther
		return hexEscape(u.Content)
	}
}

// commandArgs renders the ` --e<tag> '<key>' $'<value>'` fragment for one
// extra at its 1-based position, or "" with ok=false if the extra has
// nothing to contribute (mirrors the original's filter_map semantics:
// malformed numeric buffers or empty array buffers suppress the fragment).
func (e *ExtraInput) commandArgs(index int) (string, bool) {
	value, ok := e.Value.argString(index)
	if !ok {
		return "", false
	}
	return fmt.Sprintf(" --e%s '%s' $'%s'", e.Value.Kind.Tag(), e.Key, value), true
}

func (e *ExtraType) argString(index int) (string, bool) {
	switch e.Kind {
	case ExtraURI:
		return e.URI.Identifier(index), true
	case ExtraString, ExtraComponentName:
		return hexEscape(e.Direct.Buffer), true
	case ExtraBoolean:
		if len(e.Direct.Buffer) > 0 && e.Direct.Buffer[0] != 0 {
			return "true", true
		}
		return "false", true
	case ExtraInt:
		v, ok := le4(e.Direct.Buffer)
		if !ok {
			return "", false
		}
		return strconv.FormatInt(int64(int32(v)), 10), true
	case ExtraLong:
		v, ok := le8(e.Direct.Buffer)
		if !ok {
			return "", false
		}
		return strconv.FormatInt(int64(v), 10), true
	case ExtraFloat:
		v, ok := le4(e.Direct.Buffer)
		if !ok {
			return "", false
		}
		f := math.Float32frombits(v)
		switch {
		case math.IsInf(float64(f), 1):
			return "Infinity", true
		case math.IsInf(float64(f), -1):
			return "-Infinity", true
		case math.IsNaN(float64(f)):
			return "NaN", true
		default:
			return strconv.FormatFloat(float64(f), 'g', -1, 32), true
		}
	case ExtraIntArray, ExtraIntArrayList:
		return joinIntChunks(e.Direct.Buffer, 4, func(b []byte) string {
			v, _ := le4(padTo(b, 4))
			return strconv.FormatInt(int64(int32(v)), 10)
		})
	case ExtraLongArray, ExtraLongArrayList:
		return joinIntChunks(e.Direct.Buffer, 8, func(b []byte) string {
			v, _ := le8(padTo(b, 8))
			return strconv.FormatInt(int64(v), 10)
		})
	case ExtraFloatArray, ExtraFloatArrayList:
		return joinIntChunks(e.Direct.Buffer, 4, func(b []byte) string {
			v, _ := le4(padTo(b, 4))
			return strconv.FormatFloat(float64(math.Float32frombits(v)), 'g', -1, 32)
		})
	case ExtraStringArray, ExtraStringArrayList:
		out := make([]byte, len(e.Direct.Buffer))
		for i, b := range e.Direct.Buffer {
			if b == 0 {
				out[i] = ','
			} else {
				out[i] = b
			}
		}
		if len(out) == 0 {
			return "", false
		}
		return hexEscape(out), true
	default:
		return "", false
	}
}

func padTo(b []byte, width int) []byte {
	if len(b) >= width {
		return b[:width]
	}
	out := make([]byte, width)
	copy(out, b)
	return out
}

func joinIntChunks(buf []byte, width int, render func([]byte) string) (string, bool) {
	if len(buf) == 0 {
		return "", false
	}
	var parts []string
	for i := 0; i < len(buf); i += width {
		end := i + width
		if end > len(buf) {
			end = len(buf)
		}
		parts = append(parts, render(buf[i:end]))
	}
	return strings.Join(parts, ","), true
}

func le4(b []byte) (uint32, bool) {
	if len(b) != 4 {
		return 0, false
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

func le8(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, true
}

// ShellCommand produces the single command line dispatched over the device
// control channel. Service receivers are rejected — only Activity and
// BroadcastReceiver are supported.
func (i *IntentInput) ShellCommand() (string, error) {
	var verb string
	switch i.ReceiverType {
	case ReceiverActivity:
		verb = "start"
	case ReceiverBroadcastReceiver:
		verb = "broadcast"
	default:
		return "", fmt.Errorf("intent: unsupported receiver type %s", i.ReceiverType)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "am %s -n '%s' -a '%s' -t '%s' --grant-read-uri-permission ",
		verb, i.Component(), i.Action, i.MimeType)

	if i.Data != nil {
		fmt.Fprintf(&sb, " -d '%s'", i.Data.Identifier(0))
	}

	if i.Category != "" {
		fmt.Fprintf(&sb, " -c %s", i.Category)
	}

	sb.WriteByte(' ')
	var extraParts []string
	for idx, extra := range i.Extras {
		if args, ok := extra.commandArgs(idx + 1); ok {
			extraParts = append(extraParts, args)
		}
	}
	sb.WriteString(strings.Join(extraParts, " "))

	return sb.String(), nil
}
