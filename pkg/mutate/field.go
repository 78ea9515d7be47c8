// Package mutate implements the field-level and byte-level mutation
// strategies applied to an intent.IntentInput during fuzzing.
package mutate

import (
	"math/rand"

	"github.com/org/intent-fuzzer/pkg/intent"
)

// Result reports the outcome of applying a field mutator.
type Result int

const (
	// Skipped means the mutator found nothing eligible to act on and left
	// the input unchanged (e.g. RandomExtraKey on an input with no extras).
	Skipped Result = iota
	// Mutated means the mutator acted on the input in place. Mutators that
	// redraw an enum value (mime type, URI scheme, URI suffix)
	// report Mutated without checking that the new value differs from the
	// old one, and RandomData reports Mutated even when its byte-havoc pass
	// left the content unchanged.
	Mutated
)

// MutatorSet holds the RNG and template-provided extra-key knowledge that
// the field mutators draw on. It is not safe for concurrent use; callers
// fuzzing multiple components concurrently should construct one per
// goroutine.
type MutatorSet struct {
	rng              *rand.Rand
	knownExtrasKeys  map[string]string
	lastGeneratedKey string
}

// NewMutatorSet builds a mutator set seeded from rng, consulting
// knownExtrasKeys (as supplied by the loaded template) when synthesizing
// new extras.
func NewMutatorSet(rng *rand.Rand, knownExtrasKeys map[string]string) *MutatorSet {
	return &MutatorSet{rng: rng, knownExtrasKeys: knownExtrasKeys}
}

// fieldMutatorFunc is the shape of each of the 8 field-level mutators.
type fieldMutatorFunc func(m *MutatorSet, in *intent.IntentInput) Result

var fieldMutators = []fieldMutatorFunc{
	(*MutatorSet).RandomFlag,
	(*MutatorSet).RandomData,
	(*MutatorSet).RandomMimeType,
	(*MutatorSet).RandomAddExtra,
	(*MutatorSet).RandomExtraKey,
	(*MutatorSet).RandomExtraContent,
	(*MutatorSet).RandomExtraScheme,
	(*MutatorSet).RandomExtraSuffix,
}

// Mutate picks one of the 8 field mutators uniformly at random and applies
// it to in, reporting whether anything changed.
func (m *MutatorSet) Mutate(in *intent.IntentInput) Result {
	f := fieldMutators[m.rng.Intn(len(fieldMutators))]
	return f(m, in)
}

// RandomFlag toggles one of the low 8 bits of the intent's flags word.
func (m *MutatorSet) RandomFlag(in *intent.IntentInput) Result {
	in.Flags ^= 1 << uint(m.rng.Intn(8))
	return Mutated
}

// RandomData replaces the optional URI payload. With no existing data it
// synthesizes a fresh one; with existing data it picks uniformly between
// replacing the scheme, the suffix, or the raw content bytes.
func (m *MutatorSet) RandomData(in *intent.IntentInput) Result {
	if in.Data == nil {
		in.Data = m.randomURIInput()
		in.Data.Content, _ = ByteHavoc(m.rng, in.Data.Content)
		return Mutated
	}
	switch m.rng.Intn(3) {
	case 0:
		in.Data.Scheme = intent.URISchemes[m.rng.Intn(len(intent.URISchemes))]
	case 1:
		in.Data.Suffix = intent.URISuffixes[m.rng.Intn(len(intent.URISuffixes))]
	default:
		in.Data.Content, _ = ByteHavoc(m.rng, in.Data.Content)
	}
	return Mutated
}

// RandomMimeType replaces the intent's mime type with a uniformly chosen
// alternative from the closed set of known mime types.
func (m *MutatorSet) RandomMimeType(in *intent.IntentInput) Result {
	in.MimeType = intent.MimeTypes[m.rng.Intn(len(intent.MimeTypes))]
	return Mutated
}

// RandomAddExtra synthesizes a new extra and appends it, unless the input
// is already at the MaxExtras cap.
func (m *MutatorSet) RandomAddExtra(in *intent.IntentInput) Result {
	if len(in.Extras) >= intent.MaxExtras {
		return Skipped
	}
	extra := intent.ExtraInput{
		Key:   m.randomExtraKey(),
		Value: m.randomExtraValue(m.tagForKey(m.lastGeneratedKey)),
	}
	extra.Value, _ = m.mutateContentOnce(extra.Value)
	in.Extras = append(in.Extras, extra)
	return Mutated
}

// RandomExtraKey replaces the key of a randomly chosen existing extra.
func (m *MutatorSet) RandomExtraKey(in *intent.IntentInput) Result {
	idx, ok := m.pickExtra(in)
	if !ok {
		return Skipped
	}
	in.Extras[idx].Key = m.randomExtraKey()
	return Mutated
}

// RandomExtraContent applies byte-level havoc to the raw content buffer of
// a randomly chosen existing extra (or its URI content, if it is a URI
// extra), then re-enforces the fixed widths of scalar numeric kinds.
func (m *MutatorSet) RandomExtraContent(in *intent.IntentInput) Result {
	idx, ok := m.pickExtra(in)
	if !ok {
		return Skipped
	}
	v, changed := m.mutateContentOnce(in.Extras[idx].Value)
	in.Extras[idx].Value = v
	if !changed {
		return Skipped
	}
	return Mutated
}

// RandomExtraScheme replaces the URI scheme of a randomly chosen existing
// URI-kind extra.
func (m *MutatorSet) RandomExtraScheme(in *intent.IntentInput) Result {
	idx, ok := m.pickURIExtra(in)
	if !ok {
		return Skipped
	}
	in.Extras[idx].Value.URI.Scheme = intent.URISchemes[m.rng.Intn(len(intent.URISchemes))]
	return Mutated
}

// RandomExtraSuffix replaces the URI suffix of a randomly chosen existing
// URI-kind extra.
func (m *MutatorSet) RandomExtraSuffix(in *intent.IntentInput) Result {
	idx, ok := m.pickURIExtra(in)
	if !ok {
		return Skipped
	}
	in.Extras[idx].Value.URI.Suffix = intent.URISuffixes[m.rng.Intn(len(intent.URISuffixes))]
	return Mutated
}

// pickExtra returns the index of a uniformly chosen existing extra, or
// false if the input has none.
func (m *MutatorSet) pickExtra(in *intent.IntentInput) (int, bool) {
	if len(in.Extras) == 0 {
		return 0, false
	}
	return m.rng.Intn(len(in.Extras)), true
}

// pickURIExtra returns the index of a uniformly chosen existing extra whose
// kind is ExtraURI, or false if none exists.
func (m *MutatorSet) pickURIExtra(in *intent.IntentInput) (int, bool) {
	var candidates []int
	for i, e := range in.Extras {
		if e.Value.Kind == intent.ExtraURI {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[m.rng.Intn(len(candidates))], true
}

// randomExtraKey chooses a key uniformly from the union of the template's
// known extras and the common-extra-keys table, falling back to a generic
// key if that union is empty.
func (m *MutatorSet) randomExtraKey() string {
	pool := make([]string, 0, len(m.knownExtrasKeys)+len(CommonExtraKeys))
	for k := range m.knownExtrasKeys {
		pool = append(pool, k)
	}
	for _, e := range CommonExtraKeys {
		pool = append(pool, e.Key)
	}
	if len(pool) == 0 {
		m.lastGeneratedKey = "extra"
		return "extra"
	}
	// Deterministic iteration over knownExtrasKeys is not guaranteed by Go
	// map order; callers relying on exact reproducibility should prefer
	// templates whose known_extras_keys collide rarely with the common
	// table, matching how the original treats this as a best-effort pool.
	key := pool[m.rng.Intn(len(pool))]
	m.lastGeneratedKey = key
	return key
}

// tagForKey resolves a key to its declared ExtraType tag, checking the
// template's known extras first and falling back to the common-extra-keys
// table, then finally to Boolean for unrecognized keys.
func (m *MutatorSet) tagForKey(key string) string {
	if tag, ok := m.knownExtrasKeys[key]; ok {
		return tag
	}
	for _, e := range CommonExtraKeys {
		if e.Key == key {
			return e.Type
		}
	}
	return "Boolean"
}

// randomExtraValue synthesizes a zero-valued ExtraType for the given tag
// name.
func (m *MutatorSet) randomExtraValue(tag string) intent.ExtraType {
	kind, ok := intent.KindsByName[tag]
	if !ok {
		kind = intent.ExtraBoolean
	}
	if kind == intent.ExtraURI {
		return intent.NewURIExtra(
			intent.URISchemes[m.rng.Intn(len(intent.URISchemes))],
			intent.URISuffixes[m.rng.Intn(len(intent.URISuffixes))],
		)
	}
	return intent.NewDirectExtra(kind)
}

// randomURIInput synthesizes a fresh URIInput with a uniformly chosen
// scheme and suffix and empty content.
func (m *MutatorSet) randomURIInput() *intent.URIInput {
	return &intent.URIInput{
		Scheme: intent.URISchemes[m.rng.Intn(len(intent.URISchemes))],
		Suffix: intent.URISuffixes[m.rng.Intn(len(intent.URISuffixes))],
	}
}

// mutateContentOnce applies one byte-havoc pass to v's content buffer, then
// re-enforces the fixed byte width for scalar numeric kinds (Boolean: 1,
// Int/Float: 4, Long: 8), truncating or zero-padding as needed so
// the on-disk shape of fixed-width kinds never drifts under mutation.
func (m *MutatorSet) mutateContentOnce(v intent.ExtraType) (intent.ExtraType, bool) {
	buf := v.ContentBuffer()
	mutated, changed := ByteHavoc(m.rng, *buf)
	*buf = mutated
	before := len(*buf)
	enforceFixedWidth(&v)
	if len(*buf) != before {
		changed = true
	}
	return v, changed
}

func enforceFixedWidth(v *intent.ExtraType) {
	var width int
	switch v.Kind {
	case intent.ExtraBoolean:
		width = 1
	case intent.ExtraInt, intent.ExtraFloat:
		width = 4
	case intent.ExtraLong:
		width = 8
	default:
		return
	}
	buf := v.ContentBuffer()
	if len(*buf) == width {
		return
	}
	fixed := make([]byte, width)
	copy(fixed, *buf)
	*buf = fixed
}
