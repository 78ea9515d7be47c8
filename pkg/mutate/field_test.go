package mutate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org/intent-fuzzer/pkg/intent"
)

func newInput() *intent.IntentInput {
	return &intent.IntentInput{
		ReceiverType:     intent.ReceiverActivity,
		ComponentPackage: "com.example.app",
		ComponentClass:   ".ExampleActivity",
		Action:           "com.example.ACTION",
		MimeType:         intent.MimeTextPlain,
	}
}

func TestRandomAddExtraRespectsCap(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	m := NewMutatorSet(rng, map[string]string{"custom.key": "String"})
	in := newInput()
	for i := 0; i < intent.MaxExtras; i++ {
		res := m.RandomAddExtra(in)
		require.Equal(t, Mutated, res)
	}
	require.Len(t, in.Extras, intent.MaxExtras)

	res := m.RandomAddExtra(in)
	assert.Equal(t, Skipped, res)
	assert.Len(t, in.Extras, intent.MaxExtras)
}

func TestRandomExtraKeySkippedWithNoExtras(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	assert.Equal(t, Skipped, m.RandomExtraKey(in))
}

func TestRandomExtraSchemeSkippedWithNoURIExtra(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	in.Extras = []intent.ExtraInput{
		{Key: "k", Value: intent.NewDirectExtra(intent.ExtraString)},
	}
	assert.Equal(t, Skipped, m.RandomExtraScheme(in))
	assert.Equal(t, Skipped, m.RandomExtraSuffix(in))
}

func TestRandomExtraSchemeMutatesURIExtra(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	in.Extras = []intent.ExtraInput{
		{Key: "k", Value: intent.NewURIExtra(intent.URISchemeContent, intent.SuffixPNG)},
	}
	res := m.RandomExtraScheme(in)
	assert.Equal(t, Mutated, res)
}

func TestEnforceFixedWidthBooleanStaysOneByte(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	in.Extras = []intent.ExtraInput{
		{Key: "k", Value: intent.NewDirectExtra(intent.ExtraBoolean)},
	}
	for i := 0; i < 50; i++ {
		m.RandomExtraContent(in)
		assert.Len(t, *in.Extras[0].Value.ContentBuffer(), 1)
	}
}

func TestEnforceFixedWidthIntStaysFourBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	in.Extras = []intent.ExtraInput{
		{Key: "k", Value: intent.NewDirectExtra(intent.ExtraInt)},
	}
	for i := 0; i < 50; i++ {
		m.RandomExtraContent(in)
		assert.Len(t, *in.Extras[0].Value.ContentBuffer(), 4)
	}
}

func TestRandomFlagTogglesLowByte(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	before := in.Flags
	m.RandomFlag(in)
	assert.NotEqual(t, before, in.Flags)
	assert.Less(t, in.Flags, uint32(256))
}

func TestRandomDataSynthesizesWhenAbsent(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	require.Nil(t, in.Data)
	m.RandomData(in)
	assert.NotNil(t, in.Data)
}

func TestMutateKeepsExtrasWithinCap(t *testing.T) {
	rng := rand.New(rand.NewSource(18))
	m := NewMutatorSet(rng, nil)
	in := newInput()
	for i := 0; i < 100; i++ {
		m.Mutate(in)
	}
	assert.LessOrEqual(t, len(in.Extras), intent.MaxExtras)
}
