package intent

import (
	"testing"

	"github.com/bradleyjkemp/cupaloy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellCommandBasicShape(t *testing.T) {
	in := &IntentInput{
		ReceiverType:     ReceiverActivity,
		ComponentPackage: "p",
		ComponentClass:   ".C",
		Action:           "A",
		MimeType:         MimeTextPlain,
	}

	cmd, err := in.ShellCommand()
	require.NoError(t, err)
	assert.Equal(t, "am start -n 'p/.C' -a 'A' -t 'text/plain' --grant-read-uri-permission  ", cmd)
}

func TestShellCommandRejectsService(t *testing.T) {
	in := &IntentInput{ReceiverType: ReceiverService}
	_, err := in.ShellCommand()
	assert.Error(t, err)
}

func TestShellCommandBooleanExtra(t *testing.T) {
	base := IntentInput{
		ReceiverType:     ReceiverActivity,
		ComponentPackage: "p",
		ComponentClass:   ".C",
		Action:           "A",
		MimeType:         MimeTextPlain,
		Extras: []ExtraInput{
			{Key: "k", Value: ExtraType{Kind: ExtraBoolean, Direct: DirectInput{Buffer: []byte{0x00}}}},
		},
	}
	cmd, err := base.ShellCommand()
	require.NoError(t, err)
	assert.Contains(t, cmd, " --ez 'k' $'false'")

	base.Extras[0].Value.Direct.Buffer = []byte{0x01}
	cmd, err = base.ShellCommand()
	require.NoError(t, err)
	assert.Contains(t, cmd, " --ez 'k' $'true'")
}

func TestShellCommandIntExtraLittleEndian(t *testing.T) {
	in := IntentInput{
		ReceiverType:     ReceiverActivity,
		ComponentPackage: "p",
		ComponentClass:   ".C",
		Action:           "A",
		MimeType:         MimeTextPlain,
		Extras: []ExtraInput{
			{Key: "k", Value: ExtraType{Kind: ExtraInt, Direct: DirectInput{Buffer: []byte{0x39, 0x30, 0x00, 0x00}}}},
		},
	}
	cmd, err := in.ShellCommand()
	require.NoError(t, err)
	assert.Contains(t, cmd, " --ei 'k' $'12345'")
}

func TestShellCommandFileURIData(t *testing.T) {
	in := IntentInput{
		ReceiverType:     ReceiverActivity,
		ComponentPackage: "p",
		ComponentClass:   ".C",
		Action:           "A",
		MimeType:         MimeImagePng,
		Data: &URIInput{
			Scheme:  URISchemeFile,
			Suffix:  SuffixPNG,
			Content: make([]byte, 10),
		},
	}
	cmd, err := in.ShellCommand()
	require.NoError(t, err)
	assert.Contains(t, cmd, " -d 'file:///data/local/tmp/extra_input_0.png'")
}

func TestNumericArrayEmptyBufferOmitsFragment(t *testing.T) {
	in := IntentInput{
		ReceiverType:     ReceiverActivity,
		ComponentPackage: "p",
		ComponentClass:   ".C",
		Action:           "A",
		MimeType:         MimeTextPlain,
		Extras: []ExtraInput{
			{Key: "k", Value: ExtraType{Kind: ExtraIntArray, Direct: DirectInput{Buffer: nil}}},
		},
	}
	cmd, err := in.ShellCommand()
	require.NoError(t, err)
	assert.NotContains(t, cmd, "--eia")
}

func TestOtherSchemeIdentifierIsHexEscapeOfContent(t *testing.T) {
	u := URIInput{Scheme: URISchemeOther, Content: []byte{0x41, 0x42}}
	assert.Equal(t, "\\x41\\x42", u.Identifier(0))
}

func TestHashIsPureAndDeterministic(t *testing.T) {
	a := IntentInput{
		ReceiverType:     ReceiverActivity,
		ComponentPackage: "p",
		ComponentClass:   ".C",
		Action:           "A",
		MimeType:         MimeTextPlain,
	}
	b := a
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 32)

	b.Flags = 1
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestShellCommandSnapshot(t *testing.T) {
	in := IntentInput{
		ReceiverType:     ReceiverBroadcastReceiver,
		ComponentPackage: "com.example.app",
		ComponentClass:   ".ExampleReceiver",
		Action:           "com.example.ACTION",
		Category:         "android.intent.category.DEFAULT",
		MimeType:         MimeApplicationPdf,
		Flags:            0x10,
		Data: &URIInput{
			Scheme: URISchemeContent,
			Suffix: SuffixPDF,
		},
		Extras: []ExtraInput{
			{Key: "android.intent.extra.TEXT", Value: ExtraType{Kind: ExtraString, Direct: DirectInput{Buffer: []byte("hi")}}},
		},
	}
	cmd, err := in.ShellCommand()
	require.NoError(t, err)
	cupaloy.SnapshotT(t, cmd)
}
