// Package intent implements the structured intent value that flows through
// the fuzzing loop: its typed fields and extras, deterministic shell-command
// serialization, and a stable content hash.
package intent

// ReceiverType identifies the kind of Android component an intent targets.
// Only Activity and BroadcastReceiver are dispatched by the device driver;
// Service is a placeholder that fails at shell-command build time.
type ReceiverType int

const (
	ReceiverActivity ReceiverType = iota
	ReceiverService
	ReceiverBroadcastReceiver
)

func (r ReceiverType) String() string {
	switch r {
	case ReceiverActivity:
		return "Activity"
	case ReceiverService:
		return "Service"
	case ReceiverBroadcastReceiver:
		return "BroadcastReceiver"
	default:
		return "Unknown"
	}
}

// MaxExtras bounds the number of extras an IntentInput may carry.
const MaxExtras = 10

// IntentInput is the root value mutated and dispatched by the fuzzing loop.
type IntentInput struct {
	// Target-matching fields, never mutated after seed construction.
	ReceiverType      ReceiverType
	ComponentPackage  string
	ComponentClass    string
	Action            string
	Category          string

	// Mutated fields.
	Data     *URIInput
	MimeType MimeType
	Flags    uint32
	Extras   []ExtraInput
}

// Component renders "<package>/<class>", the Android component identifier.
func (i *IntentInput) Component() string {
	return i.ComponentPackage + "/" + i.ComponentClass
}

// Clone returns a deep copy so corpus entries are never aliased across
// concurrent mutation and execution.
func (i *IntentInput) Clone() *IntentInput {
	clone := *i
	if i.Data != nil {
		d := i.Data.clone()
		clone.Data = &d
	}
	if i.Extras != nil {
		clone.Extras = make([]ExtraInput, len(i.Extras))
		for idx, e := range i.Extras {
			clone.Extras[idx] = e.clone()
		}
	}
	return &clone
}

// URIScheme identifies how a URIInput's content is surfaced to the device.
type URIScheme int

const (
	URISchemeContent URIScheme = iota
	URISchemeFile
	URISchemeOther
)

func (s URIScheme) String() string {
	switch s {
	case URISchemeContent:
		return "content"
	case URISchemeFile:
		return "file"
	case URISchemeOther:
		return ""
	default:
		return ""
	}
}

// URISchemes enumerates the closed set, in declaration order, for uniform
// random selection by mutators.
var URISchemes = []URIScheme{URISchemeContent, URISchemeFile, URISchemeOther}

// URISuffix is one of a fixed set of file-type tokens appended to a
// generated URI identifier.
type URISuffix int

const (
	SuffixAAC URISuffix = iota
	SuffixAPK
	SuffixGIF
	SuffixHTML
	SuffixJPG
	SuffixMIDI
	SuffixMP3
	SuffixMP4
	SuffixOGG
	SuffixPDF
	SuffixPNG
	SuffixTXT
	SuffixWAV
	SuffixWMA
	SuffixWMV
	SuffixXML
)

var uriSuffixStrings = map[URISuffix]string{
	SuffixAAC:  ".aac",
	SuffixAPK:  ".apk",
	SuffixGIF:  ".gif",
	SuffixHTML: ".html",
	SuffixJPG:  ".jpg",
	SuffixMIDI: ".midi",
	SuffixMP3:  ".mp3",
	SuffixMP4:  ".mp4",
	SuffixOGG:  ".ogg",
	SuffixPDF:  ".pdf",
	SuffixPNG:  ".png",
	SuffixTXT:  ".txt",
	SuffixWAV:  ".wav",
	SuffixWMA:  ".wma",
	SuffixWMV:  ".wmv",
	SuffixXML:  ".xml",
}

func (s URISuffix) String() string { return uriSuffixStrings[s] }

// URISuffixes enumerates the closed set in declaration order.
var URISuffixes = []URISuffix{
	SuffixAAC, SuffixAPK, SuffixGIF, SuffixHTML, SuffixJPG, SuffixMIDI,
	SuffixMP3, SuffixMP4, SuffixOGG, SuffixPDF, SuffixPNG, SuffixTXT,
	SuffixWAV, SuffixWMA, SuffixWMV, SuffixXML,
}

// MimeType is one of a fixed set of MIME tokens for the intent's "type".
type MimeType int

const (
	MimeApplicationPdf MimeType = iota
	MimeApplicationVndAndroidPackageArchive
	MimeAudioAac
	MimeAudioMidi
	MimeAudioMpeg
	MimeAudioMpeg4Generic
	MimeAudioOgg
	MimeAudioWav
	MimeAudioXMsWma
	MimeImageGif
	MimeImageJpeg
	MimeImagePng
	MimeTextHtml
	MimeTextPlain
	MimeTextXml
	MimeVideoMp4
	MimeVideoXMsVideo
	MimeVideoXMsWmv
)

var mimeTypeStrings = map[MimeType]string{
	MimeApplicationPdf:                       "application/pdf",
	MimeApplicationVndAndroidPackageArchive:  "application/vnd.android.package-archive",
	MimeAudioAac:                             "audio/aac",
	MimeAudioMidi:                            "audio/midi",
	MimeAudioMpeg:                            "audio/mpeg",
	MimeAudioMpeg4Generic:                    "audio/mpeg4-generic",
	MimeAudioOgg:                             "audio/ogg",
	MimeAudioWav:                             "audio/wav",
	MimeAudioXMsWma:                          "audio/x-ms-wma",
	MimeImageGif:                             "image/gif",
	MimeImageJpeg:                            "image/jpeg",
	MimeImagePng:                             "image/png",
	MimeTextHtml:                             "text/html",
	MimeTextPlain:                            "text/plain",
	MimeTextXml:                              "text/xml",
	MimeVideoMp4:                             "video/mp4",
	MimeVideoXMsVideo:                        "video/x-msvideo",
	MimeVideoXMsWmv:                          "video/x-ms-wmv",
}

func (m MimeType) String() string { return mimeTypeStrings[m] }

// MimeTypes enumerates the closed set in declaration order.
var MimeTypes = []MimeType{
	MimeApplicationPdf, MimeApplicationVndAndroidPackageArchive, MimeAudioAac,
	MimeAudioMidi, MimeAudioMpeg, MimeAudioMpeg4Generic, MimeAudioOgg,
	MimeAudioWav, MimeAudioXMsWma, MimeImageGif, MimeImageJpeg, MimeImagePng,
	MimeTextHtml, MimeTextPlain, MimeTextXml, MimeVideoMp4, MimeVideoXMsVideo,
	MimeVideoXMsWmv,
}

// URIInput is an auxiliary byte payload surfaced to the device as a URI.
type URIInput struct {
	Scheme  URIScheme
	Suffix  URISuffix
	Content []byte
}

func (u *URIInput) clone() URIInput {
	c := URIInput{Scheme: u.Scheme, Suffix: u.Suffix}
	if u.Content != nil {
		c.Content = append([]byte(nil), u.Content...)
	}
	return c
}

// DirectInput wraps a byte buffer whose interpretation depends on the
// enclosing ExtraKind.
type DirectInput struct {
	Buffer []byte
}

// ExtraKind is the tag of the ExtraType union, one of 15 variants.
type ExtraKind int

const (
	ExtraString ExtraKind = iota
	ExtraBoolean
	ExtraInt
	ExtraLong
	ExtraFloat
	ExtraURI
	ExtraComponentName
	ExtraIntArray
	ExtraIntArrayList
	ExtraLongArray
	ExtraLongArrayList
	ExtraFloatArray
	ExtraFloatArrayList
	ExtraStringArray
	ExtraStringArrayList
)

var extraKindTags = map[ExtraKind]string{
	ExtraString:          "s",
	ExtraBoolean:         "z",
	ExtraInt:             "i",
	ExtraLong:            "l",
	ExtraFloat:           "f",
	ExtraURI:             "u",
	ExtraComponentName:   "cn",
	ExtraIntArray:        "ia",
	ExtraIntArrayList:    "ial",
	ExtraLongArray:       "la",
	ExtraLongArrayList:   "lal",
	ExtraFloatArray:      "fa",
	ExtraFloatArrayList:  "fal",
	ExtraStringArray:     "sa",
	ExtraStringArrayList: "sal",
}

// Tag renders the short extra-type code used in shell_command() output.
func (k ExtraKind) Tag() string { return extraKindTags[k] }

// KindsByName maps IntentTemplate's known_extras_keys type tags to ExtraKind,
// one entry per closed-set variant name.
var KindsByName = map[string]ExtraKind{
	"String":           ExtraString,
	"Boolean":          ExtraBoolean,
	"Int":              ExtraInt,
	"Long":             ExtraLong,
	"Float":            ExtraFloat,
	"URI":              ExtraURI,
	"ComponentName":    ExtraComponentName,
	"IntArray":         ExtraIntArray,
	"IntArrayList":     ExtraIntArrayList,
	"LongArray":        ExtraLongArray,
	"LongArrayList":    ExtraLongArrayList,
	"FloatArray":       ExtraFloatArray,
	"FloatArrayList":   ExtraFloatArrayList,
	"StringArray":      ExtraStringArray,
	"StringArrayList":  ExtraStringArrayList,
}

// ExtraType is the tagged-union value of an extra: either a DirectInput
// (every variant but URI) or a URIInput.
type ExtraType struct {
	Kind   ExtraKind
	Direct DirectInput
	URI    URIInput
}

// NewDirectExtra builds an ExtraType for any non-URI kind with an empty
// buffer, matching the original's "extras are synthesized empty, then
// mutated" flow.
func NewDirectExtra(kind ExtraKind) ExtraType {
	return ExtraType{Kind: kind, Direct: DirectInput{Buffer: nil}}
}

// NewURIExtra builds a URI-kind ExtraType.
func NewURIExtra(scheme URIScheme, suffix URISuffix) ExtraType {
	return ExtraType{Kind: ExtraURI, URI: URIInput{Scheme: scheme, Suffix: suffix}}
}

// ContentBuffer returns a pointer to the mutable byte buffer backing this
// extra's value, whichever variant it is. Byte-havoc mutators operate
// through this indirection so they never need a type switch.
func (e *ExtraType) ContentBuffer() *[]byte {
	if e.Kind == ExtraURI {
		return &e.URI.Content
	}
	return &e.Direct.Buffer
}

func (e ExtraType) clone() ExtraType {
	c := ExtraType{Kind: e.Kind}
	if e.Kind == ExtraURI {
		c.URI = e.URI.clone()
	} else {
		c.Direct = DirectInput{Buffer: append([]byte(nil), e.Direct.Buffer...)}
	}
	return c
}

// ExtraInput is a named extra attached to an intent.
type ExtraInput struct {
	Key   string
	Value ExtraType
}

func (e ExtraInput) clone() ExtraInput {
	return ExtraInput{Key: e.Key, Value: e.Value.clone()}
}
