package mutate

// CommonExtraKey is one entry of the fixed, ordered table of well-known
// Android intent extra keys and the ExtraType tag they're synthesized as.
// Ordering matters: mutators choose uniformly from this table under a
// seeded RNG, so insertion order must stay fixed across runs (see spec
// §8 determinism properties).
type CommonExtraKey struct {
	Key  string
	Type string
}

// CommonExtraKeys is the 14-entry table of well-known extra keys, in
// declaration order.
var CommonExtraKeys = []CommonExtraKey{
	{"android.intent.extra.CC", "StringArray"},
	{"android.intent.extra.COMPONENT_NAME", "ComponentName"},
	{"android.intent.extra.EMAIL", "StringArray"},
	{"android.intent.extra.HTML_TEXT", "String"},
	{"android.intent.extra.INDEX", "Int"},
	{"android.intent.extra.MIME_TYPES", "StringArray"},
	{"android.intent.extra.PACKAGE_NAME", "String"},
	{"android.intent.extra.PHONE_NUMBER", "String"},
	{"android.intent.extra.QUICK_VIEW_FEATURES", "StringArray"},
	{"android.intent.extra.STREAM", "URI"},
	{"android.intent.extra.SUBJECT", "String"},
	{"android.intent.extra.TEXT", "String"},
	{"android.intent.extra.TITLE", "String"},
	{"android.intent.extra.UID", "Int"},
}
