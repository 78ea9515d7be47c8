// Package template parses intent templates and enumerates the initial seed
// corpus from them.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/org/intent-fuzzer/pkg/intent"
)

// IntentTemplate is the JSON-configured starting point for one component's
// fuzzing seeds.
type IntentTemplate struct {
	ReceiverType    intent.ReceiverType `json:"-"`
	ReceiverTypeRaw string              `json:"receiver_type"`
	Component       string              `json:"component"`
	Actions         []string            `json:"actions"`
	Categories      []string            `json:"categories"`
	KnownExtrasKeys map[string]string   `json:"known_extras_keys"`
}

// UnmarshalJSON resolves the string receiver_type field into the typed enum.
func (t *IntentTemplate) UnmarshalJSON(data []byte) error {
	type alias IntentTemplate
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = IntentTemplate(a)
	switch t.ReceiverTypeRaw {
	case "Activity":
		t.ReceiverType = intent.ReceiverActivity
	case "BroadcastReceiver":
		t.ReceiverType = intent.ReceiverBroadcastReceiver
	case "Service":
		t.ReceiverType = intent.ReceiverService
	default:
		return fmt.Errorf("template: unknown receiver_type %q", t.ReceiverTypeRaw)
	}
	return nil
}

// PackageName returns the package half of "pkg/class".
func (t *IntentTemplate) PackageName() string {
	return splitComponent(t.Component)[0]
}

// ClassName returns the class half of "pkg/class".
func (t *IntentTemplate) ClassName() string {
	return splitComponent(t.Component)[1]
}

func splitComponent(component string) [2]string {
	for i := 0; i < len(component); i++ {
		if component[i] == '/' {
			return [2]string{component[:i], component[i+1:]}
		}
	}
	return [2]string{component, ""}
}

// NumberOfIntents is the size of this template's seed space: the cross
// product of actions and categories (categories floored at 1 so an empty
// category list still yields one seed per action).
func (t *IntentTemplate) NumberOfIntents() int {
	cats := len(t.Categories)
	if cats < 1 {
		cats = 1
	}
	return len(t.Actions) * cats
}

// IntentInputForIndex builds the seed at position index within this
// template's seed space.
//
// This preserves the original arithmetic verbatim, division bug included:
// actionIndex = index % len(actions), categoryIndex = index / max(1,
// len(actions)). The category denominator is arguably wrong — it should
// track len(categories), not len(actions) — but the behavior is kept
// exactly as the source implementation computes it (see DESIGN.md).
func (t *IntentTemplate) IntentInputForIndex(index int) intent.IntentInput {
	actionsLen := len(t.Actions)
	denom := actionsLen
	if denom < 1 {
		denom = 1
	}
	actionIndex := index % actionsLen
	categoryIndex := index / denom

	var category string
	if categoryIndex >= 0 && categoryIndex < len(t.Categories) {
		category = t.Categories[categoryIndex]
	}

	return intent.IntentInput{
		ReceiverType:     t.ReceiverType,
		Action:           t.Actions[actionIndex],
		Category:         category,
		ComponentPackage: t.PackageName(),
		ComponentClass:   t.ClassName(),
		MimeType:         intent.MimeTextPlain,
	}
}

// Generator produces the initial seed corpus from one or more loaded
// templates, and is the sole source of per-run template metadata
// consulted by the mutators that synthesize new extras.
type Generator struct {
	Templates []*IntentTemplate
	readCount int
}

// Load reads templates from a path. If path is a directory, every JSON file
// in it is parsed and only Activity-typed templates are kept (a faithful
// port of the original's directory-loading filter — see DESIGN.md for the
// support-gate interaction this produces). If path is a file, exactly one
// template is loaded regardless of its receiver type.
func Load(path string) (*Generator, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("template: failed to open %q: %w", path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("template: failed to read directory %q: %w", path, err)
		}
		var templates []*IntentTemplate
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			tpl, err := loadOne(filepath.Join(path, entry.Name()))
			if err != nil {
				return nil, err
			}
			if tpl.ReceiverType == intent.ReceiverActivity {
				templates = append(templates, tpl)
			}
		}
		if len(templates) == 0 {
			return nil, fmt.Errorf("template: no Activity templates found in directory %q", path)
		}
		return &Generator{Templates: templates}, nil
	}

	tpl, err := loadOne(path)
	if err != nil {
		return nil, err
	}
	return &Generator{Templates: []*IntentTemplate{tpl}}, nil
}

func loadOne(path string) (*IntentTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: failed to read %q: %w", path, err)
	}
	var tpl IntentTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("template: failed to parse %q: %w", path, err)
	}
	return &tpl, nil
}

// NumberOfIntents sums the seed-space size across every loaded template.
func (g *Generator) NumberOfIntents() int {
	total := 0
	for _, t := range g.Templates {
		total += t.NumberOfIntents()
	}
	return total
}

// PackageName returns the package name of the first loaded template.
func (g *Generator) PackageName() string {
	return g.Templates[0].PackageName()
}

// EnableSynchronization reports whether the coverage observer should run
// in synchronization mode, true only for Activity targets.
func (g *Generator) EnableSynchronization() bool {
	return g.Templates[0].ReceiverType == intent.ReceiverActivity
}

// IsSupported reports whether the loop may proceed at all.
//
// This checks only templates[0]. Directory loading keeps only Activity
// templates, so after a directory load the gate always passes; after a
// single-file load it checks that one file's receiver type.
// Preserved verbatim per DESIGN.md; not silently fixed.
func (g *Generator) IsSupported() bool {
	rt := g.Templates[0].ReceiverType
	return rt == intent.ReceiverActivity || rt == intent.ReceiverBroadcastReceiver
}

// Generate returns the next seed in read order across all templates, and
// reports whether the corpus is exhausted.
func (g *Generator) Generate() (intent.IntentInput, bool) {
	idx := g.readCount
	for _, t := range g.Templates {
		n := t.NumberOfIntents()
		if idx < n {
			g.readCount++
			return t.IntentInputForIndex(idx), true
		}
		idx -= n
	}
	return intent.IntentInput{}, false
}

// Reset rewinds the read cursor so Generate can be called again from the
// start, used when re-seeding a fresh fuzzing run.
func (g *Generator) Reset() {
	g.readCount = 0
}
