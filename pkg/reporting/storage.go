// Package reporting persists the fuzzing loop's corpus and crash entries
// as one JSON file per entry, named by the input's content hash.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/org/intent-fuzzer/pkg/intent"
	"github.com/org/intent-fuzzer/pkg/logging"
)

// Storage persists IntentInput entries (corpus seeds or crashing inputs) as
// individual JSON files in a directory, one file per entry.
type Storage struct {
	dir    string
	logger *logging.Logger
}

// NewStorage creates dir if needed and returns a Storage rooted there.
func NewStorage(dir string, logger *logging.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("reporting: failed to create directory %q: %w", dir, err)
	}
	return &Storage{dir: dir, logger: logger}, nil
}

// Save writes in to a file named by its content hash, returning the path.
// An entry already on disk under the same hash is left untouched.
func (s *Storage) Save(in *intent.IntentInput) (string, error) {
	path := filepath.Join(s.dir, in.Hash()+".json")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reporting: failed to marshal entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("reporting: failed to write entry %q: %w", path, err)
	}
	s.logger.Debug("saved corpus entry", "path", path)
	return path, nil
}

// Load reads and parses a single entry file.
func (s *Storage) Load(path string) (*intent.IntentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to read entry %q: %w", path, err)
	}
	var in intent.IntentInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("reporting: failed to parse entry %q: %w", path, err)
	}
	return &in, nil
}

// LoadAll reads every entry file in the storage directory, in name order.
func (s *Storage) LoadAll() ([]*intent.IntentInput, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to read directory %q: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	inputs := make([]*intent.IntentInput, 0, len(names))
	for _, name := range names {
		in, err := s.Load(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("failed to load corpus entry, skipping", "name", name, "error", err)
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.dir
}
