package loop

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Stats mirrors the campaign counters the original prints through its
// monitor and persists via its on-disk TOML monitor — rendered as YAML
// here, since no TOML library appears anywhere in the example corpus.
type Stats struct {
	StartTime    time.Time `yaml:"start_time"`
	Executions   int       `yaml:"executions"`
	CorpusCount  int       `yaml:"corpus_count"`
	CrashesCount int       `yaml:"crashes_count"`
	LastNewEdge  time.Time `yaml:"last_new_edge,omitempty"`
}

func (s *Stats) recordExecution() {
	s.Executions++
}

func (s *Stats) recordNewEdges() {
	s.LastNewEdge = time.Now()
}

// save writes stats to path as YAML, overwriting any prior contents.
func (s *Stats) save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
