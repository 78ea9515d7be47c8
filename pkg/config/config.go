// Package config loads and validates the intent-fuzzer's YAML configuration
// file, the same settings the CLI flags can also set or override.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the intent-fuzzer's full configuration.
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Device    DeviceConfig    `yaml:"device"`
	Coverage  CoverageConfig  `yaml:"coverage"`
	Template  TemplateConfig  `yaml:"template"`
	Fuzz      FuzzConfig      `yaml:"fuzz"`
}

// FrameworkConfig contains general logging settings.
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DeviceConfig contains control-channel settings.
type DeviceConfig struct {
	// ControlBinary is the adb-style binary to shell out to, or a
	// "docker://<container>" target to exec into instead. Overridable by
	// the ADB_COMMAND environment variable, matching the original CLI.
	ControlBinary string `yaml:"control_binary"`
}

// CoverageConfig contains the coverage agent socket settings.
type CoverageConfig struct {
	Address             string `yaml:"address"`
	NoCoverage          bool   `yaml:"no_coverage"`
	OverallCoverageFile string `yaml:"overall_coverage_file"`
}

// TemplateConfig contains the intent template source settings.
type TemplateConfig struct {
	Path string `yaml:"path"`
}

// FuzzConfig contains the fuzzing-loop settings.
type FuzzConfig struct {
	RunCorpus     bool          `yaml:"run_corpus"`
	TraceNative   bool          `yaml:"trace_native"`
	CorpusDir     string        `yaml:"corpus_dir"`
	CrashesDir    string        `yaml:"crashes_dir"`
	TracesDir     string        `yaml:"traces_dir"`
	StatsFile     string        `yaml:"stats_file"`
	Seed          int64         `yaml:"seed"`
	SeenCacheSize int           `yaml:"seen_cache_size"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// DefaultConfig returns the flag defaults the original CLI ships with.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Device: DeviceConfig{
			ControlBinary: "adb",
		},
		Coverage: CoverageConfig{
			Address:             "localhost:6249",
			OverallCoverageFile: "overall_coverage.txt",
		},
		Template: TemplateConfig{
			Path: "intent_template.json",
		},
		Fuzz: FuzzConfig{
			CorpusDir:     "corpus",
			CrashesDir:    "crashes",
			TracesDir:     "traces",
			StatsFile:     "fuzzer_stats.yaml",
			SeenCacheSize: 4096,
			StatsInterval: 5 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// path does not exist. ADB_COMMAND, when set, overrides the control-channel
// binary from the file; an explicitly set --adb-command flag is applied by
// the CLI after Load and takes priority over both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnv(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADB_COMMAND"); v != "" {
		cfg.Device.ControlBinary = v
	}
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the fuzzer cannot run
// without.
func (c *Config) Validate() error {
	if c.Device.ControlBinary == "" {
		return fmt.Errorf("device.control_binary is required")
	}
	if c.Coverage.Address == "" {
		return fmt.Errorf("coverage.address is required")
	}
	if c.Template.Path == "" {
		return fmt.Errorf("template.path is required")
	}
	if c.Fuzz.SeenCacheSize < 1 {
		return fmt.Errorf("fuzz.seen_cache_size must be at least 1")
	}
	return nil
}
