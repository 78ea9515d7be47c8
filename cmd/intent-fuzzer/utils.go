package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/org/intent-fuzzer/pkg/config"
)

// loadConfig loads the YAML config (defaulted if absent) and applies every
// CLI flag the user set explicitly on top of it, the same override order
// main.rs applies to its single flat flag struct.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyStringFlag(cmd, "coverage-socket-address", &cfg.Coverage.Address)
	applyStringFlag(cmd, "adb-command", &cfg.Device.ControlBinary)
	applyStringFlag(cmd, "intent-config", &cfg.Template.Path)
	applyStringFlag(cmd, "corpus-dir", &cfg.Fuzz.CorpusDir)
	applyStringFlag(cmd, "crashes-dir", &cfg.Fuzz.CrashesDir)
	applyStringFlag(cmd, "traces-dir", &cfg.Fuzz.TracesDir)
	applyStringFlag(cmd, "stats-file", &cfg.Fuzz.StatsFile)
	applyStringFlag(cmd, "overall-coverage-file", &cfg.Coverage.OverallCoverageFile)

	if cmd.Flags().Changed("run-corpus") {
		cfg.Fuzz.RunCorpus, _ = cmd.Flags().GetBool("run-corpus")
	}
	if cmd.Flags().Changed("trace-native") {
		cfg.Fuzz.TraceNative, _ = cmd.Flags().GetBool("trace-native")
	}
	if cmd.Flags().Changed("no-coverage") {
		cfg.Coverage.NoCoverage, _ = cmd.Flags().GetBool("no-coverage")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Fuzz.Seed, _ = cmd.Flags().GetInt64("seed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyStringFlag(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		*dst = v
	}
}
