package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/org/intent-fuzzer/pkg/config"
	"github.com/org/intent-fuzzer/pkg/coverage"
	"github.com/org/intent-fuzzer/pkg/device"
	"github.com/org/intent-fuzzer/pkg/logging"
	"github.com/org/intent-fuzzer/pkg/loop"
	"github.com/org/intent-fuzzer/pkg/reporting"
	"github.com/org/intent-fuzzer/pkg/template"
)

func runFuzzer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logLevel := logging.Level(cfg.Framework.LogLevel)
	if verbose {
		logLevel = logging.LevelDebug
	}
	log := logging.New(logging.Config{
		Level:  logLevel,
		Format: logging.Format(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})
	logging.InitGlobal(logging.Config{Level: logLevel, Format: logging.Format(cfg.Framework.LogFormat)})

	generator, err := template.Load(cfg.Template.Path)
	if err != nil {
		return fmt.Errorf("failed to load intent template: %w", err)
	}
	appName := generator.PackageName()

	if !generator.IsSupported() {
		log.Error("receiver type not supported")
		return fmt.Errorf("receiver type not supported")
	}

	driver, err := device.New(device.Config{ControlBinary: cfg.Device.ControlBinary}, log)
	if err != nil {
		return fmt.Errorf("failed to create device driver: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := driver.GrantURIPermissions(ctx, appName); err != nil {
		log.Warn("failed to grant URI permissions", "error", err)
	}
	if err := driver.SetDebugApp(ctx, appName); err != nil {
		log.Warn("failed to set debug app", "error", err)
	}

	enableSync := generator.EnableSynchronization()

	corpusStorage, err := reporting.NewStorage(cfg.Fuzz.CorpusDir, log)
	if err != nil {
		return fmt.Errorf("failed to create corpus storage: %w", err)
	}
	crashStorage, err := reporting.NewStorage(cfg.Fuzz.CrashesDir, log)
	if err != nil {
		return fmt.Errorf("failed to create crash storage: %w", err)
	}

	loopCfg := loop.Config{
		AppName:             appName,
		CorpusDir:           cfg.Fuzz.CorpusDir,
		CrashesDir:          cfg.Fuzz.CrashesDir,
		TracesDir:           cfg.Fuzz.TracesDir,
		StatsFile:           cfg.Fuzz.StatsFile,
		OverallCoverageFile: cfg.Coverage.OverallCoverageFile,
		RunCorpus:           cfg.Fuzz.RunCorpus,
		TraceNative:         cfg.Fuzz.TraceNative,
		NoCoverage:          cfg.Coverage.NoCoverage,
		Seed:                cfg.Fuzz.Seed,
		SeenCacheSize:       cfg.Fuzz.SeenCacheSize,
		StatsInterval:       cfg.Fuzz.StatsInterval,
	}

	if cfg.Fuzz.RunCorpus {
		return runCorpusMode(ctx, cfg, loopCfg, driver, generator, corpusStorage, crashStorage, appName, enableSync, log)
	}

	if cfg.Fuzz.TraceNative {
		return fmt.Errorf("native hooking is not supported for fuzzing; use --run-corpus")
	}
	return fuzzMode(ctx, cfg, loopCfg, driver, generator, corpusStorage, crashStorage, appName, enableSync, log)
}

func runCorpusMode(ctx context.Context, cfg *config.Config, loopCfg loop.Config, driver *device.Driver, generator *template.Generator, corpusStorage, crashStorage *reporting.Storage, appName string, enableSync bool, log *logging.Logger) error {
	if cfg.Fuzz.TraceNative {
		if err := driver.EnableNativeHooking(ctx, appName); err != nil {
			log.Warn("failed to enable native hooking", "error", err)
		}
	} else {
		if err := driver.DisableNativeHooking(ctx, appName); err != nil {
			log.Warn("failed to disable native hooking", "error", err)
		}
	}
	if err := driver.RestartApp(ctx, appName); err != nil {
		return fmt.Errorf("failed to restart app: %w", err)
	}

	observer, err := coverage.New(coverage.Config{
		Address:               cfg.Coverage.Address,
		AppName:               appName,
		TraceNative:           cfg.Fuzz.TraceNative,
		EnableSynchronization: enableSync,
		UseCoverage:           !cfg.Coverage.NoCoverage,
		OverallCoverageFile:   cfg.Coverage.OverallCoverageFile,
	}, driver, log)
	if err != nil {
		return fmt.Errorf("failed to connect to coverage agent: %w", err)
	}
	defer observer.Close()

	runner, err := loop.New(loopCfg, driver, observer, generator, corpusStorage, crashStorage, log)
	if err != nil {
		return fmt.Errorf("failed to create fuzzer runner: %w", err)
	}

	if err := runner.RunCorpus(ctx); err != nil {
		return fmt.Errorf("failed to re-run corpus: %w", err)
	}

	if err := driver.StopApp(ctx, appName); err != nil {
		log.Warn("failed to stop app", "error", err)
	}

	if cfg.Fuzz.TraceNative {
		if err := driver.PullNativeTraceFiles(ctx, appName, cfg.Fuzz.TracesDir); err != nil {
			return fmt.Errorf("failed to pull trace files: %w", err)
		}
	}
	return nil
}

func fuzzMode(ctx context.Context, cfg *config.Config, loopCfg loop.Config, driver *device.Driver, generator *template.Generator, corpusStorage, crashStorage *reporting.Storage, appName string, enableSync bool, log *logging.Logger) error {
	if err := driver.DisableNativeHooking(ctx, appName); err != nil {
		log.Warn("failed to disable native hooking", "error", err)
	}
	if err := driver.RestartApp(ctx, appName); err != nil {
		return fmt.Errorf("failed to restart app: %w", err)
	}

	observer, err := coverage.New(coverage.Config{
		Address:               cfg.Coverage.Address,
		AppName:               appName,
		TraceNative:           false,
		EnableSynchronization: enableSync,
		UseCoverage:           !cfg.Coverage.NoCoverage,
		OverallCoverageFile:   cfg.Coverage.OverallCoverageFile,
	}, driver, log)
	if err != nil {
		return fmt.Errorf("failed to connect to coverage agent: %w", err)
	}
	defer observer.Close()

	runner, err := loop.New(loopCfg, driver, observer, generator, corpusStorage, crashStorage, log)
	if err != nil {
		return fmt.Errorf("failed to create fuzzer runner: %w", err)
	}

	if err := runner.Fuzz(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("fuzzing loop failed: %w", err)
	}
	return nil
}
