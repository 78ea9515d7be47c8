package loop

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/org/intent-fuzzer/pkg/coverage"
	"github.com/org/intent-fuzzer/pkg/device"
	"github.com/org/intent-fuzzer/pkg/intent"
	"github.com/org/intent-fuzzer/pkg/logging"
	"github.com/org/intent-fuzzer/pkg/mutate"
	"github.com/org/intent-fuzzer/pkg/reporting"
	"github.com/org/intent-fuzzer/pkg/template"
)

// dispatcher is the device-driver surface the loop needs, narrowed to
// allow a fake in tests without requiring a real adb binary.
type dispatcher interface {
	RunTarget(ctx context.Context, appName string, in *intent.IntentInput) (device.ExitKind, error)
}

// armCollector is the coverage-observer surface the loop needs.
type armCollector interface {
	Arm(ctx context.Context, hash string) error
	Collect() (coverage.Result, error)
}

// Runner owns the device driver, coverage observer, generator, mutator,
// and corpus/crash storage for one fuzzing session, and implements the
// two run modes main.rs dispatches between.
type Runner struct {
	cfg Config

	driver    dispatcher
	observer  armCollector
	generator *template.Generator
	mutators  *mutate.MutatorSet

	corpus  *reporting.Storage
	crashes *reporting.Storage

	seen *lru.Cache[string, struct{}]
	log  *logging.Logger
	rng  *rand.Rand

	stats Stats

	// lastExecutionWasNovel reports whether the most recent execute call
	// surfaced new coverage edges — read by Fuzz immediately afterward to
	// decide corpus growth.
	lastExecutionWasNovel bool
}

// New builds a Runner. The known-extras pool used for mutator-synthesized
// extras is drawn from the first loaded template, the same single-template
// assumption IsSupported and EnableSynchronization already make.
func New(cfg Config, driver dispatcher, observer armCollector, generator *template.Generator, corpus, crashes *reporting.Storage, log *logging.Logger) (*Runner, error) {
	seen, err := lru.New[string, struct{}](cfg.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("loop: failed to create seen-hash cache: %w", err)
	}

	rng := newRand(cfg.Seed)
	knownExtras := generator.Templates[0].KnownExtrasKeys

	return &Runner{
		cfg:       cfg,
		driver:    driver,
		observer:  observer,
		generator: generator,
		mutators:  mutate.NewMutatorSet(rng, knownExtras),
		corpus:    corpus,
		crashes:   crashes,
		seen:      seen,
		log:       log,
		rng:       rng,
		stats:     Stats{StartTime: time.Now()},
	}, nil
}

// RunCorpus replays every saved corpus entry once, warming up coverage
// state — the re-run mode's equivalent of load_initial_inputs_forced.
// Native trace files are not pulled here; the caller does that afterward.
func (r *Runner) RunCorpus(ctx context.Context) error {
	entries, err := r.corpus.LoadAll()
	if err != nil {
		return fmt.Errorf("loop: failed to load corpus: %w", err)
	}
	r.log.Info("re-running corpus", "count", len(entries))

	for _, in := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.execute(ctx, in); err != nil {
			r.log.Warn("corpus entry execution failed", "hash", in.Hash(), "error", err)
		}
	}
	return nil
}

// Fuzz generates the initial seed corpus from the template, then runs an
// indefinite mutational loop with coverage feedback until ctx is
// cancelled.
func (r *Runner) Fuzz(ctx context.Context) error {
	r.generator.Reset()
	n := r.generator.NumberOfIntents()
	r.log.Info("generating initial corpus", "count", n)

	var corpus []*intent.IntentInput
	for {
		in, ok := r.generator.Generate()
		if !ok {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.execute(ctx, &in); err != nil {
			r.log.Warn("initial seed execution failed", "action", in.Action, "error", err)
		}
		if _, err := r.corpus.Save(&in); err != nil {
			r.log.Warn("failed to save initial seed", "error", err)
		}
		corpus = append(corpus, &in)
	}
	if len(corpus) == 0 {
		return fmt.Errorf("loop: template produced no seeds")
	}

	lastStatsWrite := time.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}

		parent := corpus[r.rng.Intn(len(corpus))]
		child := parent.Clone()
		if r.mutators.Mutate(child) == mutate.Skipped {
			continue
		}

		kind, err := r.execute(ctx, child)
		r.stats.recordExecution()
		if err != nil {
			r.log.Warn("mutated execution failed", "error", err)
			continue
		}

		if kind == device.ExitTimeout {
			if _, err := r.crashes.Save(child); err != nil {
				r.log.Warn("failed to save crash entry", "error", err)
			} else {
				r.stats.CrashesCount++
			}
		} else if r.lastExecutionWasNovel {
			r.stats.recordNewEdges()
			if _, err := r.corpus.Save(child); err != nil {
				r.log.Warn("failed to save corpus entry", "error", err)
			} else {
				corpus = append(corpus, child)
			}
		}

		if r.cfg.StatsFile != "" && time.Since(lastStatsWrite) >= r.cfg.StatsInterval {
			r.stats.CorpusCount = len(corpus)
			if err := r.stats.save(r.cfg.StatsFile); err != nil {
				r.log.Warn("failed to write stats file", "error", err)
			}
			lastStatsWrite = time.Now()
		}
	}
}

// execute runs one arm/dispatch/collect cycle for in, skipping the cycle
// entirely (and reporting ExitOk) when an identical mutation was already
// dispatched this session — the seen-hash cache that avoids redundant
// side-channel provisioning for repeated mutations.
func (r *Runner) execute(ctx context.Context, in *intent.IntentInput) (device.ExitKind, error) {
	hash := in.Hash()
	r.lastExecutionWasNovel = false

	if _, ok := r.seen.Get(hash); ok {
		return device.ExitOk, nil
	}
	r.seen.Add(hash, struct{}{})

	if err := r.observer.Arm(ctx, hash); err != nil {
		return device.ExitTimeout, fmt.Errorf("loop: failed to arm coverage: %w", err)
	}

	kind, err := r.driver.RunTarget(ctx, r.cfg.AppName, in)
	if err != nil {
		return kind, fmt.Errorf("loop: failed to dispatch: %w", err)
	}

	result, err := r.observer.Collect()
	if err != nil {
		r.log.Warn("failed to collect coverage", "error", err)
	} else {
		r.lastExecutionWasNovel = result.NewEdges
	}

	return kind, nil
}
