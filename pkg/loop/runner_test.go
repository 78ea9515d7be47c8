package loop

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org/intent-fuzzer/pkg/coverage"
	"github.com/org/intent-fuzzer/pkg/device"
	"github.com/org/intent-fuzzer/pkg/intent"
	"github.com/org/intent-fuzzer/pkg/logging"
	"github.com/org/intent-fuzzer/pkg/reporting"
	"github.com/org/intent-fuzzer/pkg/template"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

type fakeDispatcher struct {
	kind device.ExitKind
	err  error
	runs int
}

func (f *fakeDispatcher) RunTarget(ctx context.Context, appName string, in *intent.IntentInput) (device.ExitKind, error) {
	f.runs++
	return f.kind, f.err
}

type fakeObserver struct {
	newEdgesOn map[int]bool
	collects   int
}

func (f *fakeObserver) Arm(ctx context.Context, hash string) error { return nil }

func (f *fakeObserver) Collect() (coverage.Result, error) {
	f.collects++
	return coverage.Result{NewEdges: f.newEdgesOn[f.collects]}, nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: &bytes.Buffer{}})
}

func testGenerator(t *testing.T) *template.Generator {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/tpl.json"
	require.NoError(t, writeTemplate(path))
	gen, err := template.Load(path)
	require.NoError(t, err)
	return gen
}

func writeTemplate(path string) error {
	content := `{
		"receiver_type": "Activity",
		"component": "com.example.app/.MainActivity",
		"actions": ["android.intent.action.VIEW", "android.intent.action.SEND"],
		"categories": ["android.intent.category.DEFAULT"],
		"known_extras_keys": {"payload": "String"}
	}`
	return writeFile(path, []byte(content))
}

func TestRunCorpusExecutesEverySavedEntry(t *testing.T) {
	dir := t.TempDir()
	corpusStore, err := reporting.NewStorage(dir+"/corpus", testLogger())
	require.NoError(t, err)
	crashStore, err := reporting.NewStorage(dir+"/crashes", testLogger())
	require.NoError(t, err)

	in := &intent.IntentInput{ReceiverType: intent.ReceiverActivity, Action: "a", MimeType: intent.MimeTextPlain}
	_, err = corpusStore.Save(in)
	require.NoError(t, err)

	disp := &fakeDispatcher{kind: device.ExitOk}
	obs := &fakeObserver{}
	gen := testGenerator(t)

	cfg := DefaultConfig()
	cfg.AppName = "com.example.app"
	r, err := New(cfg, disp, obs, gen, corpusStore, crashStore, testLogger())
	require.NoError(t, err)

	require.NoError(t, r.RunCorpus(context.Background()))
	assert.Equal(t, 1, disp.runs)
}

func TestFuzzGeneratesInitialSeedsAndSavesThem(t *testing.T) {
	dir := t.TempDir()
	corpusStore, err := reporting.NewStorage(dir+"/corpus", testLogger())
	require.NoError(t, err)
	crashStore, err := reporting.NewStorage(dir+"/crashes", testLogger())
	require.NoError(t, err)

	disp := &fakeDispatcher{kind: device.ExitOk}
	obs := &fakeObserver{}
	gen := testGenerator(t)

	cfg := DefaultConfig()
	cfg.AppName = "com.example.app"
	cfg.Seed = 1
	r, err := New(cfg, disp, obs, gen, corpusStore, crashStore, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = r.Fuzz(ctx)
	assert.NoError(t, err)

	entries, err := corpusStore.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, gen.NumberOfIntents(), len(entries))
}

func TestExecuteSkipsRepeatedMutationViaSeenCache(t *testing.T) {
	dir := t.TempDir()
	corpusStore, err := reporting.NewStorage(dir+"/corpus", testLogger())
	require.NoError(t, err)
	crashStore, err := reporting.NewStorage(dir+"/crashes", testLogger())
	require.NoError(t, err)

	disp := &fakeDispatcher{kind: device.ExitOk}
	obs := &fakeObserver{}
	gen := testGenerator(t)

	cfg := DefaultConfig()
	cfg.AppName = "com.example.app"
	r, err := New(cfg, disp, obs, gen, corpusStore, crashStore, testLogger())
	require.NoError(t, err)

	in := &intent.IntentInput{ReceiverType: intent.ReceiverActivity, Action: "a", MimeType: intent.MimeTextPlain}
	_, err = r.execute(context.Background(), in)
	require.NoError(t, err)
	_, err = r.execute(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, disp.runs)
}

func TestCrashingExecutionIsSavedToCrashesDir(t *testing.T) {
	dir := t.TempDir()
	corpusStore, err := reporting.NewStorage(dir+"/corpus", testLogger())
	require.NoError(t, err)
	crashStore, err := reporting.NewStorage(dir+"/crashes", testLogger())
	require.NoError(t, err)

	disp := &fakeDispatcher{kind: device.ExitTimeout}
	obs := &fakeObserver{}
	gen := testGenerator(t)

	cfg := DefaultConfig()
	cfg.AppName = "com.example.app"
	r, err := New(cfg, disp, obs, gen, corpusStore, crashStore, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = r.Fuzz(ctx)

	entries, err := crashStore.LoadAll()
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
