package device

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org/intent-fuzzer/pkg/intent"
	"github.com/org/intent-fuzzer/pkg/logging"
)

// fakeRunner is a scripted CommandRunner for exercising Driver logic
// without a real adb binary or container.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     []string
}

type fakeResponse struct {
	stdout, stderr string
	exitedZero     bool
	err            error
}

func (f *fakeRunner) Run(ctx context.Context, command string, timeout time.Duration) (string, string, bool, error) {
	f.calls = append(f.calls, command)
	for prefix, resp := range f.responses {
		if strings.HasPrefix(command, prefix) {
			return resp.stdout, resp.stderr, resp.exitedZero, resp.err
		}
	}
	return "", "", true, nil
}

func (f *fakeRunner) RunWithInput(ctx context.Context, command string, stdin []byte, timeout time.Duration) (string, string, bool, error) {
	return f.Run(ctx, command, timeout)
}

func (f *fakeRunner) Stream(ctx context.Context, command string) (<-chan string, func(), error) {
	ch := make(chan string)
	close(ch)
	return ch, func() {}, nil
}

func (f *fakeRunner) Pull(ctx context.Context, remotePath, localDir string) error {
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: &bytes.Buffer{}})
}

func TestPidOfReturnsTrimmedPid(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"pidof -s": {stdout: "1234\n", exitedZero: true},
	}}
	d := &Driver{runner: runner, log: testLogger()}
	pid, err := d.PidOf(context.Background(), "com.example.app")
	require.NoError(t, err)
	assert.Equal(t, "1234", pid)
}

func TestPidOfErrorsOnEmptyOutput(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"pidof -s": {stdout: "", exitedZero: true},
	}}
	d := &Driver{runner: runner, log: testLogger()}
	_, err := d.PidOf(context.Background(), "com.example.app")
	assert.Error(t, err)
}

func TestIsNativeHookingEnabledMatchesExactPath(t *testing.T) {
	app := "com.example.app"
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"ls /data/user/0/com.example.app/.hook_native": {
			stdout: "/data/user/0/com.example.app/.hook_native\n", exitedZero: true,
		},
	}}
	d := &Driver{runner: runner, log: testLogger()}
	assert.True(t, d.IsNativeHookingEnabled(context.Background(), app))
}

func TestIsNativeHookingEnabledFalseOnMismatch(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"ls /data/user/0/com.example.app/.hook_native": {
			stdout: "No such file or directory\n", exitedZero: false,
		},
	}}
	d := &Driver{runner: runner, log: testLogger()}
	assert.False(t, d.IsNativeHookingEnabled(context.Background(), "com.example.app"))
}

func TestRunTargetProvisionsFileURI(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"am start": {stdout: "", stderr: "", exitedZero: true},
	}}
	d := &Driver{runner: runner, log: testLogger()}

	in := &intent.IntentInput{
		ReceiverType:     intent.ReceiverActivity,
		ComponentPackage: "com.example.app",
		ComponentClass:   ".ExampleActivity",
		Action:           "android.intent.action.VIEW",
		MimeType:         intent.MimeImagePng,
		Data: &intent.URIInput{
			Scheme:  intent.URISchemeFile,
			Suffix:  intent.SuffixPNG,
			Content: []byte{1, 2, 3},
		},
	}

	kind, err := d.RunTarget(context.Background(), "com.example.app", in)
	require.NoError(t, err)
	assert.Equal(t, ExitOk, kind)

	foundTouch := false
	for _, c := range runner.calls {
		if strings.HasPrefix(c, "touch /data/local/tmp/extra_input_0.png") {
			foundTouch = true
		}
	}
	assert.True(t, foundTouch, "expected file provisioning to touch the device path")
}

func TestRunTargetRejectsServiceReceiver(t *testing.T) {
	runner := &fakeRunner{}
	d := &Driver{runner: runner, log: testLogger()}
	in := &intent.IntentInput{ReceiverType: intent.ReceiverService}
	_, err := d.RunTarget(context.Background(), "com.example.app", in)
	assert.Error(t, err)
}
