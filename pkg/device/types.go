// Package device drives an Android device or emulator over a control
// channel (a local adb-style binary, or a Docker container exec target),
// dispatching intents and managing the lifecycle of the app under test.
package device

import (
	"context"
	"time"

	"github.com/org/intent-fuzzer/pkg/logging"
)

// ExitKind classifies the outcome of dispatching one intent, mirroring
// the two outcomes the fuzzing loop distinguishes between.
type ExitKind int

const (
	// ExitOk means the shell command that delivers the intent completed
	// without error.
	ExitOk ExitKind = iota
	// ExitTimeout means the command timed out, the target activity class
	// did not exist, or retries were exhausted — every failure mode the
	// driver cannot recover from gets folded into Timeout, since the
	// fuzzing loop only distinguishes "ran" from "did not run".
	ExitTimeout
)

func (k ExitKind) String() string {
	if k == ExitOk {
		return "ok"
	}
	return "timeout"
}

// activityTimeout and defaultTimeout bound how long runAmStart waits for
// one intent dispatch before treating it as a timeout outcome. Activities
// get a short budget since they're expected to return control quickly;
// everything else (broadcast receivers) gets a longer one.
const (
	activityTimeout = 5 * time.Second
	defaultTimeout  = 20 * time.Second
)

// CommandRunner executes a single shell command against the device's
// control channel and reports stdout/stderr/exit separately, the same
// three-way split runAmStart inspects to classify failures.
type CommandRunner interface {
	// Run executes command and returns its stdout and stderr verbatim,
	// along with whether the process exited zero.
	Run(ctx context.Context, command string, timeout time.Duration) (stdout, stderr string, exitedZero bool, err error)

	// RunWithInput is Run, but feeds stdin to the command's process
	// before reading its output — used to register raw byte content
	// with the sample content provider without shell-escaping it first.
	RunWithInput(ctx context.Context, command string, stdin []byte, timeout time.Duration) (stdout, stderr string, exitedZero bool, err error)

	// Stream starts command and returns a line-by-line reader of its
	// stdout plus a function to terminate it, used for the logcat
	// idle-wait during app start.
	Stream(ctx context.Context, command string) (lines <-chan string, stop func(), err error)

	// Pull copies remotePath (a directory) from the device to localDir on
	// the host, used to retrieve native trace files.
	Pull(ctx context.Context, remotePath, localDir string) error
}

// Config configures a Driver.
type Config struct {
	// ControlBinary is the adb-style binary to shell out to, or a
	// "docker://<container>" target to exec into instead.
	ControlBinary string
}

// Driver wraps a CommandRunner with the Android-specific lifecycle and
// dispatch operations the fuzzing loop needs. It holds no per-intent
// state and is safe to reuse across an entire fuzzing run.
type Driver struct {
	runner CommandRunner
	log    *logging.Logger
}

// New builds a Driver from cfg, choosing a local-exec or Docker-exec
// CommandRunner depending on whether ControlBinary names a container
// target.
func New(cfg Config, log *logging.Logger) (*Driver, error) {
	runner, err := newRunner(cfg.ControlBinary)
	if err != nil {
		return nil, err
	}
	return &Driver{runner: runner, log: log}, nil
}

// timeoutFor returns the dispatch timeout for an Activity target when
// receiverTypeIsActivity is true, and the longer default otherwise.
func timeoutFor(receiverTypeIsActivity bool) time.Duration {
	if receiverTypeIsActivity {
		return activityTimeout
	}
	return defaultTimeout
}
