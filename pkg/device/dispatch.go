package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/org/intent-fuzzer/pkg/intent"
)

// RunTarget provisions any side-channel payloads the intent carries, then
// dispatches it against appName, returning the classified outcome. This is
// the driver's equivalent of an Executor.run_target call.
func (d *Driver) RunTarget(ctx context.Context, appName string, in *intent.IntentInput) (ExitKind, error) {
	timeout := timeoutFor(in.ReceiverType == intent.ReceiverActivity)

	if err := d.provisionURIs(ctx, in); err != nil {
		return ExitTimeout, fmt.Errorf("device: failed to provision uri extras: %w", err)
	}

	cmd, err := in.ShellCommand()
	if err != nil {
		return ExitTimeout, fmt.Errorf("device: failed to build shell command: %w", err)
	}

	d.log.Debug("dispatching intent", "command", cmd)
	if err := d.runAmStart(ctx, cmd, appName, timeout); err != nil {
		return ExitTimeout, nil
	}
	return ExitOk, nil
}

// provisionURIs creates a file or registers a content-provider entry on
// the device for every URI-typed payload this intent carries: the
// optional top-level data URI at slot 0, and each URI-kind extra at its
// 1-based position.
func (d *Driver) provisionURIs(ctx context.Context, in *intent.IntentInput) error {
	if in.Data != nil {
		if err := d.provisionOne(ctx, 0, in.Data); err != nil {
			return err
		}
	}
	for idx, extra := range in.Extras {
		if extra.Value.Kind != intent.ExtraURI {
			continue
		}
		if err := d.provisionOne(ctx, idx+1, &extra.Value.URI); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) provisionOne(ctx context.Context, slot int, u *intent.URIInput) error {
	identifier := u.Identifier(slot)
	switch u.Scheme {
	case intent.URISchemeContent:
		return d.RegisterContent(ctx, identifier, u.Content)
	case intent.URISchemeFile:
		return d.CreateFile(ctx, strings.TrimPrefix(identifier, "file://"), u.Content)
	default: // URISchemeOther: the bytes are inlined in the command, nothing to provision
		return nil
	}
}

// runAmStart runs the dispatch command with the original's retry-and-
// classify loop: up to startRetries attempts, restarting the app (and, on
// repeated failure, the device) when the failure looks resource-related,
// and treating "does not exist" and exhausted retries as a hard error.
func (d *Driver) runAmStart(ctx context.Context, command, appName string, timeout time.Duration) error {
	for i := 0; i < startRetries; i++ {
		stdout, stderr, exitedZero, err := d.runner.Run(ctx, command, timeout)
		if err != nil {
			// Timed out: treat as a resource shortage and recover.
			d.recoverAfterFailure(ctx, appName, i)
			time.Sleep(restartSleep)
			continue
		}

		if strings.Contains(stderr, "intent has been delivered to currently running top-most instance.") {
			return nil
		}

		if exitedZero && stderr == "" {
			return nil
		}

		if strings.Contains(stderr, "Activity class") && strings.Contains(stderr, "does not exist") {
			return fmt.Errorf("device: activity does not exist")
		}

		d.log.Debug("am start failed", "stdout", stdout, "stderr", stderr)

		if strings.Contains(stderr, "OutOfResourcesException") ||
			strings.Contains(stderr, "Activity not started, its current task has been brought to the front") {
			d.recoverAfterFailure(ctx, appName, i)
		}

		time.Sleep(restartSleep)
	}
	return fmt.Errorf("device: maximum retries reached dispatching to %s", appName)
}

func (d *Driver) recoverAfterFailure(ctx context.Context, appName string, attempt int) {
	if attempt > 1 {
		if err := d.RestartDevice(ctx); err != nil {
			d.log.Warn("failed to restart device during recovery", "error", err)
		}
	}
	if err := d.RestartApp(ctx, appName); err != nil {
		d.log.Warn("failed to restart app during recovery", "app", appName, "error", err)
	}
}
