package device

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// nativeHookFile is the per-app marker file whose presence toggles native
// hooking, touched/removed rather than tracked through any config on the
// device side.
func nativeHookFile(appName string) string {
	return fmt.Sprintf("/data/user/0/%s/.hook_native", appName)
}

// IsNativeHookingEnabled reports whether appName's hook marker file
// exists, matching on the exact path `ls` echoes back.
func (d *Driver) IsNativeHookingEnabled(ctx context.Context, appName string) bool {
	filename := nativeHookFile(appName)
	stdout, _, ok, err := d.runner.Run(ctx, fmt.Sprintf("ls %s", filename), 10*time.Second)
	if err != nil || !ok {
		return false
	}
	return strings.TrimSpace(stdout) == filename
}

// EnableNativeHooking touches appName's hook marker file and restarts the
// app if hooking was not already enabled.
func (d *Driver) EnableNativeHooking(ctx context.Context, appName string) error {
	d.log.Info("enabling native hooking", "app", appName)
	wasEnabled := d.IsNativeHookingEnabled(ctx, appName)

	if _, _, ok, err := d.runner.Run(ctx, fmt.Sprintf("touch %s", nativeHookFile(appName)), 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to touch hook file: %w", err)
	}

	if !wasEnabled {
		return d.RestartApp(ctx, appName)
	}
	return nil
}

// DisableNativeHooking removes appName's hook marker file and restarts
// the app if hooking was previously enabled.
func (d *Driver) DisableNativeHooking(ctx context.Context, appName string) error {
	d.log.Info("disabling native hooking", "app", appName)
	wasEnabled := d.IsNativeHookingEnabled(ctx, appName)

	if _, _, ok, err := d.runner.Run(ctx, fmt.Sprintf("rm -f %s", nativeHookFile(appName)), 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to delete hook file: %w", err)
	}

	if wasEnabled {
		return d.RestartApp(ctx, appName)
	}
	return nil
}
