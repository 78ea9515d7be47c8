package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// idleTimeout bounds how long StartApp waits between logcat lines for the
// app's activity thread to report idle; if no new line arrives within it,
// the wait is abandoned and the start is reported as failed.
const idleTimeout = 20 * time.Second

// startRetries and restartSleep mirror the fixed retry budget and backoff
// adb_device.rs uses throughout its app lifecycle operations.
const (
	startRetries = 5
	restartSleep = 2 * time.Second
)

// StartApp launches appName's main activity with the coverage agent
// attached, then blocks until logcat reports the activity thread idle
// (or idleTimeout elapses with no further output).
func (d *Driver) StartApp(ctx context.Context, appName string) error {
	d.log.Info("starting app", "app", appName)

	mainActivity, _, _, err := d.runner.Run(ctx, fmt.Sprintf(
		"cmd package resolve-activity --brief %s | tail -n 1", appName), 10*time.Second)
	if err != nil {
		return fmt.Errorf("device: failed to resolve main activity: %w", err)
	}
	mainActivity = strings.TrimSpace(mainActivity)
	if strings.Contains(mainActivity, " ") {
		return fmt.Errorf("device: invalid main activity %q", mainActivity)
	}

	startCmd := fmt.Sprintf(
		"am start-activity --attach-agent /data/user/0/%s/code_cache/startup_agents/libcoverage_instrumenting_agent.so %s",
		appName, mainActivity)
	if _, _, ok, err := d.runner.Run(ctx, startCmd, 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to start app %s: %w", appName, err)
	}

	time.Sleep(2 * time.Second)
	pid, err := d.PidOf(ctx, appName)
	if err != nil {
		return err
	}
	d.log.Info("app started, waiting for idle", "app", appName, "pid", pid)
	time.Sleep(5 * time.Second)

	return d.waitForIdle(ctx, pid)
}

// waitForIdle follows `logcat --pid=<pid>` until it reports the activity
// thread idle, killing the logcat process once either the idle line is
// found or idleTimeout passes with no new output — the same
// shared-timestamp watchdog shape the emergency controller uses to poll
// for an external stop condition.
func (d *Driver) waitForIdle(ctx context.Context, pid string) error {
	lines, stop, err := d.runner.Stream(ctx, fmt.Sprintf("logcat --pid=%s", pid))
	if err != nil {
		return fmt.Errorf("device: failed to start logcat: %w", err)
	}

	var mu sync.Mutex
	lastUpdate := time.Now()
	readerDone := make(chan struct{})
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-readerDone:
				return
			case <-ticker.C:
			}
			mu.Lock()
			elapsed := time.Since(lastUpdate)
			mu.Unlock()
			if elapsed > idleTimeout {
				stop()
				return
			}
		}
	}()

	found := false
	for line := range lines {
		mu.Lock()
		lastUpdate = time.Now()
		mu.Unlock()
		if strings.Contains(line, "ActivityThread: Reporting idle of ActivityRecord") {
			found = true
			break
		}
	}
	stop()
	close(readerDone)
	<-watchdogDone

	if !found {
		return fmt.Errorf("device: could not find idle message in logcat")
	}
	return nil
}

// StopApp disables then re-enables appName, retrying up to startRetries
// times — the original's indirect way of forcing a running app to quit
// without killing the device's package manager state.
func (d *Driver) StopApp(ctx context.Context, appName string) error {
	d.log.Info("stopping app", "app", appName)
	for i := 0; i < startRetries; i++ {
		_, _, ok1, _ := d.runner.Run(ctx, fmt.Sprintf("pm disable %s", appName), 10*time.Second)
		if ok1 {
			_, _, ok2, _ := d.runner.Run(ctx, fmt.Sprintf("pm enable %s", appName), 10*time.Second)
			if ok2 {
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("device: failed to stop app %s", appName)
}

// RestartApp stops and restarts appName, restarting the whole device first
// if earlier attempts in this call have already failed twice.
func (d *Driver) RestartApp(ctx context.Context, appName string) error {
	d.log.Info("restarting app", "app", appName)
	var lastErr error
	for i := 0; i < startRetries; i++ {
		if i > 1 {
			if err := d.RestartDevice(ctx); err != nil {
				lastErr = err
			}
		}
		if err := d.StopApp(ctx, appName); err != nil {
			return err
		}
		time.Sleep(time.Duration(i%2) * time.Second)

		if err := d.StartApp(ctx, appName); err == nil {
			return nil
		} else {
			lastErr = err
			d.log.Warn("failed to start app", "app", appName, "error", err)
		}
	}
	return fmt.Errorf("device: failed to re-start app %s after %d attempts: %w", appName, startRetries, lastErr)
}

// RestartDevice bounces the device's framework via `stop`/`start`.
func (d *Driver) RestartDevice(ctx context.Context) error {
	d.log.Info("restarting device")
	if _, _, _, err := d.runner.Run(ctx, "stop", 10*time.Second); err != nil {
		return fmt.Errorf("device: failed to stop device: %w", err)
	}
	time.Sleep(time.Second)
	if _, _, _, err := d.runner.Run(ctx, "start", 10*time.Second); err != nil {
		return fmt.Errorf("device: failed to start device: %w", err)
	}
	time.Sleep(3 * time.Second)
	return nil
}

// PidOf returns the pid of appName's main process, erroring if the app is
// not currently running.
func (d *Driver) PidOf(ctx context.Context, appName string) (string, error) {
	stdout, _, _, err := d.runner.Run(ctx, fmt.Sprintf("pidof -s %s", appName), 10*time.Second)
	if err != nil {
		return "", fmt.Errorf("device: failed to run pidof: %w", err)
	}
	pid := strings.TrimSpace(stdout)
	if pid == "" {
		return "", fmt.Errorf("device: failed to get pid of app %s", appName)
	}
	return pid, nil
}
