package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// hexEscape renders bytes as a concatenated \xHH sequence for `echo -n -e`,
// the same wire format intent.IntentInput uses for its URI payloads.
func hexEscape(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 4)
	const hexDigits = "0123456789abcdef"
	for _, c := range b {
		sb.WriteByte('\\')
		sb.WriteByte('x')
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}

// CreateFile writes content to filename on the device, used to provision
// file-scheme URI extras before dispatch.
func (d *Driver) CreateFile(ctx context.Context, filename string, content []byte) error {
	if _, _, ok, err := d.runner.Run(ctx, fmt.Sprintf("touch %s", filename), 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to touch %s: %w", filename, err)
	}
	cmd := fmt.Sprintf("echo -n -e \"%s\" > %s", hexEscape(content), filename)
	if _, _, ok, err := d.runner.Run(ctx, cmd, 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to write %s: %w", filename, err)
	}
	return nil
}

// RegisterContent writes content to a content-provider uri via the
// sample content provider's stdin-fed "content write" command.
func (d *Driver) RegisterContent(ctx context.Context, uri string, content []byte) error {
	cmd := fmt.Sprintf("content write --uri %s", uri)
	if _, _, ok, err := d.runner.RunWithInput(ctx, cmd, content, 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to register content %s: %w", uri, err)
	}
	return nil
}

// GrantURIPermissions broadcasts to the sample content provider's
// permission manager so package can read the content URIs this run will
// register.
func (d *Driver) GrantURIPermissions(ctx context.Context, pkg string) error {
	cmd := fmt.Sprintf(
		"am broadcast -n 'org.gts3.jnifuzz.contentprovider/org.gts3.jnifuzz.contentprovider.UriPermissionManager' "+
			"-a org.gts3.jnifuzz.sampleintent.GRANT_PERMISSION "+
			"--es android.intent.extra.PACKAGE_NAME '%s'", pkg)
	if _, _, ok, err := d.runner.Run(ctx, cmd, 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to grant uri permissions to %s: %w", pkg, err)
	}
	return nil
}

// SetDebugApp marks pkg as the persistent debug app, required for the
// coverage agent's attach-on-start to take effect.
func (d *Driver) SetDebugApp(ctx context.Context, pkg string) error {
	cmd := fmt.Sprintf("am set-debug-app --persistent %s", pkg)
	if _, _, ok, err := d.runner.Run(ctx, cmd, 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to set debug app %s: %w", pkg, err)
	}
	return nil
}

// PullNativeTraceFiles copies appName's native_traces directory from the
// device into traceDirHost and clears it on the device afterward. It is a
// no-op, not an error, if the app has not written any traces yet.
func (d *Driver) PullNativeTraceFiles(ctx context.Context, appName, traceDirHost string) error {
	traceDir := fmt.Sprintf("/data/user/0/%s/native_traces", appName)

	if err := d.runner.Pull(ctx, traceDir, traceDirHost); err != nil {
		d.log.Debug("no native traces to pull", "app", appName, "error", err)
		return nil
	}

	if _, _, ok, err := d.runner.Run(ctx, fmt.Sprintf("rm -rf %s", traceDir), 10*time.Second); err != nil || !ok {
		return fmt.Errorf("device: failed to clear traces on device: %w", err)
	}
	return nil
}

// ReportNativeCrash scans the device's crash logcat buffer for the last
// 3 seconds, logging whether a fatal signal was found for appName and
// whether the coverage agent appears in the fault's stack trace.
func (d *Driver) ReportNativeCrash(ctx context.Context, appName string) {
	since := time.Now().Add(-3 * time.Second)
	cmd := fmt.Sprintf("logcat -b crash -t %d.%03d",
		since.Unix(), since.Nanosecond()/1_000_000)

	stdout, _, _, err := d.runner.Run(ctx, cmd, 10*time.Second)
	if err != nil {
		d.log.Warn("failed to read crash buffer", "error", err)
		return
	}

	foundCrash := false
	causedByCoverage := false
	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(line, "Fatal signal") {
			foundCrash = strings.Contains(line, "("+appName+")")
		}
		if foundCrash && strings.Contains(line, "libcoverage_instrumenting_agent.so") {
			causedByCoverage = true
			break
		}
	}

	if foundCrash {
		d.log.Warn("native crash detected", "app", appName, "caused_by_coverage", strconv.FormatBool(causedByCoverage))
	}
}
