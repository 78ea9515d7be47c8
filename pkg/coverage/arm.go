package coverage

import (
	"context"
	"fmt"
	"time"
)

// Arm resets the on-device coverage map ahead of one execution, retrying
// up to armRetries times with app/device restart escalation on failure —
// the pre-exec half of the per-iteration handshake.
func (o *Observer) Arm(ctx context.Context, hash string) error {
	var lastErr error
	for i := 0; i < armRetries; i++ {
		if err := o.resetCoverage(hash); err != nil {
			lastErr = err
			o.log.Warn("failed to arm coverage map, restarting app", "error", err)

			if o.cfg.TraceNative {
				o.driver.ReportNativeCrash(ctx, o.cfg.AppName)
			}
			if i > 1 {
				if derr := o.driver.RestartDevice(ctx); derr != nil {
					o.log.Warn("failed to restart device during arm recovery", "error", derr)
				}
			}
			if aerr := o.driver.RestartApp(ctx, o.cfg.AppName); aerr != nil {
				o.log.Warn("failed to restart app during arm recovery", "error", aerr)
			}

			time.Sleep(time.Duration(1+i) * time.Second)

			if o.conn != nil {
				o.conn.Close()
			}
			if cerr := o.connect(); cerr != nil {
				lastErr = cerr
			}

			time.Sleep(time.Duration(1+i) * time.Second)
			continue
		}

		for i := range o.baseMap {
			o.baseMap[i] = 0
		}
		return nil
	}

	return fmt.Errorf("coverage: failed to reset coverage map after %d attempts: %w", armRetries, lastErr)
}

// resetCoverage sends the per-execution arm message (optionally preceded
// by a trace-filename directive) and waits for the single-byte 'd'
// acknowledgement.
func (o *Observer) resetCoverage(hash string) error {
	if o.cfg.TraceNative {
		if _, err := o.conn.Write([]byte("ts")); err != nil {
			return fmt.Errorf("coverage: failed to write trace directive: %w", err)
		}
		if _, err := o.conn.Write([]byte(fmt.Sprintf("trace_%s.txt", hash))); err != nil {
			return fmt.Errorf("coverage: failed to write trace filename: %w", err)
		}
		if _, err := o.conn.Write([]byte("\n")); err != nil {
			return fmt.Errorf("coverage: failed to write trace newline: %w", err)
		}
	}

	if _, err := o.conn.Write([]byte("r")); err != nil {
		return fmt.Errorf("coverage: failed to write reset message: %w", err)
	}

	if err := o.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return fmt.Errorf("coverage: failed to set read deadline: %w", err)
	}
	ack, err := o.reader.ReadByte()
	if err != nil {
		return fmt.Errorf("coverage: failed to read reset ack: %w", err)
	}
	if ack != 'd' {
		return fmt.Errorf("coverage: failed to reset coverage map (got %q)", ack)
	}
	return nil
}
