package coverage

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Result reports the outcome of one Collect call.
type Result struct {
	// LoggedIncrease is true when the unconditional overall-coverage
	// sample file was just appended to (for human-facing progress only).
	LoggedIncrease bool
	// NewEdges is true when execution reached at least one map byte this
	// fuzzer has never seen nonzero before — the feedback signal that
	// decides whether an input is interesting enough to keep. Always
	// false when the observer was built with UseCoverage=false, since no
	// per-execution bytes are ever folded into the campaign-wide map in
	// that mode.
	NewEdges bool
}

// Collect dumps the coverage agent's bitmap after one execution, merges it
// into the monotonic overall-coverage bitmap and the campaign-wide
// novelty map, and reports both the logging and feedback signals. A
// failed or short read is logged and treated as "no coverage this
// iteration" rather than a hard error, since a wedged socket shouldn't
// abort the run — Arm's retry loop is what recovers the connection on the
// next iteration.
func (o *Observer) Collect() (Result, error) {
	if _, err := o.conn.Write([]byte("d")); err != nil {
		return Result{}, fmt.Errorf("coverage: failed to write dump message: %w", err)
	}

	if err := o.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return Result{}, fmt.Errorf("coverage: failed to set read deadline: %w", err)
	}

	buf := make([]byte, MapSize)
	if _, err := io.ReadFull(o.reader, buf); err != nil {
		o.log.Warn("failed to read coverage map, skipping this iteration", "error", err)
		return Result{}, nil
	}

	newEdges := false
	if o.cfg.UseCoverage {
		copy(o.baseMap, buf)
		for i, b := range buf {
			if b != 0 && o.globalBits[i] == 0 {
				newEdges = true
			}
			if b != 0 {
				o.globalBits[i] = b
			}
		}
	}

	for i, b := range buf {
		if b != 0 {
			o.overallMap[i] = b
		}
	}

	return Result{LoggedIncrease: o.saveOverallCoverage(), NewEdges: newEdges}, nil
}

// saveOverallCoverage appends a timestamped sample to the overall-coverage
// log whenever the nonzero-byte count has grown since the last sample.
func (o *Observer) saveOverallCoverage() bool {
	count := 0
	for _, b := range o.overallMap {
		if b != 0 {
			count++
		}
	}
	if count <= o.lastOverallCount {
		return false
	}
	o.lastOverallCount = count

	f, err := os.OpenFile(o.cfg.OverallCoverageFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		o.log.Warn("failed to open overall coverage file", "error", err)
		return true
	}
	defer f.Close()

	elapsed := time.Since(o.startTime).Seconds()
	if _, err := fmt.Fprintf(f, "%.0f: %d\n", elapsed, count); err != nil {
		o.log.Warn("failed to append overall coverage sample", "error", err)
	}
	return true
}

// BaseMap returns the most recently collected per-execution coverage
// bitmap. The caller must not retain a reference past the next Collect.
func (o *Observer) BaseMap() []byte {
	return o.baseMap
}
