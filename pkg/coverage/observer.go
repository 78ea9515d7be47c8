// Package coverage implements the TCP coverage channel between the
// fuzzer and the in-app coverage agent: per-execution arm/collect
// handshake, bitmap accumulation, and restart-on-failure recovery.
package coverage

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/org/intent-fuzzer/pkg/device"
	"github.com/org/intent-fuzzer/pkg/logging"
)

// MapSize is the fixed byte length of one coverage bitmap transfer.
const MapSize = 1024 * 1024

const (
	armRetries  = 5
	readTimeout = 10 * time.Second
)

// Config configures an Observer.
type Config struct {
	Address               string
	AppName               string
	TraceNative           bool
	EnableSynchronization bool
	UseCoverage           bool
	OverallCoverageFile   string
}

// Observer owns the single TCP connection to the coverage agent. It is
// not safe for concurrent use: arm/collect run from one goroutine per
// spec, matching the original's single-threaded socket ownership.
type Observer struct {
	cfg    Config
	driver *device.Driver
	log    *logging.Logger

	conn   net.Conn
	reader *bufio.Reader

	baseMap    []byte
	overallMap []byte
	globalBits []byte

	startTime        time.Time
	lastOverallCount int
}

// New connects to the coverage agent, performs the handshake, and resets
// the overall-coverage log file.
func New(cfg Config, driver *device.Driver, log *logging.Logger) (*Observer, error) {
	o := &Observer{
		cfg:        cfg,
		driver:     driver,
		log:        log,
		baseMap:    make([]byte, MapSize),
		overallMap: make([]byte, MapSize),
		globalBits: make([]byte, MapSize),
		startTime:  time.Now(),
	}

	if err := o.connect(); err != nil {
		return nil, err
	}

	if err := o.resetOverallCoverageFile(); err != nil {
		return nil, err
	}

	return o, nil
}

func (o *Observer) connect() error {
	conn, err := net.Dial("tcp", o.cfg.Address)
	if err != nil {
		return fmt.Errorf("coverage: failed to connect to %s: %w", o.cfg.Address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			conn.Close()
			return fmt.Errorf("coverage: failed to set nodelay: %w", err)
		}
	}

	handshake := []byte("se")
	if o.cfg.EnableSynchronization {
		handshake = []byte("ss")
	}
	if _, err := conn.Write(handshake); err != nil {
		conn.Close()
		return fmt.Errorf("coverage: failed to write handshake: %w", err)
	}

	o.conn = conn
	o.reader = bufio.NewReader(conn)
	return nil
}

func (o *Observer) resetOverallCoverageFile() error {
	if err := os.MkdirAll(filepath.Dir(o.cfg.OverallCoverageFile), 0o755); err != nil {
		return fmt.Errorf("coverage: failed to create overall coverage dir: %w", err)
	}
	_ = os.Remove(o.cfg.OverallCoverageFile)
	return os.WriteFile(o.cfg.OverallCoverageFile, []byte("0: 0\n"), 0o644)
}

// Close releases the underlying socket.
func (o *Observer) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}
