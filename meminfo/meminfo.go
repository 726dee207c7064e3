// Package meminfo implements the Memory Sampler: a
// single-pass reader of the kernel's memory-statistics pseudo-file,
// adapted from ProcSource.Meminfo (proc.go) and extended with the
// percent/threshold helpers of original_source/src/monitor/meminfo.rs.
package meminfo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const defaultPath = "/proc/meminfo"

// Sample is one immutable snapshot of kernel memory state, owned by
// the tick that created it.
type Sample struct {
	TotalKiB uint64
	AvailableKiB uint64
	SwapTotalKiB uint64
	SwapFreeKiB uint64
	CachedKiB uint64
	BuffersKiB uint64
	Taken time.Time
}

// Sampler reads memory statistics from a given procfs-style path,
// defaulting to /proc/meminfo. It holds no state beyond the path so
// it can be shared read-only across ticks.
type Sampler struct {
	path string
	now func() time.Time
}

// New returns a Sampler reading the real kernel meminfo file.
func New() *Sampler {
	return &Sampler{path: defaultPath, now: time.Now}
}

// NewAt returns a Sampler reading from an arbitrary path, for tests
// against fabricated fixtures.
func NewAt(path string) *Sampler {
	return &Sampler{path: path, now: time.Now}
}

// Sample performs one pass over the meminfo file. Errors are meant to
// be treated as fatal to the current tick only: the
// caller should log and retry next tick, not exit the daemon.
func (s *Sampler) Sample() (Sample, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return Sample{}, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	var out Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "MemTotal":
			out.TotalKiB = value
		case "MemAvailable":
			out.AvailableKiB = value
		case "SwapTotal":
			out.SwapTotalKiB = value
		case "SwapFree":
			out.SwapFreeKiB = value
		case "Cached":
			out.CachedKiB = value
		case "Buffers":
			out.BuffersKiB = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Sample{}, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if out.TotalKiB == 0 {
		return Sample{}, fmt.Errorf("%s: missing or zero MemTotal", s.path)
	}
	out.Taken = s.now()
	return out, nil
}

// parseLine parses one "Key: 12345 kB" line into (key, valueInKiB).
// meminfo values are always reported in kB (which is actually KiB);
// a bare integer with no unit is accepted as-is.
func parseLine(line string) (key string, kib uint64, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, false
	}
	key = strings.TrimSuffix(fields[0], ":")
	n, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return key, n, true
}

// AvailableFraction is the free fraction used by the Threshold
// Evaluator: available / total.
func (s Sample) AvailableFraction() float64 {
	if s.TotalKiB == 0 {
		return 0
	}
	return float64(s.AvailableKiB) / float64(s.TotalKiB)
}

// SwapFreeFraction is free swap / total swap; 1.0 (fully free) when
// there is no swap configured at all, so a swapless machine never
// trips the swap threshold.
func (s Sample) SwapFreeFraction() float64 {
	if s.SwapTotalKiB == 0 {
		return 1
	}
	return float64(s.SwapFreeKiB) / float64(s.SwapTotalKiB)
}

// String renders a human-readable one-line summary for status reports
// and debug logs, matching the intent of
// original_source/src/monitor/meminfo.rs's Display impl.
func (s Sample) String() string {
	return fmt.Sprintf(
		"memory: %s/%s available (%.1f%%), swap: %s/%s free (%.1f%%), cache+buffers: %s",
		humanize.IBytes(s.AvailableKiB*1024), humanize.IBytes(s.TotalKiB*1024), s.AvailableFraction()*100,
		humanize.IBytes(s.SwapFreeKiB*1024), humanize.IBytes(s.SwapTotalKiB*1024), s.SwapFreeFraction()*100,
		humanize.IBytes((s.CachedKiB+s.BuffersKiB)*1024),
	)
}
