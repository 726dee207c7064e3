package meminfo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oomguard/oomguard/meminfo"
)

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const sampleMeminfo = `MemTotal: 16384000 kB
MemFree: 1000000 kB
MemAvailable: 4096000 kB
Buffers: 200000 kB
Cached: 1500000 kB
SwapTotal: 2048000 kB
SwapFree: 1024000 kB
`

func TestSampleParsesKnownFields(t *testing.T) {
	s := meminfo.NewAt(writeFixture(t, sampleMeminfo))
	sample, err := s.Sample()
	require.NoError(t, err)

	require.Equal(t, uint64(16384000), sample.TotalKiB)
	require.Equal(t, uint64(4096000), sample.AvailableKiB)
	require.Equal(t, uint64(2048000), sample.SwapTotalKiB)
	require.Equal(t, uint64(1024000), sample.SwapFreeKiB)
	require.Equal(t, uint64(200000), sample.BuffersKiB)
	require.Equal(t, uint64(1500000), sample.CachedKiB)
	require.False(t, sample.Taken.IsZero())
}

func TestSampleMissingMemTotalIsError(t *testing.T) {
	s := meminfo.NewAt(writeFixture(t, "MemFree: 1000 kB\n"))
	_, err := s.Sample()
	require.Error(t, err)
}

func TestSampleMissingFileIsError(t *testing.T) {
	s := meminfo.NewAt(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := s.Sample()
	require.Error(t, err)
}

func TestAvailableFraction(t *testing.T) {
	s := meminfo.NewAt(writeFixture(t, sampleMeminfo))
	sample, err := s.Sample()
	require.NoError(t, err)

	require.InDelta(t, 0.25, sample.AvailableFraction(), 0.001)
}

func TestSwapFreeFractionNoSwapConfigured(t *testing.T) {
	sample, err := meminfo.NewAt(writeFixture(t, "MemTotal: 1000 kB\nMemAvailable: 500 kB\n")).Sample()
	require.NoError(t, err)
	require.Equal(t, float64(1), sample.SwapFreeFraction())
}

func TestSwapFreeFraction(t *testing.T) {
	s := meminfo.NewAt(writeFixture(t, sampleMeminfo))
	sample, err := s.Sample()
	require.NoError(t, err)
	require.InDelta(t, 0.5, sample.SwapFreeFraction(), 0.001)
}
