package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oomguard/oomguard/config"
)

func TestParseThresholdPercentDefaultsKillToHalfWarn(t *testing.T) {
	tp, err := config.ParseThresholdPercent("10")
	require.NoError(t, err)
	require.Equal(t, 10.0, tp.WarnPercent)
	require.Equal(t, 5.0, tp.KillPercent)
}

func TestParseThresholdPercentExplicitKill(t *testing.T) {
	tp, err := config.ParseThresholdPercent("10,2")
	require.NoError(t, err)
	require.Equal(t, 10.0, tp.WarnPercent)
	require.Equal(t, 2.0, tp.KillPercent)
}

func TestParseThresholdPercentRejectsKillAboveWarn(t *testing.T) {
	_, err := config.ParseThresholdPercent("5,10")
	require.Error(t, err)
}

func TestParseThresholdPercentRoundTrip(t *testing.T) {
	tp, err := config.ParseThresholdPercent("10,5")
	require.NoError(t, err)
	require.Equal(t, "10,5", tp.String())
}

func TestParseThresholdKiBAbsolute(t *testing.T) {
	tp, err := config.ParseThresholdKiB("1000000,500000")
	require.NoError(t, err)
	require.True(t, tp.AbsoluteKiB)
	require.Equal(t, uint64(1000000), tp.WarnKiB)
	require.Equal(t, uint64(500000), tp.KillKiB)
}

func TestThresholdPairDisabled(t *testing.T) {
	var tp config.ThresholdPair
	require.True(t, tp.Disabled())

	tp.WarnPercent = 10
	tp.KillPercent = 5
	require.False(t, tp.Disabled())
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, cfg.Memory.WarnPercent)
	require.Equal(t, 1.0, cfg.IntervalSec)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := config.Load([]string{"--mem", "20,10", "--interval-seconds", "2.5", "--dryrun"})
	require.NoError(t, err)
	require.Equal(t, 20.0, cfg.Memory.WarnPercent)
	require.Equal(t, 2.5, cfg.IntervalSec)
	require.True(t, cfg.DryRun)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("OOM_GUARD_MEM_WARN", "30")
	cfg, err := config.Load([]string{"--mem", "40,20"})
	require.NoError(t, err)
	require.Equal(t, 40.0, cfg.Memory.WarnPercent)
}

func TestLoadEnvAloneApplies(t *testing.T) {
	t.Setenv("OOM_GUARD_MEM_WARN", "30")
	t.Setenv("OOM_GUARD_MEM_KILL", "15")
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	require.Equal(t, 30.0, cfg.Memory.WarnPercent)
	require.Equal(t, 15.0, cfg.Memory.KillPercent)
}

func TestLoadFileValuesApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oomguard.toml")
	require.NoError(t, os.WriteFile(path, []byte("mem_warn_percent = 25.0\ninterval_seconds = 3.0\n"), 0o644))

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)
	require.Equal(t, 25.0, cfg.Memory.WarnPercent)
	require.Equal(t, 3.0, cfg.IntervalSec)
}

func TestLoadUsesConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oomguard.toml")
	require.NoError(t, os.WriteFile(path, []byte("mem_warn_percent = 42.0\n"), 0o644))
	t.Setenv("OOM_GUARD_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	require.Equal(t, 42.0, cfg.Memory.WarnPercent)
}

func TestLoadConfigFlagOverridesConfigEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "env.toml")
	require.NoError(t, os.WriteFile(envPath, []byte("mem_warn_percent = 42.0\n"), 0o644))
	flagPath := filepath.Join(t.TempDir(), "flag.toml")
	require.NoError(t, os.WriteFile(flagPath, []byte("mem_warn_percent = 17.0\n"), 0o644))
	t.Setenv("OOM_GUARD_CONFIG", envPath)

	cfg, err := config.Load([]string{"--config", flagPath})
	require.NoError(t, err)
	require.Equal(t, 17.0, cfg.Memory.WarnPercent)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := config.Load([]string{"--config", "/nonexistent/oomguard.toml"})
	require.NoError(t, err)
	require.Equal(t, 10.0, cfg.Memory.WarnPercent)
}

func TestLoadRejectsBadRegex(t *testing.T) {
	_, err := config.Load([]string{"--ignore", "("})
	require.Error(t, err)
}

func TestLoadRejectsInvalidPriority(t *testing.T) {
	_, err := config.Load([]string{"--set-priority", "50"})
	require.Error(t, err)
}

func TestLoadAggregatesMultipleErrors(t *testing.T) {
	_, err := config.Load([]string{"--interval-seconds", "-1", "--set-priority", "50"})
	require.Error(t, err)
	require.True(t, config.IsConfigError(err))
}

func TestLoadRejectsUnrecognizedArguments(t *testing.T) {
	_, err := config.Load([]string{"bogus"})
	require.Error(t, err)
}
