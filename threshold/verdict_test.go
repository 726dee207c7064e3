package threshold_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oomguard/oomguard/config"
	"github.com/oomguard/oomguard/meminfo"
	"github.com/oomguard/oomguard/threshold"
)

func cfgWith(mem, swap config.ThresholdPair) config.Config {
	return config.Config{Memory: mem, Swap: swap}
}

func TestEvaluateOkWhenAboveWarn(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000, AvailableKiB: 500, SwapTotalKiB: 1000, SwapFreeKiB: 500}
	cfg := cfgWith(
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
	)
	require.Equal(t, threshold.Ok, threshold.Evaluate(sample, cfg))
}

func TestEvaluateWarnMemory(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000, AvailableKiB: 80, SwapTotalKiB: 1000, SwapFreeKiB: 500}
	cfg := cfgWith(
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
	)
	require.Equal(t, threshold.WarnMemory, threshold.Evaluate(sample, cfg))
}

func TestEvaluateKillDominatesWarn(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000, AvailableKiB: 30, SwapTotalKiB: 1000, SwapFreeKiB: 80}
	cfg := cfgWith(
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
	)
	require.Equal(t, threshold.KillMemory, threshold.Evaluate(sample, cfg))
}

func TestEvaluateSwapNeverTriggersWhenSwapTotalIsZero(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000, AvailableKiB: 500, SwapTotalKiB: 0, SwapFreeKiB: 0}
	cfg := cfgWith(
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
		config.ThresholdPair{WarnPercent: 90, KillPercent: 80},
	)
	require.Equal(t, threshold.Ok, threshold.Evaluate(sample, cfg))
}

func TestEvaluateDisabledSubsystemNeverTriggers(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000, AvailableKiB: 1, SwapTotalKiB: 1000, SwapFreeKiB: 1}
	cfg := cfgWith(
		config.ThresholdPair{},
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
	)
	require.Equal(t, threshold.KillSwap, threshold.Evaluate(sample, cfg))
}

func TestEvaluateAbsoluteKiBThreshold(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000000, AvailableKiB: 40000, SwapTotalKiB: 0}
	cfg := cfgWith(
		config.ThresholdPair{WarnKiB: 100000, KillKiB: 50000, AbsoluteKiB: true},
		config.ThresholdPair{},
	)
	require.Equal(t, threshold.KillMemory, threshold.Evaluate(sample, cfg))
}

func TestEvaluateIsIdempotentOnSameSample(t *testing.T) {
	sample := meminfo.Sample{TotalKiB: 1000, AvailableKiB: 30, SwapTotalKiB: 1000, SwapFreeKiB: 900}
	cfg := cfgWith(
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
		config.ThresholdPair{WarnPercent: 10, KillPercent: 5},
	)
	first := threshold.Evaluate(sample, cfg)
	second := threshold.Evaluate(sample, cfg)
	require.Equal(t, first, second)
}

func TestVerdictIsKillIsWarn(t *testing.T) {
	require.True(t, threshold.KillMemory.IsKill())
	require.True(t, threshold.KillSwap.IsKill())
	require.False(t, threshold.WarnMemory.IsKill())

	require.True(t, threshold.WarnSwap.IsWarn())
	require.False(t, threshold.Ok.IsWarn())
}
