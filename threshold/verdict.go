// Package threshold implements the Threshold Evaluator: mapping one
// meminfo.Sample to a Verdict given the configured ThresholdPairs for
// memory and swap.
package threshold

import (
	"github.com/oomguard/oomguard/config"
	"github.com/oomguard/oomguard/meminfo"
)

// Verdict is the outcome of one evaluation. Ok means no subsystem
// crossed even its warn level; the Kill variants dominate the Warn
// variants; memory and swap are evaluated independently and the
// caller acts on the maximum severity across the two.
type Verdict int

const (
	Ok Verdict = iota
	WarnMemory
	WarnSwap
	KillMemory
	KillSwap
)

func (v Verdict) String() string {
	switch v {
	case Ok:
		return "Ok"
	case WarnMemory:
		return "WarnMemory"
	case WarnSwap:
		return "WarnSwap"
	case KillMemory:
		return "KillMemory"
	case KillSwap:
		return "KillSwap"
	default:
		return "Unknown"
	}
}

// severity ranks Ok < Warn* < Kill*, letting Evaluate take the max
// across memory and swap: a Kill verdict dominates a Warn.
func (v Verdict) severity() int {
	switch v {
	case KillMemory, KillSwap:
		return 2
	case WarnMemory, WarnSwap:
		return 1
	default:
		return 0
	}
}

// IsKill reports whether v requires a Forceful enactment.
func (v Verdict) IsKill() bool {
	return v == KillMemory || v == KillSwap
}

// IsWarn reports whether v requires a Graceful enactment.
func (v Verdict) IsWarn() bool {
	return v == WarnMemory || v == WarnSwap
}

// Evaluate computes the Verdict for one sample under one Config's
// thresholds. Each subsystem is checked against the one representation
// its ThresholdPair holds: the percent levels by default, the absolute
// KiB levels when AbsoluteKiB is set. The two representations are
// never combined for the same subsystem.
func Evaluate(sample meminfo.Sample, cfg config.Config) Verdict {
	mem := evaluateSubsystem(cfg.Memory, sample.AvailableKiB, sample.AvailableFraction(), KillMemory, WarnMemory)

	var swap Verdict
	if sample.SwapTotalKiB == 0 {
		// If swap total is zero, swap never triggers.
		swap = Ok
	} else {
		swap = evaluateSubsystem(cfg.Swap, sample.SwapFreeKiB, sample.SwapFreeFraction(), KillSwap, WarnSwap)
	}

	if mem.severity() >= swap.severity() {
		if mem.severity() == 0 {
			return Ok
		}
		return mem
	}
	return swap
}

func evaluateSubsystem(t config.ThresholdPair, absoluteKiB uint64, fraction float64, kill, warn Verdict) Verdict {
	if t.Disabled() {
		return Ok
	}
	if crosses(t, true, absoluteKiB, fraction) {
		return kill
	}
	if crosses(t, false, absoluteKiB, fraction) {
		return warn
	}
	return Ok
}

// crosses reports whether the subsystem has crossed its kill (or
// warn, when kill=false) level.
func crosses(t config.ThresholdPair, kill bool, absoluteKiB uint64, fraction float64) bool {
	if t.AbsoluteKiB {
		limit := t.WarnKiB
		if kill {
			limit = t.KillKiB
		}
		return absoluteKiB < limit
	}
	limitPercent := t.WarnPercent
	if kill {
		limitPercent = t.KillPercent
	}
	return fraction*100 < limitPercent
}
