package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ThresholdPair holds a warn and a kill level for one subsystem,
// expressed either as a percentage of total or as an absolute KiB
// floor. Exactly one of the two representations is active; Percent
// mode is used unless AbsoluteKiB is set.
type ThresholdPair struct {
	WarnPercent float64
	KillPercent float64

	WarnKiB uint64
	KillKiB uint64

	AbsoluteKiB bool
}

// ParseThresholdPercent parses a "WARN" or "WARN,KILL" string into a
// percentage ThresholdPair. If KILL is omitted it defaults to
// floor(WARN/2).
func ParseThresholdPercent(s string) (ThresholdPair, error) {
	warn, kill, err := parsePair(s, func(v float64) float64 { return math.Floor(v / 2) })
	if err != nil {
		return ThresholdPair{}, err
	}
	if warn <= 0 || kill <= 0 {
		if warn != 0 || kill != 0 {
			return ThresholdPair{}, fmt.Errorf("threshold %q: warn and kill must both be zero (disabled) or both positive", s)
		}
	}
	if kill > warn {
		return ThresholdPair{}, fmt.Errorf("threshold %q: kill (%.2f) must be <= warn (%.2f)", s, kill, warn)
	}
	return ThresholdPair{WarnPercent: warn, KillPercent: kill}, nil
}

// ParseThresholdKiB parses a "WARN" or "WARN,KILL" string (values in
// KiB) into an absolute ThresholdPair.
func ParseThresholdKiB(s string) (ThresholdPair, error) {
	warnF, killF, err := parsePair(s, func(v float64) float64 { return v / 2 })
	if err != nil {
		return ThresholdPair{}, err
	}
	warn, kill := uint64(warnF), uint64(killF)
	if warn == 0 && kill != 0 || kill == 0 && warn != 0 {
		return ThresholdPair{}, fmt.Errorf("threshold %q: warn and kill must both be zero (disabled) or both positive", s)
	}
	if kill > warn {
		return ThresholdPair{}, fmt.Errorf("threshold %q: kill (%d KiB) must be <= warn (%d KiB)", s, kill, warn)
	}
	return ThresholdPair{WarnKiB: warn, KillKiB: kill, AbsoluteKiB: true}, nil
}

func parsePair(s string, defaultKill func(float64) float64) (warn, kill float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	warn, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid threshold value %q: %w", parts[0], err)
	}
	if len(parts) == 2 {
		kill, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid kill threshold %q: %w", parts[1], err)
		}
		return warn, kill, nil
	}
	return warn, defaultKill(warn), nil
}

// Disabled reports whether this subsystem's thresholds are turned off
// (both warn and kill are zero).
func (t ThresholdPair) Disabled() bool {
	if t.AbsoluteKiB {
		return t.WarnKiB == 0 && t.KillKiB == 0
	}
	return t.WarnPercent == 0 && t.KillPercent == 0
}

// String round-trips ParseThresholdPercent/ParseThresholdKiB's "P,K" format.
func (t ThresholdPair) String() string {
	if t.AbsoluteKiB {
		return fmt.Sprintf("%d,%d", t.WarnKiB, t.KillKiB)
	}
	return fmt.Sprintf("%s,%s", trimFloat(t.WarnPercent), trimFloat(t.KillPercent))
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}
