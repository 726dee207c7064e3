// Package config assembles the daemon's immutable, per-run
// configuration from a TOML file, the process environment, and
// command-line flags, in that ascending order of precedence.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// SortMode selects what the Filter/Ranker uses as the base score
// before prefer/avoid bias is applied.
type SortMode int

const (
	SortByScore SortMode = iota
	SortByRSS
)

// Config is the immutable, validated configuration for one run of the
// daemon. It is constructed once at startup by Load and shared
// read-only by every component thereafter.
type Config struct {
	Memory ThresholdPair
	Swap ThresholdPair

	Filters Filters

	SortMode SortMode
	IgnoreRoot bool
	KillGroup bool
	Priority *int
	DryRun bool
	Debug bool
	Notify bool
	IntervalSec float64
	ReportSec float64
	PreKillScript string
	PostKillScript string

	// SelfProtect toggles mlockall/oom_score_adj/priority setup at
	// startup. Disabling it is intended for tests and unprivileged
	// development runs only.
	SelfProtect bool
}

// defaults mirror original_source/src/config/mod.rs::Config::default,
// adjusted for independent memory/swap Verdicts.
func defaults() Config {
	return Config{
		Memory: ThresholdPair{WarnPercent: 10, KillPercent: 5},
		Swap: ThresholdPair{WarnPercent: 10, KillPercent: 5},
		SortMode: SortByScore,
		IntervalSec: 1.0,
		ReportSec: 60.0,
		SelfProtect: true,
	}
}

// Validate checks internal consistency and returns an aggregated
// error (via hashicorp/go-multierror) describing every problem found,
// not just the first.
func (c Config) Validate() error {
	var errs errorList

	if c.Memory.Disabled() && c.Swap.Disabled() {
		// Legal but inert: a daemon with both subsystems disabled
		// never triggers action, but that isn't malformed configuration.
	}
	if !c.Memory.AbsoluteKiB {
		if c.Memory.WarnPercent < 0 || c.Memory.WarnPercent > 100 {
			errs.addf("memory warn percent %.2f out of range [0,100]", c.Memory.WarnPercent)
		}
		if c.Memory.KillPercent < 0 || c.Memory.KillPercent > 100 {
			errs.addf("memory kill percent %.2f out of range [0,100]", c.Memory.KillPercent)
		}
	}
	if !c.Swap.AbsoluteKiB {
		if c.Swap.WarnPercent < 0 || c.Swap.WarnPercent > 100 {
			errs.addf("swap warn percent %.2f out of range [0,100]", c.Swap.WarnPercent)
		}
		if c.Swap.KillPercent < 0 || c.Swap.KillPercent > 100 {
			errs.addf("swap kill percent %.2f out of range [0,100]", c.Swap.KillPercent)
		}
	}
	if c.Priority != nil && (*c.Priority < -20 || *c.Priority > 19) {
		errs.addf("priority %d out of range [-20,19]", *c.Priority)
	}
	if c.IntervalSec <= 0 {
		errs.addf("interval-seconds must be positive, got %v", c.IntervalSec)
	}
	if c.ReportSec < 0 {
		errs.addf("report-seconds must be non-negative, got %v", c.ReportSec)
	}
	if c.PreKillScript != "" {
		if err := validateHookPath(c.PreKillScript); err != nil {
			errs.add(fmt.Errorf("pre-kill-script: %w", err))
		}
	}
	if c.PostKillScript != "" {
		if err := validateHookPath(c.PostKillScript); err != nil {
			errs.add(fmt.Errorf("post-kill-script: %w", err))
		}
	}
	return errs.errorOrNil()
}

// CheckInterval is the base sample period as a time.Duration.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.IntervalSec * float64(time.Second))
}

// ReportInterval is the periodic status log cadence; zero disables it.
func (c Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportSec * float64(time.Second))
}

// validateHookPath checks the one property that must hold before
// startup even begins: the path must be absolute. Existence,
// regular-file, ownership and writability are runtime properties of
// the filesystem at invocation time and are re-checked by the Hook
// Runner on every use; a hook that is well-formed at
// startup but replaced with something unsafe before the first kill
// must still be caught, so re-validating here would give a false
// sense of security without removing the runtime check.
func validateHookPath(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path %q must be absolute", path)
	}
	return nil
}
