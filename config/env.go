package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envOverrides applies OOM_GUARD_* environment variables onto a
// Config that already holds field defaults; the environment layer
// sits above the config file and below CLI flags. Every variable is
// optional; a malformed value is a configuration error.
func envOverrides(c Config) (Config, error) {
	var errs errorList

	if v, ok := os.LookupEnv("OOM_GUARD_MEM_WARN"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.addf("OOM_GUARD_MEM_WARN: %v", err)
		} else {
			c.Memory.WarnPercent = f
			c.Memory.AbsoluteKiB = false
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_MEM_KILL"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.addf("OOM_GUARD_MEM_KILL: %v", err)
		} else {
			c.Memory.KillPercent = f
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_SWAP_WARN"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.addf("OOM_GUARD_SWAP_WARN: %v", err)
		} else {
			c.Swap.WarnPercent = f
			c.Swap.AbsoluteKiB = false
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_SWAP_KILL"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.addf("OOM_GUARD_SWAP_KILL: %v", err)
		} else {
			c.Swap.KillPercent = f
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_MEM_SIZE_WARN"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs.addf("OOM_GUARD_MEM_SIZE_WARN: %v", err)
		} else {
			c.Memory.WarnKiB, c.Memory.AbsoluteKiB = n, true
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_MEM_SIZE_KILL"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs.addf("OOM_GUARD_MEM_SIZE_KILL: %v", err)
		} else {
			c.Memory.KillKiB, c.Memory.AbsoluteKiB = n, true
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_SWAP_SIZE_WARN"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs.addf("OOM_GUARD_SWAP_SIZE_WARN: %v", err)
		} else {
			c.Swap.WarnKiB, c.Swap.AbsoluteKiB = n, true
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_SWAP_SIZE_KILL"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs.addf("OOM_GUARD_SWAP_SIZE_KILL: %v", err)
		} else {
			c.Swap.KillKiB, c.Swap.AbsoluteKiB = n, true
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_INTERVAL"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.addf("OOM_GUARD_INTERVAL: %v", err)
		} else {
			c.IntervalSec = f
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_REPORT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.addf("OOM_GUARD_REPORT: %v", err)
		} else {
			c.ReportSec = f
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_SORT_BY_RSS"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs.addf("OOM_GUARD_SORT_BY_RSS: %v", err)
		} else if b {
			c.SortMode = SortByRSS
		} else {
			c.SortMode = SortByScore
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_DRY_RUN"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs.addf("OOM_GUARD_DRY_RUN: %v", err)
		} else {
			c.DryRun = b
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_DEBUG"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs.addf("OOM_GUARD_DEBUG: %v", err)
		} else {
			c.Debug = b
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_NOTIFY"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs.addf("OOM_GUARD_NOTIFY: %v", err)
		} else {
			c.Notify = b
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_IGNORE_ROOT_USER"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs.addf("OOM_GUARD_IGNORE_ROOT_USER: %v", err)
		} else {
			c.IgnoreRoot = b
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_KILL_GROUP"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs.addf("OOM_GUARD_KILL_GROUP: %v", err)
		} else {
			c.KillGroup = b
		}
	}
	if v, ok := os.LookupEnv("OOM_GUARD_PRIORITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs.addf("OOM_GUARD_PRIORITY: %v", err)
		} else {
			c.Priority = &n
		}
	}

	return c, errs.errorOrNil()
}

// parseBool accepts true/false, 1/0, yes/no, on/off (case-insensitive),
// matching original_source/src/config/env.rs::parse_bool.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %q", s)
	}
}
