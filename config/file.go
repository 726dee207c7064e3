package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the subset of Config that makes sense to seed
// from a static file: thresholds, the always-scalar behavior flags
// and the hook script paths. Filter patterns are left to flags,
// matching original_source/'s CLI-only treatment of lists.
type fileConfig struct {
	MemWarnPercent *float64 `toml:"mem_warn_percent"`
	MemKillPercent *float64 `toml:"mem_kill_percent"`
	MemWarnKiB *uint64 `toml:"mem_warn_kib"`
	MemKillKiB *uint64 `toml:"mem_kill_kib"`
	SwapWarnPercent *float64 `toml:"swap_warn_percent"`
	SwapKillPercent *float64 `toml:"swap_kill_percent"`
	SwapWarnKiB *uint64 `toml:"swap_warn_kib"`
	SwapKillKiB *uint64 `toml:"swap_kill_kib"`

	IntervalSeconds *float64 `toml:"interval_seconds"`
	ReportSeconds *float64 `toml:"report_seconds"`

	SortByRSS *bool `toml:"sort_by_rss"`
	IgnoreRootUser *bool `toml:"ignore_root_user"`
	KillGroup *bool `toml:"kill_group"`
	DryRun *bool `toml:"dry_run"`
	Debug *bool `toml:"debug"`
	Notify *bool `toml:"notify"`
	Priority *int `toml:"priority"`
	PreKillScript *string `toml:"pre_kill_script"`
	PostKillScript *string `toml:"post_kill_script"`
}

// loadFile reads an optional TOML config file, applying its values as
// the lowest-priority layer beneath environment and flags. A missing
// path is not an error; a malformed file is.
func loadFile(path string, c Config) (Config, error) {
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return c, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.MemWarnPercent != nil {
		c.Memory.WarnPercent, c.Memory.AbsoluteKiB = *fc.MemWarnPercent, false
	}
	if fc.MemKillPercent != nil {
		c.Memory.KillPercent = *fc.MemKillPercent
	}
	if fc.MemWarnKiB != nil {
		c.Memory.WarnKiB, c.Memory.AbsoluteKiB = *fc.MemWarnKiB, true
	}
	if fc.MemKillKiB != nil {
		c.Memory.KillKiB = *fc.MemKillKiB
	}
	if fc.SwapWarnPercent != nil {
		c.Swap.WarnPercent, c.Swap.AbsoluteKiB = *fc.SwapWarnPercent, false
	}
	if fc.SwapKillPercent != nil {
		c.Swap.KillPercent = *fc.SwapKillPercent
	}
	if fc.SwapWarnKiB != nil {
		c.Swap.WarnKiB, c.Swap.AbsoluteKiB = *fc.SwapWarnKiB, true
	}
	if fc.SwapKillKiB != nil {
		c.Swap.KillKiB = *fc.SwapKillKiB
	}
	if fc.IntervalSeconds != nil {
		c.IntervalSec = *fc.IntervalSeconds
	}
	if fc.ReportSeconds != nil {
		c.ReportSec = *fc.ReportSeconds
	}
	if fc.SortByRSS != nil {
		if *fc.SortByRSS {
			c.SortMode = SortByRSS
		} else {
			c.SortMode = SortByScore
		}
	}
	if fc.IgnoreRootUser != nil {
		c.IgnoreRoot = *fc.IgnoreRootUser
	}
	if fc.KillGroup != nil {
		c.KillGroup = *fc.KillGroup
	}
	if fc.DryRun != nil {
		c.DryRun = *fc.DryRun
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	if fc.Notify != nil {
		c.Notify = *fc.Notify
	}
	if fc.Priority != nil {
		p := *fc.Priority
		c.Priority = &p
	}
	if fc.PreKillScript != nil {
		c.PreKillScript = *fc.PreKillScript
	}
	if fc.PostKillScript != nil {
		c.PostKillScript = *fc.PostKillScript
	}

	return c, nil
}
