package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Load builds the daemon's Config by merging, in ascending order of
// precedence, an optional TOML file, the process environment, and
// command-line flags. args should be the program's argument vector
// excluding argv[0] (typically os.Args[1:]).
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("oomguard", pflag.ContinueOnError)

	configPath := fs.String("config", "", "path to an optional TOML config file (or set OOM_GUARD_CONFIG)")
	memThreshold := fs.StringP("mem", "m", "", "memory threshold PERCENT[,KILL_PERCENT]")
	swapThreshold := fs.StringP("swap", "s", "", "swap threshold PERCENT[,KILL_PERCENT]")
	memSize := fs.StringP("mem-size", "M", "", "memory threshold SIZE[,KILL_SIZE] in KiB")
	swapSize := fs.StringP("swap-size", "S", "", "swap threshold SIZE[,KILL_SIZE] in KiB")
	interval := fs.Float64P("interval-seconds", "i", 0, "base sample period in seconds")
	report := fs.Float64P("report-seconds", "r", 0, "status report cadence in seconds, 0 disables")
	notify := fs.BoolP("notify", "n", false, "enable desktop notifications")
	postScript := fs.StringP("post-kill-script", "N", "", "absolute path to a post-kill hook")
	preScript := fs.StringP("pre-kill-script", "P", "", "absolute path to a pre-kill hook")
	killGroup := fs.BoolP("kill-group", "g", false, "target process groups instead of PIDs")
	priority := fs.IntP("set-priority", "p", 0, "daemon nice value (-20..19)")
	debug := fs.BoolP("debug", "d", false, "enable verbose logging")
	sortByRSS := fs.Bool("sort-by-rss", false, "rank by RSS instead of OOM score")
	prefer := fs.StringArray("prefer", nil, "regex: prefer killing matching processes (repeatable)")
	avoid := fs.StringArray("avoid", nil, "regex: avoid killing matching processes (repeatable)")
	ignore := fs.StringArray("ignore", nil, "regex: never consider matching processes (repeatable)")
	dryRun := fs.Bool("dryrun", false, "log intended actions without signalling")
	ignoreRoot := fs.Bool("ignore-root-user", false, "drop uid=0 processes from candidates")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unrecognized arguments: %v", fs.Args())
	}
	prioritySet := fs.Changed("set-priority")

	c := defaults()

	path := *configPath
	if path == "" {
		path = os.Getenv("OOM_GUARD_CONFIG")
	}
	c, err := loadFile(path, c)
	if err != nil {
		return Config{}, err
	}

	c, err = envOverrides(c)
	if err != nil {
		return Config{}, err
	}

	if fs.Changed("mem") {
		c.Memory, err = ParseThresholdPercent(*memThreshold)
		if err != nil {
			return Config{}, err
		}
	}
	if fs.Changed("mem-size") {
		c.Memory, err = ParseThresholdKiB(*memSize)
		if err != nil {
			return Config{}, err
		}
	}
	if fs.Changed("swap") {
		c.Swap, err = ParseThresholdPercent(*swapThreshold)
		if err != nil {
			return Config{}, err
		}
	}
	if fs.Changed("swap-size") {
		c.Swap, err = ParseThresholdKiB(*swapSize)
		if err != nil {
			return Config{}, err
		}
	}
	if fs.Changed("interval-seconds") {
		c.IntervalSec = *interval
	}
	if fs.Changed("report-seconds") {
		c.ReportSec = *report
	}
	if fs.Changed("notify") {
		c.Notify = *notify
	}
	if fs.Changed("post-kill-script") {
		c.PostKillScript = *postScript
	}
	if fs.Changed("pre-kill-script") {
		c.PreKillScript = *preScript
	}
	if fs.Changed("kill-group") {
		c.KillGroup = *killGroup
	}
	if prioritySet {
		p := *priority
		c.Priority = &p
	}
	if fs.Changed("debug") {
		c.Debug = *debug
	}
	if fs.Changed("sort-by-rss") {
		if *sortByRSS {
			c.SortMode = SortByRSS
		} else {
			c.SortMode = SortByScore
		}
	}
	if fs.Changed("dryrun") {
		c.DryRun = *dryRun
	}
	if fs.Changed("ignore-root-user") {
		c.IgnoreRoot = *ignoreRoot
	}

	c.Filters.Prefer, err = compileAll(*prefer)
	if err != nil {
		return Config{}, err
	}
	c.Filters.Avoid, err = compileAll(*avoid)
	if err != nil {
		return Config{}, err
	}
	c.Filters.Ignore, err = compileAll(*ignore)
	if err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
