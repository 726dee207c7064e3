// Package supervisor implements the Supervisor Loop:
// composing Sampler, Evaluator, Scanner, Ranker, Killer, Hook Runner
// and Notifier into one strictly-ordered tick, with adaptive sleep,
// cooldowns, and periodic status reports. Adapted from main.go's
// step/main shape and from
// original_source/src/daemon/service.rs (adaptive sleep, cooldown,
// report cadence, RunState-shaped bookkeeping).
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"github.com/oomguard/oomguard/config"
	"github.com/oomguard/oomguard/hooks"
	"github.com/oomguard/oomguard/killer"
	"github.com/oomguard/oomguard/meminfo"
	"github.com/oomguard/oomguard/notify"
	"github.com/oomguard/oomguard/procfs"
	"github.com/oomguard/oomguard/rank"
	"github.com/oomguard/oomguard/threshold"
)

const (
	minAdaptiveSleep = 100 * time.Millisecond
	maxAdaptiveSleep = 1000 * time.Millisecond
	maxHeadroomPct = 20.0

	forcefulCooldown = 10 * time.Second
	gracefulCooldown = 3 * time.Second
)

// RunState is the one piece of mutable state the loop owns across
// ticks: everything else is fresh per tick.
type RunState struct {
	LastKill time.Time
	CooldownUntil time.Time
	ProtectedRaces uint64
	Ticks uint64
	LastSelectStats rank.Stats
	HaveSelectStats bool
}

// Loop wires the full pipeline together.
type Loop struct {
	cfg config.Config
	sampler *meminfo.Sampler
	scanner *procfs.Scanner
	killer *killer.Killer
	hooks *hooks.Runner
	notify *notify.Notifier
	log *zap.SugaredLogger

	state RunState
	lastReport time.Time
	stopping atomic.Bool
	sentReady bool
}

// New builds a Loop from a validated Config. selfPID is the daemon's
// own PID, threaded through to the Scanner so it is never a candidate.
func New(cfg config.Config, selfPID int, log *zap.SugaredLogger) *Loop {
	l := &Loop{
		cfg: cfg,
		sampler: meminfo.New(),
		scanner: procfs.New(selfPID),
		killer: killer.New("/proc",
			killer.WithDryRun(cfg.DryRun),
			killer.WithKillGroup(cfg.KillGroup),
			killer.WithLogf(log.Infof),
		),
		hooks: hooks.New(hooks.WithLogf(log.Warnf)),
		notify: notify.New(cfg.Notify, notify.WithLogf(log.Debugf)),
		log: log,
	}
	l.lastReport = time.Now()
	return l
}

// Run executes the loop until the process receives SIGTERM/SIGINT, at
// which point the current tick completes (including any in-flight
// Forceful kill's verify/reap step) and Run returns nil.
func (l *Loop) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			l.log.Info("received shutdown signal, finishing current tick")
			l.stopping.Store(true)
		case <-ctx.Done():
			l.stopping.Store(true)
		}
	}()

	for !l.stopping.Load() {
		sleep := l.tick()
		if l.stopping.Load() {
			break
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil
		}
	}

	l.log.Info("oomguard shutting down cleanly")
	return nil
}

// tick runs exactly one iteration of the strict order here:
// sample -> evaluate -> scan -> select -> pre-hook -> signal ->
// verify/reap -> post-hook -> notify -> cooldown, returning the sleep
// duration to use before the next tick.
func (l *Loop) tick() time.Duration {
	l.state.Ticks++

	sample, err := l.sampler.Sample()
	if err != nil {
		l.log.Errorw("failed to sample memory, skipping tick", "error", err)
		return l.cfg.CheckInterval()
	}

	if !l.sentReady {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
		l.sentReady = true
	}
	if wd, ok := os.LookupEnv("WATCHDOG_USEC"); ok && wd != "" {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	}

	verdict := threshold.Evaluate(sample, l.cfg)
	l.maybeReport(sample, verdict)

	if verdict == threshold.Ok {
		return l.adaptiveSleep(sample)
	}

	if time.Now().Before(l.state.CooldownUntil) {
		l.log.Debugw("in cooldown, skipping action this tick", "verdict", verdict.String())
		return l.adaptiveSleep(sample)
	}

	level := killer.Graceful
	if verdict.IsKill() {
		level = killer.Forceful
	}

	records, err := l.scanner.Scan()
	if err != nil {
		l.log.Errorw("failed to scan processes", "error", err)
		return l.adaptiveSleep(sample)
	}

	victim, stats := rank.Select(records, l.cfg.Filters, l.cfg.SortMode, l.cfg.IgnoreRoot)
	l.state.LastSelectStats, l.state.HaveSelectStats = stats, true
	l.log.Debugw("selection stats", "total", stats.Total, "killable", stats.Killable,
		"preferred", stats.Preferred, "avoided", stats.Avoided, "ignored", stats.Ignored)

	if victim == nil {
		l.log.Warnw("no eligible candidate", "verdict", verdict.String())
		return l.adaptiveSleep(sample)
	}

	l.log.Warnw("acting on verdict",
		"verdict", verdict.String(), "level", levelString(level),
		"victim_pid", victim.PID, "victim_name", victim.Comm,
		"victim_rss_kib", victim.RSSKiB, "victim_oom_score", victim.OOMScore)

	l.hooks.Run(l.cfg.PreKillScript, *victim)
	result := l.killer.Enact(*victim, level)
	l.hooks.Run(l.cfg.PostKillScript, *victim)

	l.log.Infow("kill outcome",
		"pid", victim.PID, "name", victim.Comm, "rss_kib", victim.RSSKiB,
		"oom_score", victim.OOMScore, "signal", result.Signal.String(),
		"outcome", result.Outcome.String(), "duration", result.Duration)
	if result.Err != nil {
		l.log.Errorw("failed to signal victim", "pid", victim.PID, "error", result.Err)
	}

	l.notify.Notify(notify.Event{Record: *victim, Outcome: result.Outcome, Level: level, Duration: result.Duration})

	if result.Outcome == killer.ProtectedRace {
		l.state.ProtectedRaces++
	}

	// Only an actual kill earns a cooldown. Refused (dry-run),
	// AlreadyGone, ProtectedRace and ErrorOutcome are all cases where
	// nothing was actually terminated, so the loop just resumes its
	// normal adaptive sampling.
	if result.Outcome != killer.Killed {
		return l.adaptiveSleep(sample)
	}

	now := time.Now()
	l.state.LastKill = now
	if level == killer.Forceful {
		l.state.CooldownUntil = now.Add(forcefulCooldown)
	} else {
		l.state.CooldownUntil = now.Add(gracefulCooldown)
	}

	return l.state.CooldownUntil.Sub(now)
}

func (l *Loop) maybeReport(sample meminfo.Sample, verdict threshold.Verdict) {
	interval := l.cfg.ReportInterval()
	if interval <= 0 {
		return
	}
	if time.Since(l.lastReport) < interval {
		return
	}
	l.lastReport = time.Now()
	fields := []any{
		"available_pct", sample.AvailableFraction() * 100,
		"swap_free_pct", sample.SwapFreeFraction() * 100,
		"memory", sample.String(),
		"verdict", verdict.String(),
		"protected_races", l.state.ProtectedRaces,
		"ticks", l.state.Ticks,
	}
	if l.state.HaveSelectStats {
		s := l.state.LastSelectStats
		fields = append(fields, "last_scan_total", s.Total, "last_scan_killable", s.Killable,
			"last_scan_preferred", s.Preferred, "last_scan_avoided", s.Avoided, "last_scan_ignored", s.Ignored)
	}
	l.log.Infow("status report", fields...)
}

// adaptiveSleep implements the adaptive interval: short
// (floor 100ms) near the threshold, long (ceiling 1000ms) with ample
// headroom, monotonic in headroom. Grounded on
// original_source/src/daemon/service.rs::calculate_adaptive_sleep.
func (l *Loop) adaptiveSleep(sample meminfo.Sample) time.Duration {
	memHeadroom := sample.AvailableFraction()*100 - warnPercent(l.cfg.Memory)
	swapHeadroom := 100.0
	if !l.cfg.Swap.Disabled() {
		swapHeadroom = sample.SwapFreeFraction()*100 - warnPercent(l.cfg.Swap)
	}

	headroom := memHeadroom
	if swapHeadroom < headroom {
		headroom = swapHeadroom
	}

	switch {
	case headroom <= 0:
		return minAdaptiveSleep
	case headroom >= maxHeadroomPct:
		return maxAdaptiveSleep
	default:
		frac := headroom / maxHeadroomPct
		span := maxAdaptiveSleep - minAdaptiveSleep
		return minAdaptiveSleep + time.Duration(frac*float64(span))
	}
}

func warnPercent(t config.ThresholdPair) float64 {
	if t.AbsoluteKiB {
		// No natural percent headroom for an absolute-KiB threshold;
		// treat as always having ample headroom so the other
		// subsystem's percent figure drives the sleep calculation.
		return -1e18
	}
	return t.WarnPercent
}

func levelString(l killer.Level) string {
	if l == killer.Forceful {
		return "forceful"
	}
	return "graceful"
}
