// Command oomguard is a privileged userspace daemon that watches
// system memory and swap pressure and terminates processes before the
// kernel OOM killer has to. Adapted from main.go's flag-parse ->
// setup -> run -> exit shape.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oomguard/oomguard/config"
	"github.com/oomguard/oomguard/selfprotect"
	"github.com/oomguard/oomguard/supervisor"
)

// Exit codes.
const (
	exitOK = 0
	exitConfigError = 1
	exitPermissionErr = 2
	exitStartupFailure = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "oomguard: configuration error: %v\n", err)
		return exitConfigError
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oomguard: failed to initialize logger: %v\n", err)
		return exitStartupFailure
	}
	defer log.Sync() //nolint:errcheck
	sugar := log.Sugar()

	if os.Geteuid() != 0 {
		sugar.Warn("not running as root: process termination and self-protection will likely fail")
	}

	if err := checkProcAccess(); err != nil {
		sugar.Errorw("cannot read /proc", "error", err)
		return exitPermissionErr
	}

	if cfg.SelfProtect {
		res := selfprotect.Apply(cfg.Priority)
		logSelfProtect(sugar, res)
		if !res.Locked && !res.Immunized {
			sugar.Warn("self-protection largely unavailable; the daemon itself is not immune to the OOM killer")
		}
	}

	sugar.Infow("oomguard starting",
		"memory_threshold", cfg.Memory.String(),
		"swap_threshold", cfg.Swap.String(),
		"interval", cfg.CheckInterval(),
		"dry_run", cfg.DryRun,
		"notify", cfg.Notify,
	)

	loop := supervisor.New(cfg, os.Getpid(), sugar)
	if err := loop.Run(context.Background()); err != nil {
		sugar.Errorw("supervisor loop exited with error", "error", err)
		return exitStartupFailure
	}

	return exitOK
}

// checkProcAccess fails fast when /proc itself is unreadable, rather
// than letting the supervisor loop retry a permission error forever.
func checkProcAccess() error {
	if _, err := os.ReadDir("/proc"); err != nil {
		return err
	}
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return err
	}
	return f.Close()
}

func newLogger(debug bool) (*zap.Logger, error) {
	var zc zap.Config
	if debug {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return zc.Build()
}

func logSelfProtect(log *zap.SugaredLogger, res selfprotect.Result) {
	if res.Locked {
		log.Debug("mlockall succeeded")
	} else {
		log.Warnw("mlockall failed", "error", res.LockErr)
	}
	if res.Immunized {
		log.Debug("oom_score_adj set to -1000")
	} else {
		log.Warnw("failed to set oom_score_adj", "error", res.ImmunizeErr)
	}
	if res.PriorityErr != nil {
		log.Warnw("failed to set priority", "error", res.PriorityErr)
	} else if res.Prioritized {
		log.Debug("priority set")
	}
}
