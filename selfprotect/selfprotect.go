// Package selfprotect implements the daemon's own OOM immunity:
// memory locking, OOM-score adjustment, and an optional priority
// bump. Grounded on original_source/src/daemon/service.rs's
// set_daemon_priority, adapted from libc calls to golang.org/x/sys/unix.
package selfprotect

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Result reports which self-protection steps succeeded, for a single
// startup log line; every failure here is a warning, never fatal.
type Result struct {
	Locked bool
	LockErr error
	Immunized bool
	ImmunizeErr error
	Prioritized bool
	PriorityErr error
}

// Apply pins the daemon's address space, marks it immune to the
// kernel OOM killer, and, if priority is non-nil, sets its nice value
// to *priority. Called once at startup.
func Apply(priority *int) Result {
	var res Result

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		res.LockErr = fmt.Errorf("mlockall: %w", err)
	} else {
		res.Locked = true
	}

	if err := os.WriteFile("/proc/self/oom_score_adj", []byte("-1000"), 0o644); err != nil {
		res.ImmunizeErr = fmt.Errorf("writing oom_score_adj: %w", err)
	} else {
		res.Immunized = true
	}

	if priority != nil {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, *priority); err != nil {
			res.PriorityErr = fmt.Errorf("setpriority(%d): %w", *priority, err)
		} else {
			res.Prioritized = true
		}
	}

	return res
}
