package killer

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// mreleaseSyscallNumber returns the process_mrelease syscall number
// for the running architecture, or (0, false) when unknown; callers
// degrade gracefully on architectures/kernels lacking this facility.
func mreleaseSyscallNumber() (nr uintptr, ok bool) {
	switch runtime.GOARCH {
	case "amd64":
		return sysProcessMreleaseAMD64, true
	case "arm64":
		return sysProcessMreleaseARM64, true
	default:
		return 0, false
	}
}

// tryPidfdOpen acquires a stable handle to pid (Linux 5.3+) that
// stays valid for the lifetime of the returned fd even if the PID is
// reused. Failure (old kernel or the process already gone) yields
// ok=false and callers fall back to PID-based signalling with the
// existence check.
func tryPidfdOpen(pid int) (fd int, ok bool) {
	fd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return 0, false
	}
	return fd, true
}

// tryProcessMrelease requests synchronous memory reclaim against a
// pidfd (Linux 5.14+): this closes the kill-storm race by returning
// the victim's pages
// to the free pool before the next tick samples again. Best-effort:
// failure (old kernel, unsupported arch, already reaped) is silently
// ignored, matching original_source/src/killer/signals.rs. No wrapper
// for this syscall exists in golang.org/x/sys/unix, so it is invoked
// directly.
func tryProcessMrelease(pidfd int) {
	nr, known := mreleaseSyscallNumber()
	if !known {
		return
	}
	unix.Syscall(nr, uintptr(pidfd), 0, 0)
}
