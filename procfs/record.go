// Package procfs implements the Process Scanner:
// enumerating the kernel's per-process directory and extracting the
// attributes the Filter/Ranker and Killer need. Adapted from
// ProcSource.List/readStatus/readStat (proc.go).
package procfs

// State is a coarse process state, decoded from the single-letter
// state field in /proc/<pid>/stat.
type State byte

const (
	StateUnknown State = 0
	StateRunning State = 'R'
	StateSleeping State = 'S'
	StateZombie State = 'Z'
	StateOther State = '?'
)

// Record is one immutable snapshot of a candidate victim process,
// owned by the scan pass that produced it.
type Record struct {
	PID int
	PGID int
	Comm string
	Cmdline string
	UID uint32
	RSSKiB uint64
	OOMScore int
	OOMScoreAdj int
	State State
}

// Immune reports whether the kernel considers this process immune to
// OOM killing, per glossary: an adjustment of exactly -1000.
func (r Record) Immune() bool {
	return r.OOMScoreAdj == -1000
}

// DisplayCmdline mirrors the kernel's own bracket convention for
// processes with no argv (original_source/src/monitor/process.rs):
// used only for logging, never for filtering decisions.
func (r Record) DisplayCmdline() string {
	if r.Cmdline != "" {
		return r.Cmdline
	}
	return "[" + r.Comm + "]"
}
