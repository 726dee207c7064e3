package procfs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const defaultRoot = "/proc"

// Scanner enumerates /proc (or a fixture root, for tests) and
// extracts one Record per eligible process.
type Scanner struct {
	root string
	selfPID int
}

// New returns a Scanner reading the real /proc filesystem. selfPID is
// the daemon's own PID, always excluded from candidates.
func New(selfPID int) *Scanner {
	return &Scanner{root: defaultRoot, selfPID: selfPID}
}

// NewAt returns a Scanner rooted at an arbitrary fixture directory.
func NewAt(root string, selfPID int) *Scanner {
	return &Scanner{root: root, selfPID: selfPID}
}

// Scan enumerates every process directory once and returns the
// eligible Records. A process that disappears mid-read is dropped
// silently, not treated as an error; the only error this returns is
// a failure to read /proc itself.
func (s *Scanner) Scan() ([]Record, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.root, err)
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		rec, ok := s.readOne(pid)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

var statRe = regexp.MustCompile(`^(\d+) \((.*)\) (\S) (-?\d+) (-?\d+) `)

// readOne reads and validates one process. Returning ok=false means
// "silently drop": either the process vanished mid-read (routine) or
// it is categorically ineligible (init, self, kernel thread, zombie,
// or declared immune).
func (s *Scanner) readOne(pid int) (Record, bool) {
	if pid == 1 || pid == s.selfPID {
		return Record{}, false
	}

	statBytes, err := os.ReadFile(fmt.Sprintf("%s/%d/stat", s.root, pid))
	if err != nil {
		return Record{}, false
	}
	m := statRe.FindSubmatch(statBytes)
	if len(m) < 6 {
		return Record{}, false
	}
	comm := string(m[2])
	state := State(m[3][0])
	if state == 'Z' {
		return Record{}, false
	}
	pgid, err := strconv.Atoi(string(m[5]))
	if err != nil {
		return Record{}, false
	}

	cmdlineBytes, err := os.ReadFile(fmt.Sprintf("%s/%d/cmdline", s.root, pid))
	if err != nil {
		// The process is very likely gone; drop it rather than error.
		return Record{}, false
	}
	cmdline := strings.TrimRight(strings.ReplaceAll(string(cmdlineBytes), "\x00", " "), " ")

	kernelThread := cmdline == "" && !hasExe(s.root, pid)
	if kernelThread {
		return Record{}, false
	}

	uid, rssKiB, ok := readStatus(fmt.Sprintf("%s/%d/status", s.root, pid))
	if !ok {
		return Record{}, false
	}

	oomScore, ok := readInt(fmt.Sprintf("%s/%d/oom_score", s.root, pid))
	if !ok {
		return Record{}, false
	}
	oomScoreAdj, ok := readInt(fmt.Sprintf("%s/%d/oom_score_adj", s.root, pid))
	if !ok {
		return Record{}, false
	}
	if oomScoreAdj == -1000 {
		// Explicitly declared immune, never a candidate.
		return Record{}, false
	}

	return Record{
		PID: pid,
		PGID: pgid,
		Comm: comm,
		Cmdline: cmdline,
		UID: uid,
		RSSKiB: rssKiB,
		OOMScore: oomScore,
		OOMScoreAdj: oomScoreAdj,
		State: state,
	}, true
}

func hasExe(root string, pid int) bool {
	target, err := os.Readlink(fmt.Sprintf("%s/%d/exe", root, pid))
	return err == nil && target != ""
}

func readInt(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// readStatus extracts Uid and VmRSS from /proc/<pid>/status, adapted
// from readStatus (proc.go) and generalized to also capture the real
// UID a Record requires.
func readStatus(path string) (uid uint32, rssKiB uint64, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "Uid":
			fields := strings.Fields(val)
			if len(fields) > 0 {
				if n, err := strconv.ParseUint(fields[0], 10, 32); err == nil {
					uid = uint32(n)
				}
			}
		case "VmRSS":
			fields := strings.Fields(val)
			if len(fields) > 0 {
				if n, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
					rssKiB = n
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, false
	}
	// A process with no resident memory left (about to exit) reports no
	// VmRSS line at all; treat that as 0 KiB rather than a read failure.
	return uid, rssKiB, true
}
