package procfs_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oomguard/oomguard/procfs"
)

type fakeProc struct {
	pid int
	comm string
	state byte
	ppid, pgid int
	cmdline string // empty string simulates no cmdline (kernel thread candidate)
	noCmdlineFile bool
	uid uint32
	rssKiB uint64
	noStatusFile bool
	oomScore int
	oomScoreAdj int
	noOOMFiles bool
	exeTarget string // empty means no exe symlink
}

func buildFixture(t *testing.T, procs []fakeProc) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range procs {
		dir := filepath.Join(root, fmt.Sprintf("%d", p.pid))
		require.NoError(t, os.MkdirAll(dir, 0o755))

		stat := fmt.Sprintf("%d (%s) %c %d %d %d 0 0 0\n", p.pid, p.comm, p.state, p.ppid, p.pgid, p.pgid)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644))

		if !p.noCmdlineFile {
			cmdline := p.cmdline
			if cmdline != "" {
				cmdline = cmdline + "\x00"
			}
			require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644))
		}

		if !p.noStatusFile {
			status := fmt.Sprintf("Name:\t%s\nUid:\t%d\t%d\t%d\t%d\nVmRSS:\t%d kB\n", p.comm, p.uid, p.uid, p.uid, p.uid, p.rssKiB)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0o644))
		}

		if !p.noOOMFiles {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "oom_score"), []byte(fmt.Sprintf("%d\n", p.oomScore)), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "oom_score_adj"), []byte(fmt.Sprintf("%d\n", p.oomScoreAdj)), 0o644))
		}

		if p.exeTarget != "" {
			require.NoError(t, os.Symlink(p.exeTarget, filepath.Join(dir, "exe")))
		}
	}
	return root
}

func TestScanReturnsEligibleProcess(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 100, comm: "chrome", state: 'S', ppid: 1, pgid: 100, cmdline: "/usr/bin/chrome", uid: 1000, rssKiB: 500000, oomScore: 300, oomScoreAdj: 0, exeTarget: "/usr/bin/chrome"},
	})
	s := procfs.NewAt(root, 999)
	recs, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 100, recs[0].PID)
	require.Equal(t, "chrome", recs[0].Comm)
	require.Equal(t, uint64(500000), recs[0].RSSKiB)
	require.Equal(t, 300, recs[0].OOMScore)
}

func TestScanExcludesInit(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 1, comm: "systemd", state: 'S', ppid: 0, pgid: 1, cmdline: "/sbin/init", uid: 0, exeTarget: "/sbin/init"},
	})
	recs, err := procfs.NewAt(root, 999).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestScanExcludesSelf(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 42, comm: "oomguard", state: 'S', ppid: 1, pgid: 42, cmdline: "/usr/bin/oomguard", uid: 0, exeTarget: "/usr/bin/oomguard"},
	})
	recs, err := procfs.NewAt(root, 42).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestScanExcludesZombies(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 200, comm: "defunct", state: 'Z', ppid: 1, pgid: 200, noCmdlineFile: false, cmdline: "", uid: 1000},
	})
	recs, err := procfs.NewAt(root, 999).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestScanExcludesKernelThreads(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 5, comm: "kworker/0:1", state: 'S', ppid: 2, pgid: 5, cmdline: "", uid: 0},
	})
	recs, err := procfs.NewAt(root, 999).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestScanExcludesImmuneProcess(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 300, comm: "sshd", state: 'S', ppid: 1, pgid: 300, cmdline: "/usr/sbin/sshd", uid: 0, oomScore: 0, oomScoreAdj: -1000, exeTarget: "/usr/sbin/sshd"},
	})
	recs, err := procfs.NewAt(root, 999).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestScanDropsVanishedProcessSilently(t *testing.T) {
	root := buildFixture(t, []fakeProc{
		{pid: 400, comm: "flaky", state: 'S', ppid: 1, pgid: 400, uid: 1000, noCmdlineFile: true},
	})
	recs, err := procfs.NewAt(root, 999).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestScanIgnoresNonPidEntries(t *testing.T) {
	root := buildFixture(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bus"), 0o755))
	recs, err := procfs.NewAt(root, 999).Scan()
	require.NoError(t, err)
	require.Empty(t, recs)
}
