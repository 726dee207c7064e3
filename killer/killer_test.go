package killer_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oomguard/oomguard/killer"
	"github.com/oomguard/oomguard/procfs"
)

func fixtureRoot(t *testing.T, pid, oomScoreAdj int) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, fmt.Sprintf("%d", pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oom_score_adj"), []byte(fmt.Sprintf("%d\n", oomScoreAdj)), 0o644))
	return root
}

func TestEnactDryRunNeverSignals(t *testing.T) {
	pid := os.Getpid()
	root := fixtureRoot(t, pid, 0)
	k := killer.New(root, killer.WithDryRun(true))

	res := k.Enact(procfs.Record{PID: pid, Comm: "self"}, killer.Graceful)
	require.Equal(t, killer.Refused, res.Outcome)
}

func TestEnactAbortsOnProtectedRace(t *testing.T) {
	pid := os.Getpid()
	root := fixtureRoot(t, pid, -1000)
	k := killer.New(root)

	res := k.Enact(procfs.Record{PID: pid, Comm: "self"}, killer.Forceful)
	require.Equal(t, killer.ProtectedRace, res.Outcome)
}

func TestEnactAlreadyGoneForNonexistentPID(t *testing.T) {
	const missingPID = 999999
	root := fixtureRoot(t, missingPID, 0)
	k := killer.New(root)

	res := k.Enact(procfs.Record{PID: missingPID, Comm: "ghost"}, killer.Graceful)
	require.Equal(t, killer.AlreadyGone, res.Outcome)
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "killed", killer.Killed.String())
	require.Equal(t, "already-gone", killer.AlreadyGone.String())
	require.Equal(t, "protected-race", killer.ProtectedRace.String())
	require.Equal(t, "refused", killer.Refused.String())
}
