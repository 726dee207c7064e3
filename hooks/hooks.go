// Package hooks implements the Hook Runner: validating
// and invoking pre/post kill scripts with a sanitized, minimal
// environment. Grounded on original_source/src/notify/hooks.rs
// (validation) and notify/mod.rs (sanitize + exec).
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oomguard/oomguard/procfs"
)

// Timeout bounds how long a hook may run before it is killed.
const Timeout = 5 * time.Second

// maxEnvValueLen truncates injected values to keep a malicious
// cmdline from blowing up the child's environment.
const maxEnvValueLen = 256

// shellMetacharacters are replaced with underscores before injection.
var shellMetacharacters = map[rune]bool{
	';': true, '&': true, '|': true, '$': true, '`': true,
	'\\': true, '"': true, '\'': true, '\n': true,
}

// Runner invokes hook scripts. It holds no per-invocation state and
// is safe to share across ticks.
type Runner struct {
	logf func(format string, args ...any)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogf installs a logging sink; nil disables logging.
func WithLogf(logf func(string, ...any)) Option {
	return func(r *Runner) { r.logf = logf }
}

// New returns a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logf: func(string, ...any) {}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates scriptPath and, if it passes, executes it synchronously
// with a sanitized environment describing rec. Any validation failure
// or execution error is logged and swallowed: hook failure is never
// fatal to the tick.
func (r *Runner) Run(scriptPath string, rec procfs.Record) {
	if scriptPath == "" {
		return
	}
	if err := Validate(scriptPath); err != nil {
		r.logf("skipping hook %s: %v", scriptPath, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, scriptPath)
	cmd.Env = hookEnv(rec)

	if err := cmd.Run(); err != nil {
		r.logf("hook %s failed: %v", scriptPath, err)
		return
	}
}

// Validate checks the five properties a hook must satisfy before it
// may be invoked: absolute path, exists, regular file (not a
// symlink), owned by root, not group- or world-writable.
func Validate(scriptPath string) error {
	if !filepath.IsAbs(scriptPath) {
		return fmt.Errorf("path %q is not absolute", scriptPath)
	}
	info, err := os.Lstat(scriptPath)
	if err != nil {
		return fmt.Errorf("stat %q: %w", scriptPath, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%q is a symlink", scriptPath)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file", scriptPath)
	}
	if err := checkOwnerAndMode(scriptPath, info); err != nil {
		return err
	}
	return nil
}

// hookEnv builds the minimal, sanitized environment passed to a hook
// script: a fixed PATH plus the victim's identifying attributes.
func hookEnv(rec procfs.Record) []string {
	return []string{
		"PATH=/usr/bin:/bin",
		"OOM_GUARD_PID=" + sanitize(strconv.Itoa(rec.PID)),
		"OOM_GUARD_NAME=" + sanitize(rec.Comm),
		"OOM_GUARD_CMDLINE=" + sanitize(rec.Cmdline),
		"OOM_GUARD_UID=" + sanitize(strconv.FormatUint(uint64(rec.UID), 10)),
		"OOM_GUARD_RSS=" + sanitize(strconv.FormatUint(rec.RSSKiB, 10)),
		"OOM_GUARD_SCORE=" + sanitize(strconv.Itoa(rec.OOMScore)),
	}
}

// sanitize truncates to 256 bytes and replaces shell metacharacters
// with underscores. Hooks are invoked without a shell, but
// OOM_GUARD_CMDLINE can carry arbitrary bytes from an
// attacker-controlled process, so the value is still scrubbed before
// it reaches the child's environment.
func sanitize(s string) string {
	if len(s) > maxEnvValueLen {
		s = s[:maxEnvValueLen]
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if shellMetacharacters[r] || r < 0x20 {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
