package hooks

import (
	"fmt"
	"os"
	"syscall"
)

// checkOwnerAndMode enforces the ownership and writability rules a
// hook script must meet: owned by root, not group- or world-writable.
func checkOwnerAndMode(path string, info os.FileInfo) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("cannot determine ownership of %q", path)
	}
	if stat.Uid != 0 {
		return fmt.Errorf("%q is not owned by root (uid %d)", path, stat.Uid)
	}
	if info.Mode().Perm()&0o022 != 0 {
		return fmt.Errorf("%q is group- or world-writable (mode %o)", path, info.Mode().Perm())
	}
	return nil
}
