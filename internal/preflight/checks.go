package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"peiyin/internal/config"
	"peiyin/internal/deps"
	"peiyin/internal/logging"
)

// MinFreeRatio is the fraction of the filesystem that must stay free before
// the free-space check fails. Cached artifacts are never evicted, so this is
// the operator's only early warning.
const MinFreeRatio = 0.10

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace fails when less than minRatio of the filesystem holding path
// is available.
func CheckFreeSpace(name, path string, minRatio float64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	bsize := uint64(st.Bsize) //nolint:gosec
	free, total := st.Bavail*bsize, st.Blocks*bsize
	if total == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (size unknown)", path)}
	}
	ratio := float64(free) / float64(total)
	detail := fmt.Sprintf("%s free of %s (%.0f%%)", logging.FormatBytes(int64(free)), logging.FormatBytes(int64(total)), ratio*100)
	return Result{Name: name, Passed: ratio >= minRatio, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries named in cfg. Both the
// daemon and the CLI status command use it so the requirement list lives in
// one place.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return deps.Check(cfg)
}
