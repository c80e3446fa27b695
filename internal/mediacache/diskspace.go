package mediacache

import "golang.org/x/sys/unix"

// diskSpace reports available and total bytes on the filesystem holding path.
func diskSpace(path string) (free, total uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize) //nolint:gosec
	return st.Bavail * bsize, st.Blocks * bsize, nil
}
