package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the free-space floor below which a conversion is unlikely
// to fit its segment output.
const minFreeBytes = 1 << 30 // 1 GiB

// CheckFreeSpace reports the free bytes on the volume holding path and
// whether that clears the floor. Stat failures return an error so callers
// can decide to warn rather than block.
func CheckFreeSpace(path string) (uint64, bool, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, false, fmt.Errorf("statfs %q: %w", path, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	return free, free >= minFreeBytes, nil
}
