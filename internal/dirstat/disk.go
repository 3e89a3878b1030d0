package dirstat

import (
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskStats describes the filesystem holding a path, in bytes.
type DiskStats struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// DiskUsageFunc returns the statistics of the filesystem holding path.
type DiskUsageFunc func(path string) (DiskStats, error)

// HostDiskUsage reads filesystem statistics from the operating system.
func HostDiskUsage(path string) (DiskStats, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskStats{}, err
	}

	return DiskStats{Total: usage.Total, Used: usage.Used, Free: usage.Free}, nil
}
