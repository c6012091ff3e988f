// Package resource runs disk-space and memory preflight checks before
// operations that write large files (bake renders, autosave snapshots)
// or hold substantial buffers in memory, using gopsutil for a
// cross-platform view of the host.
package resource

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
)

// Minimum free space, in megabytes, required for a given operation kind
// before it is allowed to proceed.
const (
	MinDiskSpaceBakeMB     = 500
	MinDiskSpaceAutosaveMB = 50
	MinDiskSpaceExportMB   = 200
)

// Snapshot captures disk and memory headroom at a point in time.
type Snapshot struct {
	DiskTotalBytes     uint64
	DiskAvailableBytes uint64
	DiskUsedPercent    float64

	MemTotalBytes     uint64
	MemAvailableBytes uint64
	MemUsedPercent    float64

	ProcessRSSBytes uint64
	GoroutineCount  int
}

// Capture reads disk usage for the partition backing path and current
// system/process memory stats.
func Capture(path string) (Snapshot, error) {
	var snap Snapshot

	diskUsage, err := disk.Usage(path)
	if err != nil {
		return snap, nerrors.New(nerrors.KindGeneric, err).Context("path", path).Build()
	}
	snap.DiskTotalBytes = diskUsage.Total
	snap.DiskAvailableBytes = diskUsage.Free
	snap.DiskUsedPercent = diskUsage.UsedPercent

	vm, err := mem.VirtualMemory()
	if err != nil {
		return snap, nerrors.New(nerrors.KindGeneric, err).Build()
	}
	snap.MemTotalBytes = vm.Total
	snap.MemAvailableBytes = vm.Available
	snap.MemUsedPercent = vm.UsedPercent

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			snap.ProcessRSSBytes = memInfo.RSS
		}
	}
	snap.GoroutineCount = runtime.NumGoroutine()

	return snap, nil
}

// CheckDiskSpace verifies path's partition has at least requiredMB of
// free space, returning an InsufficientDiskSpace error otherwise.
func CheckDiskSpace(path string, requiredMB uint64) error {
	snap, err := Capture(path)
	if err != nil {
		return err
	}
	requiredBytes := requiredMB * 1024 * 1024
	if snap.DiskAvailableBytes < requiredBytes {
		return nerrors.Newf(nerrors.KindInsufficientDiskSpace, "need %d MB free, have %d MB", requiredMB, snap.DiskAvailableBytes/1024/1024).
			Context("path", path).
			Context("required_mb", requiredMB).
			Context("available_mb", snap.DiskAvailableBytes/1024/1024).
			Build()
	}
	return nil
}

// CheckMemory verifies the system has at least requiredMB of available
// memory, returning an OutOfMemory error otherwise. Intended as a
// preflight before allocating a large render buffer.
func CheckMemory(requiredMB uint64) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	requiredBytes := requiredMB * 1024 * 1024
	if vm.Available < requiredBytes {
		return nerrors.Newf(nerrors.KindOutOfMemory, "need %d MB available, have %d MB", requiredMB, vm.Available/1024/1024).Build()
	}
	return nil
}
