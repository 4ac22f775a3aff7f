package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// SysHealth represents real-time process and host metrics.
type SysHealth struct {
	AllocMB      uint64  `json:"alloc_mb"`
	TotalAllocMB uint64  `json:"total_alloc_mb"`
	SysMB        uint64  `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
	Goroutines   int     `json:"goroutines"`
	DataDiskSize string  `json:"data_disk_size"`
	HostMemUsed  float64 `json:"host_mem_used_percent"`
	HostCPUUsed  float64 `json:"host_cpu_used_percent"`
	DiskFree     string  `json:"disk_free"`
}

// GetSysHealth collects real-time health data. Host figures are left at zero
// when the platform does not expose them.
func GetSysHealth(ctx context.Context, dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h := SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DataDiskSize: formatBytes(dirSize(dataPath)),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.HostMemUsed = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		h.HostCPUUsed = pct[0]
	}
	if usage, err := disk.UsageWithContext(ctx, existingDir(dataPath)); err == nil {
		h.DiskFree = formatBytes(int64(usage.Free))
	}
	return h
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// existingDir walks up from path to the nearest directory that exists.
func existingDir(path string) string {
	for p := path; ; p = filepath.Dir(p) {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
		if parent := filepath.Dir(p); parent == p {
			return p
		}
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
