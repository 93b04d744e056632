// Package sysstats 收集本进程、ffmpeg 子进程以及缓存目录所在磁盘的使用情况
package sysstats

import (
	"context"
	"errors"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/process"
)

type Stats struct {
	Runtime  RuntimeStats   `json:"runtime"`
	Self     *ProcessStats  `json:"self,omitempty"`
	Children []ProcessStats `json:"children"`
	Disk     *DiskStats     `json:"disk,omitempty"`
}

// RuntimeStats Go 运行时内存统计
type RuntimeStats struct {
	Alloc      uint64 `json:"alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

type ProcessStats struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name"`
	RSS        uint64 `json:"rss"`
	VMS        uint64 `json:"vms"`
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
}

type DiskStats struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

func runtimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		Alloc:      m.Alloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

// processStats IO 计数在部分系统上需要额外权限，读取失败时保留为 0
func processStats(ctx context.Context, p *process.Process) (*ProcessStats, error) {
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	name, _ := p.NameWithContext(ctx)
	s := &ProcessStats{
		PID:  p.Pid,
		Name: name,
		RSS:  mem.RSS,
		VMS:  mem.VMS,
	}
	if io, err := p.IOCountersWithContext(ctx); err == nil {
		s.ReadBytes = io.ReadBytes
		s.WriteBytes = io.WriteBytes
	}
	return s, nil
}

func diskStats(ctx context.Context, path string) (*DiskStats, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, err
	}
	return &DiskStats{
		Path:        path,
		Total:       u.Total,
		Free:        u.Free,
		Used:        u.Used,
		UsedPercent: u.UsedPercent,
	}, nil
}

// Collect 收集统计信息，path 为空时不统计磁盘。
// 磁盘与子进程读取失败时忽略，只有本进程信息无法读取时返回错误。
func Collect(ctx context.Context, path string) (*Stats, error) {
	stats := &Stats{
		Runtime:  runtimeStats(),
		Children: make([]ProcessStats, 0),
	}
	if path != "" {
		if d, err := diskStats(ctx, path); err == nil {
			stats.Disk = d
		}
	}

	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	if stats.Self, err = processStats(ctx, self); err != nil {
		return nil, err
	}
	children, err := self.ChildrenWithContext(ctx)
	if err != nil && !errors.Is(err, process.ErrorNoChildren) {
		return stats, nil
	}
	for _, c := range children {
		if s, err := processStats(ctx, c); err == nil {
			stats.Children = append(stats.Children, *s)
		}
	}
	return stats, nil
}
