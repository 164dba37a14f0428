// Package hoststats samples device health for the status heartbeat.
package hoststats

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const (
	mib = 1024.0 * 1024.0
	gib = 1024.0 * mib
)

// Collector reads host statistics. Individual probe failures are joined
// into the returned error; the fields that could be read are still set.
type Collector struct {
	DiskPath string
}

func NewCollector(diskPath string) *Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Collector{DiskPath: diskPath}
}

func (c *Collector) Collect(ctx context.Context) (domain.HostStats, error) {
	var (
		st   domain.HostStats
		errs []error
	)

	// Interval 0 compares against the previous call, so the first reading
	// after start is an average since boot.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else if len(pct) > 0 {
		st.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("mem: %w", err))
	} else {
		st.MemUsedMB = float64(vm.Used) / mib
		st.MemTotalMB = float64(vm.Total) / mib
	}

	if du, err := disk.UsageWithContext(ctx, c.DiskPath); err != nil {
		errs = append(errs, fmt.Errorf("disk %s: %w", c.DiskPath, err))
	} else {
		st.DiskUsedGB = float64(du.Used) / gib
		st.DiskTotalGB = float64(du.Total) / gib
	}

	if up, err := host.UptimeWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("uptime: %w", err))
	} else {
		st.UptimeSeconds = up
	}

	return st, errors.Join(errs...)
}
