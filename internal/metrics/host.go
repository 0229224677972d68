package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/smazurov/videosqueeze/internal/logging"
)

// hostTimeout bounds one scrape of the host readings.
const hostTimeout = 2 * time.Second

// HostCollector reports the host resources a transcode competes for: CPU,
// memory, load and free space where uploads are staged. Readings are taken
// at scrape time.
type HostCollector struct {
	workDir func() string

	cpuPercent  *prometheus.Desc
	memUsed     *prometheus.Desc
	memTotal    *prometheus.Desc
	load1       *prometheus.Desc
	load5       *prometheus.Desc
	diskFree    *prometheus.Desc
	diskUsedPct *prometheus.Desc
}

// NewHostCollector returns a collector. workDir is asked for the staging
// directory on every scrape; an empty result skips the disk readings.
func NewHostCollector(workDir func() string) *HostCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "host", name), help, labels, nil)
	}
	if workDir == nil {
		workDir = func() string { return "" }
	}
	return &HostCollector{
		workDir:     workDir,
		cpuPercent:  desc("cpu_percent", "CPU utilisation since the previous scrape"),
		memUsed:     desc("memory_used_bytes", "Memory in use"),
		memTotal:    desc("memory_total_bytes", "Installed memory"),
		load1:       desc("load1", "One minute load average"),
		load5:       desc("load5", "Five minute load average"),
		diskFree:    desc("workdir_free_bytes", "Free space on the engine working directory's filesystem", "path"),
		diskUsedPct: desc("workdir_used_percent", "Used space on the engine working directory's filesystem", "path"),
	}
}

// Describe implements prometheus.Collector.
func (c *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuPercent
	ch <- c.memUsed
	ch <- c.memTotal
	ch <- c.load1
	ch <- c.load5
	ch <- c.diskFree
	ch <- c.diskUsedPct
}

// Collect implements prometheus.Collector. Readings the platform does not
// support are left out.
func (c *HostCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), hostTimeout)
	defer cancel()
	logger := logging.GetLogger("metrics")

	// Zero interval compares against the previous call.
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		ch <- prometheus.MustNewConstMetric(c.cpuPercent, prometheus.GaugeValue, pcts[0])
	} else if err != nil {
		logger.Debug("CPU reading failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.memUsed, prometheus.GaugeValue, float64(vm.Used))
		ch <- prometheus.MustNewConstMetric(c.memTotal, prometheus.GaugeValue, float64(vm.Total))
	} else {
		logger.Debug("Memory reading failed", "error", err)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.load1, prometheus.GaugeValue, avg.Load1)
		ch <- prometheus.MustNewConstMetric(c.load5, prometheus.GaugeValue, avg.Load5)
	} else {
		logger.Debug("Load reading failed", "error", err)
	}

	if dir := c.workDir(); dir != "" {
		if usage, err := disk.UsageWithContext(ctx, dir); err == nil {
			ch <- prometheus.MustNewConstMetric(c.diskFree, prometheus.GaugeValue, float64(usage.Free), dir)
			ch <- prometheus.MustNewConstMetric(c.diskUsedPct, prometheus.GaugeValue, usage.UsedPercent, dir)
		} else {
			logger.Debug("Disk reading failed", "path", dir, "error", err)
		}
	}
}

var _ prometheus.Collector = (*HostCollector)(nil)
