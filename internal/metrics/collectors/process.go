// Package collectors exposes encoder resource usage to Prometheus.
package collectors

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// PIDSource returns the pid of the running encoder, or 0 when none is running.
type PIDSource func() int

// ProcessCollector reports CPU and memory of the current encoder process.
// Nothing is emitted while no encoder runs.
type ProcessCollector struct {
	pid    PIDSource
	logger *slog.Logger

	cpuSeconds *prometheus.Desc
	rssBytes   *prometheus.Desc
	threads    *prometheus.Desc
}

// NewProcessCollector creates a collector that samples the process returned by pid.
func NewProcessCollector(pid PIDSource, logger *slog.Logger) *ProcessCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessCollector{
		pid:    pid,
		logger: logger,
		cpuSeconds: prometheus.NewDesc(
			"restreamer_encoder_cpu_seconds_total",
			"User and system CPU time of the encoder process",
			nil, nil),
		rssBytes: prometheus.NewDesc(
			"restreamer_encoder_resident_memory_bytes",
			"Resident set size of the encoder process",
			nil, nil),
		threads: prometheus.NewDesc(
			"restreamer_encoder_threads",
			"OS threads of the encoder process",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *ProcessCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuSeconds
	ch <- c.rssBytes
	ch <- c.threads
}

// Collect implements prometheus.Collector.
func (c *ProcessCollector) Collect(ch chan<- prometheus.Metric) {
	pid := c.pid()
	if pid <= 0 {
		return
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		// Exited between the pid lookup and the sample.
		c.logger.Debug("Encoder process not found", "pid", pid, "error", err)
		return
	}

	if times, err := proc.Times(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpuSeconds, prometheus.CounterValue, times.User+times.System)
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.rssBytes, prometheus.GaugeValue, float64(mem.RSS))
	}
	if n, err := proc.NumThreads(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.threads, prometheus.GaugeValue, float64(n))
	}
}
