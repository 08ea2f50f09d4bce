// Package monitoring provides metrics collection for ranking jobs.
package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// JobMetrics represents the measurements of a single ranking job.
type JobMetrics struct {
	Job        string        `json:"job"`
	Duration   time.Duration `json:"duration"`
	MemoryUsed int64         `json:"memory_used"`
	RowsRead   int64         `json:"rows_read"`
	AxisValues int           `json:"axis_values"`
	Records    int           `json:"records"`
	Excluded   int           `json:"excluded"`
	Unmatched  int           `json:"unmatched"`
	Failed     bool          `json:"failed"`
}

// MetricsCollector collects and stores metrics for ranking jobs.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []JobMetrics
	enabled bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]JobMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordJob executes fn and records its metrics. fn fills in the counters
// it knows about; duration, memory and failure are measured here.
func (mc *MetricsCollector) RecordJob(job string, fn func(*JobMetrics) error) error {
	m := JobMetrics{Job: job}
	if !mc.IsEnabled() {
		return fn(&m)
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := time.Now()

	err := fn(&m)

	m.Duration = time.Since(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)
	m.MemoryUsed = int64(memAfter.TotalAlloc - memBefore.TotalAlloc) //nolint:gosec // TotalAlloc only grows
	m.Failed = err != nil

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, m)
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []JobMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]JobMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var summary MetricsSummary
	for _, m := range mc.metrics {
		summary.TotalJobs++
		summary.TotalDuration += m.Duration
		summary.TotalMemory += m.MemoryUsed
		summary.TotalRows += m.RowsRead
		summary.TotalRecords += m.Records
		summary.TotalExcluded += m.Excluded
		if m.Failed {
			summary.FailedJobs++
		}
	}
	summary.AverageDuration = summary.TotalDuration / time.Duration(summary.TotalJobs)

	return summary
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalJobs       int           `json:"total_jobs"`
	FailedJobs      int           `json:"failed_jobs"`
	TotalDuration   time.Duration `json:"total_duration"`
	TotalMemory     int64         `json:"total_memory"`
	TotalRows       int64         `json:"total_rows"`
	TotalRecords    int           `json:"total_records"`
	TotalExcluded   int           `json:"total_excluded"`
	AverageDuration time.Duration `json:"average_duration"`
}
