//nolint:testpackage // requires internal access to unexported fields
package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	t.Run("create disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		assert.NotNil(t, collector)
		assert.False(t, collector.IsEnabled())
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record job with disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)

		callCount := 0
		err := collector.RecordJob("weekday-sales", func(m *JobMetrics) error {
			callCount++
			m.Records = 3
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record job with enabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		err := collector.RecordJob("weekday-sales", func(m *JobMetrics) error {
			time.Sleep(2 * time.Millisecond)
			m.RowsRead = 120
			m.AxisValues = 7
			m.Records = 70
			m.Excluded = 4
			return nil
		})
		require.NoError(t, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.Equal(t, "weekday-sales", metrics[0].Job)
		assert.GreaterOrEqual(t, metrics[0].Duration, 2*time.Millisecond)
		assert.Equal(t, int64(120), metrics[0].RowsRead)
		assert.Equal(t, 70, metrics[0].Records)
		assert.False(t, metrics[0].Failed)
	})

	t.Run("failed job is recorded and error returned", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		boom := errors.New("boom")

		err := collector.RecordJob("broken", func(*JobMetrics) error { return boom })
		require.ErrorIs(t, err, boom)
		assert.True(t, collector.GetMetrics()[0].Failed)
	})

	t.Run("toggle and clear", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		_ = collector.RecordJob("a", func(*JobMetrics) error { return nil })

		collector.SetEnabled(false)
		_ = collector.RecordJob("b", func(*JobMetrics) error { return nil })
		assert.Len(t, collector.GetMetrics(), 1)

		collector.Clear()
		assert.Empty(t, collector.metrics)
	})
}

func TestMetricsSummary(t *testing.T) {
	collector := NewMetricsCollector(true)
	assert.Equal(t, MetricsSummary{}, collector.GetSummary())

	_ = collector.RecordJob("a", func(m *JobMetrics) error {
		m.RowsRead, m.Records, m.Excluded = 10, 2, 1
		return nil
	})
	_ = collector.RecordJob("b", func(m *JobMetrics) error {
		m.RowsRead, m.Records = 5, 3
		return errors.New("failed")
	})

	summary := collector.GetSummary()
	assert.Equal(t, 2, summary.TotalJobs)
	assert.Equal(t, 1, summary.FailedJobs)
	assert.Equal(t, int64(15), summary.TotalRows)
	assert.Equal(t, 5, summary.TotalRecords)
	assert.Equal(t, 1, summary.TotalExcluded)
	assert.Equal(t, summary.TotalDuration/2, summary.AverageDuration)
}

func TestMetricsCollectorConcurrent(t *testing.T) {
	collector := NewMetricsCollector(true)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = collector.RecordJob("job", func(*JobMetrics) error { return nil })
		}()
	}
	wg.Wait()

	assert.Len(t, collector.GetMetrics(), 10)
}
