package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nutricare-ph/nutricare-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest("GET", "/api/v1/analytics/distribution", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/analytics/progress", 200, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveReportExport(models.ReportTypeDistribution, "finished", 100*time.Millisecond)
	m.ObserveReportExport(models.ReportTypeProgress, "failed", 300*time.Millisecond)
	m.RecordBulkOutcomes(models.BulkDeactivate, "success", 3)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.5)
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 1e-9)
	assert.Equal(t, uint64(2), snap.ReportExports)
	assert.InDelta(t, 200, snap.AverageExportDurationMs, 0.5)
	assert.Equal(t, uint64(3), snap.BulkItemsProcessed)
	assert.False(t, snap.GeneratedAt.IsZero())
}

func TestMetricsServiceNilReceiverIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveReportExport(models.ReportTypePatients, "finished", time.Millisecond)
	m.RecordBulkOutcomes(models.BulkDelete, "failed", 1)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())
	assert.NotNil(t, m.Handler())
}
