package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/students", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/students", 200, 40*time.Millisecond)
	m.ObserveDBQuery("students.find_all", 10*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveCacheWrite(time.Millisecond)
	m.RecordStorageError("STORAGE_UNAVAILABLE")
	m.ObserveAggregatedRows(3)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snap.StorageErrors)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "roster_storage_errors_total{code=\"STORAGE_UNAVAILABLE\"} 1")
	assert.Contains(t, rec.Body.String(), "roster_db_query_duration_seconds_count{query=\"students.find_all\"} 1")
	assert.Contains(t, rec.Body.String(), "roster_cache_lookup_seconds_count 2")
	assert.Contains(t, rec.Body.String(), "roster_cache_write_seconds_count 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveDBQuery("x", time.Second)
	m.RecordStorageError("x")
	assert.Zero(t, m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, rec.Code)
}

type failingCache struct{ memoryCache }

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis: connection pool timeout")
}

func TestCacheServiceDisabledAndFailures(t *testing.T) {
	disabled := NewCacheService(newMemoryCache(), nil, 0, nil, false)
	hit, err := disabled.Get(context.Background(), "k", new(string))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, disabled.Set(context.Background(), "k", "v", 0))

	var nilService *CacheService
	assert.False(t, nilService.Enabled())

	broken := NewCacheService(&failingCache{}, NewMetricsService(), time.Minute, zap.NewNop(), true)
	hit, err = broken.Get(context.Background(), "k", new(string))
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "aggregated:courseNames:DESC:name", Key("aggregated", "courseNames", " DESC", "name"))
}
