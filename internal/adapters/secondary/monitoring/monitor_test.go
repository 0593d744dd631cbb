package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

func TestMonitor_RecordGeneration(t *testing.T) {
	t.Run("counts per strategy", func(t *testing.T) {
		monitor := NewMonitor()

		monitor.RecordGeneration(entities.StrategyAI, 100*time.Millisecond, 80)
		monitor.RecordGeneration(entities.StrategyFallback, 100*time.Millisecond, 50)
		monitor.RecordGeneration(entities.StrategyHealed, 100*time.Millisecond, 65)

		snap := monitor.Snapshot()
		assert.Equal(t, int64(3), snap.Generations)
		assert.Equal(t, int64(1), snap.AIGenerations)
		assert.Equal(t, int64(1), snap.FallbackGenerations)
		assert.Equal(t, int64(1), snap.HealedGenerations)
		assert.NotZero(t, snap.LastActivity)
	})

	t.Run("tracks moving average of duration", func(t *testing.T) {
		monitor := NewMonitor()

		first := 100 * time.Millisecond
		monitor.RecordGeneration(entities.StrategyAI, first, 80)
		assert.Equal(t, first, monitor.Snapshot().AvgGenerationTime)

		second := 200 * time.Millisecond
		monitor.RecordGeneration(entities.StrategyAI, second, 80)

		avg := monitor.Snapshot().AvgGenerationTime
		assert.Greater(t, avg, first)
		assert.Less(t, avg, second)
	})

	t.Run("tracks moving average of quality score", func(t *testing.T) {
		monitor := NewMonitor()

		monitor.RecordGeneration(entities.StrategyAI, time.Millisecond, 80)
		assert.InDelta(t, 80, monitor.Snapshot().AvgQualityScore, 0.001)

		monitor.RecordGeneration(entities.StrategyAI, time.Millisecond, 60)
		assert.InDelta(t, 78, monitor.Snapshot().AvgQualityScore, 0.001)
	})
}

func TestMonitor_RecordFailure(t *testing.T) {
	monitor := NewMonitor()

	monitor.RecordFailure()
	monitor.RecordFailure()

	snap := monitor.Snapshot()
	assert.Equal(t, int64(2), snap.FailedGenerations)
	assert.Equal(t, int64(0), snap.Generations)
	assert.NotZero(t, snap.LastActivity)
}

func TestMonitor_RequestCounters(t *testing.T) {
	monitor := NewMonitor()

	monitor.RecordHTTPRequest()
	monitor.RecordHTTPRequest()
	monitor.RecordWebSocketConnection()

	snap := monitor.Snapshot()
	assert.Equal(t, int64(2), snap.HTTPRequests)
	assert.Equal(t, int64(1), snap.WebSocketConnections)
}

func TestMonitor_SnapshotReadsRuntime(t *testing.T) {
	snap := NewMonitor().Snapshot()

	assert.GreaterOrEqual(t, snap.Goroutines, 1)
	assert.Greater(t, snap.Alloc, uint64(0))
	assert.Greater(t, snap.HeapAlloc, uint64(0))
	assert.NotZero(t, snap.StartedAt)
}

func TestMonitor_Uptime(t *testing.T) {
	monitor := NewMonitor()

	time.Sleep(10 * time.Millisecond)

	uptime := monitor.Uptime()
	assert.Greater(t, uptime, 10*time.Millisecond)
	assert.Less(t, uptime, time.Second)
}

func TestSnapshot_Healthy(t *testing.T) {
	t.Run("fresh process is healthy", func(t *testing.T) {
		assert.True(t, NewMonitor().Snapshot().Healthy())
	})

	t.Run("excessive allocation is unhealthy", func(t *testing.T) {
		snap := Snapshot{Alloc: maxHealthyAlloc, Goroutines: 10}
		assert.False(t, snap.Healthy())
	})

	t.Run("goroutine pileup is unhealthy", func(t *testing.T) {
		snap := Snapshot{Alloc: 1 << 20, Goroutines: maxHealthyGoroutines}
		assert.False(t, snap.Healthy())
	})
}

func TestMonitor_HealthReport(t *testing.T) {
	monitor := NewMonitor()
	monitor.RecordGeneration(entities.StrategyFallback, 50*time.Millisecond, 55)

	report := monitor.HealthReport()

	for _, key := range []string{"healthy", "uptime", "memory_mb", "heap_mb", "goroutines", "gc_cycles"} {
		assert.Contains(t, report, key)
	}

	operations, ok := report["operations"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(1), operations["generations"])
	assert.Equal(t, int64(1), operations["fallback"])
	assert.Equal(t, int64(0), operations["failed"])

	performance, ok := report["performance"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(50), performance["avg_generation_time_ms"])
	assert.Equal(t, 55.0, performance["avg_quality_score"])
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	monitor := NewMonitor()

	var wg sync.WaitGroup
	workers := 10
	perWorker := 10

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				monitor.RecordGeneration(entities.StrategyAI, time.Millisecond, 70)
				monitor.RecordFailure()
				monitor.RecordHTTPRequest()
				monitor.RecordWebSocketConnection()
				_ = monitor.Snapshot()
			}
		}()
	}
	wg.Wait()

	want := int64(workers * perWorker)
	snap := monitor.Snapshot()
	assert.Equal(t, want, snap.Generations)
	assert.Equal(t, want, snap.AIGenerations)
	assert.Equal(t, want, snap.FailedGenerations)
	assert.Equal(t, want, snap.HTTPRequests)
	assert.Equal(t, want, snap.WebSocketConnections)
}
