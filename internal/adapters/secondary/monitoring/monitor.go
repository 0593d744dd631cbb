package monitoring

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// Health limits. A process past either bound is reported unhealthy so
// an orchestrator can recycle it before requests start failing.
const (
	maxHealthyAlloc      = 500 << 20
	maxHealthyGoroutines = 1000
)

// emaWeight is the weight of the newest sample in the running averages.
const emaWeight = 0.1

// Monitor accumulates pipeline counters and samples runtime state on
// demand. All methods are safe for concurrent use.
type Monitor struct {
	startedAt time.Time

	generations   atomic.Int64
	aiDecks       atomic.Int64
	fallbackDecks atomic.Int64
	healedDecks   atomic.Int64
	failures      atomic.Int64
	httpRequests  atomic.Int64
	wsUpgrades    atomic.Int64

	mu           sync.Mutex
	lastActivity time.Time
	avgDuration  time.Duration
	avgScore     float64
}

// NewMonitor returns a Monitor with its uptime clock started.
func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

// RecordGeneration folds one finished generation into the counters and
// running averages.
func (m *Monitor) RecordGeneration(strategy entities.GenerationStrategy, duration time.Duration, score int) {
	m.generations.Add(1)
	switch strategy {
	case entities.StrategyAI:
		m.aiDecks.Add(1)
	case entities.StrategyFallback:
		m.fallbackDecks.Add(1)
	case entities.StrategyHealed:
		m.healedDecks.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	if m.avgDuration == 0 {
		m.avgDuration = duration
	} else {
		m.avgDuration = time.Duration(float64(m.avgDuration)*(1-emaWeight) + float64(duration)*emaWeight)
	}
	if m.avgScore == 0 {
		m.avgScore = float64(score)
	} else {
		m.avgScore = m.avgScore*(1-emaWeight) + float64(score)*emaWeight
	}
}

// RecordFailure counts a generation that ended in an error.
func (m *Monitor) RecordFailure() {
	m.failures.Add(1)
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

// RecordHTTPRequest counts one served HTTP request.
func (m *Monitor) RecordHTTPRequest() { m.httpRequests.Add(1) }

// RecordWebSocketConnection counts one accepted WebSocket upgrade.
func (m *Monitor) RecordWebSocketConnection() { m.wsUpgrades.Add(1) }

// Snapshot is a point-in-time view of the counters together with
// freshly read runtime stats.
type Snapshot struct {
	StartedAt    time.Time
	LastActivity time.Time

	Generations          int64
	AIGenerations        int64
	FallbackGenerations  int64
	HealedGenerations    int64
	FailedGenerations    int64
	HTTPRequests         int64
	WebSocketConnections int64

	AvgGenerationTime time.Duration
	AvgQualityScore   float64

	Alloc      uint64
	HeapAlloc  uint64
	StackInuse uint64
	Goroutines int
	GCCycles   uint32
}

// Snapshot reads the runtime stats and returns the current values.
func (m *Monitor) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.mu.Lock()
	last, avgDuration, avgScore := m.lastActivity, m.avgDuration, m.avgScore
	m.mu.Unlock()

	return Snapshot{
		StartedAt:            m.startedAt,
		LastActivity:         last,
		Generations:          m.generations.Load(),
		AIGenerations:        m.aiDecks.Load(),
		FallbackGenerations:  m.fallbackDecks.Load(),
		HealedGenerations:    m.healedDecks.Load(),
		FailedGenerations:    m.failures.Load(),
		HTTPRequests:         m.httpRequests.Load(),
		WebSocketConnections: m.wsUpgrades.Load(),
		AvgGenerationTime:    avgDuration,
		AvgQualityScore:      avgScore,
		Alloc:                ms.Alloc,
		HeapAlloc:            ms.HeapAlloc,
		StackInuse:           ms.StackInuse,
		Goroutines:           runtime.NumGoroutine(),
		GCCycles:             ms.NumGC,
	}
}

// Uptime returns how long the process has been serving.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// Healthy reports whether the snapshot is within the health limits.
func (s Snapshot) Healthy() bool {
	return s.Alloc < maxHealthyAlloc && s.Goroutines < maxHealthyGoroutines
}

// HealthReport renders one snapshot as the health endpoint payload.
func (m *Monitor) HealthReport() map[string]interface{} {
	snap := m.Snapshot()

	return map[string]interface{}{
		"healthy":    snap.Healthy(),
		"uptime":     m.Uptime().String(),
		"memory_mb":  snap.Alloc / (1 << 20),
		"heap_mb":    snap.HeapAlloc / (1 << 20),
		"goroutines": snap.Goroutines,
		"gc_cycles":  snap.GCCycles,
		"operations": map[string]interface{}{
			"generations":           snap.Generations,
			"ai":                    snap.AIGenerations,
			"fallback":              snap.FallbackGenerations,
			"healed":                snap.HealedGenerations,
			"failed":                snap.FailedGenerations,
			"http_requests":         snap.HTTPRequests,
			"websocket_connections": snap.WebSocketConnections,
		},
		"performance": map[string]interface{}{
			"avg_generation_time_ms": snap.AvgGenerationTime.Milliseconds(),
			"avg_quality_score":      math.Round(snap.AvgQualityScore*10) / 10,
		},
	}
}
