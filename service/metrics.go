package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks per-operation counts and processing time for the
// registration, verification, voting and chain-verification paths, plus how
// often vote commits had to retry after a concurrency conflict.
type MetricsCollector struct {
	mu             sync.RWMutex
	ops            map[string]*opStats
	conflictRetry  int64
	collectorStart time.Time
}

type opStats struct {
	count     int64
	totalTime time.Duration
	lastAt    time.Time
}

// OperationMetrics is the exported view of one operation's counters.
type OperationMetrics struct {
	Count            int64     `json:"count"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	AvgTimeMs        int64     `json:"avg_time_ms"`
	LastAt           time.Time `json:"last_at"`
}

// MetricsResponse is the full snapshot served by the metrics endpoint.
type MetricsResponse struct {
	Since           time.Time                   `json:"since"`
	Operations      map[string]OperationMetrics `json:"operations"`
	ConflictRetries int64                       `json:"conflict_retries"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		ops:            make(map[string]*opStats),
		collectorStart: time.Now(),
	}
}

// Record adds one completed operation with its duration.
func (mc *MetricsCollector) Record(op string, d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	stats, ok := mc.ops[op]
	if !ok {
		stats = &opStats{}
		mc.ops[op] = stats
	}
	stats.count++
	stats.totalTime += d
	stats.lastAt = time.Now()
}

// RecordConflictRetry counts one commit retry after a transient conflict.
func (mc *MetricsCollector) RecordConflictRetry() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.conflictRetry++
}

// Snapshot returns the current counters.
func (mc *MetricsCollector) Snapshot() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	resp := MetricsResponse{
		Since:           mc.collectorStart,
		Operations:      make(map[string]OperationMetrics, len(mc.ops)),
		ConflictRetries: mc.conflictRetry,
	}
	for op, stats := range mc.ops {
		m := OperationMetrics{
			Count:            stats.count,
			ProcessingTimeMs: stats.totalTime.Milliseconds(),
			LastAt:           stats.lastAt,
		}
		if stats.count > 0 {
			m.AvgTimeMs = stats.totalTime.Milliseconds() / stats.count
		}
		resp.Operations[op] = m
	}
	return resp
}
