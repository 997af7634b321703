package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// AnalysisMetrics tracks deck analysis latency and outcomes.
type AnalysisMetrics struct {
	// Latency histograms (in milliseconds)
	BuildLatency    *Histogram
	EvaluateLatency *Histogram
	EndToEndLatency *Histogram

	DecksAnalyzed atomic.Uint64
	EmptyResults  atomic.Uint64
	Errors        atomic.Uint64
	Persisted     atomic.Uint64

	startTime time.Time
	mu        sync.RWMutex
}

// NewAnalysisMetrics creates a new metrics collector.
func NewAnalysisMetrics() *AnalysisMetrics {
	return &AnalysisMetrics{
		BuildLatency:    NewHistogram(10000),
		EvaluateLatency: NewHistogram(10000),
		EndToEndLatency: NewHistogram(10000),
		startTime:       time.Now(),
	}
}

// RecordBuild records the time taken to build a synergy graph.
func (m *AnalysisMetrics) RecordBuild(d time.Duration) {
	m.BuildLatency.Record(d)
}

// RecordEvaluate records the time taken to score a deck.
func (m *AnalysisMetrics) RecordEvaluate(d time.Duration) {
	m.EvaluateLatency.Record(d)
}

// RecordAnalysis records a finished analysis. empty marks a deck without
// active synergies.
func (m *AnalysisMetrics) RecordAnalysis(d time.Duration, empty bool) {
	m.EndToEndLatency.Record(d)
	m.DecksAnalyzed.Add(1)
	if empty {
		m.EmptyResults.Add(1)
	}
}

// IncrementErrors counts a failed analysis.
func (m *AnalysisMetrics) IncrementErrors() {
	m.Errors.Add(1)
}

// IncrementPersisted counts a report written to storage.
func (m *AnalysisMetrics) IncrementPersisted() {
	m.Persisted.Add(1)
}

// AnalysisStats is a snapshot of AnalysisMetrics.
type AnalysisStats struct {
	BuildLatency    LatencyStats `json:"build_latency"`
	EvaluateLatency LatencyStats `json:"evaluate_latency"`
	EndToEndLatency LatencyStats `json:"end_to_end_latency"`

	DecksAnalyzed uint64  `json:"decks_analyzed"`
	EmptyResults  uint64  `json:"empty_results"`
	Errors        uint64  `json:"errors"`
	Persisted     uint64  `json:"persisted"`
	EmptyRate     float64 `json:"empty_rate"` // percentage

	Uptime string `json:"uptime"`
}

// Snapshot returns the current statistics.
func (m *AnalysisMetrics) Snapshot() *AnalysisStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	analyzed := m.DecksAnalyzed.Load()
	empty := m.EmptyResults.Load()

	emptyRate := 0.0
	if analyzed > 0 {
		emptyRate = float64(empty) / float64(analyzed) * 100
	}

	return &AnalysisStats{
		BuildLatency:    m.BuildLatency.Stats(),
		EvaluateLatency: m.EvaluateLatency.Stats(),
		EndToEndLatency: m.EndToEndLatency.Stats(),
		DecksAnalyzed:   analyzed,
		EmptyResults:    empty,
		Errors:          m.Errors.Load(),
		Persisted:       m.Persisted.Load(),
		EmptyRate:       emptyRate,
		Uptime:          time.Since(m.startTime).Round(time.Second).String(),
	}
}

// Reset clears all metrics.
func (m *AnalysisMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BuildLatency.Reset()
	m.EvaluateLatency.Reset()
	m.EndToEndLatency.Reset()

	m.DecksAnalyzed.Store(0)
	m.EmptyResults.Store(0)
	m.Errors.Store(0)
	m.Persisted.Store(0)

	m.startTime = time.Now()
}
