package pipeline

import (
	"sync"
	"time"
)

// CheckMetrics tracks check throughput, failures, cache efficiency, and
// queue overflow drops
type CheckMetrics struct {
	TotalChecks      int64
	SuccessfulChecks int64
	FailedChecks     int64
	CacheHits        int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	DroppedTasks     int64
	DroppedResults   int64
	DropReasons      map[string]int64
	mutex            sync.RWMutex
}

// NewCheckMetrics creates a new metrics tracker
func NewCheckMetrics() *CheckMetrics {
	return &CheckMetrics{
		DropReasons: make(map[string]int64),
	}
}

// RecordCheck records a processed check result
func (cm *CheckMetrics) RecordCheck(result CheckResult) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.TotalChecks++
	cm.TotalDuration += result.Duration

	if result.CacheHit {
		cm.CacheHits++
	}

	if result.Error != nil {
		cm.FailedChecks++
	} else {
		cm.SuccessfulChecks++
	}

	if cm.TotalChecks > 0 {
		cm.AverageDuration = cm.TotalDuration / time.Duration(cm.TotalChecks)
	}
}

// RecordDroppedTask notes a task rejected because its queue was full
func (cm *CheckMetrics) RecordDroppedTask(path string, reason string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.DroppedTasks++
	cm.DropReasons[reason]++
}

// RecordDroppedResult notes a result rejected because the results queue
// was full
func (cm *CheckMetrics) RecordDroppedResult(path string, reason string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.DroppedResults++
	cm.DropReasons[reason]++
}

// GetQueueHealthStatus returns drop counters and a copy of the per-reason
// breakdown
func (cm *CheckMetrics) GetQueueHealthStatus() (int64, int64, map[string]int64) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	reasons := make(map[string]int64, len(cm.DropReasons))
	for reason, count := range cm.DropReasons {
		reasons[reason] = count
	}
	return cm.DroppedTasks, cm.DroppedResults, reasons
}

// GetSnapshot returns a copy of the current metrics
func (cm *CheckMetrics) GetSnapshot() CheckMetrics {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	reasons := make(map[string]int64, len(cm.DropReasons))
	for reason, count := range cm.DropReasons {
		reasons[reason] = count
	}

	// The mutex is left out so the copy carries no lock state
	return CheckMetrics{
		TotalChecks:      cm.TotalChecks,
		SuccessfulChecks: cm.SuccessfulChecks,
		FailedChecks:     cm.FailedChecks,
		CacheHits:        cm.CacheHits,
		AverageDuration:  cm.AverageDuration,
		TotalDuration:    cm.TotalDuration,
		DroppedTasks:     cm.DroppedTasks,
		DroppedResults:   cm.DroppedResults,
		DropReasons:      reasons,
	}
}

// Reset clears all counters
func (cm *CheckMetrics) Reset() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.TotalChecks = 0
	cm.SuccessfulChecks = 0
	cm.FailedChecks = 0
	cm.CacheHits = 0
	cm.AverageDuration = 0
	cm.TotalDuration = 0
	cm.DroppedTasks = 0
	cm.DroppedResults = 0
	cm.DropReasons = make(map[string]int64)
}

// GetCheckCount returns the total number of processed checks
func (cm *CheckMetrics) GetCheckCount() int64 {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.TotalChecks
}

// GetSuccessCount returns the number of successful checks
func (cm *CheckMetrics) GetSuccessCount() int64 {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.SuccessfulChecks
}

// GetFailureCount returns the number of failed checks
func (cm *CheckMetrics) GetFailureCount() int64 {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.FailedChecks
}

// GetAverageDuration returns the mean check duration
func (cm *CheckMetrics) GetAverageDuration() time.Duration {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.AverageDuration
}

// GetCacheHitRate returns the cache hit rate as a percentage
func (cm *CheckMetrics) GetCacheHitRate() float64 {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.TotalChecks == 0 {
		return 0.0
	}
	return float64(cm.CacheHits) / float64(cm.TotalChecks) * 100.0
}

// GetSuccessRate returns the success rate as a percentage
func (cm *CheckMetrics) GetSuccessRate() float64 {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.TotalChecks == 0 {
		return 0.0
	}
	return float64(cm.SuccessfulChecks) / float64(cm.TotalChecks) * 100.0
}
