// Package pipeline runs guide document checks through a worker pool.
//
// A check re-parses a document, refreshes the section registry, and runs
// the lint rule set against the result. Reports are cached by content
// hash, so watch-triggered rechecks of an unchanged file skip parsing
// and linting entirely.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"featmark/internal/config"
	"featmark/internal/errors"
	"featmark/internal/lint"
	"featmark/internal/logging"
	"featmark/internal/registry"
	"featmark/internal/scanner"
)

// DefaultCheckTimeout bounds a single document check when no timeout is
// configured.
const DefaultCheckTimeout = 30 * time.Second

// CheckTask represents a document check request
type CheckTask struct {
	Path      string
	Priority  int // 1 = normal, 10 = priority
	Timestamp time.Time
}

// CheckResult represents the outcome of a document check. Faults carries
// the report findings, or the scan failure, as positioned document errors
// ready for the error collector and the browser overlay.
type CheckResult struct {
	Path     string
	Parsed   *scanner.ParsedDocument
	Report   *lint.Report
	Faults   []errors.DocError
	Error    error
	Duration time.Duration
	CacheHit bool
	Hash     string
}

// CheckCallback is called when a check completes
type CheckCallback func(result CheckResult)

// CheckQueue manages check tasks and results
type CheckQueue struct {
	tasks    chan CheckTask
	results  chan CheckResult
	priority chan CheckTask
}

// CheckPipeline manages scanning and linting of guide documents
type CheckPipeline struct {
	scanner   *scanner.DocumentScanner
	engine    *lint.Engine
	cache     *ResultCache
	queue     *CheckQueue
	workers   int
	registry  *registry.DocumentRegistry
	metrics   *CheckMetrics
	callbacks []CheckCallback
	config    *config.Config
	logger    logging.Logger
	workerWg  sync.WaitGroup
	resultWg  sync.WaitGroup
	cancel    context.CancelFunc
}

// NewCheckPipeline creates a check pipeline with the given worker count.
// An optional config supplies the lint rule selection and check timeout.
func NewCheckPipeline(workers int, reg *registry.DocumentRegistry, logger logging.Logger, configs ...*config.Config) *CheckPipeline {
	var cfg *config.Config
	if len(configs) > 0 {
		cfg = configs[0]
	}

	var engineConfig lint.EngineConfig
	if cfg != nil {
		engineConfig = lint.EngineConfig{
			ExpectedSections: cfg.Documents.ExpectedSections,
			AllowedLanguages: cfg.Documents.AllowedLanguages,
			Rules:            cfg.Lint.Rules,
			ExcludeRules:     cfg.Lint.ExcludeRules,
		}
	}

	return &CheckPipeline{
		scanner: scanner.NewDocumentScanner(reg),
		engine:  lint.NewEngine(logger, engineConfig),
		cache:   NewResultCache(100*1024*1024, time.Hour), // 100MB cache, 1 hour TTL
		queue: &CheckQueue{
			tasks:    make(chan CheckTask, 100),
			results:  make(chan CheckResult, 100),
			priority: make(chan CheckTask, 10),
		},
		workers:  workers,
		registry: reg,
		metrics:  NewCheckMetrics(),
		config:   cfg,
		logger:   logger.WithComponent("pipeline"),
	}
}

// Start launches the worker pool and the result processor
func (p *CheckPipeline) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.workerWg.Add(1)
		go p.worker(ctx)
	}

	p.resultWg.Add(1)
	go p.processResults(ctx)
}

// Stop shuts down the pipeline and waits for in-flight checks to finish
func (p *CheckPipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.workerWg.Wait()
	p.resultWg.Wait()
	p.scanner.Close()
}

// StopWithTimeout stops the pipeline but gives up after the grace period,
// returning an error if workers are still busy.
func (p *CheckPipeline) StopWithTimeout(timeout time.Duration) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.workerWg.Wait()
		p.resultWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.scanner.Close()
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("pipeline did not stop within %v", timeout)
	}
}

// Check queues a document for re-scanning and linting. The task is
// dropped and recorded in the metrics when the queue is full.
func (p *CheckPipeline) Check(path string) {
	task := CheckTask{
		Path:      path,
		Priority:  1,
		Timestamp: time.Now(),
	}

	select {
	case p.queue.tasks <- task:
	default:
		p.metrics.RecordDroppedTask(path, "task_queue_full")
	}
}

// CheckWithPriority queues a document ahead of normal tasks. Watch-driven
// rechecks of the file the user just saved go through here.
func (p *CheckPipeline) CheckWithPriority(path string) {
	task := CheckTask{
		Path:      path,
		Priority:  10,
		Timestamp: time.Now(),
	}

	select {
	case p.queue.priority <- task:
	default:
		p.metrics.RecordDroppedTask(path, "priority_queue_full")
	}
}

// AddCallback registers a function invoked for every processed result.
// Callbacks run on the result processor goroutine and must be registered
// before Start.
func (p *CheckPipeline) AddCallback(callback CheckCallback) {
	p.callbacks = append(p.callbacks, callback)
}

// GetMetrics returns the pipeline metrics tracker
func (p *CheckPipeline) GetMetrics() *CheckMetrics {
	return p.metrics
}

// CacheStats reports entry count, total size, and capacity of the cache
func (p *CheckPipeline) CacheStats() (int, int64, int64) {
	return p.cache.GetStats()
}

// ClearCache drops all cached reports and content hashes
func (p *CheckPipeline) ClearCache() {
	p.cache.Clear()
}

func (p *CheckPipeline) worker(ctx context.Context) {
	defer p.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue.priority:
			p.processCheckTask(ctx, task)
		case task := <-p.queue.tasks:
			p.processCheckTask(ctx, task)
		}
	}
}

func (p *CheckPipeline) processCheckTask(ctx context.Context, task CheckTask) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	result := CheckResult{Path: task.Path}
	result.Hash = p.generateContentHash(task.Path)

	if cached, found := p.cache.Get(result.Hash); found {
		if report, err := decodeReport(cached); err == nil {
			result.Report = report
			result.Faults = faultsFromReport(report)
			result.CacheHit = true
			result.Duration = time.Since(start)
			p.sendResult(result)
			return
		}
		// A corrupt entry falls through to a full check and is
		// overwritten below.
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, p.getCheckTimeout())
	defer cancelCheck()

	parsed, err := p.scanner.Rescan(task.Path)
	if err != nil {
		result.Error = err
		result.Faults = []errors.DocError{scanFault(task.Path, err)}
		result.Duration = time.Since(start)
		p.sendResult(result)
		return
	}
	result.Parsed = parsed

	report, err := p.engine.AnalyzeDocument(checkCtx, parsed)
	if err != nil {
		result.Error = err
		result.Faults = []errors.DocError{scanFault(task.Path, err)}
		result.Duration = time.Since(start)
		p.sendResult(result)
		return
	}
	result.Report = report
	result.Faults = faultsFromReport(report)
	if len(result.Faults) > 0 {
		if content, err := os.ReadFile(task.Path); err == nil {
			errors.AttachContext(result.Faults, content, 2)
		}
	}

	if data, err := encodeReport(report); err == nil {
		p.cache.Set(result.Hash, data)
	}

	result.Duration = time.Since(start)
	p.sendResult(result)
}

func (p *CheckPipeline) sendResult(result CheckResult) {
	select {
	case p.queue.results <- result:
	default:
		reason := "results_queue_full"
		if result.CacheHit {
			reason = "results_queue_full_cache_hit"
		}
		p.metrics.RecordDroppedResult(result.Path, reason)
	}
}

func (p *CheckPipeline) processResults(ctx context.Context) {
	defer p.resultWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case result := <-p.queue.results:
			p.handleCheckResult(result)
		}
	}
}

func (p *CheckPipeline) handleCheckResult(result CheckResult) {
	p.metrics.RecordCheck(result)

	ctx := context.Background()
	switch {
	case result.Error != nil:
		p.logger.Error(ctx, result.Error, "check failed", "path", result.Path)
	case result.CacheHit:
		p.logger.Debug(ctx, "check served from cache", "path", result.Path, "duration", result.Duration)
	default:
		p.logger.Debug(ctx, "check completed",
			"path", result.Path,
			"duration", result.Duration,
			"issues", len(result.Report.Issues))
	}

	for _, callback := range p.callbacks {
		callback(result)
	}
}

// generateContentHash fingerprints a document by content. A metadata key
// of path, mtime, and size avoids re-reading files that have not changed
// on disk. When the file cannot be read the path itself is returned so
// the failure surfaces during the scan instead of here.
func (p *CheckPipeline) generateContentHash(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return path
	}

	metadataKey := fmt.Sprintf("%s:%d:%d", path, info.ModTime().Unix(), info.Size())
	if hash, found := p.cache.GetHash(metadataKey); found {
		return hash
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return path
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(content))
	p.cache.SetHash(metadataKey, hash)
	return hash
}

// getCheckTimeout returns the configured check timeout, falling back to
// DefaultCheckTimeout when unset or nonsensical.
func (p *CheckPipeline) getCheckTimeout() time.Duration {
	if p.config != nil && p.config.Timeouts.Check > 0 {
		return p.config.Timeouts.Check
	}
	return DefaultCheckTimeout
}

// faultsFromReport converts report findings into positioned document
// faults, each carrying the fix hint registered for its rule.
func faultsFromReport(report *lint.Report) []errors.DocError {
	if report == nil || len(report.Issues) == 0 {
		return nil
	}

	faults := make([]errors.DocError, 0, len(report.Issues))
	for _, issue := range report.Issues {
		faults = append(faults, errors.DocError{
			File:       issue.File,
			Line:       issue.Line,
			Rule:       issue.Rule,
			Message:    issue.Message,
			Severity:   errors.SeverityFromString(string(issue.Severity)),
			Suggestion: errors.SuggestionForRule(issue.Rule),
		})
	}
	return faults
}

// scanFault wraps a scan or analysis failure as a single document fault.
// These have no rule or position; the document could not be checked at all.
func scanFault(path string, err error) errors.DocError {
	return errors.DocError{
		File:     path,
		Message:  err.Error(),
		Severity: errors.ErrorSeverityFatal,
	}
}

func encodeReport(report *lint.Report) ([]byte, error) {
	return json.Marshal(report)
}

func decodeReport(data []byte) (*lint.Report, error) {
	var report lint.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
