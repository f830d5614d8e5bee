// Package scanner provides guide document discovery and section extraction.
//
// The scanner traverses file systems to find Markdown files, parses them with
// goldmark to extract section metadata including headings, explanations,
// snippets, and cross-references. It integrates with the document registry to
// broadcast change events and supports recursive directory scanning with
// skip rules for vendored and hidden trees. The scanner maintains file hashes
// for change detection and provides both single-file and batch scanning.
package scanner

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"featmark/internal/registry"
)

// ScanJob represents a scanning job for the worker pool containing the file
// path to scan and a result channel for asynchronous communication.
type ScanJob struct {
	// filePath is the absolute path to the Markdown file to be scanned
	filePath string
	// result channel receives the scan result or error asynchronously
	result chan<- ScanResult
}

// HashResult represents the result of asynchronous hash calculation
type HashResult struct {
	hash string
	err  error
}

// BufferPool manages reusable byte buffers for file reading optimization
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a new buffer pool with initial buffer size
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				// Pre-allocate 64KB buffers for typical guide documents
				return make([]byte, 0, 64*1024)
			},
		},
	}
}

// Get retrieves a buffer from the pool
func (bp *BufferPool) Get() []byte {
	return bp.pool.Get().([]byte)[:0] // Reset length but keep capacity
}

// Put returns a buffer to the pool
func (bp *BufferPool) Put(buf []byte) {
	// Only pool reasonably-sized buffers to avoid memory leaks
	if cap(buf) <= 1024*1024 { // 1MB limit
		bp.pool.Put(buf)
	}
}

// ScanResult represents the result of a scanning operation, containing either
// success status or error information for a specific file.
type ScanResult struct {
	// filePath is the path that was scanned
	filePath string
	// err contains any error that occurred during scanning, nil on success
	err error
}

// WorkerPool manages persistent scanning workers for performance optimization
// using a work-stealing approach to distribute scanning jobs across CPU cores.
type WorkerPool struct {
	// jobQueue buffers scanning jobs for worker distribution
	jobQueue chan ScanJob
	// workers holds references to all active worker goroutines
	workers []*ScanWorker
	// workerCount defines the number of concurrent workers (typically NumCPU)
	workerCount int
	// scanner is the shared document scanner instance
	scanner *DocumentScanner
	// stop signals all workers to terminate gracefully
	stop chan struct{}
	// stopped tracks pool shutdown state
	stopped bool
	// mu protects concurrent access to pool state
	mu sync.RWMutex
}

// ScanWorker represents a persistent worker goroutine that processes scanning
// jobs from the shared job queue.
type ScanWorker struct {
	// id uniquely identifies this worker for debugging and metrics
	id int
	// jobQueue receives scanning jobs from the worker pool
	jobQueue <-chan ScanJob
	// scanner provides the document parsing functionality
	scanner *DocumentScanner
	// stop signals this worker to terminate gracefully
	stop chan struct{}
}

// DocumentScanner discovers and parses guide documents using goldmark.
//
// The scanner provides:
// - Recursive directory traversal with skip rules for hidden and vendored trees
// - Section metadata extraction from the Markdown AST
// - Concurrent processing via worker pool
// - Integration with the document registry for event broadcasting
// - File change detection using CRC32 hashing
// - Optimized path validation with cached working directory
// - Buffer pooling for memory optimization across large guide collections
type DocumentScanner struct {
	// registry receives discovered sections and broadcasts change events
	registry *registry.DocumentRegistry
	// workerPool manages concurrent scanning operations
	workerPool *WorkerPool
	// pathCache contains cached path validation data to avoid repeated syscalls
	pathCache *pathValidationCache
	// bufferPool provides reusable byte buffers for file reading optimization
	bufferPool *BufferPool
}

// pathValidationCache caches expensive filesystem operations
type pathValidationCache struct {
	// mu protects concurrent access to cache fields
	mu sync.RWMutex
	// currentWorkingDir is the cached current working directory (absolute path)
	currentWorkingDir string
	// initialized indicates whether the cache has been populated
	initialized bool
}

// NewDocumentScanner creates a new document scanner with its worker pool
func NewDocumentScanner(registry *registry.DocumentRegistry) *DocumentScanner {
	scanner := &DocumentScanner{
		registry:   registry,
		pathCache:  &pathValidationCache{},
		bufferPool: NewBufferPool(),
	}

	// Initialize worker pool with optimal worker count
	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8 // Cap at 8 workers for diminishing returns
	}

	scanner.workerPool = NewWorkerPool(workerCount, scanner)
	return scanner
}

// NewWorkerPool creates a new worker pool for scanning operations
func NewWorkerPool(workerCount int, scanner *DocumentScanner) *WorkerPool {
	pool := &WorkerPool{
		jobQueue:    make(chan ScanJob, workerCount*2), // Buffer for work-stealing efficiency
		workerCount: workerCount,
		scanner:     scanner,
		stop:        make(chan struct{}),
	}

	// Start persistent workers
	pool.workers = make([]*ScanWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		worker := &ScanWorker{
			id:       i,
			jobQueue: pool.jobQueue,
			scanner:  scanner,
			stop:     make(chan struct{}),
		}
		pool.workers[i] = worker
		go worker.start()
	}

	return pool
}

// start begins the worker's processing loop
func (w *ScanWorker) start() {
	for {
		select {
		case job := <-w.jobQueue:
			err := w.scanner.scanFileInternal(job.filePath)
			job.result <- ScanResult{
				filePath: job.filePath,
				err:      err,
			}
		case <-w.stop:
			return
		}
	}
}

// Stop gracefully shuts down the worker pool
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	p.stopped = true
	close(p.stop)

	// Stop all workers
	for _, worker := range p.workers {
		close(worker.stop)
	}

	// Close job queue
	close(p.jobQueue)
}

// GetRegistry returns the document registry
func (s *DocumentScanner) GetRegistry() *registry.DocumentRegistry {
	return s.registry
}

// Close gracefully shuts down the scanner and its worker pool
func (s *DocumentScanner) Close() error {
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	return nil
}

// ScanDirectory scans a directory tree for guide documents
func (s *DocumentScanner) ScanDirectory(dir string) error {
	// Validate directory path to prevent path traversal
	if _, err := s.validatePath(dir); err != nil {
		return fmt.Errorf("invalid directory path: %w", err)
	}

	// First, collect all Markdown files efficiently
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsMarkdownFile(path) {
			return nil
		}

		// Validate each file path as we encounter it
		if _, err := s.validatePath(path); err != nil {
			// Skip invalid paths silently for security
			return nil
		}

		files = append(files, path)
		return nil
	})

	if err != nil {
		return err
	}

	// Process files using the persistent worker pool
	return s.processBatchWithWorkerPool(files)
}

// IsMarkdownFile reports whether the path names a Markdown source file
func IsMarkdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// shouldSkipDir reports whether a directory should be excluded from scans
func shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "dist":
		return true
	}
	return false
}

// processBatchWithWorkerPool processes files using the persistent worker pool
func (s *DocumentScanner) processBatchWithWorkerPool(files []string) error {
	if len(files) == 0 {
		return nil
	}

	// For very small batches, process synchronously to avoid overhead
	if len(files) <= 5 {
		return s.processBatchSynchronous(files)
	}

	// Create result channel for collecting results
	resultChan := make(chan ScanResult, len(files))
	submitted := 0

	// Submit jobs to persistent worker pool
	for _, file := range files {
		job := ScanJob{
			filePath: file,
			result:   resultChan,
		}

		select {
		case s.workerPool.jobQueue <- job:
			// Job submitted successfully
			submitted++
		default:
			// Worker pool is full, process synchronously as fallback
			err := s.scanFileInternal(file)
			resultChan <- ScanResult{filePath: file, err: err}
		}
	}

	// Collect results
	var errors []error
	for i := 0; i < len(files); i++ {
		result := <-resultChan
		if result.err != nil {
			errors = append(errors, fmt.Errorf("scanning %s: %w", result.filePath, result.err))
		}
	}

	close(resultChan)

	if len(errors) > 0 {
		return fmt.Errorf("scan completed with %d errors: %v", len(errors), errors[0])
	}

	return nil
}

// processBatchSynchronous processes small batches synchronously
func (s *DocumentScanner) processBatchSynchronous(files []string) error {
	var errors []error

	for _, file := range files {
		if err := s.scanFileInternal(file); err != nil {
			errors = append(errors, fmt.Errorf("scanning %s: %w", file, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("scan completed with %d errors: %v", len(errors), errors[0])
	}

	return nil
}

// ScanFile scans a single guide document and registers its sections
func (s *DocumentScanner) ScanFile(path string) error {
	return s.scanFileInternal(path)
}

// ParseFile parses a guide document without touching the registry. Lint and
// pipeline callers use this to inspect files that may be malformed.
func (s *DocumentScanner) ParseFile(path string) (*ParsedDocument, error) {
	cleanPath, err := s.validatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", cleanPath, err)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("getting file info for %s: %w", cleanPath, err)
	}

	parsed, err := ParseDocument(cleanPath, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cleanPath, err)
	}

	hash := fmt.Sprintf("%x", crc32.ChecksumIEEE(content))
	applyProvenance(parsed, hash, info.ModTime())
	return parsed, nil
}

// Rescan re-reads a guide document, publishes the result to the registry,
// and returns the parse. Callers that only need the registry refreshed can
// use ScanFile instead.
func (s *DocumentScanner) Rescan(path string) (*ParsedDocument, error) {
	parsed, err := s.ParseFile(path)
	if err != nil {
		return nil, err
	}
	s.registerParsed(parsed)
	return parsed, nil
}

// scanFileInternal is the optimized internal scanning method used by workers
func (s *DocumentScanner) scanFileInternal(path string) error {
	// Validate and clean the path to prevent directory traversal
	cleanPath, err := s.validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	// Single I/O operation: open file and get both content and info
	file, err := os.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("opening file %s: %w", cleanPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("getting file info for %s: %w", cleanPath, err)
	}

	// Get buffer from pool for optimized memory usage
	buffer := s.bufferPool.Get()
	defer s.bufferPool.Put(buffer)

	// Read content efficiently using buffer pool
	var content []byte
	if info.Size() > 64*1024 {
		// Use streaming read for large files to reduce memory pressure
		content, err = s.readFileStreamingOptimized(file, info.Size(), buffer)
	} else {
		// Use pooled buffer for small files
		if cap(buffer) < int(info.Size()) {
			buffer = make([]byte, info.Size())
		}
		buffer = buffer[:info.Size()]
		_, err = io.ReadFull(file, buffer)
		if err == nil {
			content = make([]byte, len(buffer))
			copy(content, buffer)
		}
	}

	if err != nil {
		return fmt.Errorf("reading file %s: %w", cleanPath, err)
	}

	// For large files, calculate the hash asynchronously while parsing.
	// For small files, do it synchronously to avoid goroutine overhead.
	var hash string
	var parsed *ParsedDocument

	if info.Size() > 64*1024 {
		hashChan := make(chan HashResult, 1)
		go func() {
			hash := fmt.Sprintf("%x", crc32.ChecksumIEEE(content))
			hashChan <- HashResult{hash: hash, err: nil}
		}()

		parsed, err = ParseDocument(cleanPath, content)

		hashResult := <-hashChan
		hash = hashResult.hash
	} else {
		hash = fmt.Sprintf("%x", crc32.ChecksumIEEE(content))
		parsed, err = ParseDocument(cleanPath, content)
	}

	if err != nil {
		return fmt.Errorf("parsing %s: %w", cleanPath, err)
	}

	applyProvenance(parsed, hash, info.ModTime())
	s.registerParsed(parsed)
	return nil
}

// applyProvenance stamps hash and modification time onto the parse result
func applyProvenance(parsed *ParsedDocument, hash string, modTime time.Time) {
	parsed.Info.Hash = hash
	parsed.Info.LastMod = modTime
	for _, section := range parsed.Sections {
		section.Hash = hash
		section.LastMod = modTime
	}
}

// registerParsed publishes a parse result to the registry, dropping sections
// that disappeared from the file since the previous scan. Renaming a heading
// changes its anchor, so stale anchors must be removed explicitly.
func (s *DocumentScanner) registerParsed(parsed *ParsedDocument) {
	stale := make(map[string]bool)
	for _, section := range s.registry.SectionsByFile(parsed.Info.FilePath) {
		stale[section.Anchor] = true
	}

	for _, section := range parsed.Sections {
		s.registry.Register(section)
		delete(stale, section.Anchor)
	}

	for anchor := range stale {
		s.registry.Remove(anchor)
	}

	s.registry.RegisterDocument(&parsed.Info)
}

// readFileStreamingOptimized reads large files using pooled buffers
func (s *DocumentScanner) readFileStreamingOptimized(file *os.File, size int64, pooledBuffer []byte) ([]byte, error) {
	const chunkSize = 32 * 1024 // 32KB chunks

	// Use a reasonably-sized chunk buffer for reading
	var chunk []byte
	if cap(pooledBuffer) >= chunkSize {
		chunk = pooledBuffer[:chunkSize]
	} else {
		chunk = make([]byte, chunkSize)
	}

	// Pre-allocate content buffer with exact size to avoid reallocations
	content := make([]byte, 0, size)

	for {
		n, err := file.Read(chunk)
		if n > 0 {
			content = append(content, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	return content, nil
}

// validatePath validates and cleans a file path to prevent directory
// traversal. The current working directory is cached to avoid repeated
// filesystem calls on large scans.
func (s *DocumentScanner) validatePath(path string) (string, error) {
	// Clean the path to resolve . and .. elements
	cleanPath := filepath.Clean(path)

	// Get absolute path to normalize (needed for working directory check)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	// Get cached current working directory
	cwd, err := s.getCachedWorkingDir()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	// Ensure the path stays within the current working directory
	if !strings.HasPrefix(absPath, cwd) {
		return "", fmt.Errorf("path %s is outside current working directory", path)
	}

	// Reject paths that still carry traversal elements after cleaning
	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("path contains directory traversal: %s", path)
	}

	return cleanPath, nil
}

// getCachedWorkingDir returns the current working directory from cache,
// initializing it on first access.
func (s *DocumentScanner) getCachedWorkingDir() (string, error) {
	// Fast path: check if already initialized with read lock
	s.pathCache.mu.RLock()
	if s.pathCache.initialized {
		cwd := s.pathCache.currentWorkingDir
		s.pathCache.mu.RUnlock()
		return cwd, nil
	}
	s.pathCache.mu.RUnlock()

	// Slow path: initialize the cache with write lock
	s.pathCache.mu.Lock()
	defer s.pathCache.mu.Unlock()

	// Double-check pattern: another goroutine might have initialized while waiting
	if s.pathCache.initialized {
		return s.pathCache.currentWorkingDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("getting absolute working directory: %w", err)
	}

	s.pathCache.currentWorkingDir = absCwd
	s.pathCache.initialized = true

	return absCwd, nil
}

// InvalidatePathCache clears the cached working directory. Call it if the
// working directory changes during execution.
func (s *DocumentScanner) InvalidatePathCache() {
	s.pathCache.mu.Lock()
	defer s.pathCache.mu.Unlock()
	s.pathCache.initialized = false
	s.pathCache.currentWorkingDir = ""
}
