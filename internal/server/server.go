// Package server implements the featmark preview server. It renders guide
// documents as HTML pages, watches the configured document paths, runs
// changed files through the check pipeline, and pushes reload and lint
// updates to connected browsers over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"featmark/internal/config"
	"featmark/internal/errors"
	"featmark/internal/lint"
	"featmark/internal/logging"
	"featmark/internal/pipeline"
	"featmark/internal/registry"
	"featmark/internal/render"
	"featmark/internal/scanner"
	"featmark/internal/validation"
	"featmark/internal/watcher"

	"github.com/coder/websocket"
)

// checkWorkers is the size of the preview server's check pipeline pool.
const checkWorkers = 4

// PreviewServer ties together the registry, scanner, watcher, renderer, and
// check pipeline behind one HTTP listener.
type PreviewServer struct {
	config *config.Config
	logger logging.Logger

	httpServer  *http.Server
	runCancel   context.CancelFunc
	serverMutex sync.RWMutex

	// WebSocket hub state. The hub goroutine owns all map mutations;
	// handlers only talk to it through the channels.
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn

	registry *registry.DocumentRegistry
	scanner  *scanner.DocumentScanner
	watcher  *watcher.FileWatcher
	renderer *render.DocumentRenderer
	pipeline *pipeline.CheckPipeline

	lastReport  *lint.Report
	reportMutex sync.RWMutex
	faults      *errors.ErrorCollector

	done         chan struct{}
	shutdownOnce sync.Once
}

// New creates a preview server from configuration. Nothing runs until Start
// is called.
func New(cfg *config.Config, logger logging.Logger) (*PreviewServer, error) {
	fw, err := watcher.NewFileWatcher(cfg.DebounceDuration())
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	reg := registry.NewDocumentRegistry()
	srv := &PreviewServer{
		config:     cfg,
		logger:     logger.WithComponent("preview_server"),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		registry:   reg,
		scanner:    scanner.NewDocumentScanner(reg),
		watcher:    fw,
		renderer: render.NewDocumentRenderer(reg, render.RendererConfig{
			Theme: cfg.Render.Theme,
			Width: cfg.Render.Width,
		}),
		pipeline: pipeline.NewCheckPipeline(checkWorkers, reg, logger, cfg),
		faults:   errors.NewErrorCollector(),
		done:     make(chan struct{}),
	}

	// Callbacks must be registered before the pipeline starts.
	srv.pipeline.AddCallback(srv.handleCheckResult)

	return srv, nil
}

// Start scans the configured documents, starts the watcher, pipeline, and
// WebSocket hub, and serves HTTP until the listener fails or Shutdown is
// called.
func (s *PreviewServer) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.serverMutex.Lock()
	s.runCancel = cancel
	s.serverMutex.Unlock()

	if err := s.setupFileWatcher(runCtx); err != nil {
		cancel()
		return fmt.Errorf("setting up file watcher: %w", err)
	}

	s.pipeline.Start(runCtx)
	s.initialScan(runCtx)

	go s.runWebSocketHub(runCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/section/", s.handleSection)
	mux.HandleFunc("/api/sections", s.handleSections)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/errors", s.handleErrors)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/", s.handleIndex)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.addMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.serverMutex.Lock()
	s.httpServer = server
	s.serverMutex.Unlock()

	if s.config.Server.Open && !s.config.Server.NoOpen {
		go s.openBrowser(fmt.Sprintf("http://%s", addr))
	}

	s.logger.Info(runCtx, "preview server listening",
		"addr", addr,
		"documents", s.registry.DocumentCount(),
		"sections", s.registry.Count())

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("preview server failed: %w", err)
	}
	return nil
}

// setupFileWatcher wires filters, the change handler, and the configured
// document paths, then starts the watcher goroutines.
func (s *PreviewServer) setupFileWatcher(ctx context.Context) error {
	s.watcher.AddFilter(watcher.MarkdownFilter)
	s.watcher.AddFilter(watcher.NoGitFilter)
	s.watcher.AddFilter(watcher.NoNodeModulesFilter)
	s.watcher.AddFilter(watcher.NoDraftFilter)
	if len(s.config.Watch.Ignore) > 0 {
		s.watcher.AddFilter(watcher.IgnoreFilter(s.config.Watch.Ignore))
	}
	s.watcher.AddHandler(s.handleFileChange)

	for _, path := range s.config.Documents.Paths {
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Warn(ctx, err, "skipping unwatchable document path", "path", path)
			continue
		}

		if info.IsDir() {
			err = s.watcher.AddRecursive(path)
		} else {
			err = s.watcher.AddPath(path)
		}
		if err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	return s.watcher.Start(ctx)
}

// initialScan loads the configured documents and queues a check for each,
// so the first page render and the first lint report do not wait for a file
// change. Scan failures are logged and skipped; the server still starts.
func (s *PreviewServer) initialScan(ctx context.Context) {
	for _, path := range s.config.Documents.Paths {
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Warn(ctx, err, "skipping missing document path", "path", path)
			continue
		}

		if info.IsDir() {
			err = s.scanner.ScanDirectory(path)
		} else {
			err = s.scanner.ScanFile(path)
		}
		if err != nil {
			s.logger.Warn(ctx, err, "initial scan failed", "path", path)
		}
	}

	for _, doc := range s.registry.Documents() {
		s.pipeline.Check(doc.FilePath)
	}
}

// handleFileChange reacts to a debounced watcher batch. Deleted files leave
// the registry; everything else goes through the check pipeline, whose
// callback broadcasts the outcome. The batch slice is pooled by the watcher,
// so nothing here may retain it.
func (s *PreviewServer) handleFileChange(events []watcher.ChangeEvent) error {
	removed := 0
	for _, event := range events {
		if event.Type == watcher.EventTypeDeleted {
			s.registry.RemoveFile(event.Path)
			removed++
			continue
		}
		s.pipeline.CheckWithPriority(event.Path)
	}

	// Deletions produce no check result, so the reload happens here.
	if removed > 0 && s.config.Server.LiveReload {
		s.broadcastReload()
	}
	return nil
}

// handleCheckResult publishes a finished check to connected clients. A
// clean document reloads open pages; a document with lint errors gets the
// overlay instead, so the author sees the findings without losing the page.
// A document that could not be checked at all replaces open pages with the
// problems page until a later check succeeds.
func (s *PreviewServer) handleCheckResult(result pipeline.CheckResult) {
	ctx := context.Background()
	s.faults.ReplaceFile(result.Path, result.Faults)

	if result.Error != nil {
		s.logger.Error(ctx, result.Error, "check failed", "path", result.Path)
		if s.config.Server.ErrorOverlay {
			s.broadcastCheckError(result.Path)
		}
		return
	}

	if result.Report != nil {
		s.reportMutex.Lock()
		s.lastReport = result.Report
		s.reportMutex.Unlock()
	}

	if result.Report != nil && !result.Report.Valid() && s.config.Server.ErrorOverlay {
		s.broadcastReport(result.Report)
		return
	}
	if s.config.Server.LiveReload {
		s.broadcastReload()
	}
}

func (s *PreviewServer) broadcastReload() {
	s.broadcastMessage(UpdateMessage{Type: "full_reload", Timestamp: time.Now()})
}

func (s *PreviewServer) broadcastReport(report *lint.Report) {
	s.broadcastMessage(UpdateMessage{
		Type:      "lint_report",
		Path:      report.File,
		Report:    report,
		Timestamp: time.Now(),
	})
}

func (s *PreviewServer) broadcastCheckError(path string) {
	s.broadcastMessage(UpdateMessage{
		Type:      "check_error",
		Path:      path,
		Content:   errors.FormatErrorsForBrowser(s.faults.GetErrorsByFile(path)),
		Timestamp: time.Now(),
	})
}

// broadcastMessage hands a message to the hub. A full broadcast queue drops
// the message rather than blocking the caller.
func (s *PreviewServer) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(&msg)
	if err != nil {
		data = []byte(`{"type":"full_reload"}`)
	}

	select {
	case s.broadcast <- data:
	default:
		s.logger.Debug(context.Background(), "broadcast queue full, dropping message", "type", msg.Type)
	}
}

// LastReport returns the most recent check report, or nil before the first
// check completes.
func (s *PreviewServer) LastReport() *lint.Report {
	s.reportMutex.RLock()
	defer s.reportMutex.RUnlock()
	return s.lastReport
}

// Faults returns the current findings across all checked documents.
func (s *PreviewServer) Faults() []errors.DocError {
	return s.faults.GetErrors()
}

// addMiddleware wraps the mux with user agent blocking, security headers,
// CORS, and request logging.
func (s *PreviewServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := validation.ValidateUserAgent(r.UserAgent(), s.config.Server.BlockedAgents); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if s.config.Server.Environment == "development" {
			// Only allow wildcard in development.
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// isAllowedOrigin checks the origin against the configured allowlist.
func (s *PreviewServer) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// openBrowser opens the preview URL with the platform launcher. The short
// sleep gives the listener time to come up first.
func (s *PreviewServer) openBrowser(url string) {
	time.Sleep(100 * time.Millisecond)

	ctx := context.Background()
	if err := validation.ValidateURL(url); err != nil {
		s.logger.Warn(ctx, err, "refusing to open browser", "url", url)
		return
	}

	var cmd string
	var args []string
	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		s.logger.Warn(ctx, err, "opening browser", "url", url)
	}
}

// Shutdown stops the pipeline, watcher, and hub, disconnects clients, and
// drains the HTTP server. Safe to call more than once.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.done)

		s.pipeline.Stop()
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "stopping file watcher")
		}

		s.serverMutex.RLock()
		cancel := s.runCancel
		server := s.httpServer
		s.serverMutex.RUnlock()
		if cancel != nil {
			cancel()
		}

		if err := s.scanner.Close(); err != nil {
			s.logger.Warn(ctx, err, "closing scanner")
		}

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			delete(s.clients, conn)
		}
		s.clientsMutex.Unlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}
