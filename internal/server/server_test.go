package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"featmark/internal/config"
	"featmark/internal/errors"
	"featmark/internal/lint"
	"featmark/internal/logging"
	"featmark/internal/pipeline"
	"featmark/internal/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const serverGuide = `# Web Framework Features

A tour of the framework's core features.

## 1. File-System Based Routing

Routes map directly onto files under the pages directory.

` + "```" + `
pages/index.js    ->  /
pages/about.js    ->  /about
` + "```" + `

## 2. Dynamic Routing

Bracketed file names capture URL parameters, building on
[file-system routing](#1-file-system-based-routing).

` + "```jsx" + `
export default function Post({ params }) {
  return <h1>{params.slug}</h1>;
}
` + "```" + `
`

// The scanner only accepts paths under the working directory, so guide
// fixtures are written next to the test and removed afterwards.
func writeServerGuide(tb testing.TB, name string) string {
	tb.Helper()
	require.NoError(tb, os.WriteFile(name, []byte(serverGuide), 0o644))
	tb.Cleanup(func() { os.Remove(name) })
	return name
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8120
	cfg.Server.Environment = "development"
	cfg.Server.LiveReload = true
	cfg.Server.ErrorOverlay = true
	cfg.Watch.Debounce = "20ms"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *PreviewServer {
	t.Helper()
	srv, err := New(cfg, logging.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, srv.Shutdown(context.Background()))
	})
	return srv
}

// receiveBroadcast pops one queued hub message, failing the test when none
// arrives in time.
func receiveBroadcast(t *testing.T, srv *PreviewServer, timeout time.Duration) UpdateMessage {
	t.Helper()
	select {
	case data := <-srv.broadcast:
		var msg UpdateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(timeout):
		t.Fatal("expected a broadcast message")
		return UpdateMessage{}
	}
}

func TestNew(t *testing.T) {
	srv := newTestServer(t, testConfig())

	assert.NotNil(t, srv.registry)
	assert.NotNil(t, srv.scanner)
	assert.NotNil(t, srv.watcher)
	assert.NotNil(t, srv.renderer)
	assert.NotNil(t, srv.pipeline)
	assert.NotNil(t, srv.clients)
	assert.Nil(t, srv.LastReport())
}

func TestShutdown_Idempotent(t *testing.T) {
	srv, err := New(testConfig(), logging.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestHandleIndex(t *testing.T) {
	srv := newTestServer(t, testConfig())
	guide := writeServerGuide(t, "test_server_index_guide.md")
	require.NoError(t, srv.scanner.ScanFile(guide))

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "File-System Based Routing")
	assert.Contains(t, rec.Body.String(), "2 sections")
}

func TestHandleIndex_UnknownPath(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIndex_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSection(t *testing.T) {
	srv := newTestServer(t, testConfig())
	guide := writeServerGuide(t, "test_server_section_guide.md")
	require.NoError(t, srv.scanner.ScanFile(guide))

	rec := httptest.NewRecorder()
	srv.handleSection(rec, httptest.NewRequest(http.MethodGet, "/section/1-file-system-based-routing", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "File-System Based Routing")
	assert.Contains(t, rec.Body.String(), "2-dynamic-routing")
}

func TestHandleSection_InvalidAnchor(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleSection(rec, httptest.NewRequest(http.MethodGet, "/section/Not%20An%20Anchor", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSection_NotFound(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleSection(rec, httptest.NewRequest(http.MethodGet, "/section/9-no-such-section", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSections(t *testing.T) {
	srv := newTestServer(t, testConfig())
	guide := writeServerGuide(t, "test_server_sections_guide.md")
	require.NoError(t, srv.scanner.ScanFile(guide))

	rec := httptest.NewRecorder()
	srv.handleSections(rec, httptest.NewRequest(http.MethodGet, "/api/sections", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var sections []sectionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sections))
	require.Len(t, sections, 2)

	assert.Equal(t, 1, sections[0].Number)
	assert.Equal(t, "1-file-system-based-routing", sections[0].Anchor)
	assert.True(t, sections[0].HasSnippet)
	assert.Equal(t, "plain", sections[0].SnippetLanguage)

	assert.Equal(t, "Dynamic Routing", sections[1].Title)
	assert.Equal(t, "jsx", sections[1].SnippetLanguage)
	assert.Contains(t, sections[1].CrossRefs, "1-file-system-based-routing")
}

func TestHandleSections_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleSections(rec, httptest.NewRequest(http.MethodDelete, "/api/sections", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleReport(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleReport(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored := &lint.Report{
		ID:    "check-1",
		File:  "FEATURES.md",
		Title: "Web Framework Features",
	}
	srv.reportMutex.Lock()
	srv.lastReport = stored
	srv.reportMutex.Unlock()

	rec = httptest.NewRecorder()
	srv.handleReport(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got lint.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "check-1", got.ID)
	assert.Equal(t, "Web Framework Features", got.Title)
}

func TestHandleMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload, "checks")
	assert.Contains(t, payload, "cache")
	assert.Contains(t, payload, "queues")
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, testConfig())
	guide := writeServerGuide(t, "test_server_health_guide.md")
	require.NoError(t, srv.scanner.ScanFile(guide))

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.NotEmpty(t, health["version"])

	checks, ok := health["checks"].(map[string]interface{})
	require.True(t, ok)
	registryCheck, ok := checks["registry"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), registryCheck["sections"])
}

func TestHandleErrors(t *testing.T) {
	srv := newTestServer(t, testConfig())

	report := &lint.Report{
		ID:   "check-7",
		File: "FEATURES.md",
		Issues: []lint.Issue{
			{Rule: "fence-balance", Severity: lint.SeverityError, File: "FEATURES.md", Line: 12, Message: "unclosed fence"},
		},
		Summary: lint.Summary{Errors: 1},
	}
	srv.handleCheckResult(pipelineResult(report, nil))
	receiveBroadcast(t, srv, time.Second)

	rec := httptest.NewRecorder()
	srv.handleErrors(rec, httptest.NewRequest(http.MethodGet, "/api/errors", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Errors []errors.DocError `json:"errors"`
		Count  int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "fence-balance", payload.Errors[0].Rule)
	assert.Equal(t, 12, payload.Errors[0].Line)
}

func TestHandleHealth_DegradedOnFaults(t *testing.T) {
	srv := newTestServer(t, testConfig())

	srv.handleCheckResult(pipelineResult(nil, os.ErrNotExist))
	receiveBroadcast(t, srv, time.Second)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health["status"])
}

func TestMiddleware_BlockedUserAgent(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BlockedAgents = []string{"badbot"}
	srv := newTestServer(t, cfg)

	handler := srv.addMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "BadBot/1.0 (scraper)")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddleware_Preflight(t *testing.T) {
	srv := newTestServer(t, testConfig())

	reached := false
	handler := srv.addMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/sections", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, reached)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestMiddleware_CORSHeaders(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		allowed     []string
		origin      string
		wantHeader  string
	}{
		{"development wildcard", "development", nil, "http://anywhere.test", "*"},
		{"allowed origin echoed", "production", []string{"http://example.com"}, "http://example.com", "http://example.com"},
		{"production default blocks", "production", nil, "http://anywhere.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.Environment = tt.environment
			cfg.Server.AllowedOrigins = tt.allowed
			srv := newTestServer(t, cfg)

			handler := srv.addMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantHeader, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AllowedOrigins = []string{"example.com"}
	srv := newTestServer(t, cfg)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"serve host", "http://127.0.0.1:8120", true},
		{"localhost alias", "http://localhost:8120", true},
		{"configured extra origin", "https://example.com", true},
		{"wrong port", "http://localhost:9999", false},
		{"unknown host", "http://evil.test", false},
		{"bad scheme", "ftp://localhost:8120", false},
		{"missing origin", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, srv.checkOrigin(req))
		})
	}
}

func TestHandleCheckResult_ValidReportReloads(t *testing.T) {
	srv := newTestServer(t, testConfig())

	report := &lint.Report{ID: "check-2", File: "FEATURES.md"}
	srv.handleCheckResult(pipelineResult(report, nil))

	msg := receiveBroadcast(t, srv, time.Second)
	assert.Equal(t, "full_reload", msg.Type)
	assert.Equal(t, report, srv.LastReport())
}

func TestHandleCheckResult_LintErrorsShowOverlay(t *testing.T) {
	srv := newTestServer(t, testConfig())

	report := &lint.Report{
		ID:   "check-3",
		File: "FEATURES.md",
		Issues: []lint.Issue{
			{Rule: "section-sequence", Severity: lint.SeverityError, File: "FEATURES.md", Message: "expected section 2, found 3"},
		},
		Summary: lint.Summary{Errors: 1},
	}
	srv.handleCheckResult(pipelineResult(report, nil))

	msg := receiveBroadcast(t, srv, time.Second)
	assert.Equal(t, "lint_report", msg.Type)
	require.NotNil(t, msg.Report)
	assert.Len(t, msg.Report.Issues, 1)
}

func TestHandleCheckResult_OverlayDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ErrorOverlay = false
	srv := newTestServer(t, cfg)

	report := &lint.Report{ID: "check-4", Summary: lint.Summary{Errors: 1}}
	srv.handleCheckResult(pipelineResult(report, nil))

	msg := receiveBroadcast(t, srv, time.Second)
	assert.Equal(t, "full_reload", msg.Type)
}

func TestHandleCheckResult_LiveReloadDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.LiveReload = false
	cfg.Server.ErrorOverlay = false
	srv := newTestServer(t, cfg)

	srv.handleCheckResult(pipelineResult(&lint.Report{ID: "check-5"}, nil))
	assert.Empty(t, srv.broadcast)
}

func TestHandleCheckResult_CheckError(t *testing.T) {
	srv := newTestServer(t, testConfig())

	srv.handleCheckResult(pipelineResult(nil, os.ErrNotExist))

	msg := receiveBroadcast(t, srv, time.Second)
	assert.Equal(t, "check_error", msg.Type)
	assert.Equal(t, "FEATURES.md", msg.Path)
	assert.Contains(t, msg.Content, "file does not exist")
	assert.Nil(t, srv.LastReport())
	require.Len(t, srv.Faults(), 1)
}

func TestHandleCheckResult_RecoveryClearsFaults(t *testing.T) {
	srv := newTestServer(t, testConfig())

	srv.handleCheckResult(pipelineResult(nil, os.ErrNotExist))
	receiveBroadcast(t, srv, time.Second)
	require.NotEmpty(t, srv.Faults())

	srv.handleCheckResult(pipelineResult(&lint.Report{ID: "check-6", File: "FEATURES.md"}, nil))
	msg := receiveBroadcast(t, srv, time.Second)
	assert.Equal(t, "full_reload", msg.Type)
	assert.Empty(t, srv.Faults())
}

func TestHandleFileChange_Delete(t *testing.T) {
	srv := newTestServer(t, testConfig())
	guide := writeServerGuide(t, "test_server_delete_guide.md")
	require.NoError(t, srv.scanner.ScanFile(guide))
	require.Equal(t, 2, srv.registry.Count())

	filePath := srv.registry.GetOrdered()[0].FilePath
	err := srv.handleFileChange([]watcher.ChangeEvent{
		{Type: watcher.EventTypeDeleted, Path: filePath},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, srv.registry.Count())
	msg := receiveBroadcast(t, srv, time.Second)
	assert.Equal(t, "full_reload", msg.Type)
}

func TestHandleFileChange_ModifiedRunsCheck(t *testing.T) {
	srv := newTestServer(t, testConfig())
	guide := writeServerGuide(t, "test_server_modify_guide.md")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.pipeline.Start(ctx)

	err := srv.handleFileChange([]watcher.ChangeEvent{
		{Type: watcher.EventTypeModified, Path: guide},
	})
	require.NoError(t, err)

	msg := receiveBroadcast(t, srv, 5*time.Second)
	assert.Equal(t, "full_reload", msg.Type)

	require.NotNil(t, srv.LastReport())
	assert.True(t, srv.LastReport().Valid())
	assert.Equal(t, 2, srv.registry.Count())
}

func TestStartShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	guide := writeServerGuide(t, "test_server_lifecycle_guide.md")
	cfg.Documents.Paths = []string{guide}

	srv, err := New(cfg, logging.NewTestLogger())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(context.Background())
	}()

	require.Eventually(t, func() bool {
		srv.serverMutex.RLock()
		defer srv.serverMutex.RUnlock()
		return srv.httpServer != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// pipelineResult builds a check result the way the pipeline would,
// including the fault conversion of the report findings.
func pipelineResult(report *lint.Report, err error) pipeline.CheckResult {
	result := pipeline.CheckResult{Path: "FEATURES.md", Error: err}
	if err != nil {
		result.Faults = []errors.DocError{{
			File:     result.Path,
			Message:  err.Error(),
			Severity: errors.ErrorSeverityFatal,
		}}
	}
	if report != nil {
		result.Path = report.File
		result.Report = report
		for _, issue := range report.Issues {
			result.Faults = append(result.Faults, errors.DocError{
				File:     issue.File,
				Line:     issue.Line,
				Rule:     issue.Rule,
				Message:  issue.Message,
				Severity: errors.SeverityFromString(string(issue.Severity)),
			})
		}
	}
	return result
}
