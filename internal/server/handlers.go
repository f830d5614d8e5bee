package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"featmark/internal/errors"
	"featmark/internal/validation"
	"featmark/internal/version"
)

// sectionSummary is the JSON shape served by /api/sections.
type sectionSummary struct {
	Number          int      `json:"number"`
	Title           string   `json:"title"`
	Anchor          string   `json:"anchor"`
	File            string   `json:"file"`
	Line            int      `json:"line"`
	WordCount       int      `json:"word_count"`
	HasSnippet      bool     `json:"has_snippet"`
	SnippetLanguage string   `json:"snippet_language,omitempty"`
	CrossRefs       []string `json:"cross_refs,omitempty"`
}

// handleIndex serves the section listing page. The root pattern catches
// every unrouted path, so anything other than "/" is a 404.
func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	html, err := s.renderer.RenderIndexPage(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), err, "rendering index page")
		http.Error(w, "Failed to render index", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// handleSection serves one section page by its anchor.
func (s *PreviewServer) handleSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	anchor := strings.TrimPrefix(r.URL.Path, "/section/")
	if err := validation.ValidateAnchor(anchor); err != nil {
		http.Error(w, "Invalid section anchor", http.StatusBadRequest)
		return
	}
	if _, exists := s.registry.Get(anchor); !exists {
		http.Error(w, "Section not found", http.StatusNotFound)
		return
	}

	html, err := s.renderer.RenderSectionPage(r.Context(), anchor)
	if err != nil {
		s.logger.Error(r.Context(), err, "rendering section page", "anchor", anchor)
		http.Error(w, "Failed to render section", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// handleSections serves the registered sections as JSON, in guide order.
func (s *PreviewServer) handleSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sections := s.registry.GetOrdered()
	summaries := make([]sectionSummary, 0, len(sections))
	for _, section := range sections {
		summary := sectionSummary{
			Number:     section.Number,
			Title:      section.Title,
			Anchor:     section.Anchor,
			File:       section.FilePath,
			Line:       section.Line,
			WordCount:  section.WordCount,
			HasSnippet: section.HasSnippet(),
			CrossRefs:  section.CrossRefs,
		}
		if section.HasSnippet() {
			summary.SnippetLanguage = section.Snippet.Language
			if summary.SnippetLanguage == "" {
				summary.SnippetLanguage = "plain"
			}
		}
		summaries = append(summaries, summary)
	}

	s.writeJSON(w, r, summaries)
}

// handleReport serves the most recent check report. The overlay script
// fetches this on page load, so a 404 before the first check completes is
// part of the contract.
func (s *PreviewServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := s.LastReport()
	if report == nil {
		http.Error(w, "No check report yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, r, report)
}

// handleErrors serves the current document faults across all checked
// files, including warnings that do not trigger the overlay.
func (s *PreviewServer) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	faults := s.faults.GetErrors()
	payload := map[string]interface{}{
		"errors":    faults,
		"count":     len(faults),
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, r, payload)
}

// handleMetrics serves pipeline and cache counters as JSON.
func (s *PreviewServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := s.pipeline.GetMetrics().GetSnapshot()
	entries, size, maxSize := s.pipeline.CacheStats()

	payload := map[string]interface{}{
		"checks": map[string]interface{}{
			"total":            snapshot.TotalChecks,
			"successful":       snapshot.SuccessfulChecks,
			"failed":           snapshot.FailedChecks,
			"cache_hits":       snapshot.CacheHits,
			"average_duration": snapshot.AverageDuration.String(),
			"total_duration":   snapshot.TotalDuration.String(),
		},
		"cache": map[string]interface{}{
			"entries":        entries,
			"size_bytes":     size,
			"max_size_bytes": maxSize,
		},
		"queues": map[string]interface{}{
			"dropped_tasks":   snapshot.DroppedTasks,
			"dropped_results": snapshot.DroppedResults,
			"drop_reasons":    snapshot.DropReasons,
		},
	}
	s.writeJSON(w, r, payload)
}

// handleHealth reports server liveness along with registry, watcher,
// pipeline, and document state. Collected fault errors degrade the overall
// status without taking the endpoint down.
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	faults := s.faults.GetErrors()
	failing := 0
	for _, fault := range faults {
		if fault.Severity >= errors.ErrorSeverityError {
			failing++
		}
	}

	status := "healthy"
	documentStatus := "healthy"
	if failing > 0 {
		status = "degraded"
		documentStatus = "failing"
	}

	health := map[string]interface{}{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]interface{}{
			"server": map[string]interface{}{
				"status":  "healthy",
				"message": "HTTP server operational",
			},
			"registry": map[string]interface{}{
				"status":    "healthy",
				"documents": s.registry.DocumentCount(),
				"sections":  s.registry.Count(),
			},
			"documents": map[string]interface{}{
				"status": documentStatus,
				"faults": len(faults),
				"errors": failing,
			},
			"watcher": map[string]interface{}{
				"status": "healthy",
				"stats":  s.watcher.GetStats(),
			},
			"pipeline": map[string]interface{}{
				"status": "healthy",
				"checks": s.pipeline.GetMetrics().GetCheckCount(),
			},
		},
	}
	s.writeJSON(w, r, health)
}

func (s *PreviewServer) writeJSON(w http.ResponseWriter, r *http.Request, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(r.Context(), err, "encoding response", "path", r.URL.Path)
	}
}
