// Package export writes the registered guide out as a static HTML site:
// an index page plus one page per section, or a single self-contained page.
// An optional audit re-parses the emitted HTML and reports links that do
// not resolve inside the exported tree.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"featmark/internal/logging"
	"featmark/internal/registry"
	"featmark/internal/render"
)

// Options configures one export run.
type Options struct {
	// OutputDir is the directory the site is written into
	OutputDir string
	// SinglePage collapses the whole guide into one page instead of the
	// index-plus-sections layout
	SinglePage bool
	// CheckLinks runs the link audit over the emitted HTML
	CheckLinks bool
}

// Result summarizes what an export run produced.
type Result struct {
	// Files lists every file written, index first
	Files []string `json:"files"`
	// Sections is the number of guide sections covered by the export
	Sections int `json:"sections"`
	// Broken lists links that failed the audit; empty when CheckLinks is
	// off or everything resolved
	Broken []BrokenLink `json:"broken,omitempty"`
	// Duration is the wall-clock time of the run
	Duration time.Duration `json:"duration"`
}

// Clean reports whether the audit found no broken links.
func (r *Result) Clean() bool {
	return len(r.Broken) == 0
}

// Exporter renders registered documents into static pages.
type Exporter struct {
	registry *registry.DocumentRegistry
	renderer *render.DocumentRenderer
	logger   logging.Logger
}

// NewExporter creates an exporter over an already populated registry.
func NewExporter(reg *registry.DocumentRegistry, renderer *render.DocumentRenderer, logger logging.Logger) *Exporter {
	return &Exporter{
		registry: reg,
		renderer: renderer,
		logger:   logger.WithComponent("export"),
	}
}

// Export writes the guide under opts.OutputDir and, when opts.CheckLinks is
// set, audits the links in the written pages. The output directory is
// created if needed; existing files are overwritten.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if e.registry.DocumentCount() == 0 {
		return nil, fmt.Errorf("no documents registered")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory not set")
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var files []string
	var err error
	if opts.SinglePage {
		files, err = e.writeSinglePage(ctx, opts.OutputDir)
	} else {
		files, err = e.writeSite(ctx, opts.OutputDir)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		Files:    files,
		Sections: e.registry.Count(),
	}

	if opts.CheckLinks {
		broken, err := e.auditLinks(files, opts.OutputDir)
		if err != nil {
			return nil, err
		}
		result.Broken = broken
	}

	result.Duration = time.Since(start)
	e.logger.Info(ctx, "guide exported",
		"output_dir", opts.OutputDir,
		"files", len(result.Files),
		"sections", result.Sections,
		"broken_links", len(result.Broken),
		"duration", result.Duration.String())
	return result, nil
}

// writeSite emits the index page plus section/<anchor>/index.html for every
// registered section. Pages link to each other with absolute paths, so the
// tree is meant to be served from the output directory as the site root.
func (e *Exporter) writeSite(ctx context.Context, outputDir string) ([]string, error) {
	index, err := e.renderer.RenderStaticIndexPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}

	indexPath := filepath.Join(outputDir, "index.html")
	if err := os.WriteFile(indexPath, []byte(index), 0644); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}
	files := []string{indexPath}

	for _, section := range e.registry.GetOrdered() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := e.renderer.RenderStaticSectionPage(ctx, section.Anchor)
		if err != nil {
			return nil, fmt.Errorf("rendering section %s: %w", section.Anchor, err)
		}

		dir := filepath.Join(outputDir, "section", section.Anchor)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}

		pagePath := filepath.Join(dir, "index.html")
		if err := os.WriteFile(pagePath, []byte(page), 0644); err != nil {
			return nil, fmt.Errorf("writing section %s: %w", section.Anchor, err)
		}
		files = append(files, pagePath)
	}

	return files, nil
}

// writeSinglePage emits the whole guide as one index.html.
func (e *Exporter) writeSinglePage(ctx context.Context, outputDir string) ([]string, error) {
	page, err := e.renderer.RenderStaticDocumentPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}

	pagePath := filepath.Join(outputDir, "index.html")
	if err := os.WriteFile(pagePath, []byte(page), 0644); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	return []string{pagePath}, nil
}
