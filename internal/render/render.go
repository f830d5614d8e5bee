// Package render turns registered guide sections into browser pages and
// terminal output. HTML goes through goldmark with the same heading slugs
// the scanner assigns, so cross-references keep resolving after conversion;
// terminal output goes through glamour with the configured theme and wrap
// width.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"featmark/internal/registry"
	"featmark/internal/scanner"
	"featmark/internal/types"
	"featmark/internal/validation"

	"github.com/a-h/templ"
	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// DefaultTheme is the glamour style used when configuration does not set one.
const DefaultTheme = "auto"

// DefaultWidth is the terminal wrap column used when configuration does not
// set one.
const DefaultWidth = 80

// RendererConfig controls how rendered output looks.
type RendererConfig struct {
	// Theme is a glamour style name; "auto" picks light or dark from the
	// terminal background
	Theme string
	// Width is the terminal word-wrap column
	Width int
}

// DocumentRenderer renders sections from a registry as full HTML pages for
// the preview server and as styled text for the terminal.
type DocumentRenderer struct {
	registry *registry.DocumentRegistry
	markdown goldmark.Markdown
	config   RendererConfig

	termOnce sync.Once
	termMu   sync.Mutex
	term     *glamour.TermRenderer
	termErr  error
}

// NewDocumentRenderer creates a renderer over the given registry. Zero
// config fields fall back to DefaultTheme and DefaultWidth.
func NewDocumentRenderer(reg *registry.DocumentRegistry, config RendererConfig) *DocumentRenderer {
	if config.Theme == "" {
		config.Theme = DefaultTheme
	}
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}

	return &DocumentRenderer{
		registry: reg,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		config: config,
	}
}

// RenderMarkdown converts Markdown to an HTML fragment. Heading ids use the
// scanner's slug rules, not goldmark's, so element ids always agree with the
// anchors in the registry.
func (r *DocumentRenderer) RenderMarkdown(content []byte) (string, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext(parser.WithIDs(newAnchorIDs()))
	if err := r.markdown.Convert(content, &buf, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderFile converts one Markdown file to an HTML fragment.
func (r *DocumentRenderer) RenderFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return r.RenderMarkdown(content)
}

// RenderSectionHTML renders one registered section's body as an HTML
// fragment.
func (r *DocumentRenderer) RenderSectionHTML(anchor string) (string, error) {
	section, err := r.lookup(anchor)
	if err != nil {
		return "", err
	}

	source, err := sectionSource(section)
	if err != nil {
		return "", err
	}

	return r.RenderMarkdown(source)
}

// RenderSectionPage renders one registered section as a complete HTML page
// with navigation to its neighbors.
func (r *DocumentRenderer) RenderSectionPage(ctx context.Context, anchor string) (string, error) {
	section, err := r.lookup(anchor)
	if err != nil {
		return "", err
	}

	source, err := sectionSource(section)
	if err != nil {
		return "", err
	}

	body, err := r.RenderMarkdown(source)
	if err != nil {
		return "", err
	}

	prev, next := r.neighbors(section)
	return RenderPage(ctx, SectionPage(section, body, prev, next))
}

// RenderIndexPage renders the section listing as a complete HTML page.
func (r *DocumentRenderer) RenderIndexPage(ctx context.Context) (string, error) {
	return RenderPage(ctx, IndexPage(r.indexTitle(), r.registry.GetOrdered()))
}

// RenderStaticIndexPage renders the section listing without the preview
// chrome, for export.
func (r *DocumentRenderer) RenderStaticIndexPage(ctx context.Context) (string, error) {
	return RenderPage(ctx, StaticIndexPage(r.indexTitle(), r.registry.GetOrdered()))
}

// RenderStaticSectionPage renders one section without the preview chrome,
// for export.
func (r *DocumentRenderer) RenderStaticSectionPage(ctx context.Context, anchor string) (string, error) {
	section, err := r.lookup(anchor)
	if err != nil {
		return "", err
	}

	source, err := sectionSource(section)
	if err != nil {
		return "", err
	}

	body, err := r.RenderMarkdown(source)
	if err != nil {
		return "", err
	}

	prev, next := r.neighbors(section)
	return RenderPage(ctx, StaticSectionPage(section, body, prev, next))
}

// RenderStaticDocumentPage renders every registered document into one
// self-contained page, for single-page export. Fragment links resolve
// locally because all sections share the page.
func (r *DocumentRenderer) RenderStaticDocumentPage(ctx context.Context) (string, error) {
	docs := r.registry.Documents()
	if len(docs) == 0 {
		return "", fmt.Errorf("no documents registered")
	}

	var bodies []string
	for _, doc := range docs {
		body, err := r.RenderFile(doc.FilePath)
		if err != nil {
			return "", err
		}
		bodies = append(bodies, body)
	}

	return RenderPage(ctx, StaticLayout(r.indexTitle(), templ.Raw(strings.Join(bodies, "\n"))))
}

func (r *DocumentRenderer) indexTitle() string {
	if docs := r.registry.Documents(); len(docs) > 0 && docs[0].Title != "" {
		return docs[0].Title
	}
	return "Feature Guide"
}

// RenderTerminal renders Markdown for the terminal with the configured
// glamour theme.
func (r *DocumentRenderer) RenderTerminal(content string) (string, error) {
	r.termOnce.Do(func() {
		opts := []glamour.TermRendererOption{
			glamour.WithWordWrap(r.config.Width),
		}
		if r.config.Theme == DefaultTheme {
			opts = append(opts, glamour.WithAutoStyle())
		} else {
			opts = append(opts, glamour.WithStylePath(r.config.Theme))
		}
		r.term, r.termErr = glamour.NewTermRenderer(opts...)
	})
	if r.termErr != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", r.termErr)
	}

	// TermRenderer keeps an internal buffer and is not safe for
	// concurrent Render calls.
	r.termMu.Lock()
	defer r.termMu.Unlock()
	return r.term.Render(content)
}

// RenderSectionTerminal renders one registered section for the terminal.
func (r *DocumentRenderer) RenderSectionTerminal(anchor string) (string, error) {
	section, err := r.lookup(anchor)
	if err != nil {
		return "", err
	}

	source, err := sectionSource(section)
	if err != nil {
		return "", err
	}

	return r.RenderTerminal(string(source))
}

// lookup validates an anchor and resolves it against the registry.
func (r *DocumentRenderer) lookup(anchor string) (*types.SectionInfo, error) {
	if err := validation.ValidateAnchor(anchor); err != nil {
		return nil, fmt.Errorf("invalid anchor: %w", err)
	}

	section, exists := r.registry.Get(anchor)
	if !exists {
		return nil, fmt.Errorf("section not found: %s", anchor)
	}
	return section, nil
}

// neighbors returns the sections before and after the given one in registry
// order. Either may be nil at the ends of the guide.
func (r *DocumentRenderer) neighbors(section *types.SectionInfo) (prev, next *types.SectionInfo) {
	ordered := r.registry.GetOrdered()
	for i, candidate := range ordered {
		if candidate.Anchor != section.Anchor {
			continue
		}
		if i > 0 {
			prev = ordered[i-1]
		}
		if i+1 < len(ordered) {
			next = ordered[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// sectionSource returns the section's Markdown slice from its file, heading
// line through body end.
func sectionSource(section *types.SectionInfo) ([]byte, error) {
	content, err := os.ReadFile(section.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", section.FilePath, err)
	}

	lines := strings.Split(string(content), "\n")
	start := section.Line - 1
	end := section.EndLine
	if start < 0 || start >= len(lines) {
		return nil, fmt.Errorf("section %s starts at line %d but %s has %d lines",
			section.Anchor, section.Line, section.FilePath, len(lines))
	}
	if end < section.Line || end > len(lines) {
		end = len(lines)
	}

	return []byte(strings.Join(lines[start:end], "\n")), nil
}

// anchorIDs assigns heading element ids with the scanner's slug rules so a
// rendered page and the registry agree on every anchor.
type anchorIDs struct {
	used map[string]int
}

func newAnchorIDs() *anchorIDs {
	return &anchorIDs{used: make(map[string]int)}
}

// Generate implements parser.IDs.
func (a *anchorIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	slug := scanner.Slugify(string(value))
	if slug == "" {
		slug = "section"
	}

	count, seen := a.used[slug]
	if !seen {
		a.used[slug] = 0
		return []byte(slug)
	}
	a.used[slug] = count + 1
	return fmt.Appendf(nil, "%s-%d", slug, count+1)
}

// Put implements parser.IDs. Explicit heading ids do not occur in guide
// documents, so there is nothing to reserve.
func (a *anchorIDs) Put(value []byte) {}
