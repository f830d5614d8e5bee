package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"featmark/internal/types"
)

func TestExtractRefsFromContent(t *testing.T) {
	content := `Static generation pairs well with [ISR](#3-incremental-static-regeneration-isr)
for content that changes occasionally. See also [routing](#1-file-system-based-routing).

` + "```javascript\n" + `// fetch('#3-incremental-static-regeneration-isr') stays out of the refs
` + "```\n"

	refs := ExtractRefsFromContent(content)

	assert.Equal(t, []string{
		"3-incremental-static-regeneration-isr",
		"1-file-system-based-routing",
	}, refs)
}

func TestExtractRefsFromContent_Deduplicates(t *testing.T) {
	content := "[a](#target) and [b](#target) and [c](#other)"

	refs := ExtractRefsFromContent(content)

	assert.Equal(t, []string{"target", "other"}, refs)
}

func TestExtractRefsFromContent_IgnoresExternalLinks(t *testing.T) {
	content := "[docs](https://example.com/docs#fragment) and [rel](./other.md)"

	refs := ExtractRefsFromContent(content)

	assert.Empty(t, refs)
}

func TestCrossRefAnalyzer_BrokenRefs(t *testing.T) {
	registry := NewDocumentRegistry()
	analyzer := NewCrossRefAnalyzer(registry)

	registry.Register(&types.SectionInfo{
		Number:    1,
		Title:     "SSR",
		Anchor:    "1-ssr",
		FilePath:  "/guides/FEATURES.md",
		CrossRefs: []string{"2-ssg", "9-missing"},
	})
	registry.Register(&types.SectionInfo{
		Number:   2,
		Title:    "SSG",
		Anchor:   "2-ssg",
		FilePath: "/guides/FEATURES.md",
	})

	broken := analyzer.BrokenRefs()

	assert.Len(t, broken, 1)
	assert.Equal(t, "1-ssr", broken[0].SourceAnchor)
	assert.Equal(t, "9-missing", broken[0].Target)
}

func TestCrossRefAnalyzer_TitleAnchorResolves(t *testing.T) {
	registry := NewDocumentRegistry()
	analyzer := NewCrossRefAnalyzer(registry)

	registry.RegisterDocument(&types.DocumentInfo{
		Title:       "Next.js Features",
		TitleAnchor: "nextjs-features",
		FilePath:    "/guides/FEATURES.md",
	})
	registry.Register(&types.SectionInfo{
		Number:    1,
		Title:     "SSR",
		Anchor:    "1-ssr",
		FilePath:  "/guides/FEATURES.md",
		CrossRefs: []string{"nextjs-features"},
	})

	assert.Empty(t, analyzer.BrokenRefs())
}

func TestCrossRefAnalyzer_RefsScopedPerFile(t *testing.T) {
	registry := NewDocumentRegistry()
	analyzer := NewCrossRefAnalyzer(registry)

	// Anchor exists, but in a different document
	registry.Register(&types.SectionInfo{
		Number:    1,
		Title:     "SSR",
		Anchor:    "1-ssr",
		FilePath:  "/guides/a.md",
		CrossRefs: []string{"1-routing"},
	})
	registry.Register(&types.SectionInfo{
		Number:   1,
		Title:    "Routing",
		Anchor:   "1-routing",
		FilePath: "/guides/b.md",
	})

	broken := analyzer.BrokenRefs()

	assert.Len(t, broken, 1)
	assert.Equal(t, "1-routing", broken[0].Target)
	assert.Equal(t, "/guides/a.md", broken[0].SourceFile)
}

func TestCrossRefAnalyzer_Referencers(t *testing.T) {
	registry := NewDocumentRegistry()
	analyzer := NewCrossRefAnalyzer(registry)

	registry.Register(&types.SectionInfo{
		Number:    2,
		Title:     "SSG",
		Anchor:    "2-ssg",
		FilePath:  "/guides/FEATURES.md",
		CrossRefs: []string{"3-isr"},
	})
	registry.Register(&types.SectionInfo{
		Number:    5,
		Title:     "Caching",
		Anchor:    "5-caching",
		FilePath:  "/guides/FEATURES.md",
		CrossRefs: []string{"3-isr"},
	})
	registry.Register(&types.SectionInfo{
		Number:   3,
		Title:    "ISR",
		Anchor:   "3-isr",
		FilePath: "/guides/FEATURES.md",
	})

	referencers := analyzer.Referencers("3-isr")

	assert.Len(t, referencers, 2)
	assert.Equal(t, 2, referencers[0].Number)
	assert.Equal(t, 5, referencers[1].Number)

	assert.Empty(t, analyzer.Referencers("2-ssg"))
}

func TestCrossRefAnalyzer_RefGraph(t *testing.T) {
	registry := NewDocumentRegistry()
	analyzer := NewCrossRefAnalyzer(registry)

	registry.Register(&types.SectionInfo{
		Number:    1,
		Title:     "SSR",
		Anchor:    "1-ssr",
		FilePath:  "/guides/FEATURES.md",
		CrossRefs: []string{"2-ssg"},
	})
	registry.Register(&types.SectionInfo{
		Number:   2,
		Title:    "SSG",
		Anchor:   "2-ssg",
		FilePath: "/guides/FEATURES.md",
	})

	graph := analyzer.RefGraph()

	assert.Len(t, graph, 2)
	assert.Equal(t, []string{"2-ssg"}, graph["1-ssr"])
	assert.Empty(t, graph["2-ssg"])
}
