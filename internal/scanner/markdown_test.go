package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_Sections(t *testing.T) {
	content := []byte(`# Next.js Features

Overview paragraph with a [link](#2-static-site-generation-ssg).

## 1. Server-Side Rendering (SSR)

Pages are rendered on every request with fresh data.

` + "```javascript\n" + `export async function getServerSideProps() {
  return { props: {} }
}
` + "```\n" + `
## 2. Static Site Generation (SSG)

Pages are rendered once at build time.
`)

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)

	assert.Equal(t, "Next.js Features", parsed.Info.Title)
	assert.Equal(t, "nextjs-features", parsed.Info.TitleAnchor)
	assert.Equal(t, 1, parsed.TitleCount)
	assert.Equal(t, 2, parsed.Info.SectionCount)
	require.Len(t, parsed.Sections, 2)

	ssr := parsed.Sections[0]
	assert.Equal(t, 1, ssr.Number)
	assert.Equal(t, "Server-Side Rendering (SSR)", ssr.Title)
	assert.Equal(t, "1-server-side-rendering-ssr", ssr.Anchor)
	assert.Equal(t, 5, ssr.Line)
	assert.Equal(t, "Pages are rendered on every request with fresh data.", ssr.Explanation)
	require.True(t, ssr.HasSnippet())
	assert.Equal(t, "javascript", ssr.Snippet.Language)
	assert.True(t, ssr.Snippet.Closed)
	assert.Contains(t, ssr.Snippet.Code, "getServerSideProps")

	ssg := parsed.Sections[1]
	assert.Equal(t, 2, ssg.Number)
	assert.Equal(t, "2-static-site-generation-ssg", ssg.Anchor)
	assert.False(t, ssg.HasSnippet())

	// The intro link is recorded document-wide but belongs to no section
	require.Len(t, parsed.Refs, 1)
	assert.Equal(t, "2-static-site-generation-ssg", parsed.Refs[0].Target)
	assert.Empty(t, ssr.CrossRefs)
}

func TestParseDocument_SectionBounds(t *testing.T) {
	content := []byte(`# Guide

## 1. First

One paragraph.

### Detail

Sub-detail stays inside the section.

## 2. Second

Another paragraph.
`)

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 2)

	first := parsed.Sections[0]
	second := parsed.Sections[1]

	assert.Equal(t, 3, first.Line)
	assert.Equal(t, second.Line-1, first.EndLine)
	assert.Equal(t, parsed.LineCount, second.EndLine)

	// The level-three heading did not end the first section
	assert.Greater(t, first.EndLine, 7)
}

func TestParseDocument_CrossRefsDeduplicated(t *testing.T) {
	content := []byte(`# Guide

## 1. First

See [second](#2-second) and again [second](#2-second).

## 2. Second

Back to [first](#1-first).
`)

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 2)

	assert.Equal(t, []string{"2-second"}, parsed.Sections[0].CrossRefs)
	assert.Equal(t, []string{"1-first"}, parsed.Sections[1].CrossRefs)

	// Document-wide refs keep one entry per occurrence site
	assert.Len(t, parsed.Refs, 3)
}

func TestParseDocument_UnnumberedHeadings(t *testing.T) {
	content := []byte(`# Guide

## Introduction

Intro prose, not a feature section.

## 1. Routing

Routing prose.

## Appendix

Closing prose.
`)

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)

	require.Len(t, parsed.Sections, 1)
	assert.Equal(t, "Routing", parsed.Sections[0].Title)

	// All four headings are recorded for lint inspection
	require.Len(t, parsed.Headings, 4)
	assert.False(t, parsed.Headings[1].Numbered)
	assert.True(t, parsed.Headings[2].Numbered)
	assert.Equal(t, 1, parsed.Headings[2].Number)
}

func TestParseDocument_MultipleTitles(t *testing.T) {
	content := []byte("# One\n\n# Two\n\n## 1. Section\n\nProse.\n")

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)

	assert.Equal(t, 2, parsed.TitleCount)
	assert.Equal(t, "One", parsed.Info.Title)
}

func TestParseDocument_DuplicateAnchorsDisambiguated(t *testing.T) {
	content := []byte("# Guide\n\n## 1. Caching\n\nFirst.\n\n## 1. Caching\n\nSecond.\n")

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 2)

	assert.Equal(t, "1-caching", parsed.Sections[0].Anchor)
	assert.Equal(t, "1-caching-1", parsed.Sections[1].Anchor)
}

func TestParseDocument_WordCount(t *testing.T) {
	content := []byte(`# Guide

## 1. Counting

Three words here.

Two more.

` + "```\ncode words do not count\n```\n")

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)

	assert.Equal(t, 5, parsed.Sections[0].WordCount)
}

func TestParseDocument_SectionFences(t *testing.T) {
	content := []byte(`# Guide

## 1. Two Snippets

Prose.

` + "```js\nfirst()\n```\n\n```js\nsecond()\n```\n")

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)

	section := parsed.Sections[0]
	fences := parsed.SectionFences(section)
	assert.Len(t, fences, 2)

	// The attached snippet is the first fence
	require.True(t, section.HasSnippet())
	assert.Contains(t, section.Snippet.Code, "first()")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "numbered heading", in: "3. API Routes", want: "3-api-routes"},
		{name: "parenthesized acronym", in: "1. Server-Side Rendering (SSR)", want: "1-server-side-rendering-ssr"},
		{name: "ampersand dropped", in: "Redirects & Rewrites", want: "redirects--rewrites"},
		{name: "underscores kept", in: "custom_app", want: "custom_app"},
		{name: "surrounding space trimmed", in: "  Edge Runtime  ", want: "edge-runtime"},
		{name: "dots dropped", in: "Next.js Features", want: "nextjs-features"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestParseDocument_EmptyContent(t *testing.T) {
	parsed, err := ParseDocument("guide.md", []byte(""))
	require.NoError(t, err)

	assert.Equal(t, "", parsed.Info.Title)
	assert.Equal(t, 0, parsed.TitleCount)
	assert.Empty(t, parsed.Sections)
}

func TestParseDocument_HardWrappedExplanation(t *testing.T) {
	content := []byte("# Guide\n\n## 1. Wrapping\n\nThis explanation\nspans two lines.\n")

	parsed, err := ParseDocument("guide.md", content)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)

	assert.Equal(t, "This explanation spans two lines.", parsed.Sections[0].Explanation)
	assert.False(t, strings.Contains(parsed.Sections[0].Explanation, "\n"))
}
