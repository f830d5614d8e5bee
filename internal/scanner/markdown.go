package scanner

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"featmark/internal/types"
)

// HeadingInfo describes one heading encountered during parsing, numbered or not.
type HeadingInfo struct {
	// Level is the heading level (1 for #, 2 for ##, ...)
	Level int
	// Text is the heading text without the marker prefix
	Text string
	// Anchor is the slug the heading renders to, disambiguated document-wide
	Anchor string
	// Line is the 1-based source line of the heading
	Line int
	// Number is the ordinal parsed from a "N. Title" heading, 0 otherwise
	Number int
	// Numbered indicates the heading matched the numbered section form
	Numbered bool
}

// RefInfo records one internal anchor link found anywhere in a document.
type RefInfo struct {
	// Target is the anchor the link points to, without the # prefix
	Target string
	// Line is the 1-based line of the enclosing block
	Line int
}

// ParsedDocument is the full extraction result for one Markdown file. It
// feeds the registry, the lint engine, and the renderers.
type ParsedDocument struct {
	// Info carries document-level metadata
	Info types.DocumentInfo
	// Sections holds the numbered level-two feature sections in source order
	Sections []*types.SectionInfo
	// Headings lists every heading in source order, including unnumbered ones
	Headings []HeadingInfo
	// Fences lists every fenced code block found by the raw-line audit
	Fences []FenceInfo
	// Refs lists every internal anchor link in the document, intro included
	Refs []RefInfo
	// TitleCount is the number of level-one headings (a wellformed guide has one)
	TitleCount int
	// LineCount is the number of source lines
	LineCount int
}

// numberedHeading matches section headings of the form "N. Title"
var numberedHeading = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)

// markdown is the shared parser used for extraction. GFM matches how the
// guides are read on hosting platforms.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ParseDocument extracts the section model from Markdown content. Hash and
// modification time on the result are left for the caller to fill in, since
// only the caller knows where the bytes came from.
func ParseDocument(path string, content []byte) (*ParsedDocument, error) {
	doc := markdown.Parser().Parse(text.NewReader(content))
	index := buildLineIndex(content)

	parsed := &ParsedDocument{
		Info:      types.DocumentInfo{FilePath: path},
		Fences:    auditFences(string(content)),
		LineCount: len(index),
	}

	usedAnchors := make(map[string]int)
	var current *types.SectionInfo

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			heading := HeadingInfo{
				Level: n.Level,
				Text:  nodeText(n, content),
				Line:  nodeLine(n, content, index),
			}
			heading.Anchor = uniqueAnchor(usedAnchors, Slugify(heading.Text))
			title := ""
			if match := numberedHeading.FindStringSubmatch(heading.Text); match != nil {
				heading.Number, _ = strconv.Atoi(match[1])
				heading.Numbered = true
				title = strings.TrimSpace(match[2])
			}
			parsed.Headings = append(parsed.Headings, heading)

			if n.Level == 1 {
				parsed.TitleCount++
				if parsed.Info.Title == "" {
					parsed.Info.Title = heading.Text
					parsed.Info.TitleAnchor = heading.Anchor
				}
				current = nil
				continue
			}

			if n.Level == 2 {
				if heading.Numbered {
					current = &types.SectionInfo{
						Number:   heading.Number,
						Title:    title,
						Anchor:   heading.Anchor,
						FilePath: path,
						Line:     heading.Line,
					}
					parsed.Sections = append(parsed.Sections, current)
				} else {
					// Unnumbered level-two headings end the previous section
					// but do not start a feature section.
					current = nil
				}
				continue
			}

			// Deeper headings stay inside the current section.

		default:
			line := nodeLine(node, content, index)
			refs := collectRefs(node)
			for _, target := range refs {
				parsed.Refs = append(parsed.Refs, RefInfo{Target: target, Line: line})
			}

			if current == nil {
				continue
			}
			for _, target := range refs {
				if !containsString(current.CrossRefs, target) {
					current.CrossRefs = append(current.CrossRefs, target)
				}
			}
			if paragraph, ok := node.(*ast.Paragraph); ok {
				prose := nodeText(paragraph, content)
				if current.Explanation == "" {
					current.Explanation = prose
				}
				current.WordCount += len(strings.Fields(prose))
			}
		}
	}

	fillSectionBounds(parsed)
	attachSnippets(parsed)

	parsed.Info.SectionCount = len(parsed.Sections)
	return parsed, nil
}

// fillSectionBounds computes each section's EndLine from the next heading of
// level one or two, or the end of the file.
func fillSectionBounds(parsed *ParsedDocument) {
	var boundaries []int
	for _, heading := range parsed.Headings {
		if heading.Level <= 2 {
			boundaries = append(boundaries, heading.Line)
		}
	}
	sort.Ints(boundaries)

	for _, section := range parsed.Sections {
		section.EndLine = parsed.LineCount
		for _, line := range boundaries {
			if line > section.Line {
				section.EndLine = line - 1
				break
			}
		}
	}
}

// attachSnippets assigns each section the first fence opening inside its body
func attachSnippets(parsed *ParsedDocument) {
	for _, section := range parsed.Sections {
		for i := range parsed.Fences {
			fence := &parsed.Fences[i]
			if fence.OpenLine > section.Line && fence.OpenLine <= section.EndLine {
				section.Snippet = &types.SnippetInfo{
					Language: fence.Language,
					Code:     fence.Code,
					Line:     fence.OpenLine,
					Closed:   fence.Closed,
				}
				break
			}
		}
	}
}

// Anchors returns the set of anchors the document defines, one per heading
func (p *ParsedDocument) Anchors() map[string]bool {
	anchors := make(map[string]bool, len(p.Headings))
	for _, heading := range p.Headings {
		anchors[heading.Anchor] = true
	}
	return anchors
}

// SectionFences returns the fences opening within the given section's body
func (p *ParsedDocument) SectionFences(section *types.SectionInfo) []FenceInfo {
	var fences []FenceInfo
	for _, fence := range p.Fences {
		if fence.OpenLine > section.Line && fence.OpenLine <= section.EndLine {
			fences = append(fences, fence)
		}
	}
	return fences
}

// collectRefs walks a block's inline tree and returns in-document anchor
// targets in encounter order.
func collectRefs(node ast.Node) []string {
	var refs []string
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if strings.HasPrefix(dest, "#") && len(dest) > 1 {
			refs = append(refs, dest[1:])
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// nodeText reconstructs a block node's source text from its line segments.
// Hard-wrapped lines are joined with single spaces.
func nodeText(node ast.Node, content []byte) string {
	lines := node.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(segment.Value(content))))
	}
	return strings.Join(parts, " ")
}

// nodeLine returns the 1-based source line of a block node, or 0 when the
// node has no source segments (an empty heading, for instance).
func nodeLine(node ast.Node, content []byte, index []int) int {
	lines := node.Lines()
	if lines.Len() == 0 {
		// Fenced code blocks keep their body in Lines; fall back to the
		// first child for other segment-less containers.
		if node.ChildCount() > 0 {
			return nodeLine(node.FirstChild(), content, index)
		}
		return 0
	}
	return lineForOffset(index, lines.At(0).Start)
}

// buildLineIndex returns the byte offset of each line start
func buildLineIndex(content []byte) []int {
	index := []int{0}
	for i, b := range content {
		if b == '\n' && i+1 < len(content) {
			index = append(index, i+1)
		}
	}
	return index
}

// lineForOffset converts a byte offset to a 1-based line number
func lineForOffset(index []int, offset int) int {
	line := sort.Search(len(index), func(i int) bool {
		return index[i] > offset
	})
	return line
}

// Slugify converts heading text to the anchor hosting platforms generate:
// lowercase, punctuation stripped, spaces to hyphens. "3. API Routes"
// becomes "3-api-routes".
func Slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '\t':
			b.WriteRune('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// uniqueAnchor disambiguates duplicate slugs the way hosting platforms do,
// appending -1, -2, and so on.
func uniqueAnchor(used map[string]int, slug string) string {
	count, seen := used[slug]
	if !seen {
		used[slug] = 0
		return slug
	}
	used[slug] = count + 1
	return slug + "-" + strconv.Itoa(count+1)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
