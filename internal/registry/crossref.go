package registry

import (
	"regexp"
	"sort"
	"strings"

	"featmark/internal/types"
)

// CrossRefAnalyzer resolves internal anchor links between registered sections
type CrossRefAnalyzer struct {
	registry *DocumentRegistry
}

// BrokenRef describes an internal link whose target anchor does not exist
// in the owning document.
type BrokenRef struct {
	SourceAnchor string
	SourceFile   string
	Target       string
}

// NewCrossRefAnalyzer creates a new cross-reference analyzer
func NewCrossRefAnalyzer(registry *DocumentRegistry) *CrossRefAnalyzer {
	return &CrossRefAnalyzer{
		registry: registry,
	}
}

// refPattern matches inline Markdown links to in-document anchors: [text](#anchor)
var refPattern = regexp.MustCompile(`\]\(#([A-Za-z0-9][A-Za-z0-9_-]*)\)`)

// ExtractRefsFromContent extracts internal anchor targets from raw Markdown.
// Lines inside fenced code blocks are skipped so that snippet code mentioning
// fragment URLs does not count as a cross-reference.
func ExtractRefsFromContent(content string) []string {
	seen := make(map[string]bool)
	var refs []string

	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		for _, match := range refPattern.FindAllStringSubmatch(line, -1) {
			target := match[1]
			if !seen[target] {
				seen[target] = true
				refs = append(refs, target)
			}
		}
	}

	return refs
}

// BrokenRefs returns every cross-reference whose target anchor is not defined
// in the same document. The document title anchor counts as defined.
func (ca *CrossRefAnalyzer) BrokenRefs() []BrokenRef {
	ca.registry.mutex.RLock()
	defer ca.registry.mutex.RUnlock()

	// Anchor sets per file, including the title anchor
	anchors := make(map[string]map[string]bool)
	for _, section := range ca.registry.sections {
		if anchors[section.FilePath] == nil {
			anchors[section.FilePath] = make(map[string]bool)
		}
		anchors[section.FilePath][section.Anchor] = true
	}
	for path, doc := range ca.registry.documents {
		if doc.TitleAnchor == "" {
			continue
		}
		if anchors[path] == nil {
			anchors[path] = make(map[string]bool)
		}
		anchors[path][doc.TitleAnchor] = true
	}

	var broken []BrokenRef
	for _, section := range ca.registry.sections {
		defined := anchors[section.FilePath]
		for _, target := range section.CrossRefs {
			if !defined[target] {
				broken = append(broken, BrokenRef{
					SourceAnchor: section.Anchor,
					SourceFile:   section.FilePath,
					Target:       target,
				})
			}
		}
	}

	sort.Slice(broken, func(i, j int) bool {
		if broken[i].SourceFile != broken[j].SourceFile {
			return broken[i].SourceFile < broken[j].SourceFile
		}
		if broken[i].SourceAnchor != broken[j].SourceAnchor {
			return broken[i].SourceAnchor < broken[j].SourceAnchor
		}
		return broken[i].Target < broken[j].Target
	})
	return broken
}

// Referencers returns sections that link to the given anchor
func (ca *CrossRefAnalyzer) Referencers(anchor string) []*types.SectionInfo {
	ca.registry.mutex.RLock()
	defer ca.registry.mutex.RUnlock()

	var referencers []*types.SectionInfo
	for _, section := range ca.registry.sections {
		for _, target := range section.CrossRefs {
			if target == anchor {
				referencers = append(referencers, section)
				break
			}
		}
	}

	sort.Slice(referencers, func(i, j int) bool {
		return referencers[i].Number < referencers[j].Number
	})
	return referencers
}

// RefGraph returns the full cross-reference graph keyed by source anchor
func (ca *CrossRefAnalyzer) RefGraph() map[string][]string {
	ca.registry.mutex.RLock()
	defer ca.registry.mutex.RUnlock()

	graph := make(map[string][]string)
	for anchor, section := range ca.registry.sections {
		graph[anchor] = make([]string, len(section.CrossRefs))
		copy(graph[anchor], section.CrossRefs)
	}

	return graph
}
