//go:build property
// +build property

package scanner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestMarkdownProperties tests invariant properties of document parsing
func TestMarkdownProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	// Property 1: generated guides with closed fences always audit as balanced
	properties.Property("balanced fences are accepted", prop.ForAll(
		func(sectionCount int) bool {
			content := buildGuide(sectionCount, true)
			return BalancedFences(content)
		},
		gen.IntRange(1, 30),
	))

	// Property 2: truncating the final closing fence is always detected
	properties.Property("truncated fences are rejected", prop.ForAll(
		func(sectionCount int) bool {
			content := buildGuide(sectionCount, true)
			idx := strings.LastIndex(content, "```")
			truncated := content[:idx]
			return !BalancedFences(truncated)
		},
		gen.IntRange(1, 30),
	))

	// Property 3: section extraction preserves count and ascending numbering
	properties.Property("section numbering is preserved", prop.ForAll(
		func(sectionCount int) bool {
			content := buildGuide(sectionCount, true)
			parsed, err := ParseDocument("guide.md", []byte(content))
			if err != nil {
				return false
			}
			if len(parsed.Sections) != sectionCount {
				return false
			}
			for i, section := range parsed.Sections {
				if section.Number != i+1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
	))

	// Property 4: parsing is deterministic
	properties.Property("parsing is deterministic", prop.ForAll(
		func(sectionCount int) bool {
			content := []byte(buildGuide(sectionCount, true))
			first, err1 := ParseDocument("guide.md", content)
			second, err2 := ParseDocument("guide.md", content)
			if err1 != nil || err2 != nil {
				return false
			}
			if len(first.Sections) != len(second.Sections) {
				return false
			}
			for i := range first.Sections {
				if first.Sections[i].Anchor != second.Sections[i].Anchor {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

// TestSlugifyProperties tests invariant properties of anchor generation
func TestSlugifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Slugs only ever contain lowercase letters, digits, hyphens, underscores
	properties.Property("slugs use the anchor alphabet", prop.ForAll(
		func(text string) bool {
			slug := Slugify(text)
			for _, r := range slug {
				valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
				if !valid {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`^[A-Za-z0-9 .()&_-]{0,40}$`),
	))

	// Slugifying a slug changes nothing
	properties.Property("slugify is idempotent", prop.ForAll(
		func(text string) bool {
			slug := Slugify(text)
			return Slugify(slug) == slug
		},
		gen.RegexMatch(`^[A-Za-z0-9 .()&_-]{0,40}$`),
	))

	properties.TestingRun(t)
}

// buildGuide generates a wellformed guide with the given number of sections
func buildGuide(sectionCount int, closeFences bool) string {
	var b strings.Builder
	b.WriteString("# Generated Guide\n\n")
	for i := 1; i <= sectionCount; i++ {
		fmt.Fprintf(&b, "## %d. Feature %d\n\n", i, i)
		fmt.Fprintf(&b, "Explanation paragraph for feature %d.\n\n", i)
		fmt.Fprintf(&b, "```javascript\nconsole.log(%d)\n", i)
		if closeFences {
			b.WriteString("```\n\n")
		}
	}
	return b.String()
}
