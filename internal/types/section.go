// Package types provides common type definitions used throughout the featmark CLI.
// This package contains shared types to avoid circular dependencies between packages.
package types

import "time"

// SectionInfo contains comprehensive metadata about a feature section discovered
// in a guide document, including its heading, prose, snippet, and change-detection
// information used by the scanner, registry, and check pipeline.
type SectionInfo struct {
	// Number is the ordinal from the section heading (e.g., 3 for "## 3. API Routes")
	Number int
	// Title is the section title with the numeric prefix stripped
	Title string
	// Anchor is the GitHub-style slug the heading renders to (e.g., "3-api-routes")
	Anchor string
	// FilePath is the absolute path to the Markdown file containing the section
	FilePath string
	// Line is the 1-based line of the section heading within the file
	Line int
	// EndLine is the 1-based line where the section body ends (the line before
	// the next top-level heading, or the file's last line)
	EndLine int
	// Explanation holds the section's first prose paragraph
	Explanation string
	// Snippet describes the section's fenced code block (nil when the section has none)
	Snippet *SnippetInfo
	// CrossRefs lists internal anchors this section links to
	CrossRefs []string
	// LastMod tracks the last modification time for change detection
	LastMod time.Time
	// Hash provides a CRC32 checksum of the owning file for efficient change detection
	Hash string
	// WordCount counts prose words in the section body, excluding snippet code
	WordCount int
}

// SnippetInfo describes a fenced code block attached to a section.
type SnippetInfo struct {
	// Language is the fence's language hint ("" for a plain fence)
	Language string
	// Code is the fence body without the fence markers
	Code string
	// Line is the 1-based line of the opening fence
	Line int
	// Closed indicates whether the opening fence had a matching closing fence
	Closed bool
}

// DocumentInfo summarizes one scanned guide document.
type DocumentInfo struct {
	// Title is the document's single level-one heading text
	Title string
	// TitleAnchor is the slug the title heading renders to
	TitleAnchor string
	// FilePath is the absolute path to the Markdown file
	FilePath string
	// SectionCount is the number of numbered feature sections found
	SectionCount int
	// Hash provides a CRC32 checksum for change detection
	Hash string
	// LastMod tracks the last modification time
	LastMod time.Time
}

// HasSnippet reports whether the section carries a fenced code block.
func (s *SectionInfo) HasSnippet() bool {
	return s.Snippet != nil
}

// EventType represents the type of section change event.
type EventType string

const (
	EventTypeAdded   EventType = "added"
	EventTypeUpdated EventType = "updated"
	EventTypeRemoved EventType = "removed"
)

// SectionEvent represents a change in the document registry, used for
// real-time notifications to watchers like the preview server and UI.
type SectionEvent struct {
	// Type indicates the kind of change (added, updated, removed)
	Type EventType
	// Section contains the section information (may be nil for removed events)
	Section *SectionInfo
	// Timestamp records when the event occurred for ordering and filtering
	Timestamp time.Time
}
