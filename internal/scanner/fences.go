package scanner

import "strings"

// FenceInfo describes one fenced code block found by the raw-line fence audit.
// The audit runs over source lines rather than the parsed AST because an
// unclosed fence is indistinguishable from a closed one after parsing: the
// parser silently extends the block to the end of the file.
type FenceInfo struct {
	// OpenLine is the 1-based line of the opening fence marker
	OpenLine int
	// CloseLine is the 1-based line of the closing marker, 0 when unclosed
	CloseLine int
	// Marker is the fence character sequence ("```" or "~~~", possibly longer)
	Marker string
	// Info is the full info string following the opening marker
	Info string
	// Language is the first word of the info string ("" for a plain fence)
	Language string
	// Code is the fence body without the fence markers
	Code string
	// Closed indicates whether a matching closing fence was found
	Closed bool
}

// auditFences scans raw Markdown lines for fenced code blocks, tracking
// open/close pairing. Fences open on a line starting with three or more
// backticks or tildes (up to three spaces of indentation) and close on a line
// of at least as many of the same character with no trailing info string.
func auditFences(content string) []FenceInfo {
	lines := strings.Split(content, "\n")

	var fences []FenceInfo
	var open *FenceInfo
	var body []string

	for i, line := range lines {
		lineNo := i + 1
		marker, rest := fenceMarker(line)

		if open == nil {
			if marker == "" {
				continue
			}
			info := strings.TrimSpace(rest)
			open = &FenceInfo{
				OpenLine: lineNo,
				Marker:   marker,
				Info:     info,
				Language: fenceLanguage(info),
			}
			body = body[:0]
			continue
		}

		// Inside a fence: only a matching closing marker ends the block.
		if marker != "" &&
			marker[0] == open.Marker[0] &&
			len(marker) >= len(open.Marker) &&
			strings.TrimSpace(rest) == "" {
			open.CloseLine = lineNo
			open.Closed = true
			open.Code = joinFenceBody(body)
			fences = append(fences, *open)
			open = nil
			continue
		}

		body = append(body, line)
	}

	// Dangling fence runs to end of file
	if open != nil {
		open.Code = joinFenceBody(body)
		fences = append(fences, *open)
	}

	return fences
}

// fenceMarker returns the fence marker prefix of a line and the remainder,
// or "" when the line does not start a fence. Up to three leading spaces are
// allowed, matching standard Markdown fence rules.
func fenceMarker(line string) (marker, rest string) {
	trimmed := line
	for i := 0; i < 3 && strings.HasPrefix(trimmed, " "); i++ {
		trimmed = trimmed[1:]
	}
	if trimmed == "" {
		return "", ""
	}

	ch := trimmed[0]
	if ch != '`' && ch != '~' {
		return "", ""
	}

	n := 0
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return "", ""
	}

	// Backtick fences cannot carry backticks in the info string
	rest = trimmed[n:]
	if ch == '`' && strings.Contains(rest, "`") {
		return "", ""
	}

	return trimmed[:n], rest
}

// fenceLanguage extracts the language hint from a fence info string
func fenceLanguage(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func joinFenceBody(body []string) string {
	if len(body) == 0 {
		return ""
	}
	return strings.Join(body, "\n") + "\n"
}

// BalancedFences reports whether every fence in the content is closed
func BalancedFences(content string) bool {
	for _, fence := range auditFences(content) {
		if !fence.Closed {
			return false
		}
	}
	return true
}
