// Package errors provides structured error types, document finding
// collection, and HTML overlay generation for development-friendly error
// reporting.
//
// Findings produced by the lint engine are carried as DocError values with
// file locations, rule identifiers, and severity classification. The package
// renders them for the terminal with surrounding document context and for
// the browser as an error page served by the development server. General
// errors use FeatmarkError, a structured error type with codes, categories,
// and wrapping utilities. Collection is race-safe.
package errors

import (
	"fmt"
	"strings"
)

// ruleSuggestions maps lint rule identifiers to fix hints shown next to
// findings. Rules without an entry render without a suggestion.
var ruleSuggestions = map[string]string{
	"single-title":       "Keep exactly one '# Title' heading at the top of the guide",
	"heading-sequence":   "Renumber the '## <n>. <title>' headings so they run 1..N without gaps",
	"section-count":      "Add or remove feature sections to match the configured count",
	"fence-balance":      "Close the code fence with a matching line of backticks or tildes",
	"language-hint":      "Use one of the allowed language hints or leave the fence plain",
	"cross-references":   "Point the link at an existing heading anchor, or fix the heading",
	"snippet-count":      "Keep one snippet per section; move extra snippets into their own sections",
	"explanation":        "Open the section with a short explanation paragraph before any snippet",
	"unnumbered-heading": "Use the numbered '## <n>. <title>' form for feature sections",
}

// SuggestionForRule returns the fix hint for a lint rule, if one exists
func SuggestionForRule(rule string) string {
	return ruleSuggestions[rule]
}

// ContextLines extracts document lines around a finding for display.
// The finding line is 1-based and marked with an arrow prefix.
func ContextLines(lines []string, line, radius int) []string {
	if line < 1 || line > len(lines) {
		return nil
	}

	index := line - 1
	start := max(0, index-radius)
	end := min(len(lines), index+radius+1)

	var context []string
	for i := start; i < end; i++ {
		prefix := "  "
		if i == index {
			prefix = "→ "
		}
		context = append(context, fmt.Sprintf("%s%s", prefix, lines[i]))
	}

	return context
}

// AttachContext fills each finding's Context and Suggestion from the
// document content it was raised against.
func AttachContext(errs []DocError, content []byte, radius int) {
	lines := strings.Split(string(content), "\n")
	for i := range errs {
		errs[i].Context = ContextLines(lines, errs[i].Line, radius)
		if errs[i].Suggestion == "" {
			errs[i].Suggestion = SuggestionForRule(errs[i].Rule)
		}
	}
}

// Format renders a finding for terminal display
func (de *DocError) Format() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(de.Severity.String())))
	if de.Rule != "" {
		builder.WriteString(" " + de.Rule)
	}

	if de.File != "" {
		builder.WriteString(fmt.Sprintf(" in %s", de.File))
		if de.Line > 0 {
			builder.WriteString(fmt.Sprintf(":%d", de.Line))
			if de.Column > 0 {
				builder.WriteString(fmt.Sprintf(":%d", de.Column))
			}
		}
	}

	builder.WriteString("\n")

	builder.WriteString(fmt.Sprintf("  %s\n", de.Message))

	if de.Suggestion != "" {
		builder.WriteString(fmt.Sprintf("  💡 %s\n", de.Suggestion))
	}

	if len(de.Context) > 0 {
		builder.WriteString("  Context:\n")
		for _, line := range de.Context {
			builder.WriteString(fmt.Sprintf("    %s\n", line))
		}
	}

	return builder.String()
}

// FormatErrorsForBrowser formats findings as a standalone error page
func FormatErrorsForBrowser(errors []DocError) string {
	if len(errors) == 0 {
		return ""
	}

	var builder strings.Builder

	builder.WriteString(`
<!DOCTYPE html>
<html>
<head>
    <title>Guide Problems</title>
    <style>
        body { font-family: monospace; margin: 20px; background-color: #1e1e1e; color: #ffffff; }
        .error { margin: 20px 0; padding: 15px; border-left: 4px solid #ff4444; background-color: #2d2d2d; }
        .warning { border-left-color: #ffaa00; }
        .info { border-left-color: #4444ff; }
        .error-header { font-weight: bold; font-size: 1.1em; margin-bottom: 10px; }
        .error-location { color: #88ccff; font-size: 0.9em; }
        .error-message { margin: 10px 0; }
        .error-suggestion { color: #88ff88; font-style: italic; margin-top: 10px; }
        .error-context { margin-top: 10px; padding: 10px; background-color: #1a1a1a; border-radius: 4px; }
        .context-line { margin: 2px 0; }
        .context-current { color: #ff4444; font-weight: bold; }
    </style>
</head>
<body>
    <h1>Guide Problems</h1>
`)

	for _, err := range errors {
		cssClass := "error"
		switch err.Severity {
		case ErrorSeverityWarning:
			cssClass = "warning"
		case ErrorSeverityInfo:
			cssClass = "info"
		}

		header := fmt.Sprintf("[%s]", strings.ToUpper(err.Severity.String()))
		if err.Rule != "" {
			header += " " + err.Rule
		}

		builder.WriteString(fmt.Sprintf(`    <div class="%s">`, cssClass))
		builder.WriteString(
			fmt.Sprintf(
				`        <div class="error-header">%s</div>`,
				header,
			),
		)

		if err.File != "" {
			builder.WriteString(fmt.Sprintf(`        <div class="error-location">%s`, err.File))
			if err.Line > 0 {
				builder.WriteString(fmt.Sprintf(`:%d`, err.Line))
				if err.Column > 0 {
					builder.WriteString(fmt.Sprintf(`:%d`, err.Column))
				}
			}
			builder.WriteString(`</div>`)
		}

		builder.WriteString(fmt.Sprintf(`        <div class="error-message">%s</div>`, err.Message))

		if err.Suggestion != "" {
			builder.WriteString(
				fmt.Sprintf(`        <div class="error-suggestion">💡 %s</div>`, err.Suggestion),
			)
		}

		if len(err.Context) > 0 {
			builder.WriteString(`        <div class="error-context">`)
			for _, line := range err.Context {
				class := "context-line"
				if strings.HasPrefix(line, "→ ") {
					class = "context-current"
				}
				builder.WriteString(
					fmt.Sprintf(`            <div class="%s">%s</div>`, class, line),
				)
			}
			builder.WriteString(`        </div>`)
		}

		builder.WriteString(`    </div>`)
	}

	builder.WriteString(`
</body>
</html>`)

	return builder.String()
}
