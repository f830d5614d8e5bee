package render

import (
	"fmt"
	"sort"
	"strconv"

	"featmark/internal/errors"
	"featmark/internal/lint"

	"github.com/charmbracelet/lipgloss"
)

var (
	fileStyle    = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	ruleStyle    = lipgloss.NewStyle().Faint(true)
	hintStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
)

// FormatReport renders a lint report as styled terminal text: the document
// path, its findings ordered by line, and a summary.
func FormatReport(report *lint.Report) string {
	lines := []string{fileStyle.Render(report.File)}

	issues := append([]lint.Issue(nil), report.Issues...)
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Line < issues[j].Line
	})

	for _, issue := range issues {
		location := "-"
		if issue.Line > 0 {
			location = strconv.Itoa(issue.Line)
		}
		severity := severityStyle(issue.Severity).Render(fmt.Sprintf("%-7s", issue.Severity))
		lines = append(lines, fmt.Sprintf("  %4s  %s  %s  %s",
			location, severity, issue.Message, ruleStyle.Render(issue.Rule)))
	}

	if len(issues) == 0 {
		lines = append(lines, "  "+passStyle.Render("no findings"))
	}

	// One fix hint per distinct rule, in finding order.
	seen := make(map[string]bool)
	for _, issue := range issues {
		if seen[issue.Rule] {
			continue
		}
		seen[issue.Rule] = true
		if hint := errors.SuggestionForRule(issue.Rule); hint != "" {
			lines = append(lines, hintStyle.Render(fmt.Sprintf("  hint: %s [%s]", hint, issue.Rule)))
		}
	}

	summary := report.Summary
	lines = append(lines, "", fmt.Sprintf("%d sections, %d rules: %d passed, %d failed",
		report.Sections, summary.TotalRules, summary.PassedRules, summary.FailedRules))
	lines = append(lines, fmt.Sprintf("%d issues (%d errors, %d warnings), score %.1f",
		summary.TotalIssues, summary.Errors, summary.Warnings, summary.Score))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// FormatIssue renders one finding on a single line, for watch mode output
// where findings stream in outside a full report.
func FormatIssue(issue lint.Issue) string {
	location := issue.File
	if issue.Line > 0 {
		location = fmt.Sprintf("%s:%d", issue.File, issue.Line)
	}
	severity := severityStyle(issue.Severity).Render(string(issue.Severity))
	return fmt.Sprintf("%s  %s  %s  %s", location, severity, issue.Message, ruleStyle.Render(issue.Rule))
}

// FormatRunSummary rolls several document reports up into one verdict line.
func FormatRunSummary(reports []*lint.Report) string {
	var errors, warnings int
	for _, report := range reports {
		errors += report.Summary.Errors
		warnings += report.Summary.Warnings
	}

	verdict := passStyle.Render("PASS")
	if errors > 0 {
		verdict = errorStyle.Render("FAIL")
	}
	return fmt.Sprintf("%s  %d documents, %d errors, %d warnings",
		verdict, len(reports), errors, warnings)
}

func severityStyle(severity lint.Severity) lipgloss.Style {
	switch severity {
	case lint.SeverityError:
		return errorStyle
	case lint.SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}
