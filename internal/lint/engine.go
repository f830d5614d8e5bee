// Package lint implements the structural rule engine for guide documents.
//
// Rules cover the guide contract: a single title heading, numbered sections
// in strict sequence, balanced code fences, known snippet language hints,
// resolvable internal cross-references, and per-section conventions like the
// leading explanation paragraph.
package lint

import (
	"context"
	"fmt"
	"sort"
	"time"

	"featmark/internal/logging"
	"featmark/internal/scanner"
)

// Severity classifies lint issues
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule describes one structural check
type Rule struct {
	// ID is the stable rule identifier used in reports and configuration
	ID string `json:"id"`
	// Description explains what the rule enforces
	Description string `json:"description"`
	// Severity is the severity of issues the rule produces
	Severity Severity `json:"severity"`
}

// Issue is one rule finding at a document position
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Summary aggregates a report's findings
type Summary struct {
	TotalRules  int     `json:"total_rules"`
	PassedRules int     `json:"passed_rules"`
	FailedRules int     `json:"failed_rules"`
	TotalIssues int     `json:"total_issues"`
	Errors      int     `json:"errors"`
	Warnings    int     `json:"warnings"`
	Infos       int     `json:"infos"`
	Score       float64 `json:"score"`
}

// Report is the lint result for one document
type Report struct {
	ID        string        `json:"id"`
	File      string        `json:"file"`
	Title     string        `json:"title"`
	Sections  int           `json:"sections"`
	Issues    []Issue       `json:"issues"`
	Passed    []Rule        `json:"passed"`
	Summary   Summary       `json:"summary"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Valid reports whether the document passed every error-severity rule
func (r *Report) Valid() bool {
	return r.Summary.Errors == 0
}

// EngineConfig controls which rules run and how strict they are
type EngineConfig struct {
	// ExpectedSections pins the section count; 0 disables the check
	ExpectedSections int
	// AllowedLanguages lists acceptable snippet language hints. A fence
	// without a hint is always acceptable.
	AllowedLanguages []string
	// Rules restricts the run to the listed rule IDs when non-empty
	Rules []string
	// ExcludeRules removes the listed rule IDs from the run
	ExcludeRules []string
}

// DefaultLanguages is the snippet hint allowlist for framework guides
var DefaultLanguages = []string{"javascript", "jsx", "typescript", "json"}

// Engine runs structural rules against parsed documents
type Engine struct {
	config EngineConfig
	rules  map[string]Rule
	logger logging.Logger
}

// NewEngine creates a lint engine with the default rule set
func NewEngine(logger logging.Logger, config EngineConfig) *Engine {
	if len(config.AllowedLanguages) == 0 {
		config.AllowedLanguages = DefaultLanguages
	}

	engine := &Engine{
		config: config,
		rules:  make(map[string]Rule),
		logger: logger.WithComponent("lint_engine"),
	}
	engine.loadDefaultRules()
	return engine
}

// loadDefaultRules registers the guide contract rules
func (engine *Engine) loadDefaultRules() {
	rules := []Rule{
		{
			ID:          "single-title",
			Description: "Documents must have exactly one level-one title heading",
			Severity:    SeverityError,
		},
		{
			ID:          "heading-sequence",
			Description: "Numbered sections must run 1..N in strictly increasing order without gaps",
			Severity:    SeverityError,
		},
		{
			ID:          "section-count",
			Description: "Documents must contain the configured number of feature sections",
			Severity:    SeverityError,
		},
		{
			ID:          "fence-balance",
			Description: "Every opening code fence must have a matching closing fence",
			Severity:    SeverityError,
		},
		{
			ID:          "language-hint",
			Description: "Snippet language hints must come from the allowed set",
			Severity:    SeverityError,
		},
		{
			ID:          "cross-references",
			Description: "Internal anchor links must resolve within the document",
			Severity:    SeverityError,
		},
		{
			ID:          "snippet-count",
			Description: "Sections carry at most one code snippet",
			Severity:    SeverityWarning,
		},
		{
			ID:          "explanation",
			Description: "Sections must open with an explanation paragraph",
			Severity:    SeverityWarning,
		},
		{
			ID:          "unnumbered-heading",
			Description: "Level-two headings should use the numbered section form",
			Severity:    SeverityWarning,
		},
	}

	for _, rule := range rules {
		engine.rules[rule.ID] = rule
	}
}

// Rules returns the active rule set sorted by ID
func (engine *Engine) Rules() []Rule {
	rules := make([]Rule, 0, len(engine.rules))
	for _, rule := range engine.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID < rules[j].ID
	})
	return rules
}

// AnalyzeDocument runs every applicable rule against a parsed document
func (engine *Engine) AnalyzeDocument(ctx context.Context, parsed *scanner.ParsedDocument) (*Report, error) {
	start := time.Now()

	report := &Report{
		ID:        generateReportID(),
		File:      parsed.Info.FilePath,
		Title:     parsed.Info.Title,
		Sections:  len(parsed.Sections),
		Timestamp: time.Now(),
		Issues:    []Issue{},
		Passed:    []Rule{},
	}

	applicable := engine.applicableRules()

	for _, rule := range applicable {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis interrupted: %w", err)
		}
		issues := engine.checkRule(rule, parsed)
		if len(issues) > 0 {
			report.Issues = append(report.Issues, issues...)
		} else {
			report.Passed = append(report.Passed, rule)
		}
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		return report.Issues[i].Line < report.Issues[j].Line
	})

	report.Duration = time.Since(start)
	report.Summary = generateSummary(report.Issues, report.Passed, applicable)

	engine.logger.Info(ctx, "Document analysis completed",
		"file", parsed.Info.FilePath,
		"issues", len(report.Issues),
		"passed_rules", len(report.Passed),
		"duration", report.Duration)

	return report, nil
}

// applicableRules returns rules filtered by the engine configuration
func (engine *Engine) applicableRules() []Rule {
	applicable := []Rule{}

	for _, rule := range engine.rules {
		if containsString(engine.config.ExcludeRules, rule.ID) {
			continue
		}
		if len(engine.config.Rules) > 0 && !containsString(engine.config.Rules, rule.ID) {
			continue
		}
		if rule.ID == "section-count" && engine.config.ExpectedSections == 0 {
			continue
		}
		applicable = append(applicable, rule)
	}

	sort.Slice(applicable, func(i, j int) bool {
		return applicable[i].ID < applicable[j].ID
	})
	return applicable
}

// checkRule runs a specific rule against the parsed document
func (engine *Engine) checkRule(rule Rule, parsed *scanner.ParsedDocument) []Issue {
	issues := []Issue{}
	file := parsed.Info.FilePath

	switch rule.ID {
	case "single-title":
		if parsed.TitleCount == 0 {
			issues = append(issues, engine.issue(rule, file, 1,
				"document has no level-one title heading"))
		}
		seen := 0
		for _, heading := range parsed.Headings {
			if heading.Level != 1 {
				continue
			}
			seen++
			if seen > 1 {
				issues = append(issues, engine.issue(rule, file, heading.Line,
					fmt.Sprintf("extra level-one heading %q; the guide already has a title", heading.Text)))
			}
		}

	case "heading-sequence":
		expected := 1
		for _, heading := range parsed.Headings {
			if heading.Level != 2 || !heading.Numbered {
				continue
			}
			if heading.Number != expected {
				issues = append(issues, engine.issue(rule, file, heading.Line,
					fmt.Sprintf("section numbered %d, expected %d", heading.Number, expected)))
				// Resynchronize on the observed number so one gap does not
				// cascade into an issue per remaining section.
				expected = heading.Number
			}
			expected++
		}

	case "section-count":
		if len(parsed.Sections) != engine.config.ExpectedSections {
			issues = append(issues, engine.issue(rule, file, 1,
				fmt.Sprintf("document has %d feature sections, expected %d",
					len(parsed.Sections), engine.config.ExpectedSections)))
		}

	case "fence-balance":
		for _, fence := range parsed.Fences {
			if !fence.Closed {
				issues = append(issues, engine.issue(rule, file, fence.OpenLine,
					fmt.Sprintf("code fence opened with %q is never closed", fence.Marker)))
			}
		}

	case "language-hint":
		for _, fence := range parsed.Fences {
			if fence.Language == "" {
				continue
			}
			if !containsString(engine.config.AllowedLanguages, fence.Language) {
				issues = append(issues, engine.issue(rule, file, fence.OpenLine,
					fmt.Sprintf("snippet language %q is not in the allowed set %v",
						fence.Language, engine.config.AllowedLanguages)))
			}
		}

	case "cross-references":
		anchors := parsed.Anchors()
		for _, ref := range parsed.Refs {
			if !anchors[ref.Target] {
				issues = append(issues, engine.issue(rule, file, ref.Line,
					fmt.Sprintf("link target #%s does not match any heading anchor", ref.Target)))
			}
		}

	case "snippet-count":
		for _, section := range parsed.Sections {
			fences := parsed.SectionFences(section)
			if len(fences) > 1 {
				issues = append(issues, engine.issue(rule, file, fences[1].OpenLine,
					fmt.Sprintf("section %d carries %d snippets; the guide format allows one",
						section.Number, len(fences))))
			}
		}

	case "explanation":
		for _, section := range parsed.Sections {
			if section.Explanation == "" {
				issues = append(issues, engine.issue(rule, file, section.Line,
					fmt.Sprintf("section %d (%s) has no explanation paragraph before its snippet",
						section.Number, section.Title)))
			}
		}

	case "unnumbered-heading":
		for _, heading := range parsed.Headings {
			if heading.Level == 2 && !heading.Numbered {
				issues = append(issues, engine.issue(rule, file, heading.Line,
					fmt.Sprintf("level-two heading %q is not in the numbered section form", heading.Text)))
			}
		}
	}

	return issues
}

// issue builds one finding for a rule
func (engine *Engine) issue(rule Rule, file string, line int, message string) Issue {
	return Issue{
		Rule:     rule.ID,
		Severity: rule.Severity,
		File:     file,
		Line:     line,
		Message:  message,
	}
}

// generateSummary aggregates issues and rule outcomes
func generateSummary(issues []Issue, passed []Rule, total []Rule) Summary {
	summary := Summary{
		TotalRules:  len(total),
		PassedRules: len(passed),
		FailedRules: len(total) - len(passed),
		TotalIssues: len(issues),
	}

	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			summary.Errors++
		case SeverityWarning:
			summary.Warnings++
		case SeverityInfo:
			summary.Infos++
		}
	}

	if len(total) > 0 {
		summary.Score = float64(len(passed)) / float64(len(total)) * 100
	}

	return summary
}

func generateReportID() string {
	return fmt.Sprintf("report_%d", time.Now().UnixNano())
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
