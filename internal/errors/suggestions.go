package errors

import (
	"fmt"
	"strings"

	"featmark/internal/registry"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	Registry          *registry.DocumentRegistry
	AvailableCommands []string
	ConfigPath        string
	GuidePaths        []string
	LastKnownError    string
}

// SectionNotFoundSuggestions generates suggestions for unknown section anchors
func SectionNotFoundSuggestions(anchor string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check the guide contains the section",
			Description: "Verify a '## <n>. <title>' heading slugifies to the requested anchor",
			Example:     "## 3. Server-Side Rendering  ->  #3-server-side-rendering",
		},
		{
			Title:       "List all discovered sections",
			Description: "See what sections featmark has found",
			Command:     "featmark list",
		},
		{
			Title:       "Check document paths configuration",
			Description: "Verify your .featmark.yml documents paths include the guide file",
			Command:     "cat " + ctx.ConfigPath,
			Example:     "documents:\n  paths:\n    - \"FEATURES.md\"",
		},
	}

	// Add available sections if registry is available
	if ctx.Registry != nil {
		sections := ctx.Registry.GetOrdered()
		if len(sections) > 0 {
			var anchors []string
			for _, section := range sections {
				anchors = append(anchors, section.Anchor)
			}

			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Available sections",
				Description: "These sections are currently available: " + strings.Join(anchors, ", "),
			})

			// Suggest similar anchors
			for _, section := range sections {
				if strings.Contains(strings.ToLower(section.Anchor), strings.ToLower(anchor)) ||
					strings.Contains(strings.ToLower(anchor), strings.ToLower(section.Anchor)) {
					suggestions = append(suggestions, ErrorSuggestion{
						Title:       "Did you mean '" + section.Anchor + "'?",
						Description: "Similar section found",
						Command:     "featmark show " + section.Anchor,
					})
					break
				}
			}
		}
	}

	return suggestions
}

// LintFailureSuggestions generates suggestions for failed lint runs
func LintFailureSuggestions(lintOutput string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Review the findings",
			Description: "Each finding names the rule, file, and line that triggered it",
			Command:     "featmark lint",
		},
	}

	// Analyze lint output for common issues
	output := strings.ToLower(lintOutput)

	if strings.Contains(output, "fence") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Balance the code fences",
			Description: "An opening fence has no matching closing fence",
			Example:     "Close ```javascript blocks with a line containing only ```",
		})
	}

	if strings.Contains(output, "sequence") || strings.Contains(output, "numbered") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix the section numbering",
			Description: "Feature sections must be numbered 1..N without gaps or repeats",
			Example:     "## 1. First Feature, ## 2. Second Feature, ...",
		})
	}

	if strings.Contains(output, "anchor") || strings.Contains(output, "link") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix broken cross-references",
			Description: "Internal links must target anchors derived from headings in the same document",
			Example:     "[see rendering](#3-server-side-rendering)",
		})
	}

	return suggestions
}

// ServerStartSuggestions generates suggestions for server startup failures
func ServerStartSuggestions(err error, port int, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") || strings.Contains(errStr, "bind") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Port already in use",
			Description: fmt.Sprintf("Port %d is already being used by another process", port),
			Command:     fmt.Sprintf("lsof -i :%d", port),
		})

		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use a different port",
			Description: "Start the server on a different port",
			Command:     fmt.Sprintf("featmark serve --port %d", port+1000),
		})

		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Kill the process using the port",
			Description: "Stop the process that's using the port",
			Command:     fmt.Sprintf("lsof -ti :%d | xargs kill", port),
		})
	}

	if strings.Contains(errStr, "permission denied") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Permission denied",
			Description: "You don't have permission to bind to this port",
		})

		if port < 1024 {
			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Use unprivileged port",
				Description: "Ports below 1024 require root privileges",
				Command:     "featmark serve --port 8080",
			})
		}
	}

	return suggestions
}

// ConfigSuggestions generates suggestions for configuration issues
func ConfigSuggestions(configError string, configPath string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your .featmark.yml file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
		{
			Title:       "Run the configuration checks",
			Description: "Use the doctor command to check for issues",
			Command:     "featmark doctor",
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "unmarshal") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(configError, "path") || strings.Contains(configError, "directory") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check document paths",
			Description: "Verify all paths in your configuration exist",
			Command:     "ls -la",
		})
	}

	return suggestions
}

// WebSocketSuggestions generates suggestions for WebSocket connection issues
func WebSocketSuggestions(err error, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check browser console",
			Description: "Look for WebSocket errors in the browser's developer console",
		},
		{
			Title:       "Verify live reload is enabled",
			Description: "Ensure live_reload is set to true in your configuration",
			Example:     "server:\n  live_reload: true",
		},
		{
			Title:       "Check firewall settings",
			Description: "Ensure your firewall isn't blocking WebSocket connections",
		},
	}

	errStr := err.Error()

	if strings.Contains(errStr, "origin") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Origin validation failed",
			Description: "The WebSocket connection was rejected due to origin validation",
		})
	}

	if strings.Contains(errStr, "upgrade") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "WebSocket upgrade failed",
			Description: "The HTTP to WebSocket upgrade failed",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}
