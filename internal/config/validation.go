package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"featmark/internal/validation"
)

// maxDebounce is the delay above which the watcher feels unresponsive.
const maxDebounce = 5 * time.Second

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// KnownRules lists the rule IDs the lint engine ships with. Used for
// spell-checking rule selections in configuration.
var KnownRules = []string{
	"single-title",
	"heading-sequence",
	"section-count",
	"fence-balance",
	"language-hint",
	"cross-references",
	"snippet-count",
	"explanation",
	"unnumbered-heading",
}

// knownThemes lists the built-in glamour style names. Anything else is
// treated as a path to a custom style file.
var knownThemes = []string{"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateDocumentsConfigDetails(&config.Documents, result)
	validateLintConfigDetails(&config.Lint, result)
	validateRenderConfigDetails(&config.Render, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateExportConfigDetails(&config.Export, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	// Validate port
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Common development ports: 8120, 3000, 8080",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
			Suggestions: []string{
				"Consider using a port above 1024 for development",
				"The default preview port is 8120",
			},
		})
	}

	// Validate host
	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local development",
					"Use '0.0.0.0' to bind to all interfaces",
					"Use a valid IP address or hostname",
				},
			})
		}
	}

	// Validate environment
	validEnvs := []string{"development", "production", "testing"}
	if config.Environment != "" && !contains(validEnvs, config.Environment) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.environment",
			Value:   config.Environment,
			Message: "unknown environment type",
			Suggestions: []string{
				"Use 'development' for local preview with relaxed CORS",
				"Use 'production' for strict origin checking",
				"Use 'testing' for automated testing",
			},
		})
	}

	// Validate websocket origins
	for i, origin := range config.AllowedOrigins {
		if origin == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("server.allowed_origins[%d]", i),
				Value:   origin,
				Message: "origin cannot be empty",
				Suggestions: []string{
					"Use full origins like 'http://localhost:8120'",
				},
			})
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("server.allowed_origins[%d]", i),
				Value:   origin,
				Message: "origin has no scheme - it will never match a browser Origin header",
				Suggestions: []string{
					"Use full origins like 'http://localhost:8120'",
					"Include the scheme and port the browser will send",
				},
			})
		}
	}

	if config.Open && config.NoOpen {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server",
			Value:   "open + no-open",
			Message: "no-open takes precedence over open",
			Suggestions: []string{
				"Remove one of the two settings",
			},
		})
	}
}

func validateDocumentsConfigDetails(config *DocumentsConfig, result *ValidationResult) {
	// Validate document paths
	if len(config.Paths) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "documents.paths",
			Value:   config.Paths,
			Message: "no document paths specified - no guides will be found",
			Suggestions: []string{
				"Add 'FEATURES.md' as the primary guide document",
				"Run 'featmark init' to scaffold a guide",
				"Set documents.paths in .featmark.yml",
			},
		})
	}

	for i, path := range config.Paths {
		if err := validation.ValidatePath(path); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("documents.paths[%d]", i),
				Value:   path,
				Message: err.Error(),
				Suggestions: []string{
					"Use relative paths from project root",
					"Avoid parent directory references (..)",
				},
			})
			continue
		}

		if !validation.IsMarkdownFile(path) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("documents.paths[%d]", i),
				Value:   path,
				Message: "file does not have a Markdown extension",
				Suggestions: []string{
					"Use .md or .markdown files",
					"Rename the document or update documents.paths",
				},
			})
		}

		// Check if the document exists
		if !pathExists(path) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("documents.paths[%d]", i),
				Value:   path,
				Message: "file does not exist",
				Suggestions: []string{
					"Create it with: featmark init",
					"Check for typos in the path",
				},
			})
		}
	}

	// Validate exclude patterns
	if len(config.ExcludePatterns) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "documents.exclude_patterns",
			Value:   config.ExcludePatterns,
			Message: "no exclusion patterns - drafts and backups may be included",
			Suggestions: []string{
				"Add '*_draft.md' to exclude draft documents",
				"Add '*.bak' to exclude backup files",
			},
		})
	}

	// Validate expected section count
	if config.ExpectedSections < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "documents.expected_sections",
			Value:   config.ExpectedSections,
			Message: "expected section count cannot be negative",
			Suggestions: []string{
				"Use a positive count to pin the guide length",
				"Use 0 to disable the section count check",
			},
		})
	} else if config.ExpectedSections == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "documents.expected_sections",
			Value:   config.ExpectedSections,
			Message: "section count check disabled",
			Suggestions: []string{
				"Set documents.expected_sections to pin the guide length",
				"The standard feature guide uses 26",
			},
		})
	}

	// Validate language hints
	commonLanguages := []string{"javascript", "jsx", "typescript", "json", "bash", "css", "html", "yaml"}
	for i, lang := range config.AllowedLanguages {
		if !contains(commonLanguages, lang) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("documents.allowed_languages[%d]", i),
				Value:   lang,
				Message: fmt.Sprintf("uncommon language hint '%s'", lang),
				Suggestions: []string{
					"Common hints: " + strings.Join(commonLanguages, ", "),
					"Check the hint spelling against the guide fences",
				},
			})
		}
	}
}

func validateLintConfigDetails(config *LintConfig, result *ValidationResult) {
	// Spell-check rule selections
	for i, rule := range config.Rules {
		if !contains(KnownRules, rule) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("lint.rules[%d]", i),
				Value:   rule,
				Message: fmt.Sprintf("unknown rule '%s'", rule),
				Suggestions: []string{
					"Check rule name spelling",
					"Available rules: " + strings.Join(KnownRules, ", "),
				},
			})
		}
	}
	for i, rule := range config.ExcludeRules {
		if !contains(KnownRules, rule) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("lint.exclude_rules[%d]", i),
				Value:   rule,
				Message: fmt.Sprintf("unknown rule '%s'", rule),
				Suggestions: []string{
					"Check rule name spelling",
					"Available rules: " + strings.Join(KnownRules, ", "),
				},
			})
		}
	}

	// Check for conflicting selections
	for _, rule := range config.ExcludeRules {
		if contains(config.Rules, rule) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "lint.exclude_rules",
				Value:   rule,
				Message: fmt.Sprintf("rule '%s' is both selected and excluded", rule),
				Suggestions: []string{
					"Remove the rule from one of the two lists",
				},
			})
		}
	}

	// Validate failure threshold
	if config.FailOn != "" && config.FailOn != "error" && config.FailOn != "warning" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "lint.fail_on",
			Value:   config.FailOn,
			Message: fmt.Sprintf("unknown failure threshold '%s'", config.FailOn),
			Suggestions: []string{
				"Use 'error' to fail only on errors",
				"Use 'warning' to fail on warnings too",
			},
		})
	}
}

func validateRenderConfigDetails(config *RenderConfig, result *ValidationResult) {
	// Validate theme
	if config.Theme != "" && !contains(knownThemes, config.Theme) && !pathExists(config.Theme) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "render.theme",
			Value:   config.Theme,
			Message: fmt.Sprintf("unknown theme '%s'", config.Theme),
			Suggestions: []string{
				"Built-in styles: " + strings.Join(knownThemes, ", "),
				"Provide a JSON style file path for custom themes",
			},
		})
	}

	// Validate width
	if config.Width < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "render.width",
			Value:   config.Width,
			Message: "width cannot be negative",
			Suggestions: []string{
				"Use 0 for unwrapped output",
				"Use 80 for the default terminal width",
			},
		})
	} else if config.Width > 0 && config.Width < 40 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "render.width",
			Value:   config.Width,
			Message: "narrow widths wrap code snippets aggressively",
			Suggestions: []string{
				"Use at least 60 columns for code-heavy guides",
			},
		})
	}

	// Validate cache directory
	if config.CacheDir != "" {
		if err := validation.ValidatePath(config.CacheDir); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "render.cache_dir",
				Value:   config.CacheDir,
				Message: err.Error(),
				Suggestions: []string{
					"Use relative paths like '.featmark/cache'",
					"Avoid parent directory references (..)",
					"Ensure directory is writable",
				},
			})
		}
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	// Validate debounce delay
	if config.Debounce != "" {
		duration, err := time.ParseDuration(config.Debounce)
		if err != nil || duration < 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch.debounce",
				Value:   config.Debounce,
				Message: fmt.Sprintf("'%s' is not a valid debounce delay", config.Debounce),
				Suggestions: []string{
					"Use Go duration syntax like '300ms'",
					"Typical values: 100ms-1s",
				},
			})
		} else if duration > maxDebounce {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "watch.debounce",
				Value:   config.Debounce,
				Message: "long debounce delays reload feedback",
				Suggestions: []string{
					"Use a delay below 5s for a responsive preview",
				},
			})
		}
	}

	// Check for recommended ignore patterns
	recommendedIgnore := []string{"node_modules", ".git"}
	for _, recommended := range recommendedIgnore {
		if !containsPattern(config.Ignore, recommended) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "watch.ignore",
				Value:   config.Ignore,
				Message: fmt.Sprintf("consider ignoring '%s' for better performance", recommended),
				Suggestions: []string{
					fmt.Sprintf("Add '%s' to ignore patterns", recommended),
				},
			})
		}
	}
}

func validateExportConfigDetails(config *ExportConfig, result *ValidationResult) {
	// Validate output directory
	if config.OutputDir != "" {
		if err := validation.ValidatePath(config.OutputDir); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "export.output_dir",
				Value:   config.OutputDir,
				Message: err.Error(),
				Suggestions: []string{
					"Use a directory like 'dist' or 'public'",
					"Avoid parent directory references (..)",
				},
			})
		}
	}

	if !config.CheckLinks {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "export.check_links",
			Value:   config.CheckLinks,
			Message: "link audit disabled - broken cross-references survive export",
			Suggestions: []string{
				"Enable export.check_links to audit emitted HTML",
			},
		})
	}
}

// Helper validation functions

func validateHostname(host string) error {
	// Check for dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	// Check if it's a valid IP address
	if net.ParseIP(host) != nil {
		return nil
	}

	// Check if it's localhost
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return nil
	}

	// Basic hostname validation
	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func containsPattern(slice []string, pattern string) bool {
	for _, s := range slice {
		if strings.Contains(s, pattern) || s == pattern {
			return true
		}
	}
	return false
}
