package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConfigWizard provides an interactive setup experience for new guides
type ConfigWizard struct {
	reader *bufio.Reader
	config *Config
}

// NewConfigWizard creates a new configuration wizard
func NewConfigWizard() *ConfigWizard {
	return &ConfigWizard{
		reader: bufio.NewReader(os.Stdin),
		config: &Config{},
	}
}

// Run executes the interactive configuration wizard
func (w *ConfigWizard) Run() (*Config, error) {
	fmt.Println("🧙 Featmark Configuration Wizard")
	fmt.Println("================================")
	fmt.Println("This wizard will help you set up your feature guide configuration.")
	fmt.Println()

	// Server configuration
	if err := w.configureServer(); err != nil {
		return nil, fmt.Errorf("server configuration failed: %w", err)
	}

	// Documents configuration
	if err := w.configureDocuments(); err != nil {
		return nil, fmt.Errorf("documents configuration failed: %w", err)
	}

	// Lint configuration
	if err := w.configureLint(); err != nil {
		return nil, fmt.Errorf("lint configuration failed: %w", err)
	}

	// Render configuration
	if err := w.configureRender(); err != nil {
		return nil, fmt.Errorf("render configuration failed: %w", err)
	}

	// Watch configuration
	if err := w.configureWatch(); err != nil {
		return nil, fmt.Errorf("watch configuration failed: %w", err)
	}

	// Export configuration
	if err := w.configureExport(); err != nil {
		return nil, fmt.Errorf("export configuration failed: %w", err)
	}

	// Validate the final configuration
	if err := validateConfig(w.config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println()
	fmt.Println("✅ Configuration completed successfully!")
	return w.config, nil
}

func (w *ConfigWizard) configureServer() error {
	fmt.Println("🌐 Server Configuration")
	fmt.Println("----------------------")

	// Port configuration
	port, err := w.askInt("Preview server port", DefaultPort, 1, 65535)
	if err != nil {
		return err
	}
	w.config.Server.Port = port

	// Host configuration
	host := w.askString("Server host", "localhost")
	w.config.Server.Host = host

	// Auto-open browser
	w.config.Server.Open = w.askBool("Auto-open browser on start", true)

	// Environment
	env := w.askChoice("Environment", []string{"development", "production"}, "development")
	w.config.Server.Environment = env

	// Live preview features
	w.config.Server.LiveReload = w.askBool("Enable live reload", true)
	w.config.Server.ErrorOverlay = w.askBool("Enable lint error overlay", true)

	fmt.Println()
	return nil
}

func (w *ConfigWizard) configureDocuments() error {
	fmt.Println("📚 Documents Configuration")
	fmt.Println("--------------------------")

	// Guide paths
	fmt.Println("Guide documents (Markdown files to lint and serve):")
	paths := []string{}

	defaultPaths := []string{"FEATURES.md"}
	for _, path := range defaultPaths {
		if w.askBool(fmt.Sprintf("Include %s", path), true) {
			paths = append(paths, path)
		}
	}

	// Allow custom paths
	for {
		if !w.askBool("Add custom document path", false) {
			break
		}
		customPath := w.askString("Custom document path", "")
		if customPath != "" {
			paths = append(paths, customPath)
		}
	}

	w.config.Documents.Paths = paths

	// Exclude patterns
	excludePatterns := []string{}
	defaultExcludes := []string{"*_draft.md", "*.bak"}

	fmt.Println("File exclusion patterns:")
	for _, pattern := range defaultExcludes {
		if w.askBool(fmt.Sprintf("Exclude %s", pattern), true) {
			excludePatterns = append(excludePatterns, pattern)
		}
	}

	// Allow custom exclusion patterns
	for {
		if !w.askBool("Add custom exclusion pattern", false) {
			break
		}
		customPattern := w.askString("Custom exclusion pattern", "")
		if customPattern != "" {
			excludePatterns = append(excludePatterns, customPattern)
		}
	}

	w.config.Documents.ExcludePatterns = excludePatterns

	// Expected section count
	sections, err := w.askInt("Expected section count (0 disables the check)", 26, 0, 500)
	if err != nil {
		return err
	}
	w.config.Documents.ExpectedSections = sections

	// Language hints
	if w.askBool("Customize allowed snippet languages", false) {
		for {
			lang := w.askString("Language hint (empty to finish)", "")
			if lang == "" {
				break
			}
			w.config.Documents.AllowedLanguages = append(w.config.Documents.AllowedLanguages, lang)
		}
	}

	fmt.Println()
	return nil
}

func (w *ConfigWizard) configureLint() error {
	fmt.Println("🔍 Lint Configuration")
	fmt.Println("---------------------")

	failOn := w.askChoice("Fail on", []string{"error", "warning"}, "error")
	w.config.Lint.FailOn = failOn

	if w.askBool("Exclude any rules", false) {
		for {
			rule := w.askString("Rule ID to exclude (empty to finish)", "")
			if rule == "" {
				break
			}
			w.config.Lint.ExcludeRules = append(w.config.Lint.ExcludeRules, rule)
		}
	}

	fmt.Println()
	return nil
}

func (w *ConfigWizard) configureRender() error {
	fmt.Println("🎨 Render Configuration")
	fmt.Println("-----------------------")

	theme := w.askChoice("Terminal theme", []string{"auto", "dark", "light", "notty"}, "auto")
	w.config.Render.Theme = theme

	width, err := w.askInt("Word wrap width (0 disables wrapping)", 80, 0, 500)
	if err != nil {
		return err
	}
	w.config.Render.Width = width

	w.config.Render.CacheDir = w.askString("Render cache directory", ".featmark/cache")

	fmt.Println()
	return nil
}

func (w *ConfigWizard) configureWatch() error {
	fmt.Println("👁 Watch Configuration")
	fmt.Println("----------------------")

	w.config.Watch.Debounce = w.askString("Rebuild debounce delay", "300ms")

	ignorePatterns := []string{}
	defaultIgnorePatterns := []string{"node_modules", ".git", ".featmark"}

	fmt.Println("Watch ignore patterns:")
	for _, pattern := range defaultIgnorePatterns {
		if w.askBool(fmt.Sprintf("Ignore %s", pattern), true) {
			ignorePatterns = append(ignorePatterns, pattern)
		}
	}

	w.config.Watch.Ignore = ignorePatterns

	fmt.Println()
	return nil
}

func (w *ConfigWizard) configureExport() error {
	fmt.Println("📦 Export Configuration")
	fmt.Println("-----------------------")

	w.config.Export.OutputDir = w.askString("Export output directory", "dist")
	w.config.Export.SinglePage = w.askBool("Export as a single page", false)
	w.config.Export.CheckLinks = w.askBool("Audit links after export", true)

	fmt.Println()
	return nil
}

// Helper methods for user interaction

func (w *ConfigWizard) askString(prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Printf("%s: ", prompt)
	}

	input, err := w.reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}

	return input
}

func (w *ConfigWizard) askInt(prompt string, defaultValue, min, max int) (int, error) {
	for {
		fmt.Printf("%s [%d]: ", prompt, defaultValue)

		input, err := w.reader.ReadString('\n')
		if err != nil {
			return defaultValue, nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			return defaultValue, nil
		}

		value, err := strconv.Atoi(input)
		if err != nil {
			fmt.Printf("❌ Invalid number. Please enter a number between %d and %d.\n", min, max)
			continue
		}

		if value < min || value > max {
			fmt.Printf("❌ Number out of range. Please enter a number between %d and %d.\n", min, max)
			continue
		}

		return value, nil
	}
}

func (w *ConfigWizard) askBool(prompt string, defaultValue bool) bool {
	defaultStr := "n"
	if defaultValue {
		defaultStr = "y"
	}

	fmt.Printf("%s [%s]: ", prompt, defaultStr)

	input, err := w.reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultValue
	}

	return input == "y" || input == "yes" || input == "true"
}

func (w *ConfigWizard) askChoice(prompt string, choices []string, defaultValue string) string {
	for {
		fmt.Printf("%s [%s] (options: %s): ", prompt, defaultValue, strings.Join(choices, ", "))

		input, err := w.reader.ReadString('\n')
		if err != nil {
			return defaultValue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			return defaultValue
		}

		// Check if input is valid choice
		for _, choice := range choices {
			if strings.EqualFold(input, choice) {
				return choice
			}
		}

		fmt.Printf("❌ Invalid choice. Please select from: %s\n", strings.Join(choices, ", "))
	}
}

// WriteConfigFile writes the configuration to a YAML file
func (w *ConfigWizard) WriteConfigFile(filename string) error {
	// Check if file already exists
	if _, err := os.Stat(filename); err == nil {
		overwrite := w.askBool(fmt.Sprintf("Configuration file %s already exists. Overwrite", filename), false)
		if !overwrite {
			return fmt.Errorf("configuration file already exists")
		}
	}

	// Generate YAML content
	content := w.generateYAMLConfig()

	// Write to file
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("✅ Configuration saved to %s\n", filename)
	return nil
}

func (w *ConfigWizard) generateYAMLConfig() string {
	var builder strings.Builder

	builder.WriteString("# featmark configuration file\n")
	builder.WriteString("# Generated by the featmark configuration wizard\n\n")

	// Server configuration
	builder.WriteString("server:\n")
	builder.WriteString(fmt.Sprintf("  port: %d\n", w.config.Server.Port))
	builder.WriteString(fmt.Sprintf("  host: %s\n", w.config.Server.Host))
	builder.WriteString(fmt.Sprintf("  open: %t\n", w.config.Server.Open))
	builder.WriteString(fmt.Sprintf("  environment: %s\n", w.config.Server.Environment))
	builder.WriteString(fmt.Sprintf("  live_reload: %t\n", w.config.Server.LiveReload))
	builder.WriteString(fmt.Sprintf("  error_overlay: %t\n", w.config.Server.ErrorOverlay))
	builder.WriteString("\n")

	// Documents configuration
	builder.WriteString("documents:\n")
	if len(w.config.Documents.Paths) > 0 {
		builder.WriteString("  paths:\n")
		for _, path := range w.config.Documents.Paths {
			builder.WriteString(fmt.Sprintf("    - \"%s\"\n", path))
		}
	}
	if len(w.config.Documents.ExcludePatterns) > 0 {
		builder.WriteString("  exclude_patterns:\n")
		for _, pattern := range w.config.Documents.ExcludePatterns {
			builder.WriteString(fmt.Sprintf("    - \"%s\"\n", pattern))
		}
	}
	builder.WriteString(fmt.Sprintf("  expected_sections: %d\n", w.config.Documents.ExpectedSections))
	if len(w.config.Documents.AllowedLanguages) > 0 {
		builder.WriteString("  allowed_languages:\n")
		for _, lang := range w.config.Documents.AllowedLanguages {
			builder.WriteString(fmt.Sprintf("    - %s\n", lang))
		}
	}
	builder.WriteString("\n")

	// Lint configuration
	builder.WriteString("lint:\n")
	builder.WriteString(fmt.Sprintf("  fail_on: %s\n", w.config.Lint.FailOn))
	if len(w.config.Lint.ExcludeRules) > 0 {
		builder.WriteString("  exclude_rules:\n")
		for _, rule := range w.config.Lint.ExcludeRules {
			builder.WriteString(fmt.Sprintf("    - %s\n", rule))
		}
	}
	builder.WriteString("\n")

	// Render configuration
	builder.WriteString("render:\n")
	builder.WriteString(fmt.Sprintf("  theme: %s\n", w.config.Render.Theme))
	builder.WriteString(fmt.Sprintf("  width: %d\n", w.config.Render.Width))
	builder.WriteString(fmt.Sprintf("  cache_dir: \"%s\"\n", w.config.Render.CacheDir))
	builder.WriteString("\n")

	// Watch configuration
	builder.WriteString("watch:\n")
	builder.WriteString(fmt.Sprintf("  debounce: %s\n", w.config.Watch.Debounce))
	if len(w.config.Watch.Ignore) > 0 {
		builder.WriteString("  ignore:\n")
		for _, pattern := range w.config.Watch.Ignore {
			builder.WriteString(fmt.Sprintf("    - \"%s\"\n", pattern))
		}
	}
	builder.WriteString("\n")

	// Export configuration
	builder.WriteString("export:\n")
	builder.WriteString(fmt.Sprintf("  output_dir: \"%s\"\n", w.config.Export.OutputDir))
	builder.WriteString(fmt.Sprintf("  single_page: %t\n", w.config.Export.SinglePage))
	builder.WriteString(fmt.Sprintf("  check_links: %t\n", w.config.Export.CheckLinks))

	return builder.String()
}
