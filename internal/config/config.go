// Package config provides configuration management for featmark using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with FEATMARK_ prefix, validation, and security checks. It
// manages server settings, guide document paths, lint rule selection,
// render output, watch debouncing, and static export targets.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPort is the preview server port used when none is configured.
const DefaultPort = 8120

// DefaultDebounce is the watcher delay used when watch.debounce is unset
// or unparseable.
const DefaultDebounce = 300 * time.Millisecond

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Documents   DocumentsConfig `yaml:"documents"`
	Lint        LintConfig      `yaml:"lint"`
	Render      RenderConfig    `yaml:"render"`
	Watch       WatchConfig     `yaml:"watch"`
	Export      ExportConfig    `yaml:"export"`
	Timeouts    TimeoutConfig   `yaml:"timeouts"`
	TargetFiles []string        `yaml:"-"` // CLI arguments, not from config file
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	Open           bool     `yaml:"open"`
	NoOpen         bool     `yaml:"no-open"`
	Environment    string   `yaml:"environment"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	BlockedAgents  []string `yaml:"blocked_agents"`
	LiveReload     bool     `yaml:"live_reload"`
	ErrorOverlay   bool     `yaml:"error_overlay"`
}

type DocumentsConfig struct {
	Paths            []string `yaml:"paths"`
	ExcludePatterns  []string `yaml:"exclude_patterns"`
	ExpectedSections int      `yaml:"expected_sections"`
	AllowedLanguages []string `yaml:"allowed_languages"`
}

type LintConfig struct {
	Rules        []string `yaml:"rules"`
	ExcludeRules []string `yaml:"exclude_rules"`
	FailOn       string   `yaml:"fail_on"`
}

type RenderConfig struct {
	Theme    string `yaml:"theme"`
	Width    int    `yaml:"width"`
	CacheDir string `yaml:"cache_dir"`
}

type WatchConfig struct {
	Debounce string   `yaml:"debounce"`
	Ignore   []string `yaml:"ignore"`
}

type ExportConfig struct {
	OutputDir  string `yaml:"output_dir"`
	SinglePage bool   `yaml:"single_page"`
	CheckLinks bool   `yaml:"check_links"`
}

// TimeoutConfig bounds long-running operations. Zero or negative values
// fall back to the defaults of whatever component reads them.
type TimeoutConfig struct {
	Check time.Duration `yaml:"check"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	loadDefaults(&config)
	applyOverrides(&config)

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadDefaults fills zero-valued fields with the defaults for a guide
// repository. Boolean features that default to on are only set when viper
// has no explicit value for them; applyOverrides restores user choices
// afterwards.
func loadDefaults(config *Config) {
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}
	if !viper.IsSet("server.live_reload") {
		config.Server.LiveReload = true
	}
	if !viper.IsSet("server.error_overlay") {
		config.Server.ErrorOverlay = true
	}

	if len(config.Documents.Paths) == 0 {
		config.Documents.Paths = []string{"FEATURES.md"}
	}
	if len(config.Documents.ExcludePatterns) == 0 {
		config.Documents.ExcludePatterns = []string{"*_draft.md", "*.bak"}
	}

	if config.Lint.FailOn == "" {
		config.Lint.FailOn = "error"
	}

	if config.Render.Theme == "" {
		config.Render.Theme = "auto"
	}
	if config.Render.Width == 0 && !viper.IsSet("render.width") {
		config.Render.Width = 80
	}
	if config.Render.CacheDir == "" {
		config.Render.CacheDir = ".featmark/cache"
	}

	if config.Watch.Debounce == "" {
		config.Watch.Debounce = "300ms"
	}
	if len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = []string{"node_modules", ".git", ".featmark"}
	}

	if config.Export.OutputDir == "" {
		config.Export.OutputDir = "dist"
	}
	if !viper.IsSet("export.check_links") {
		config.Export.CheckLinks = true
	}
}

// applyOverrides copies values that viper tracked but Unmarshal missed.
// Slice, boolean, and underscored keys set via flags or Set do not reliably
// survive Unmarshal, so explicit settings are re-read here.
func applyOverrides(config *Config) {
	if viper.IsSet("documents.paths") {
		if paths := viper.GetStringSlice("documents.paths"); len(paths) > 0 {
			config.Documents.Paths = paths
		}
	}
	if viper.IsSet("documents.exclude_patterns") {
		if patterns := viper.GetStringSlice("documents.exclude_patterns"); len(patterns) > 0 {
			config.Documents.ExcludePatterns = patterns
		}
	}
	if viper.IsSet("documents.expected_sections") {
		config.Documents.ExpectedSections = viper.GetInt("documents.expected_sections")
	}
	if viper.IsSet("documents.allowed_languages") {
		config.Documents.AllowedLanguages = viper.GetStringSlice("documents.allowed_languages")
	}

	if viper.IsSet("lint.rules") {
		config.Lint.Rules = viper.GetStringSlice("lint.rules")
	}
	if viper.IsSet("lint.exclude_rules") {
		config.Lint.ExcludeRules = viper.GetStringSlice("lint.exclude_rules")
	}
	if viper.IsSet("lint.fail_on") {
		config.Lint.FailOn = viper.GetString("lint.fail_on")
	}

	if viper.IsSet("server.open") {
		config.Server.Open = viper.GetBool("server.open")
	}
	if viper.IsSet("server.allowed_origins") {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}
	if viper.IsSet("server.blocked_agents") {
		config.Server.BlockedAgents = viper.GetStringSlice("server.blocked_agents")
	}
	if viper.IsSet("server.live_reload") {
		config.Server.LiveReload = viper.GetBool("server.live_reload")
	}
	if viper.IsSet("server.error_overlay") {
		config.Server.ErrorOverlay = viper.GetBool("server.error_overlay")
	}

	if viper.IsSet("render.cache_dir") {
		config.Render.CacheDir = viper.GetString("render.cache_dir")
	}

	if viper.IsSet("watch.ignore") {
		config.Watch.Ignore = viper.GetStringSlice("watch.ignore")
	}

	if viper.IsSet("export.output_dir") {
		config.Export.OutputDir = viper.GetString("export.output_dir")
	}
	if viper.IsSet("export.single_page") {
		config.Export.SinglePage = viper.GetBool("export.single_page")
	}
	if viper.IsSet("export.check_links") {
		config.Export.CheckLinks = viper.GetBool("export.check_links")
	}

	// --no-open beats open regardless of where open came from
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.NoOpen = true
		config.Server.Open = false
	}
}

// DocumentPaths returns the guide paths to operate on. Explicit CLI targets
// win over configured paths.
func (c *Config) DocumentPaths() []string {
	if len(c.TargetFiles) > 0 {
		return c.TargetFiles
	}
	return c.Documents.Paths
}

// DebounceDuration parses watch.debounce, falling back to DefaultDebounce
// when unset or unparseable.
func (c *Config) DebounceDuration() time.Duration {
	if c.Watch.Debounce == "" {
		return DefaultDebounce
	}
	duration, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || duration < 0 {
		return DefaultDebounce
	}
	return duration
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateDocumentsConfig(&config.Documents); err != nil {
		return fmt.Errorf("documents config: %w", err)
	}
	if err := validateLintConfig(&config.Lint); err != nil {
		return fmt.Errorf("lint config: %w", err)
	}
	if err := validateRenderConfig(&config.Render); err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if err := validateExportConfig(&config.Export); err != nil {
		return fmt.Errorf("export config: %w", err)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	// Validate host
	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
		for _, r := range config.Host {
			if r < 0x20 {
				return fmt.Errorf("host contains control character")
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		if strings.ContainsAny(origin, " \t\n\r") {
			return fmt.Errorf("allowed origin contains whitespace: %s", origin)
		}
	}

	return nil
}

// validateDocumentsConfig validates guide document configuration values
func validateDocumentsConfig(config *DocumentsConfig) error {
	if len(config.Paths) == 0 {
		return fmt.Errorf("documents configuration must include at least one document path")
	}

	for _, path := range config.Paths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid document path '%s': %w", path, err)
		}
	}

	if config.ExpectedSections < 0 {
		return fmt.Errorf("expected_sections cannot be negative: %d", config.ExpectedSections)
	}

	for _, lang := range config.AllowedLanguages {
		if lang == "" {
			return fmt.Errorf("language hint cannot be empty")
		}
		if strings.ContainsAny(lang, " \t\n\r`") {
			return fmt.Errorf("language hint contains invalid character: %s", lang)
		}
	}

	return nil
}

// validateLintConfig validates lint rule selection values
func validateLintConfig(config *LintConfig) error {
	allRuleNames := append(append([]string{}, config.Rules...), config.ExcludeRules...)
	for _, name := range allRuleNames {
		if name == "" {
			return fmt.Errorf("lint rule name cannot be empty")
		}

		// Rule names are lowercase alphanumeric with dashes
		for _, char := range name {
			if !((char >= 'a' && char <= 'z') ||
				(char >= '0' && char <= '9') ||
				char == '-') {
				return fmt.Errorf("lint rule name contains invalid character: %s", name)
			}
		}
	}

	selected := make(map[string]bool)
	for _, name := range config.Rules {
		selected[name] = true
	}
	for _, name := range config.ExcludeRules {
		if selected[name] {
			return fmt.Errorf("lint rule %s cannot be both selected and excluded", name)
		}
	}

	switch config.FailOn {
	case "", "error", "warning":
	default:
		return fmt.Errorf("fail_on must be 'error' or 'warning', got '%s'", config.FailOn)
	}

	return nil
}

// validateRenderConfig validates render output configuration values
func validateRenderConfig(config *RenderConfig) error {
	if config.Width < 0 {
		return fmt.Errorf("width cannot be negative: %d", config.Width)
	}

	// Validate cache directory if specified
	if config.CacheDir != "" {
		cleanPath := filepath.Clean(config.CacheDir)

		if strings.Contains(cleanPath, "..") {
			return fmt.Errorf("cache directory contains traversal: %s", config.CacheDir)
		}

		// Should be relative path for security
		if filepath.IsAbs(cleanPath) {
			return fmt.Errorf("cache directory should be relative: %s", config.CacheDir)
		}
	}

	return nil
}

// validateWatchConfig validates watcher configuration values
func validateWatchConfig(config *WatchConfig) error {
	if config.Debounce != "" {
		duration, err := time.ParseDuration(config.Debounce)
		if err != nil {
			return fmt.Errorf("debounce is not a valid duration: %s", config.Debounce)
		}
		if duration < 0 {
			return fmt.Errorf("debounce cannot be negative: %s", config.Debounce)
		}
	}

	for _, pattern := range config.Ignore {
		if pattern == "" {
			return fmt.Errorf("ignore pattern cannot be empty")
		}
	}

	return nil
}

// validateExportConfig validates static export configuration values
func validateExportConfig(config *ExportConfig) error {
	if config.OutputDir != "" {
		cleanPath := filepath.Clean(config.OutputDir)
		if strings.Contains(cleanPath, "..") {
			return fmt.Errorf("output directory contains traversal: %s", config.OutputDir)
		}
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	// Clean the path
	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	for _, r := range cleanPath {
		if r < 0x20 {
			return fmt.Errorf("path contains control character")
		}
	}

	return nil
}
