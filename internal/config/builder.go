package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigBuilder provides a fluent interface for building configurations
// with progressive complexity tiers and clear separation of concerns.
//
// Usage:
//
//	config, err := NewConfigBuilder().
//	    WithBasicSettings().
//	    WithDevelopmentMode().
//	    Build()
type ConfigBuilder struct {
	config     *Config
	validators []ValidatorFunc
	tier       ConfigTier
}

// ConfigTier represents the complexity level of configuration
type ConfigTier int

const (
	// TierBasic covers linting a guide from the command line.
	TierBasic ConfigTier = iota
	// TierDevelopment adds the live preview server and watcher.
	TierDevelopment
	// TierPublish adds static export settings.
	TierPublish
)

// ValidatorFunc represents a configuration validation function
type ValidatorFunc func(*Config) error

// NewConfigBuilder creates a new configuration builder with sensible defaults
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config:     &Config{},
		validators: []ValidatorFunc{},
		tier:       TierBasic,
	}
}

// WithBasicSettings applies basic configuration suitable for linting a
// single guide document
func (cb *ConfigBuilder) WithBasicSettings() *ConfigBuilder {
	cb.tier = TierBasic
	cb.config.Server = ServerConfig{
		Port:        DefaultPort,
		Host:        "localhost",
		Open:        true,
		Environment: "development",
	}
	cb.config.Documents = DocumentsConfig{
		Paths:           []string{"FEATURES.md"},
		ExcludePatterns: []string{"*_draft.md", "*.bak"},
	}
	cb.config.Lint = LintConfig{
		FailOn: "error",
	}
	cb.config.Render = RenderConfig{
		Theme:    "auto",
		Width:    80,
		CacheDir: ".featmark/cache",
	}
	return cb
}

// WithDevelopmentMode adds live-preview settings
func (cb *ConfigBuilder) WithDevelopmentMode() *ConfigBuilder {
	if cb.tier < TierDevelopment {
		cb.tier = TierDevelopment
	}
	cb.config.Server.LiveReload = true
	cb.config.Server.ErrorOverlay = true
	cb.config.Watch = WatchConfig{
		Debounce: "300ms",
		Ignore:   []string{"node_modules", ".git", ".featmark"},
	}
	return cb
}

// WithPublishSettings adds static export settings
func (cb *ConfigBuilder) WithPublishSettings() *ConfigBuilder {
	if cb.tier < TierPublish {
		cb.tier = TierPublish
	}
	cb.config.Export = ExportConfig{
		OutputDir:  "dist",
		CheckLinks: true,
	}
	return cb
}

// WithCustomServer allows customization of server settings
func (cb *ConfigBuilder) WithCustomServer(port int, host string) *ConfigBuilder {
	cb.config.Server.Port = port
	cb.config.Server.Host = host
	cb.addValidator(validateServerConfig(&cb.config.Server))
	return cb
}

// WithDocumentPaths sets custom guide document paths
func (cb *ConfigBuilder) WithDocumentPaths(paths ...string) *ConfigBuilder {
	cb.config.Documents.Paths = paths
	cb.addValidator(validateDocumentsConfig(&cb.config.Documents))
	return cb
}

// WithExpectedSections pins the section count the guide must carry
func (cb *ConfigBuilder) WithExpectedSections(count int) *ConfigBuilder {
	cb.config.Documents.ExpectedSections = count
	if count < 0 {
		cb.addValidator(fmt.Errorf("expected_sections cannot be negative: %d", count))
	}
	return cb
}

// WithLintRules restricts the lint run to the given rule selections
func (cb *ConfigBuilder) WithLintRules(rules, excludeRules []string) *ConfigBuilder {
	cb.config.Lint.Rules = rules
	cb.config.Lint.ExcludeRules = excludeRules
	cb.addValidator(validateLintConfig(&cb.config.Lint))
	return cb
}

// WithEnvironment applies environment-specific overrides
func (cb *ConfigBuilder) WithEnvironment(env string) *ConfigBuilder {
	switch env {
	case "development":
		cb.WithDevelopmentMode()
		cb.config.Server.Environment = "development"
	case "testing":
		cb.WithDevelopmentMode()
		cb.config.Server.Environment = "testing"
		cb.config.Server.Open = false
	case "production":
		cb.WithPublishSettings()
		cb.config.Server.Environment = "production"
		cb.config.Server.LiveReload = false
		cb.config.Server.ErrorOverlay = false
	}
	return cb
}

// FromViper loads settings from viper configuration
func (cb *ConfigBuilder) FromViper() *ConfigBuilder {
	var viperConfig Config
	if err := viper.Unmarshal(&viperConfig); err == nil {
		cb.mergeViperConfig(&viperConfig)
	}
	return cb
}

// AddValidator adds a custom validation function
func (cb *ConfigBuilder) AddValidator(validator ValidatorFunc) *ConfigBuilder {
	cb.validators = append(cb.validators, validator)
	return cb
}

// Build creates the final configuration after applying all settings and validations
func (cb *ConfigBuilder) Build() (*Config, error) {
	// Apply viper overrides for known issues
	cb.applyViperWorkarounds()

	// Run all validators
	for _, validator := range cb.validators {
		if err := validator(cb.config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	// Final validation
	if err := validateConfig(cb.config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cb.config, nil
}

// GetTier returns the current configuration tier
func (cb *ConfigBuilder) GetTier() ConfigTier {
	return cb.tier
}

// addValidator is a helper to add validator functions
func (cb *ConfigBuilder) addValidator(err error) {
	if err != nil {
		cb.validators = append(cb.validators, func(*Config) error {
			return err
		})
	}
}

// mergeViperConfig merges settings from viper into the current config
func (cb *ConfigBuilder) mergeViperConfig(viperConfig *Config) {
	// Only merge non-zero values to avoid overriding builder settings
	if viperConfig.Server.Port != 0 {
		cb.config.Server.Port = viperConfig.Server.Port
	}
	if viperConfig.Server.Host != "" {
		cb.config.Server.Host = viperConfig.Server.Host
	}
	if len(viperConfig.Documents.Paths) > 0 {
		cb.config.Documents.Paths = viperConfig.Documents.Paths
	}
	if viperConfig.Documents.ExpectedSections != 0 {
		cb.config.Documents.ExpectedSections = viperConfig.Documents.ExpectedSections
	}
	if viperConfig.Render.Theme != "" {
		cb.config.Render.Theme = viperConfig.Render.Theme
	}
	if viperConfig.Lint.FailOn != "" {
		cb.config.Lint.FailOn = viperConfig.Lint.FailOn
	}
}

// applyViperWorkarounds handles known viper issues with slice and boolean handling
func (cb *ConfigBuilder) applyViperWorkarounds() {
	// Handle document paths set via viper
	if viper.IsSet("documents.paths") {
		if paths := viper.GetStringSlice("documents.paths"); len(paths) > 0 {
			cb.config.Documents.Paths = paths
		}
	}

	// Handle lint selections
	if viper.IsSet("lint.rules") {
		cb.config.Lint.Rules = viper.GetStringSlice("lint.rules")
	}
	if viper.IsSet("lint.exclude_rules") {
		cb.config.Lint.ExcludeRules = viper.GetStringSlice("lint.exclude_rules")
	}

	// Handle preview settings
	if viper.IsSet("server.live_reload") {
		cb.config.Server.LiveReload = viper.GetBool("server.live_reload")
	}
	if viper.IsSet("server.error_overlay") {
		cb.config.Server.ErrorOverlay = viper.GetBool("server.error_overlay")
	}

	// Override no-open if explicitly set
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		cb.config.Server.Open = false
	}
}
