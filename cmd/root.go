// Package cmd provides the command-line interface for featmark.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. FEATMARK_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (FEATMARK_SERVER_PORT, etc.)
//	4. Configuration files (.featmark.yml) - lowest priority
//
// Environment Variables:
//
//	FEATMARK_CONFIG_FILE: Path to custom configuration file
//	FEATMARK_SERVER_PORT: Override preview server port
//	FEATMARK_DOCUMENTS_EXPECTED_SECTIONS: Override the section count check
//	And more following the FEATMARK_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"featmark/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "featmark",
	Short: "Lint, preview, and export numbered feature guides",
	Long: `Featmark keeps Markdown feature guides honest: numbered sections in
strict sequence, balanced code fences, known snippet languages, and
cross-references that resolve.

Key Features:
  • Structural lint rules for the guide contract
  • Browser preview server with live reload and an error overlay
  • Terminal rendering through glamour
  • Static HTML export with a link audit
  • Watch mode that re-checks documents on save

Quick Start:
  featmark init                   Scaffold a new guide
  featmark lint                   Check the guide against the rules
  featmark serve                  Start the preview server
  featmark list                   List the guide's sections
  featmark export                 Export static HTML

Command Aliases (for faster typing):
  lint (check), list (l), serve (s), watch (w), export (x)`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .featmark.yml, can also use FEATMARK_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. FEATMARK_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .featmark.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("FEATMARK_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".featmark")
	}

	viper.SetEnvPrefix("FEATMARK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; the defaults describe a plain guide
	// repository with FEATURES.md at the root.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newCommandLogger builds the logger commands hand to internal components.
// Logs go to stderr so report output on stdout stays parseable.
func newCommandLogger() logging.Logger {
	level := logging.LevelInfo
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		level = logging.LevelDebug
	case "info":
		level = logging.LevelInfo
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: "text",
		Output: os.Stderr,
	})
}
