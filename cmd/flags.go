package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"featmark/internal/config"
	"featmark/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// loadConfig loads the effective configuration for a command run. Failures
// come back with pointers at the config file, since a malformed
// .featmark.yml is by far the most common cause.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err == nil {
		return cfg, nil
	}

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPath = ".featmark.yml"
	}
	suggestions := errors.ConfigSuggestions(err.Error(), configPath, nil)
	return nil, errors.NewEnhancedError("Failed to load configuration", err, suggestions)
}

// validateFormat checks an output format flag against the formats a command
// supports.
func validateFormat(format string, allowed []string) error {
	format = strings.ToLower(format)
	for _, candidate := range allowed {
		if format == candidate {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(allowed, ", "))
}

// validatePort checks a port flag value.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// formatValidator builds a parse-time validator for a --format flag.
func formatValidator(allowed []string) func(string) error {
	return func(value string) error {
		return validateFormat(value, allowed)
	}
}

// validatePortFlag checks a --port value as typed on the command line.
func validatePortFlag(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", value)
	}
	return validatePort(port)
}

// addFlagValidation wraps a registered flag's value so bad input fails
// during argument parsing instead of partway through a run.
func addFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	originalSet := flag.Value.Set
	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: originalSet,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}
