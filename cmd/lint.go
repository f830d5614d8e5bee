package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"featmark/internal/config"
	"featmark/internal/lint"
	"featmark/internal/registry"
	"featmark/internal/render"
	"featmark/internal/scanner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var lintCmd = &cobra.Command{
	Use:     "lint [file...]",
	Aliases: []string{"check"},
	Short:   "Check guide documents against the structural rules",
	Long: `Check guide documents against the structural rules: a single title,
numbered sections in strict 1..N sequence, balanced code fences, known
snippet language hints, and cross-references that resolve.

The command exits non-zero when any document has error findings, or any
findings at all with lint.fail_on set to "warning".

Examples:
  featmark lint                    # Check the configured documents
  featmark lint FEATURES.md        # Check one file
  featmark lint docs/              # Check every Markdown file under docs/
  featmark lint --format json      # Machine-readable reports
  featmark lint --rules heading-sequence,fence-balance`,
	RunE: runLint,
}

var lintFormat string

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFormat, "format", "f", "text", "Output format (text|json)")
	lintCmd.Flags().StringSlice("rules", nil, "Restrict the run to these rule IDs")
	lintCmd.Flags().StringSlice("exclude-rules", nil, "Skip these rule IDs")
	lintCmd.Flags().String("fail-on", "", "Failure threshold (error|warning)")
	lintCmd.Flags().Int("expected-sections", 0, "Required section count (0 disables the check)")

	addFlagValidation(lintCmd, "format", formatValidator([]string{"text", "json"}))

	viper.BindPFlag("lint.rules", lintCmd.Flags().Lookup("rules"))
	viper.BindPFlag("lint.exclude_rules", lintCmd.Flags().Lookup("exclude-rules"))
	viper.BindPFlag("lint.fail_on", lintCmd.Flags().Lookup("fail-on"))
	viper.BindPFlag("documents.expected_sections", lintCmd.Flags().Lookup("expected-sections"))
}

func runLint(cmd *cobra.Command, args []string) error {
	if err := validateFormat(lintFormat, []string{"text", "json"}); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := collectGuideFiles(guideTargets(cfg, args))
	if err != nil {
		return err
	}

	docScanner := scanner.NewDocumentScanner(registry.NewDocumentRegistry())
	defer docScanner.Close()
	engine := newEngine(cfg)

	reports := make([]*lint.Report, 0, len(files))
	for _, file := range files {
		parsed, err := docScanner.ParseFile(file)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}

		report, err := engine.AnalyzeDocument(cmd.Context(), parsed)
		if err != nil {
			return fmt.Errorf("checking %s: %w", file, err)
		}
		reports = append(reports, report)
	}

	switch lintFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			return err
		}
	default:
		for _, report := range reports {
			fmt.Println(render.FormatReport(report))
			fmt.Println()
		}
		fmt.Println(render.FormatRunSummary(reports))
	}

	return lintVerdict(cfg, reports)
}

// lintVerdict turns the run into the command's exit status per lint.fail_on.
func lintVerdict(cfg *config.Config, reports []*lint.Report) error {
	var errors, warnings int
	for _, report := range reports {
		errors += report.Summary.Errors
		warnings += report.Summary.Warnings
	}

	if errors > 0 {
		return fmt.Errorf("lint failed: %d errors in %d documents", errors, len(reports))
	}
	if cfg.Lint.FailOn == "warning" && warnings > 0 {
		return fmt.Errorf("lint failed: %d warnings in %d documents (fail_on: warning)", warnings, len(reports))
	}
	return nil
}
