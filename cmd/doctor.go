package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"featmark/internal/config"
	"featmark/internal/scanner"
	"featmark/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the guide workspace and environment",
	Long: `Diagnose the guide workspace and check for common setup problems.

The doctor command inspects your configuration, documents, and environment
and reports anything that would trip up the other commands. It checks for:

- Configuration file presence and syntax
- Guide documents on the configured paths
- Section structure against the expected count
- Preview server port availability
- Export and cache directory permissions
- Git hygiene for generated output

Examples:
  featmark doctor                   # Full workspace diagnosis
  featmark doctor --verbose         # Include informational results
  featmark doctor --format json     # Output as JSON for tooling`,
	RunE: runDoctor,
}

var (
	doctorVerbose bool
	doctorFormat  string
)

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Name       string                 `json:"name" yaml:"name"`
	Category   string                 `json:"category" yaml:"category"`
	Status     string                 `json:"status" yaml:"status"` // "ok", "warning", "error", "info"
	Message    string                 `json:"message" yaml:"message"`
	Suggestion string                 `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
	Summary     ReportSummary      `json:"summary" yaml:"summary"`
}

// ReportSummary provides an overview of diagnostic results
type ReportSummary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
	Info     int `json:"info" yaml:"info"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Show informational results and check details")
	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", "table", "Output format (table|json|yaml)")

	addFlagValidation(doctorCmd, "format", formatValidator([]string{"table", "json", "yaml"}))
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if err := validateFormat(doctorFormat, []string{"table", "json", "yaml"}); err != nil {
		return err
	}

	ctx := cmd.Context()

	fmt.Println("🔍 Featmark Workspace Doctor")
	fmt.Println("============================")
	fmt.Println()

	report := &DoctorReport{
		Timestamp:   time.Now(),
		Environment: gatherEnvironmentInfo(),
		Results:     []DiagnosticResult{},
	}

	checks := []func(context.Context, *DoctorReport) DiagnosticResult{
		checkGuideConfiguration,
		checkGuideDocuments,
		checkGuideStructure,
		checkPortAvailability,
		checkDirectoryPermissions,
		checkGitIntegration,
	}

	for _, check := range checks {
		result := check(ctx, report)
		report.Results = append(report.Results, result)

		if !doctorVerbose && result.Status == "info" {
			continue
		}

		displayResult(result)
	}

	report.Summary = calculateSummary(report.Results)

	fmt.Println("\n📊 Summary")
	fmt.Println("==========")
	displaySummary(report.Summary)

	if doctorFormat != "table" {
		fmt.Println("\n📋 Detailed Report")
		fmt.Println("==================")
		if err := outputReport(report, doctorFormat); err != nil {
			return fmt.Errorf("failed to output report: %w", err)
		}
	}

	provideFinalRecommendations(report)

	return nil
}

func gatherEnvironmentInfo() map[string]string {
	env := map[string]string{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
		"version":    version.GetVersion(),
		"user":       os.Getenv("USER"),
		"shell":      os.Getenv("SHELL"),
	}

	if wd, err := os.Getwd(); err == nil {
		env["working_dir"] = wd
	}

	return env
}

func checkGuideConfiguration(ctx context.Context, report *DoctorReport) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Configuration",
		Category: "Configuration",
		Status:   "ok",
	}

	configPath := ".featmark.yml"
	if env := os.Getenv("FEATMARK_CONFIG_FILE"); env != "" {
		configPath = env
	}

	raw, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		result.Status = "warning"
		result.Message = fmt.Sprintf("No %s configuration file found", configPath)
		result.Suggestion = "Run 'featmark init' to scaffold a guide, or rely on the built-in defaults"
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read %s: %v", configPath, err)
		return result
	}

	// Surface YAML syntax problems separately from semantic ones.
	var syntax map[string]interface{}
	if err := yaml.Unmarshal(raw, &syntax); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("%s is not valid YAML: %v", configPath, err)
		result.Suggestion = "Fix the syntax error, or delete the file and re-run 'featmark init'"
		return result
	}

	cfg, err := config.Load()
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Configuration file exists but has errors: %v", err)
		result.Suggestion = "Fix the reported setting in " + configPath
		return result
	}

	result.Message = "Configuration file is valid"
	result.Details = map[string]interface{}{
		"config_file":       configPath,
		"document_paths":    cfg.Documents.Paths,
		"expected_sections": cfg.Documents.ExpectedSections,
		"server_port":       cfg.Server.Port,
		"fail_on":           cfg.Lint.FailOn,
	}

	if len(cfg.Documents.Paths) == 0 {
		result.Status = "warning"
		result.Message = "No document paths configured"
		result.Suggestion = "Add your guide files to documents.paths in " + configPath
	}

	return result
}

func checkGuideDocuments(ctx context.Context, report *DoctorReport) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Guide Documents",
		Category: "Documents",
		Status:   "ok",
	}

	cfg, err := config.Load()
	if err != nil {
		result.Status = "info"
		result.Message = "Skipped: configuration did not load"
		return result
	}

	files, err := collectGuideFiles(guideTargets(cfg, nil))
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("No guide documents found: %v", err)
		result.Suggestion = "Run 'featmark init' or point documents.paths at your guide"
		return result
	}

	result.Message = fmt.Sprintf("Found %d guide documents", len(files))
	result.Details = map[string]interface{}{
		"files": files,
	}

	return result
}

func checkGuideStructure(ctx context.Context, report *DoctorReport) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Guide Structure",
		Category: "Documents",
		Status:   "ok",
	}

	cfg, err := config.Load()
	if err != nil {
		result.Status = "info"
		result.Message = "Skipped: configuration did not load"
		return result
	}

	files, err := collectGuideFiles(guideTargets(cfg, nil))
	if err != nil {
		result.Status = "info"
		result.Message = "Skipped: no guide documents to inspect"
		return result
	}

	sections := 0
	snippets := 0
	untitled := []string{}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		parsed, err := scanner.ParseDocument(file, content)
		if err != nil {
			continue
		}
		sections += len(parsed.Sections)
		for _, section := range parsed.Sections {
			if section.HasSnippet() {
				snippets++
			}
		}
		if parsed.TitleCount == 0 {
			untitled = append(untitled, file)
		}
	}

	result.Message = fmt.Sprintf("%d sections across %d documents", sections, len(files))
	result.Details = map[string]interface{}{
		"sections": sections,
		"snippets": snippets,
		"expected": cfg.Documents.ExpectedSections,
	}

	if len(untitled) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Documents without a top-level title: %v", untitled)
		result.Suggestion = "Add a single '# Title' heading to each guide document"
		return result
	}

	if cfg.Documents.ExpectedSections > 0 && sections != cfg.Documents.ExpectedSections {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Guide has %d sections, expected %d", sections, cfg.Documents.ExpectedSections)
		result.Suggestion = "Run 'featmark lint' for the exact findings, or adjust documents.expected_sections"
	}

	return result
}

func checkPortAvailability(ctx context.Context, report *DoctorReport) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Port Availability",
		Category: "Network",
		Status:   "ok",
	}

	configuredPort := config.DefaultPort
	if cfg, err := config.Load(); err == nil {
		configuredPort = cfg.Server.Port
	}

	portsToCheck := []int{configuredPort, config.DefaultPort, 8121, 8122, 3000}
	availablePorts := []int{}
	conflictPorts := []int{}

	for _, port := range portsToCheck {
		if slices.Contains(availablePorts, port) || slices.Contains(conflictPorts, port) {
			continue
		}
		if isPortAvailable(port) {
			availablePorts = append(availablePorts, port)
		} else {
			conflictPorts = append(conflictPorts, port)
			if port == configuredPort {
				result.Status = "warning"
			}
		}
	}

	if len(conflictPorts) == 0 {
		result.Message = "Preview server ports are available"
	} else {
		result.Message = fmt.Sprintf("Port conflicts detected: %v", conflictPorts)
		if slices.Contains(conflictPorts, configuredPort) && len(availablePorts) > 0 {
			result.Suggestion = fmt.Sprintf("Use an alternative port: featmark serve --port %d", availablePorts[0])
		} else {
			result.Suggestion = "Stop the conflicting services or pick another port with --port"
		}
	}

	result.Details = map[string]interface{}{
		"configured_port": configuredPort,
		"available_ports": availablePorts,
		"conflict_ports":  conflictPorts,
	}

	return result
}

func checkDirectoryPermissions(ctx context.Context, report *DoctorReport) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Directory Permissions",
		Category: "Filesystem",
		Status:   "ok",
	}

	outputDir := "dist"
	cacheDir := ".featmark/cache"
	if cfg, err := config.Load(); err == nil {
		outputDir = cfg.Export.OutputDir
		cacheDir = cfg.Render.CacheDir
	}

	unwritable := []string{}
	for _, dir := range []string{outputDir, cacheDir} {
		if dir == "" {
			continue
		}
		if !isDirWritable(dir) {
			unwritable = append(unwritable, dir)
		}
	}

	if len(unwritable) > 0 {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot write to: %v", unwritable)
		result.Suggestion = "Check ownership and permissions of the listed directories"
	} else {
		result.Message = "Export and cache directories are writable"
	}

	result.Details = map[string]interface{}{
		"output_dir": outputDir,
		"cache_dir":  cacheDir,
	}

	return result
}

func checkGitIntegration(ctx context.Context, report *DoctorReport) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Git Integration",
		Category: "Version Control",
		Status:   "info",
	}

	if _, err := os.Stat(".git"); os.IsNotExist(err) {
		result.Message = "Not a Git repository"
		result.Suggestion = "Initialize a repository to track your guide: git init"
		return result
	}

	result.Status = "ok"
	result.Message = "Git repository detected"

	outputDir := "dist"
	cacheDir := ".featmark"
	if cfg, err := config.Load(); err == nil {
		outputDir = cfg.Export.OutputDir
	}

	content, err := os.ReadFile(".gitignore")
	if err != nil {
		result.Status = "warning"
		result.Message = "Git repository found but no .gitignore file"
		result.Suggestion = fmt.Sprintf("Create .gitignore and exclude %s/ and %s/", outputDir, cacheDir)
		return result
	}

	gitignoreContent := string(content)
	requiredPatterns := []string{outputDir + "/", cacheDir + "/"}
	missingPatterns := []string{}
	for _, pattern := range requiredPatterns {
		if !strings.Contains(gitignoreContent, pattern) {
			missingPatterns = append(missingPatterns, pattern)
		}
	}

	if len(missingPatterns) > 0 {
		result.Status = "warning"
		result.Message = "Generated output may be tracked by Git"
		result.Suggestion = fmt.Sprintf("Add these patterns to .gitignore: %v", missingPatterns)
	}

	result.Details = map[string]interface{}{
		"missing_patterns": missingPatterns,
	}

	return result
}

func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// isDirWritable reports whether dir (or its nearest existing parent,
// when dir has not been created yet) accepts new files.
func isDirWritable(dir string) bool {
	probe := dir
	for {
		if info, err := os.Stat(probe); err == nil {
			if !info.IsDir() {
				return false
			}
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return false
		}
		probe = parent
	}

	f, err := os.CreateTemp(probe, ".featmark-doctor-*")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}

func displayResult(result DiagnosticResult) {
	var icon string
	switch result.Status {
	case "ok":
		icon = "✅"
	case "warning":
		icon = "⚠️"
	case "error":
		icon = "❌"
	case "info":
		icon = "ℹ️"
	default:
		icon = "•"
	}

	fmt.Printf("%s [%s] %s: %s\n", icon, strings.ToUpper(result.Category), result.Name, result.Message)

	if result.Suggestion != "" {
		fmt.Printf("   💡 %s\n", result.Suggestion)
	}

	if doctorVerbose && len(result.Details) > 0 {
		fmt.Printf("   📋 Details: %+v\n", result.Details)
	}

	fmt.Println()
}

func calculateSummary(results []DiagnosticResult) ReportSummary {
	summary := ReportSummary{
		Total: len(results),
	}

	for _, result := range results {
		switch result.Status {
		case "ok":
			summary.OK++
		case "warning":
			summary.Warnings++
		case "error":
			summary.Errors++
		case "info":
			summary.Info++
		}
	}

	return summary
}

func displaySummary(summary ReportSummary) {
	fmt.Printf("Total Checks: %d\n", summary.Total)
	fmt.Printf("✅ OK: %d\n", summary.OK)
	fmt.Printf("⚠️  Warnings: %d\n", summary.Warnings)
	fmt.Printf("❌ Errors: %d\n", summary.Errors)
	fmt.Printf("ℹ️  Info: %d\n", summary.Info)
}

func outputReport(report *DoctorReport, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func provideFinalRecommendations(report *DoctorReport) {
	fmt.Println("\n🚀 Recommendations")
	fmt.Println("==================")

	hasErrors := report.Summary.Errors > 0
	hasWarnings := report.Summary.Warnings > 0

	if hasErrors {
		fmt.Println("❌ Critical Issues Detected:")
		fmt.Println("   Address the errors above before working on the guide")
		fmt.Println()
	}

	if hasWarnings {
		fmt.Println("⚠️  Opportunities:")
		fmt.Println("   Review the warnings above to keep the guide healthy")
		fmt.Println()
	}

	if !hasErrors && !hasWarnings {
		fmt.Println("🎉 Your guide workspace looks great!")
		fmt.Println()
	}

	fmt.Println("📝 Next Steps:")
	if hasGuideDocuments(report) {
		fmt.Println("   1. Run 'featmark lint' to check the guide")
		fmt.Println("   2. Run 'featmark serve' to preview it")
	} else {
		fmt.Println("   1. Run 'featmark init' to scaffold a guide")
	}
	fmt.Println()
}

func hasGuideDocuments(report *DoctorReport) bool {
	for _, result := range report.Results {
		if result.Name == "Guide Documents" && result.Status == "ok" {
			return true
		}
	}
	return false
}
