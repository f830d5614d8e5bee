package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"featmark/internal/config"
	"featmark/internal/lint"
	"featmark/internal/logging"
	"featmark/internal/scanner"
	"featmark/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuide = `# Framework Feature Guide

A tour of the framework, starting with
[1. File-System Based Routing](#1-file-system-based-routing).

## 1. File-System Based Routing

Pages map to files on disk, so the router configuration is the directory
tree itself.

` + "```" + `
pages/index.js   -> /
pages/about.js   -> /about
` + "```" + `

## 2. Dynamic Routing

Bracketed file names capture URL segments as parameters, building on
[file-system routing](#1-file-system-based-routing).

` + "```jsx" + `
export default function Post({ params }) {
  return <h1>{params.slug}</h1>
}
` + "```" + `

## 3. API Routes

Files under pages/api become server endpoints instead of pages.

` + "```javascript" + `
export default function handler(req, res) {
  res.status(200).json({ ok: true })
}
` + "```" + `
`

func TestInitCommand(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	// Reset flags
	initTitle = ""
	initSections = 3

	err = runInit(&cobra.Command{}, []string{})
	require.NoError(t, err)

	assert.FileExists(t, ".featmark.yml")
	assert.FileExists(t, "FEATURES.md")
	assert.DirExists(t, ".featmark/cache")

	configContent, err := os.ReadFile(".featmark.yml")
	require.NoError(t, err)
	assert.Contains(t, string(configContent), "expected_sections: 3")
	assert.Contains(t, string(configContent), "FEATURES.md")

	guideContent, err := os.ReadFile("FEATURES.md")
	require.NoError(t, err)
	assert.Contains(t, string(guideContent), "## 1. Routing")
	assert.Contains(t, string(guideContent), "## 3. Rendering")
	assert.Contains(t, string(guideContent), "(#1-routing)")
}

func TestInitCommandWithProjectName(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	initTitle = ""
	initSections = 3

	err = runInit(&cobra.Command{}, []string{"my-guide"})
	require.NoError(t, err)

	assert.DirExists(t, "my-guide")
	assert.FileExists(t, "my-guide/.featmark.yml")
	assert.FileExists(t, "my-guide/FEATURES.md")

	guideContent, err := os.ReadFile("my-guide/FEATURES.md")
	require.NoError(t, err)
	assert.Contains(t, string(guideContent), "# My Guide Feature Guide")
}

func TestInitCommandSkipsExistingFiles(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	err = os.WriteFile("FEATURES.md", []byte("# Keep Me\n"), 0644)
	require.NoError(t, err)

	initTitle = ""
	initSections = 3

	err = runInit(&cobra.Command{}, []string{})
	require.NoError(t, err)

	guideContent, err := os.ReadFile("FEATURES.md")
	require.NoError(t, err)
	assert.Equal(t, "# Keep Me\n", string(guideContent))
}

func TestInitScaffoldPassesLint(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	initTitle = ""
	initSections = 5

	err = runInit(&cobra.Command{}, []string{})
	require.NoError(t, err)

	content, err := os.ReadFile("FEATURES.md")
	require.NoError(t, err)

	parsed, err := scanner.ParseDocument("FEATURES.md", content)
	require.NoError(t, err)

	engine := lint.NewEngine(logging.NewTestLogger(), lint.EngineConfig{ExpectedSections: 5})
	report, err := engine.AnalyzeDocument(context.Background(), parsed)
	require.NoError(t, err)

	assert.True(t, report.Valid(), "scaffold should pass its own lint: %+v", report.Issues)
	assert.Zero(t, report.Summary.Warnings, "scaffold should not warn: %+v", report.Issues)
}

func TestRunLintValidGuide(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	err = os.WriteFile("FEATURES.md", []byte(testGuide), 0644)
	require.NoError(t, err)

	viper.Reset()
	viper.Set("documents.paths", []string{"FEATURES.md"})
	lintFormat = "json"

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = runLint(cmd, []string{})
	require.NoError(t, err)
}

func TestRunLintBrokenGuide(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	// Break the heading sequence: 1, 4, 3
	broken := strings.Replace(testGuide, "## 2. Dynamic Routing", "## 4. Dynamic Routing", 1)
	err = os.WriteFile("FEATURES.md", []byte(broken), 0644)
	require.NoError(t, err)

	viper.Reset()
	viper.Set("documents.paths", []string{"FEATURES.md"})
	lintFormat = "json"

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = runLint(cmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lint failed")
}

func TestRunLintUnknownFormat(t *testing.T) {
	lintFormat = "xml"
	defer func() { lintFormat = "text" }()

	err := runLint(&cobra.Command{}, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestRunListFormats(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	err = os.WriteFile("FEATURES.md", []byte(testGuide), 0644)
	require.NoError(t, err)

	viper.Reset()
	viper.Set("documents.paths", []string{"FEATURES.md"})

	listWithSnippets = true
	listWithRefs = true
	defer func() {
		listWithSnippets = false
		listWithRefs = false
	}()

	for _, format := range []string{"table", "json", "yaml", "csv"} {
		t.Run(format, func(t *testing.T) {
			listFormat = format
			err := runList(&cobra.Command{}, []string{})
			require.NoError(t, err)
		})
	}
}

func TestRunExportCommand(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	err = os.WriteFile("FEATURES.md", []byte(testGuide), 0644)
	require.NoError(t, err)

	viper.Reset()
	viper.Set("documents.paths", []string{"FEATURES.md"})
	viper.Set("export.output_dir", "out")

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = runExport(cmd, []string{})
	require.NoError(t, err)

	assert.FileExists(t, "out/index.html")
	assert.FileExists(t, "out/section/1-file-system-based-routing/index.html")
	assert.FileExists(t, "out/section/3-api-routes/index.html")
}

func TestCollectGuideFiles(t *testing.T) {
	tempDir := t.TempDir()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll("docs", 0755))
	require.NoError(t, os.MkdirAll("node_modules", 0755))
	require.NoError(t, os.MkdirAll(".hidden", 0755))
	require.NoError(t, os.WriteFile("FEATURES.md", []byte("# Guide\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join("docs", "extra.md"), []byte("# Extra\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join("docs", "notes.txt"), []byte("notes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join("node_modules", "skip.md"), []byte("# Skip\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(".hidden", "skip.md"), []byte("# Skip\n"), 0644))

	files, err := collectGuideFiles([]string{"FEATURES.md", "docs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"FEATURES.md", filepath.Join("docs", "extra.md")}, files)

	_, err = collectGuideFiles([]string{"missing.md"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")

	require.NoError(t, os.MkdirAll("empty", 0755))
	_, err = collectGuideFiles([]string{"empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no guide documents found")
}

func TestGuideTargets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Documents.Paths = []string{"FEATURES.md"}

	assert.Equal(t, []string{"FEATURES.md"}, guideTargets(cfg, nil))
	assert.Equal(t, []string{"docs"}, guideTargets(cfg, []string{"docs"}))
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json", []string{"text", "json"}))
	assert.NoError(t, validateFormat("text", []string{"text", "json"}))

	err := validateFormat("xml", []string{"text", "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.Contains(t, err.Error(), "text, json")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, validatePort(8120))
	assert.NoError(t, validatePort(1))
	assert.NoError(t, validatePort(65535))
	assert.Error(t, validatePort(0))
	assert.Error(t, validatePort(-1))
	assert.Error(t, validatePort(70000))
}

func TestValidatePortFlag(t *testing.T) {
	assert.NoError(t, validatePortFlag("8120"))
	assert.Error(t, validatePortFlag("notaport"))
	assert.Error(t, validatePortFlag("0"))
	assert.Error(t, validatePortFlag("70000"))
}

// TestAddFlagValidation checks that a wrapped flag rejects bad input at
// parse time, before any run function fires.
func TestAddFlagValidation(t *testing.T) {
	ran := false
	cmd := &cobra.Command{
		Use:           "probe",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			ran = true
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "text", "")
	addFlagValidation(cmd, "format", formatValidator([]string{"text", "json"}))

	cmd.SetArgs([]string{"--format", "xml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.False(t, ran)

	cmd.SetArgs([]string{"--format", "json"})
	require.NoError(t, cmd.Execute())
	assert.True(t, ran)

	format, err := cmd.Flags().GetString("format")
	require.NoError(t, err)
	assert.Equal(t, "json", format)
}

func TestAddFlagValidation_UnknownFlagIsIgnored(t *testing.T) {
	cmd := &cobra.Command{}
	addFlagValidation(cmd, "absent", func(string) error { return nil })
	assert.Nil(t, cmd.Flags().Lookup("absent"))
}

func TestCsvField(t *testing.T) {
	assert.Equal(t, "plain", csvField("plain"))
	assert.Equal(t, `"a,b"`, csvField("a,b"))
	assert.Equal(t, `"say ""hi"""`, csvField(`say "hi"`))
	assert.Equal(t, "\"line\nbreak\"", csvField("line\nbreak"))
}

func TestSnippetHelpers(t *testing.T) {
	section := &types.SectionInfo{
		Snippet: &types.SnippetInfo{Language: "", Code: "line one\nline two\n"},
	}
	assert.Equal(t, "plain", snippetLanguage(section))
	assert.Equal(t, 2, snippetLines(section))

	section.Snippet.Language = "jsx"
	section.Snippet.Code = ""
	assert.Equal(t, "jsx", snippetLanguage(section))
	assert.Equal(t, 0, snippetLines(section))
}

func TestLintVerdict(t *testing.T) {
	cfg := &config.Config{}
	cfg.Lint.FailOn = "error"

	clean := []*lint.Report{{Summary: lint.Summary{}}}
	assert.NoError(t, lintVerdict(cfg, clean))

	failing := []*lint.Report{{Summary: lint.Summary{Errors: 2}}}
	err := lintVerdict(cfg, failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")

	warned := []*lint.Report{{Summary: lint.Summary{Warnings: 1}}}
	assert.NoError(t, lintVerdict(cfg, warned))

	cfg.Lint.FailOn = "warning"
	err = lintVerdict(cfg, warned)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail_on: warning")
}

func TestDeriveGuideTitle(t *testing.T) {
	assert.Equal(t, "My Framework Feature Guide", deriveGuideTitle("/tmp/work/my-framework"))
	assert.Equal(t, "Acme Docs Feature Guide", deriveGuideTitle("acme_docs"))
}

func TestCalculateSummary(t *testing.T) {
	results := []DiagnosticResult{
		{Status: "ok"},
		{Status: "ok"},
		{Status: "warning"},
		{Status: "error"},
		{Status: "info"},
	}

	summary := calculateSummary(results)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Info)
}

func TestIsDirWritable(t *testing.T) {
	tempDir := t.TempDir()
	assert.True(t, isDirWritable(tempDir))

	// A yet-to-be-created directory is writable when its parent is
	assert.True(t, isDirWritable(filepath.Join(tempDir, "dist")))

	file := filepath.Join(tempDir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.False(t, isDirWritable(file))
}
