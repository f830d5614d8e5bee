package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"featmark/internal/scanner"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var initCmd = &cobra.Command{
	Use:     "init [name]",
	Aliases: []string{"i"},
	Short:   "Scaffold a new feature guide with configuration",
	Long: `Scaffold a new feature guide in the current directory, or in a new
directory when a name is given. The scaffold contains a FEATURES.md skeleton
with numbered sections and a .featmark.yml configuration that matches it, so
'featmark lint' passes out of the box.

Examples:
  featmark init                        # Scaffold in the current directory
  featmark init my-framework           # Scaffold in a new directory
  featmark init --sections 10          # Start with ten placeholder sections
  featmark init --title "Acme Guide"   # Override the derived guide title`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initTitle    string
	initSections int
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initTitle, "title", "", "Guide title (derived from the directory name when empty)")
	initCmd.Flags().IntVar(&initSections, "sections", 3, "Number of placeholder sections to scaffold")
}

func runInit(cmd *cobra.Command, args []string) error {
	var projectDir string

	if len(args) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		projectDir = cwd
	} else {
		projectDir = args[0]
		if err := os.MkdirAll(projectDir, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	if initSections < 0 {
		return fmt.Errorf("--sections must not be negative")
	}

	fmt.Printf("Initializing feature guide in %s\n", projectDir)

	if err := os.MkdirAll(filepath.Join(projectDir, ".featmark", "cache"), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := createGuideConfig(projectDir, initSections); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	title := initTitle
	if title == "" {
		title = deriveGuideTitle(projectDir)
	}
	if err := createGuideDocument(projectDir, title, initSections); err != nil {
		return fmt.Errorf("failed to create guide document: %w", err)
	}

	fmt.Println("✓ Guide initialized successfully!")
	fmt.Println("\nNext steps:")
	if len(args) > 0 {
		fmt.Println("  1. cd " + projectDir)
		fmt.Println("  2. featmark lint")
		fmt.Println("  3. featmark serve")
	} else {
		fmt.Println("  1. featmark lint")
		fmt.Println("  2. featmark serve")
	}

	return nil
}

// deriveGuideTitle turns a directory name like "my-framework" into
// "My Framework Feature Guide".
func deriveGuideTitle(projectDir string) string {
	name := filepath.Base(projectDir)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "framework"
	}

	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	name = cases.Title(language.English).String(name)
	return name + " Feature Guide"
}

func createGuideConfig(projectDir string, sections int) error {
	configPath := filepath.Join(projectDir, ".featmark.yml")

	// Don't overwrite existing config
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("⚠ Configuration file already exists, skipping")
		return nil
	}

	configContent := fmt.Sprintf(`# Featmark configuration file
documents:
  paths:
    - FEATURES.md
  expected_sections: %d

lint:
  fail_on: error

server:
  port: 8120
  host: localhost
  open: true

render:
  theme: auto
  width: 80
  cache_dir: .featmark/cache

watch:
  debounce: 300ms

export:
  output_dir: dist
  check_links: true
`, sections)

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println("✓ Created .featmark.yml configuration file")
	return nil
}

// starterSections seeds the scaffold with recognizable feature names before
// falling back to generic placeholders.
var starterSections = []string{
	"Routing",
	"Data Fetching",
	"Rendering",
	"Styling",
	"Deployment",
}

func starterSectionTitle(number int) string {
	if number <= len(starterSections) {
		return starterSections[number-1]
	}
	return fmt.Sprintf("Feature %d", number)
}

func createGuideDocument(projectDir string, title string, sections int) error {
	documentPath := filepath.Join(projectDir, "FEATURES.md")

	// Don't overwrite an existing guide
	if _, err := os.Stat(documentPath); err == nil {
		fmt.Println("⚠ FEATURES.md already exists, skipping")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	sb.WriteString("This guide walks through the framework one feature at a time. Every\n")
	sb.WriteString("section opens with a short explanation of the feature and closes with a\n")
	sb.WriteString("focused code snippet.")
	if sections > 0 {
		firstHeading := fmt.Sprintf("1. %s", starterSectionTitle(1))
		fmt.Fprintf(&sb, " Start with [%s](#%s).", firstHeading, scanner.Slugify(firstHeading))
	}
	sb.WriteString("\n")

	for number := 1; number <= sections; number++ {
		fmt.Fprintf(&sb, "\n## %d. %s\n\n", number, starterSectionTitle(number))
		sb.WriteString("Explain what this feature does, when to reach for it, and how it fits\n")
		sb.WriteString("in with the rest of the framework. Replace this paragraph and the\n")
		sb.WriteString("snippet below with the real content.\n\n")
		sb.WriteString("```javascript\n")
		sb.WriteString("export default function Example() {\n")
		sb.WriteString("  return null\n")
		sb.WriteString("}\n")
		sb.WriteString("```\n")
	}

	if err := os.WriteFile(documentPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write guide document: %w", err)
	}

	fmt.Printf("✓ Created FEATURES.md with %d placeholder sections\n", sections)
	return nil
}
