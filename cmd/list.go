package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"featmark/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list [file...]",
	Aliases: []string{"l"},
	Short:   "List the guide's numbered sections",
	Long: `List every numbered section discovered in the guide documents with its
anchor, source location, and word count.

Examples:
  featmark list                   # List sections in table format
  featmark list -f json           # Output as JSON (short flag)
  featmark list --format csv      # Output as CSV
  featmark list -s                # Include snippet language and length
  featmark list -r -f yaml        # Include cross-references, output as YAML`,
	RunE: runList,
}

var (
	listFormat       string
	listWithSnippets bool
	listWithRefs     bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table|json|yaml|csv)")
	listCmd.Flags().BoolVarP(&listWithSnippets, "with-snippets", "s", false, "Include snippet language and line count")
	listCmd.Flags().BoolVarP(&listWithRefs, "with-refs", "r", false, "Include cross-references")

	addFlagValidation(listCmd, "format", formatValidator([]string{"table", "json", "yaml", "csv"}))
}

func runList(cmd *cobra.Command, args []string) error {
	if err := validateFormat(listFormat, []string{"table", "json", "yaml", "csv"}); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg, args)
	if err != nil {
		return err
	}

	sections := reg.GetOrdered()
	if len(sections) == 0 {
		fmt.Println("No sections found.")
		return nil
	}

	switch strings.ToLower(listFormat) {
	case "json":
		return outputListJSON(sections)
	case "yaml":
		return outputListYAML(sections)
	case "csv":
		return outputListCSV(sections)
	default:
		return outputListTable(sections)
	}
}

// listEntry is the serialized form of one section for json and yaml output.
func listEntry(section *types.SectionInfo) map[string]interface{} {
	item := map[string]interface{}{
		"number":     section.Number,
		"title":      section.Title,
		"anchor":     section.Anchor,
		"file":       section.FilePath,
		"line":       section.Line,
		"word_count": section.WordCount,
	}

	if listWithSnippets {
		if section.HasSnippet() {
			item["snippet"] = map[string]interface{}{
				"language": snippetLanguage(section),
				"lines":    snippetLines(section),
			}
		} else {
			item["snippet"] = nil
		}
	}

	if listWithRefs {
		item["cross_refs"] = section.CrossRefs
	}

	return item
}

func outputListJSON(sections []*types.SectionInfo) error {
	output := make([]map[string]interface{}, len(sections))
	for i, section := range sections {
		output[i] = listEntry(section)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputListYAML(sections []*types.SectionInfo) error {
	output := make([]map[string]interface{}, len(sections))
	for i, section := range sections {
		output[i] = listEntry(section)
	}

	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(output)
}

func outputListTable(sections []*types.SectionInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	header := "NO\tTITLE\tANCHOR\tLINE\tWORDS"
	if listWithSnippets {
		header += "\tSNIPPET"
	}
	if listWithRefs {
		header += "\tREFS"
	}
	fmt.Fprintln(w, header)

	for _, section := range sections {
		row := fmt.Sprintf("%d\t%s\t%s\t%d\t%d",
			section.Number, section.Title, section.Anchor, section.Line, section.WordCount)

		if listWithSnippets {
			snippet := "-"
			if section.HasSnippet() {
				snippet = fmt.Sprintf("%s (%d lines)", snippetLanguage(section), snippetLines(section))
			}
			row += "\t" + snippet
		}

		if listWithRefs {
			refs := "-"
			if len(section.CrossRefs) > 0 {
				refs = strings.Join(section.CrossRefs, ", ")
			}
			row += "\t" + refs
		}

		fmt.Fprintln(w, row)
	}

	fmt.Fprintf(w, "\nTotal: %d sections\n", len(sections))
	return nil
}

func outputListCSV(sections []*types.SectionInfo) error {
	header := "number,title,anchor,file,line,word_count"
	if listWithSnippets {
		header += ",snippet_language,snippet_lines"
	}
	if listWithRefs {
		header += ",cross_refs"
	}
	fmt.Println(header)

	for _, section := range sections {
		row := fmt.Sprintf("%d,%s,%s,%s,%d,%d",
			section.Number, csvField(section.Title), section.Anchor,
			csvField(section.FilePath), section.Line, section.WordCount)

		if listWithSnippets {
			if section.HasSnippet() {
				row += fmt.Sprintf(",%s,%d", snippetLanguage(section), snippetLines(section))
			} else {
				row += ",,0"
			}
		}

		if listWithRefs {
			row += "," + csvField(strings.Join(section.CrossRefs, ";"))
		}

		fmt.Println(row)
	}

	return nil
}

func snippetLanguage(section *types.SectionInfo) string {
	if section.Snippet.Language == "" {
		return "plain"
	}
	return section.Snippet.Language
}

func snippetLines(section *types.SectionInfo) int {
	code := strings.TrimRight(section.Snippet.Code, "\n")
	if code == "" {
		return 0
	}
	return strings.Count(code, "\n") + 1
}

// csvField quotes a value when it would break the row.
func csvField(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}
