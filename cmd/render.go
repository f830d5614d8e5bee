package cmd

import (
	"fmt"
	"os"

	"featmark/internal/render"
	"featmark/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render [file...]",
	Short: "Render guide documents in the terminal",
	Long: `Render whole guide documents in the terminal through glamour.
Without arguments the configured documents are rendered in order.

Examples:
  featmark render                       # Render the configured guide
  featmark render FEATURES.md           # Render one file
  featmark render --theme notty         # Plain output for pipes`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("theme", "", "Glamour style (auto|dark|light|notty|...)")
	renderCmd.Flags().Int("width", 0, "Word-wrap column")

	viper.BindPFlag("render.theme", renderCmd.Flags().Lookup("theme"))
	viper.BindPFlag("render.width", renderCmd.Flags().Lookup("width"))
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := collectGuideFiles(guideTargets(cfg, args))
	if err != nil {
		return err
	}

	renderer := render.NewDocumentRenderer(registry.NewDocumentRegistry(), render.RendererConfig{
		Theme: cfg.Render.Theme,
		Width: cfg.Render.Width,
	})

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		out, err := renderer.RenderTerminal(string(content))
		if err != nil {
			return fmt.Errorf("rendering %s: %w", file, err)
		}
		fmt.Print(out)
	}

	return nil
}
