package cmd

import (
	"fmt"
	"strconv"

	"featmark/internal/config"
	"featmark/internal/errors"
	"featmark/internal/registry"
	"featmark/internal/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show <section>",
	Short: "Render one section in the terminal",
	Long: `Render a single guide section in the terminal through glamour.
The section can be addressed by number or by anchor.

Examples:
  featmark show 3                        # Section 3
  featmark show 3-api-routes             # Same section by anchor
  featmark show 3 --theme dark           # Force the dark style
  featmark show 3 --width 100            # Wrap at column 100`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().String("theme", "", "Glamour style (auto|dark|light|notty|...)")
	showCmd.Flags().Int("width", 0, "Word-wrap column")

	viper.BindPFlag("render.theme", showCmd.Flags().Lookup("theme"))
	viper.BindPFlag("render.width", showCmd.Flags().Lookup("width"))
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg, nil)
	if err != nil {
		return err
	}

	anchor := args[0]
	if number, err := strconv.Atoi(anchor); err == nil {
		section, ok := reg.GetByNumber(number)
		if !ok {
			return sectionNotFound(cfg, reg, anchor)
		}
		anchor = section.Anchor
	} else if _, ok := reg.Get(anchor); !ok {
		return sectionNotFound(cfg, reg, anchor)
	}

	renderer := render.NewDocumentRenderer(reg, render.RendererConfig{
		Theme: cfg.Render.Theme,
		Width: cfg.Render.Width,
	})

	out, err := renderer.RenderSectionTerminal(anchor)
	if err != nil {
		return err
	}

	fmt.Print(out)
	return nil
}

// sectionNotFound builds the not-found error, pointing at the sections
// that do exist.
func sectionNotFound(cfg *config.Config, reg *registry.DocumentRegistry, requested string) error {
	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPath = ".featmark.yml"
	}

	suggestions := errors.SectionNotFoundSuggestions(requested, &errors.SuggestionContext{
		Registry:   reg,
		ConfigPath: configPath,
		GuidePaths: cfg.Documents.Paths,
	})
	return errors.NewEnhancedError(
		fmt.Sprintf("Section '%s' not found", requested),
		errors.ErrSectionNotFound(requested),
		suggestions,
	)
}
