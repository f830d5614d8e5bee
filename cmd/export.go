package cmd

import (
	"fmt"
	"time"

	"featmark/internal/export"
	"featmark/internal/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exportCmd = &cobra.Command{
	Use:     "export [file...]",
	Aliases: []string{"x"},
	Short:   "Export the guide as static HTML",
	Long: `Export the guide as a static HTML site: an index page plus one page per
section, written so the output directory can be served as a site root.
After writing, every emitted page is re-parsed and its internal links are
checked against the exported tree.

Examples:
  featmark export                      # Export to the configured directory
  featmark export -o public            # Export to public/
  featmark export --single-page        # One self-contained index.html
  featmark export --check-links=false  # Skip the link audit`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output directory (default \"dist\")")
	exportCmd.Flags().Bool("single-page", false, "Write the whole guide into one page")
	exportCmd.Flags().Bool("check-links", true, "Audit links in the exported pages")

	viper.BindPFlag("export.output_dir", exportCmd.Flags().Lookup("output"))
	viper.BindPFlag("export.single_page", exportCmd.Flags().Lookup("single-page"))
	viper.BindPFlag("export.check_links", exportCmd.Flags().Lookup("check-links"))
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg, args)
	if err != nil {
		return err
	}

	renderer := render.NewDocumentRenderer(reg, render.RendererConfig{
		Theme: cfg.Render.Theme,
		Width: cfg.Render.Width,
	})
	exporter := export.NewExporter(reg, renderer, newCommandLogger())

	result, err := exporter.Export(cmd.Context(), export.Options{
		OutputDir:  cfg.Export.OutputDir,
		SinglePage: cfg.Export.SinglePage,
		CheckLinks: cfg.Export.CheckLinks,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d sections to %s (%d files, %s)\n",
		result.Sections, cfg.Export.OutputDir, len(result.Files), result.Duration.Round(time.Millisecond))

	if !result.Clean() {
		fmt.Println("\nBroken links:")
		for _, link := range result.Broken {
			fmt.Printf("  %s: %s (%s)\n", link.Page, link.Href, link.Reason)
		}
		return fmt.Errorf("link audit failed: %d broken links", len(result.Broken))
	}

	if cfg.Export.CheckLinks {
		fmt.Println("Link audit passed.")
	}
	return nil
}
