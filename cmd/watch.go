package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"featmark/internal/lint"
	"featmark/internal/registry"
	"featmark/internal/render"
	"featmark/internal/scanner"
	"featmark/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch [file...]",
	Aliases: []string{"w"},
	Short:   "Re-check guide documents on every save",
	Long: `Watch the guide documents and re-run the lint rules whenever one
changes, reporting findings in the terminal. This is the preview server's
check loop without the server.

Examples:
  featmark watch                  # Watch the configured documents
  featmark watch docs/            # Watch a directory
  featmark watch --verbose        # Show individual change events`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Show individual change events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := registry.NewDocumentRegistry()
	docScanner := scanner.NewDocumentScanner(reg)
	defer docScanner.Close()
	engine := newEngine(cfg)

	fileWatcher, err := watcher.NewFileWatcher(cfg.DebounceDuration())
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.MarkdownFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddFilter(watcher.NoNodeModulesFilter)
	fileWatcher.AddFilter(watcher.NoDraftFilter)
	if len(cfg.Watch.Ignore) > 0 {
		fileWatcher.AddFilter(watcher.IgnoreFilter(cfg.Watch.Ignore))
	}

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		if watchVerbose {
			fmt.Printf("📁 File changes detected:\n")
			for _, event := range events {
				fmt.Printf("   %s: %s\n", event.Type, event.Path)
			}
		}

		for _, event := range events {
			if event.Type == watcher.EventTypeDeleted {
				reg.RemoveFile(event.Path)
				fmt.Printf("%s removed from the guide\n", event.Path)
				continue
			}
			checkAndReport(cmd.Context(), docScanner, engine, event.Path)
		}
		return nil
	})

	targets := guideTargets(cfg, args)
	fmt.Println("🔍 Setting up file watching...")
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", target, err)
			continue
		}
		if info.IsDir() {
			err = fileWatcher.AddRecursive(target)
		} else {
			err = fileWatcher.AddPath(target)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to watch %s: %v\n", target, err)
		} else {
			fmt.Printf("   - Watching: %s\n", target)
		}
	}

	files, err := collectGuideFiles(targets)
	if err != nil {
		return err
	}
	fmt.Printf("Checking %d documents...\n", len(files))
	for _, file := range files {
		checkAndReport(cmd.Context(), docScanner, engine, file)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Println("👀 Watching for changes... (Press Ctrl+C to stop)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	<-sigChan
	fmt.Println("\n🛑 Stopping file watcher...")
	cancel()

	return nil
}

// checkAndReport re-parses one document and prints its lint report.
func checkAndReport(ctx context.Context, docScanner *scanner.DocumentScanner, engine *lint.Engine, path string) {
	parsed, err := docScanner.Rescan(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse %s: %v\n", path, err)
		return
	}

	report, err := engine.AnalyzeDocument(ctx, parsed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to check %s: %v\n", path, err)
		return
	}

	fmt.Println(render.FormatReport(report))
	fmt.Println()
}
