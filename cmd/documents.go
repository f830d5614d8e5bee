package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"featmark/internal/config"
	"featmark/internal/lint"
	"featmark/internal/registry"
	"featmark/internal/scanner"
)

// guideTargets returns the documents a command should operate on: explicit
// arguments when given, the configured paths otherwise.
func guideTargets(cfg *config.Config, args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Documents.Paths
}

// collectGuideFiles expands the targets into Markdown files. Directories are
// walked recursively; dot directories and node_modules stay out, matching
// what the scanner and watcher skip.
func collectGuideFiles(targets []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}

		if !info.IsDir() {
			if !seen[target] {
				seen[target] = true
				files = append(files, target)
			}
			continue
		}

		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != target && (strings.HasPrefix(name, ".") || name == "node_modules") {
					return filepath.SkipDir
				}
				return nil
			}
			if scanner.IsMarkdownFile(path) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", target, err)
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no guide documents found (checked %s)", strings.Join(targets, ", "))
	}
	return files, nil
}

// loadRegistry scans the targets into a fresh registry for commands that
// need the section inventory rather than parse results.
func loadRegistry(cfg *config.Config, args []string) (*registry.DocumentRegistry, error) {
	reg := registry.NewDocumentRegistry()
	docScanner := scanner.NewDocumentScanner(reg)
	defer docScanner.Close()

	for _, target := range guideTargets(cfg, args) {
		info, err := os.Stat(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", target, err)
			continue
		}
		if info.IsDir() {
			err = docScanner.ScanDirectory(target)
		} else {
			err = docScanner.ScanFile(target)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to scan %s: %v\n", target, err)
		}
	}

	if reg.DocumentCount() == 0 {
		return nil, fmt.Errorf("no guide documents found; run 'featmark init' or point documents.paths at your guide")
	}
	return reg, nil
}

// newEngine builds a lint engine from the loaded configuration.
func newEngine(cfg *config.Config) *lint.Engine {
	return lint.NewEngine(newCommandLogger(), lint.EngineConfig{
		ExpectedSections: cfg.Documents.ExpectedSections,
		AllowedLanguages: cfg.Documents.AllowedLanguages,
		Rules:            cfg.Lint.Rules,
		ExcludeRules:     cfg.Lint.ExcludeRules,
	})
}
