package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"featmark/internal/config"
	"featmark/internal/errors"
	"featmark/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve [file...]",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live reload",
	Long: `Start the preview server. The guide is rendered in the browser, checked
on every save, and reloaded over a WebSocket; documents with error
findings show the overlay instead of reloading.

Examples:
  featmark serve                   # Serve the configured documents
  featmark serve FEATURES.md       # Serve one file
  featmark serve --port 9000       # Bind another port
  featmark serve --no-open         # Don't open the browser`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-open", false, "Don't open browser automatically")

	addFlagValidation(serveCmd, "port", validatePortFlag)

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.no-open", serveCmd.Flags().Lookup("no-open"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := validatePort(cfg.Server.Port); err != nil {
		return err
	}

	if len(args) > 0 {
		cfg.Documents.Paths = args
	}

	srv, err := server.New(cfg, newCommandLogger())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "Shutting down preview server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
		cancel()
	}()

	fmt.Printf("Starting featmark preview at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	if err := srv.Start(ctx); err != nil {
		suggestions := errors.ServerStartSuggestions(err, cfg.Server.Port, &errors.SuggestionContext{
			GuidePaths: cfg.Documents.Paths,
		})
		if len(suggestions) > 0 {
			return errors.NewEnhancedError(
				fmt.Sprintf("Preview server failed to start on port %d", cfg.Server.Port),
				err,
				suggestions,
			)
		}
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
