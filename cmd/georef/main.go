// Package main provides the entry point for the georef spatial reference
// service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jobrunner/georef/internal/app"
	"github.com/jobrunner/georef/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "georef",
	Short: "georef - spatial reference definitions and coordinate transformation",
	Long: `georef builds spatial reference definitions from EPSG codes and
transforms coordinates between them.

Features:
  - EPSG resolution from an SQLite catalog, a YAML dictionary or the projection engine
  - WKT parsing, validation, pretty printing and engine parameter strings
  - Batch and GeoJSON coordinate transformation
  - Catalog sync from local disk, AWS S3, Azure Blob Storage or HTTP
  - Hot-reload of catalog files
  - TLS with automatic certificate management
  - Prometheus metrics`,
	RunE: runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "georef %s\n", version)
		fmt.Fprintf(out, "  Commit:     %s\n", commit)
		fmt.Fprintf(out, "  Build Date: %s\n", buildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "json", "log format (json, text)")
	pf.String("log-file", "", "log file with rotation (default: stdout)")
	pf.String("catalog-dir", "./data", "directory holding catalog files")
	pf.String("engine", "wgs84", "projection engine (wgs84, proj)")

	// Server flags
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		f := cmd.Flags()
		f.String("host", "0.0.0.0", "server host")
		f.Int("port", 8080, "server port")
		f.Bool("tls", false, "enable TLS")
		f.StringSlice("tls-domains", nil, "TLS domains")
		f.String("tls-email", "", "TLS email for Let's Encrypt")
		f.String("storage-type", "local", "catalog storage type (local, s3, azure, http)")
		f.StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
		f.Duration("sync-interval", 0, "periodic catalog sync interval (0 disables)")
	}

	_ = viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("logging.file", pf.Lookup("log-file"))
	_ = viper.BindPFlag("catalog.dir", pf.Lookup("catalog-dir"))
	_ = viper.BindPFlag("engine.type", pf.Lookup("engine"))

	rootCmd.AddCommand(serveCmd, versionCmd, resolveCmd, projCmd, validateCmd, transformCmd, seedCmd)
}

// bindServerFlags binds the flags of the command that runs the server.
// Both the root and serve command carry them, so binding happens once
// the command is known.
func bindServerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	_ = viper.BindPFlag("server.host", f.Lookup("host"))
	_ = viper.BindPFlag("server.port", f.Lookup("port"))
	_ = viper.BindPFlag("tls.enabled", f.Lookup("tls"))
	_ = viper.BindPFlag("tls.domains", f.Lookup("tls-domains"))
	_ = viper.BindPFlag("tls.email", f.Lookup("tls-email"))
	_ = viper.BindPFlag("storage.type", f.Lookup("storage-type"))
	_ = viper.BindPFlag("server.cors.allowed_origins", f.Lookup("cors"))
	_ = viper.BindPFlag("catalog.sync_interval", f.Lookup("sync-interval"))
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	bindServerFlags(cmd)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting georef",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"catalog_dir", cfg.Catalog.Dir,
		"storage_type", cfg.Storage.Type,
		"engine", cfg.Engine.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize application
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address())
		if err := application.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		cancel()
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down server")
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logOutput returns the rotating log file when one is configured, and
// fallback otherwise.
func logOutput(cfg config.LoggingConfig, fallback io.Writer) io.Writer {
	if cfg.File == "" {
		return fallback
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func setupLogger(cfg config.LoggingConfig, fallback io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	out := logOutput(cfg, fallback)

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}
