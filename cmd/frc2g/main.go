package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"frc2g/internal/config"
	"frc2g/internal/pipeline"
)

var (
	configPath string
	logFile    string
	debug      bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "frc2g",
		Short: "Firewall rules to flow graphs",
		Long: `frc2g fetches firewall rules and aliases from a pfSense or OPNsense API,
	normalizes them into a flow matrix and renders one graph per gateway interface
	into bookmarked PDF documents. Documents are only regenerated when rules change.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file (YAML)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := "INFO"
	if debug {
		level = "DEBUG"
	}
	logger := setupLogger(level, logFile).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	startTime := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "path", configPath, "error", err)
		return err
	}
	slog.Debug("Configuration loaded",
		"gateway_type", cfg.Gateway.Type,
		"gateway_name", cfg.GatewayName(),
		"base_url", cfg.BaseURL(),
		"interfaces", cfg.Gateway.Interfaces)

	runner, err := pipeline.Open(cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return err
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		slog.Error("Run failed", "error", err)
		return err
	}
	slog.Info("Run complete", "duration", time.Since(startTime))
	return nil
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// The logger is not set up yet, so a failure silently falls back to stderr.
	}

	var lvl slog.Level
	switch level {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}
