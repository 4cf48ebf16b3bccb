package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/igs-tools/igsup/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// defaultConfigFile is used when neither --config nor IGSUP_CONFIG is set.
const defaultConfigFile = "igsup.toml"

// logLevel is shared by the logger and loadConfig, so the configured
// log_level can take effect after the config file is read.
var logLevel = new(slog.LevelVar)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "igsup",
		Short:   "Genomic sequence upload and notification client",
		Long:    "Uploads sequencing files to the DEMIS reporting backend and submits sequence notifications.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newLogCmd())

	return cmd
}

// loadConfig resolves the config file path (flag > env > default) and
// loads it. Config load failure is one of the two fatal conditions.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	path := defaultConfigFile

	if env := config.ConfigPathFromEnv(); env != "" {
		path = env
	}

	if flagConfigPath != "" {
		path = flagConfigPath
	}

	cfg, err := config.Load(path, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Flags win over the configured level.
	if !flagVerbose && !flagQuiet {
		logLevel.Set(parseLevel(cfg.LogLevel))
	}

	logger.Info("configuration loaded", slog.String("path", path))

	return cfg, nil
}

// parseLevel maps a configured log level name to its slog level,
// defaulting to info.
func parseLevel(name string) slog.Level {
	switch name {
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

// buildLogger creates an slog.Logger for the CLI: human-readable text on
// a terminal, JSON when redirected. --verbose and --quiet set the level.
func buildLogger() *slog.Logger {
	logLevel.Set(slog.LevelInfo)

	if flagVerbose {
		logLevel.Set(slog.LevelDebug)
	}

	if flagQuiet {
		logLevel.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
