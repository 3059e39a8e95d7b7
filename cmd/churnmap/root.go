package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"churnmap/internal/config"
	"churnmap/internal/logging"
	"churnmap/internal/version"
)

var (
	// configFlag is the CLI --config flag value
	configFlag string
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "churnmap",
	Short: "churnmap - per-path change frequency for git repositories",
	Long: `churnmap computes, for every file and directory of a git repository,
how many historical commits modified it, and emits the repository tree
annotated with those counts. It speaks the smart transfer protocol
directly, so a remote repository URL is all it needs.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("churnmap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Path to config file (default: churnmap.yaml in . or ~/.churnmap)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json")
}

// mustLoadConfig loads the effective configuration or exits
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	return cfg
}

// newLogger builds the logger the configuration asks for
func newLogger(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == string(logging.JSONFormat) {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}
