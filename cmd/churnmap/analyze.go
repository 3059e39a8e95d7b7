package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"churnmap/internal/analyze"
	"churnmap/internal/storage"
)

var (
	analyzeFormat      string
	analyzePath        string
	analyzeLocal       string
	analyzeNoCache     bool
	analyzeConcurrency int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [repository-url]",
	Short: "Compute the change-frequency tree of a repository",
	Long: `Compute per-path change counts across the full commit history and
print the annotated repository tree.

Examples:
  churnmap analyze https://example.com/org/repo.git
  churnmap analyze https://example.com/org/repo.git --path=src/server
  churnmap analyze --local=/path/to/clone
  churnmap analyze https://example.com/org/repo.git --format=yaml --no-cache`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format (json, yaml)")
	analyzeCmd.Flags().StringVar(&analyzePath, "path", "", "Print only the subtree at this repository path")
	analyzeCmd.Flags().StringVar(&analyzeLocal, "local", "", "Analyze a local clone directory instead of a remote URL")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Bypass the persistent result cache")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "Concurrent commit visits (0 = use config)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	if analyzeLocal == "" && len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: a repository URL or --local directory is required")
		os.Exit(1)
	}

	cfg := mustLoadConfig()
	if analyzeConcurrency > 0 {
		cfg.Walker.Concurrency = analyzeConcurrency
	}
	logger := newLogger(cfg)

	var cache *storage.Cache
	if cfg.Cache.Enabled && !analyzeNoCache && analyzeLocal == "" {
		var err error
		cache, err = storage.Open(cfg.Cache.Path, cfg.CacheMaxAge(), logger)
		if err != nil {
			logger.Warn("Result cache unavailable, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer cache.Close()
		}
	}

	analyzer := analyze.New(cfg, cache, logger)
	ctx := context.Background()

	var result *analyze.Result
	var err error
	if analyzeLocal != "" {
		result, err = analyzer.AnalyzeLocal(ctx, analyzeLocal)
	} else {
		result, err = analyzer.AnalyzeRemote(ctx, args[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	output := interface{}(result)
	if analyzePath != "" {
		node, ok := analyze.Lookup(result.Root, analyzePath)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: path %q not found in repository tree\n", analyzePath)
			os.Exit(1)
		}
		output = node
	}

	if err := printResult(output, analyzeFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printResult writes the result to stdout in the requested format
func printResult(v interface{}, format string) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
