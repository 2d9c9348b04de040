// Package cli implements the exa-search command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/exa-search-tool/internal/config"
)

var (
	cfgFile  string
	logLevel string
	traceOn  bool

	appVersion = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "exa-search <query>",
	Short: "Search the web with Exa",
	Long: "exa-search runs one Exa web search, printing each progress event as a JSON line " +
		"followed by the raw result. Use `exa-search serve` to expose the search_web tool over MCP.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          searchRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (env vars override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&traceOn, "trace", false, "print trace spans to stderr")

	rootCmd.AddCommand(serveCmd)
}

func SetVersionInfo(version, commit string) {
	appVersion = version
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("exa-search %s (commit: %s)\n", version, commit))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds everything a command needs after flag and config parsing.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	shutdown func(context.Context) error
}

func setup() (*app, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if traceOn {
		cfg.Trace.Enabled = true
	}

	logger, err := config.NewLogger(cfg.Log, cfg.Server.Name)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	if cfg.HasPlaceholderKey() {
		logger.Warn("EXA_API_KEY not set, requests will use the placeholder key")
	}

	shutdown := func(context.Context) error { return nil }
	if cfg.Trace.Enabled {
		shutdown, err = setupTracing(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("setup tracing: %w", err)
		}
	}

	return &app{cfg: cfg, logger: logger, shutdown: shutdown}, nil
}

func (r *app) close() {
	if err := r.shutdown(context.Background()); err != nil {
		r.logger.Warn("trace shutdown failed", zap.Error(err))
	}
	r.logger.Sync()
}
