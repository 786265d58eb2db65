package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/northbridge-ai/diligence/internal/bootstrap"
	"github.com/northbridge-ai/diligence/internal/config"
	"github.com/northbridge-ai/diligence/internal/observability/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "diligctl",
	Short: "Due diligence document retrieval from the command line",
	Long: `diligctl ingests data room documents and searches them with hybrid
semantic and keyword retrieval, talking directly to Chroma and Ollama.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
}

// buildApp wires the retrieval stack without the broker or the run
// registry; CLI runs are synchronous and local.
func buildApp(ctx context.Context) (*bootstrap.App, *slog.Logger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewJSONLogger("diligctl", logLevel)

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		SkipQueue:    true,
		SkipPostgres: true,
	})
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}
