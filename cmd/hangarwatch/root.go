package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"HangarWatch/internal/app"
	"HangarWatch/internal/config"
	"HangarWatch/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hangarwatch",
		Short: "Collect, deduplicate and report aviation hangar fire incidents",
		Long: `hangarwatch gathers hangar fire news from search providers, decides with a language
model whether each article is a genuine incident or repeats a stored one, and keeps the
incidents in a pgvector-backed store.

Configuration is read from the YAML file named by HANGARWATCH_CONFIG; secrets come from
the environment (OPENAI_API_KEY, SERPAPI_KEY, DATABASE_DSN, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCollectCmd(),
		newIngestCmd(),
		newScrapeCmd(),
		newImportArchiveCmd(),
		newExportCmd(),
		newClearCmd(),
		newMigrateCmd(),
		newRunCmd(),
	)
	return root
}

// withApp loads configuration, builds the application and releases it after fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application, log *slog.Logger) error) error {
	cfg := config.Load()
	logger := logging.NewWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	return fn(ctx, a, logger)
}
