package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"HangarWatch/internal/app"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/usecase"
)

func newCollectCmd() *cobra.Command {
	var backfill bool
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch from every configured provider and ingest the results",
		Long: `Fetch articles from all configured sources, ingest them and, when new incidents
were created, export the report and send notifications.

Regular runs only look at the last week and tag incidents with the ISO week. With --backfill
the providers return everything they have and incidents are tagged "backfill".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				res, err := a.Collect(ctx, backfill)
				printResult(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&backfill, "backfill", false, "ignore the weekly window and tag the batch as backfill")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var (
		file       string
		backfill   bool
		skipFailed bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest raw records from a JSON file",
		Long: `Ingest a JSON array of raw records (title, url, source, author, publishedAt,
description, content, location), typically written earlier by "scrape".

By default the batch stops at the first failing record; incidents created before it are kept.
With --skip-failed failing records are logged and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := readRecords(file)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				res, err := a.Ingest(ctx, records, backfill, skipFailed)
				printResult(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with raw records")
	cmd.Flags().BoolVar(&backfill, "backfill", false, "tag the batch as backfill")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "log and skip failing records instead of stopping")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newScrapeCmd() *cobra.Command {
	var (
		provider string
		out      string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch raw records from one provider without ingesting them",
		Example: `  hangarwatch scrape --provider bing_news --out bing.json
  hangarwatch scrape --provider newsapi --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application, log *slog.Logger) error {
				records, err := a.Scrape(ctx, provider, !all)
				if err != nil {
					return err
				}
				log.Info("scraped", "provider", provider, "records", len(records))
				return writeRecords(cmd.OutOrStdout(), out, records)
			})
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "scanner name: newsapi, google_news or bing_news")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output JSON file (stdout when empty)")
	cmd.Flags().BoolVar(&all, "all", false, "do not restrict results to the last week")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newImportArchiveCmd() *cobra.Command {
	var (
		file       string
		clearFirst bool
	)
	cmd := &cobra.Command{
		Use:   "import-archive",
		Short: "Import the historical .docx incident archive",
		Long: `Parse a .docx archive whose entries start at Heading-styled paragraphs and store
every entry directly under the "doc" tag. Archive entries skip classification and are left
out of the report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				n, err := a.ImportArchive(ctx, file, clearFirst)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d archive incidents\n", n)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", ".docx archive")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete every stored incident before importing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the Excel incident report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				path, n, err := a.Export(ctx, out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d incidents to %s\n", n, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "report path (configured path when empty)")
	return cmd
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the incident store without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app.Application, log *slog.Logger) error {
				if err := a.Clear(ctx); err != nil {
					return err
				}
				log.Warn("incident store cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the pgvector extension, incidents table and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application, log *slog.Logger) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				log.Info("schema ready")
				return nil
			})
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run weekly collection on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				return a.Run(ctx)
			})
		},
	}
}

func readRecords(path string) ([]domain.RawRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []domain.RawRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, domain.ValidationError("read records", fmt.Errorf("%s: %w", path, err))
	}
	return records, nil
}

func writeRecords(stdout io.Writer, path string, records []domain.RawRecord) error {
	if records == nil {
		records = []domain.RawRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printResult(w io.Writer, res usecase.CollectResult) {
	fmt.Fprintf(w, "Fetched %d records, %d candidates, %d new incidents", res.Fetched, res.Candidates, len(res.Created))
	if res.Failed > 0 {
		fmt.Fprintf(w, ", %d skipped", res.Failed)
	}
	fmt.Fprintln(w)
	if res.ReportPath != "" {
		fmt.Fprintf(w, "Report written to %s\n", res.ReportPath)
	}
}
