package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
	"HangarWatch/internal/scanner"
)

const defaultConcurrency = 4

// StrategySource implements RecordSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	sources     []config.SourceConfig
	concurrency int
	logger      *slog.Logger
}

var _ ports.RecordSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:    reg,
		sources:     sources,
		concurrency: defaultConcurrency,
		logger:      log,
	}
}

// Fetch runs every configured source concurrently and returns their records in source order.
// A failing source is logged and skipped; the call fails only when every source failed.
func (s *StrategySource) Fetch(ctx context.Context, req ports.FetchRequest) ([]domain.RawRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	s.debug("fetch", "sources", len(s.sources), "weekly", req.Weekly, "now", req.Now.Format("2006-01-02"))

	results := make([][]domain.RawRecord, len(s.sources))
	errs := make([]error, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			errs[i] = fmt.Errorf("source %s: %w", src.Name, err)
			continue
		}

		i, src := i, src
		g.Go(func() error {
			s.debug("process source", "source", src.Name, "scanner", src.Scanner, "queries", len(src.Queries))
			records, err := strategy.Scan(gctx, scanner.Request{
				Now:        req.Now,
				Weekly:     req.Weekly,
				SourceName: src.Name,
				Queries:    src.Queries,
				Languages:  src.Languages,
				Options:    src.Options,
			})
			if err != nil {
				errs[i] = fmt.Errorf("scan source %s: %w", src.Name, err)
				return nil
			}
			for j := range records {
				if records[j].Source == "" {
					records[j].Source = src.Name
				}
			}
			s.debug("source produced records", "source", src.Name, "count", len(records))
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		aggregated []domain.RawRecord
		failed     []error
	)
	for i := range s.sources {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			if s.logger != nil {
				s.logger.Warn("source failed", "source", s.sources[i].Name, "error", errs[i])
			}
			continue
		}
		aggregated = append(aggregated, results[i]...)
	}
	if len(failed) == len(s.sources) {
		return nil, domain.ProviderError("fetch records", errors.Join(failed...))
	}

	s.debug("strategy source done", "total_records", len(aggregated), "failed_sources", len(failed))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
