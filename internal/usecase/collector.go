package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// CollectorDeps wires the collection run around the ingestion pipeline.
type CollectorDeps struct {
	Source     ports.RecordSource
	Normalizer *Normalizer
	Pipeline   *Pipeline
	Store      ports.IncidentStore
	Exporter   ports.ReportExporter
	Notifiers  []ports.Notifier
	// SkipFailed logs and skips candidates that fail instead of stopping the batch.
	SkipFailed bool
	Logger     *slog.Logger
}

// Collector fetches raw records, ingests them and, when new incidents appear, exports the
// report and notifies subscribers.
type Collector struct {
	source     ports.RecordSource
	normalizer *Normalizer
	pipeline   *Pipeline
	store      ports.IncidentStore
	exporter   ports.ReportExporter
	notifiers  []ports.Notifier
	skipFailed bool
	logger     *slog.Logger
}

// CollectResult summarizes one collection run.
type CollectResult struct {
	Fetched    int
	Candidates int
	Created    []domain.Incident
	Failed     int
	ReportPath string
}

// NewCollector constructs the orchestration use case.
func NewCollector(deps CollectorDeps) *Collector {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(logger)
	}
	return &Collector{
		source:     deps.Source,
		normalizer: normalizer,
		pipeline:   deps.Pipeline,
		store:      deps.Store,
		exporter:   deps.Exporter,
		notifiers:  deps.Notifiers,
		skipFailed: deps.SkipFailed,
		logger:     logger,
	}
}

// Collect fetches from the configured providers and processes the result. Regular runs only
// look at the last week; backfill runs take everything the providers return.
func (c *Collector) Collect(ctx context.Context, now time.Time, backfill bool) (CollectResult, error) {
	if c.source == nil {
		return CollectResult{}, errors.New("collector: record source is not configured")
	}

	records, err := c.source.Fetch(ctx, ports.FetchRequest{Now: now, Weekly: !backfill})
	if err != nil {
		return CollectResult{}, fmt.Errorf("fetch records: %w", err)
	}

	res, err := c.Process(ctx, records, backfill)
	res.Fetched = len(records)
	return res, err
}

// Process normalizes and ingests already fetched records, then publishes the outcome.
// Incidents created before a fatal failure are still published; the errors are joined.
func (c *Collector) Process(ctx context.Context, records []domain.RawRecord, backfill bool) (CollectResult, error) {
	if c.pipeline == nil {
		return CollectResult{}, errors.New("collector: pipeline is not configured")
	}

	candidates := c.normalizer.Normalize(records)
	res := CollectResult{Fetched: len(records), Candidates: len(candidates)}

	created, failed, err := c.ingest(ctx, candidates, backfill)
	res.Created = created
	res.Failed = failed

	c.logger.Info("collection ingested",
		"records", len(records), "candidates", len(candidates), "created", len(created), "failed", failed)

	if len(created) == 0 {
		return res, err
	}

	path, pubErr := c.publish(ctx, created)
	res.ReportPath = path
	return res, errors.Join(err, pubErr)
}

func (c *Collector) ingest(ctx context.Context, candidates []domain.Candidate, backfill bool) ([]domain.Incident, int, error) {
	if !c.skipFailed {
		created, err := c.pipeline.Ingest(ctx, candidates, backfill)
		return created, 0, err
	}

	tag := c.pipeline.BatchTag(backfill)
	var (
		created []domain.Incident
		failed  int
	)
	for i, candidate := range candidates {
		ok, incident, err := c.pipeline.IngestOne(ctx, candidate, tag)
		if err != nil {
			if ctx.Err() != nil {
				return created, failed, ctx.Err()
			}
			failed++
			c.logger.Warn("candidate skipped", "index", i, "url", candidate.URL, "error", err)
			continue
		}
		if ok {
			created = append(created, incident)
		}
	}
	return created, failed, nil
}

func (c *Collector) publish(ctx context.Context, created []domain.Incident) (string, error) {
	var path string
	if c.exporter != nil && c.store != nil {
		all, err := c.store.ListForReport(ctx)
		if err != nil {
			return "", fmt.Errorf("list incidents for report: %w", err)
		}
		path, err = c.exporter.Export(ctx, all)
		if err != nil {
			return "", fmt.Errorf("export report: %w", err)
		}
		c.logger.Info("report exported", "path", path, "incidents", len(all))
	}

	var errs []error
	for _, n := range c.notifiers {
		if err := n.NotifyNewIncidents(ctx, created, path); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return path, fmt.Errorf("notify: %w", err)
	}
	return path, nil
}
