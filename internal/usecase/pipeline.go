package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// DefaultNeighbors is the number of stored incidents shown to the classifier.
const DefaultNeighbors = 3

// PipelineDeps wires the driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Embedder   ports.Embedder
	Store      ports.IncidentStore
	Classifier ports.Classifier
	Neighbors  int
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Pipeline runs normalization output through embedding, retrieval, classification and
// reconciliation, one candidate at a time.
type Pipeline struct {
	embedder   ports.Embedder
	store      ports.IncidentStore
	classifier ports.Classifier
	reconciler *Reconciler
	neighbors  int
	clock      func() time.Time
	logger     *slog.Logger
}

// NewPipeline constructs the ingestion pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	k := deps.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		embedder:   deps.Embedder,
		store:      deps.Store,
		classifier: deps.Classifier,
		reconciler: NewReconciler(deps.Store),
		neighbors:  k,
		clock:      clock,
		logger:     logger,
	}
}

// BatchTag returns the collectedAt label for a run started now.
func (p *Pipeline) BatchTag(backfill bool) string {
	return domain.BatchTag(p.clock(), backfill)
}

// Ingest processes candidates strictly in order and returns the incidents this batch created.
// It stops at the first failure; incidents created before it stay persisted and are returned
// alongside the error.
func (p *Pipeline) Ingest(ctx context.Context, candidates []domain.Candidate, backfill bool) ([]domain.Incident, error) {
	tag := p.BatchTag(backfill)
	log := p.logger.With("run_id", uuid.NewString(), "tag", tag)
	log.Info("ingestion started", "candidates", len(candidates))

	var created []domain.Incident
	for i, candidate := range candidates {
		ok, incident, err := p.IngestOne(ctx, candidate, tag)
		if err != nil {
			log.Error("ingestion stopped", "index", i, "url", candidate.URL, "error", err)
			return created, fmt.Errorf("candidate %d (%s): %w", i, candidate.URL, err)
		}
		if ok {
			created = append(created, incident)
		}
	}

	log.Info("ingestion finished", "candidates", len(candidates), "created", len(created))
	return created, nil
}

// IngestOne runs a single candidate through the pipeline and reports whether it created a new
// incident. The returned incident is the created or merged record, zero for rejected candidates.
func (p *Pipeline) IngestOne(ctx context.Context, candidate domain.Candidate, tag string) (bool, domain.Incident, error) {
	if err := p.ready(); err != nil {
		return false, domain.Incident{}, err
	}
	if err := ctx.Err(); err != nil {
		return false, domain.Incident{}, err
	}
	if !candidate.HasText() {
		return false, domain.Incident{}, domain.ValidationError("ingest",
			errors.New("title, location, publishedAt and content are all empty"))
	}

	vector, err := p.embedder.Embed(ctx, candidate.CombinedText())
	if err != nil {
		return false, domain.Incident{}, fmt.Errorf("embed: %w", err)
	}

	neighbors, err := p.store.NearestNeighbors(ctx, vector, p.neighbors)
	if err != nil {
		return false, domain.Incident{}, fmt.Errorf("nearest neighbors: %w", err)
	}

	verdict, err := p.classifier.Classify(ctx, candidate, neighbors)
	if err != nil {
		return false, domain.Incident{}, fmt.Errorf("classify: %w", err)
	}

	created, incident, err := p.reconciler.Reconcile(ctx, candidate, verdict, neighbors, vector, tag)
	if err != nil {
		return false, domain.Incident{}, err
	}

	switch {
	case !verdict.IsValid:
		p.logger.Debug("candidate rejected", "url", candidate.URL, "title", candidate.Title)
	case created:
		p.logger.Debug("incident created", "id", incident.ID, "url", candidate.URL)
	default:
		p.logger.Debug("incident merged", "id", incident.ID, "url", candidate.URL, "urls", len(incident.URLs))
	}
	return created, incident, nil
}

func (p *Pipeline) ready() error {
	switch {
	case p.embedder == nil:
		return errors.New("pipeline: embedder is not configured")
	case p.store == nil:
		return errors.New("pipeline: incident store is not configured")
	case p.classifier == nil:
		return errors.New("pipeline: classifier is not configured")
	}
	return nil
}
