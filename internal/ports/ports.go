package ports

import (
	"context"
	"time"

	"HangarWatch/internal/domain"
)

// RecordSource pulls raw article records from upstream search providers.
type RecordSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]domain.RawRecord, error)
}

// FetchRequest narrows a collection run.
type FetchRequest struct {
	Now    time.Time
	Weekly bool
}

// Embedder maps text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IncidentStore is the vector-similarity store holding incidents.
type IncidentStore interface {
	Insert(ctx context.Context, incident domain.Incident) (domain.Incident, error)
	Update(ctx context.Context, incident domain.Incident) error
	Get(ctx context.Context, id int64) (domain.Incident, error)
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error)
	DeleteAll(ctx context.Context) error
	ListForReport(ctx context.Context) ([]domain.Incident, error)
}

// Oracle sends a single prompt to a language model and returns its raw text answer.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier decides validity and duplicate linkage for a candidate.
type Classifier interface {
	Classify(ctx context.Context, candidate domain.Candidate, neighbors []domain.Neighbor) (domain.Verdict, error)
}

// Cache stores opaque values by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReportExporter writes the incident report and returns the produced file path.
type ReportExporter interface {
	Export(ctx context.Context, incidents []domain.Incident) (string, error)
}

// Notifier announces newly created incidents (chat digest, e-mail with report).
type Notifier interface {
	NotifyNewIncidents(ctx context.Context, incidents []domain.Incident, reportPath string) error
}

// Scheduler controls when collection runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
