package usecase

import (
	"context"
	"fmt"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// Reconciler applies a verdict to the incident store.
type Reconciler struct {
	store ports.IncidentStore
}

// NewReconciler wires the store mutated by reconciliation.
func NewReconciler(store ports.IncidentStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile inserts a novel valid candidate or merges a duplicate into the incident it repeats.
// Invalid candidates leave the store untouched. The embedding is the vector already computed for
// retrieval; it is stored on creation and never rewritten by a merge.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	candidate domain.Candidate,
	verdict domain.Verdict,
	neighbors []domain.Neighbor,
	embedding []float32,
	tag string,
) (bool, domain.Incident, error) {
	if !verdict.IsValid {
		return false, domain.Incident{}, nil
	}

	if verdict.Novel() {
		incident, err := r.store.Insert(ctx, newIncident(candidate, verdict, embedding, tag))
		if err != nil {
			return false, domain.Incident{}, fmt.Errorf("insert incident: %w", err)
		}
		return true, incident, nil
	}

	if !containsNeighbor(neighbors, verdict.DuplicateOf) {
		return false, domain.Incident{}, domain.DecodeError("reconcile",
			fmt.Errorf("duplicate_of %d does not reference a supplied neighbor", verdict.DuplicateOf))
	}

	existing, err := r.store.Get(ctx, verdict.DuplicateOf)
	if err != nil {
		return false, domain.Incident{}, fmt.Errorf("load incident %d: %w", verdict.DuplicateOf, err)
	}

	merged := Merge(existing, candidate, verdict)
	if err := r.store.Update(ctx, merged); err != nil {
		return false, domain.Incident{}, fmt.Errorf("update incident %d: %w", merged.ID, err)
	}
	return false, merged, nil
}

// Merge folds a duplicate observation into an existing incident: the url joins the set if
// absent and enrichment fields are only filled while still empty.
func Merge(existing domain.Incident, candidate domain.Candidate, verdict domain.Verdict) domain.Incident {
	merged := existing
	merged.URLs = append([]string(nil), existing.URLs...)
	merged.AddURL(candidate.URL)

	if merged.AirportHangarName == "" && verdict.AirportHangarName != "" {
		merged.AirportHangarName = verdict.AirportHangarName
	}
	if merged.Location == "" && verdict.CountryRegion != "" {
		merged.Location = verdict.CountryRegion
	}
	return merged
}

func newIncident(c domain.Candidate, v domain.Verdict, embedding []float32, tag string) domain.Incident {
	inc := domain.Incident{
		Title:             c.Title,
		Source:            c.Source,
		Author:            c.Author,
		PublishedAt:       domain.TruncateDate(c.PublishedAt),
		Content:           c.Content,
		Location:          v.CountryRegion,
		AirportHangarName: v.AirportHangarName,
		Embedding:         embedding,
		CollectedAt:       tag,
	}
	if inc.Location == "" {
		inc.Location = domain.Value(c.Location)
	}
	inc.AddURL(c.URL)
	return inc
}
