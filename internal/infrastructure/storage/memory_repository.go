package storage

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// MemoryRepository is an in-process incident store with brute-force cosine search.
// It backs dry runs and tests; equal similarities are ordered by lower id first.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	incidents map[int64]domain.Incident
}

var _ ports.IncidentStore = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty store whose first id is 1.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, incidents: map[int64]domain.Incident{}}
}

// Insert assigns the next id and stores a copy of the incident.
func (r *MemoryRepository) Insert(_ context.Context, incident domain.Incident) (domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident.ID = r.nextID
	r.nextID++
	r.incidents[incident.ID] = clone(incident)
	return clone(incident), nil
}

// Update replaces every field except the embedding, which only creation writes.
func (r *MemoryRepository) Update(_ context.Context, incident domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.incidents[incident.ID]
	if !ok {
		return domain.StoreError(fmt.Sprintf("update incident %d", incident.ID), domain.ErrNotFound)
	}
	incident.Embedding = current.Embedding
	r.incidents[incident.ID] = clone(incident)
	return nil
}

// Get returns a copy of the stored incident.
func (r *MemoryRepository) Get(_ context.Context, id int64) (domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inc, ok := r.incidents[id]
	if !ok {
		return domain.Incident{}, domain.StoreError(fmt.Sprintf("get incident %d", id), domain.ErrNotFound)
	}
	return clone(inc), nil
}

// NearestNeighbors ranks stored incidents that carry an embedding by cosine similarity to vector.
func (r *MemoryRepository) NearestNeighbors(_ context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Neighbor, 0, len(r.incidents))
	for _, inc := range r.incidents {
		if len(inc.Embedding) == 0 {
			continue
		}
		out = append(out, domain.Neighbor{Incident: clone(inc), Similarity: cosine(vector, inc.Embedding)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Incident.ID < out[j].Incident.ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// DeleteAll removes every incident; ids keep increasing afterwards.
func (r *MemoryRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents = map[int64]domain.Incident{}
	return nil
}

// ListForReport returns incidents not imported from the document archive, by id.
func (r *MemoryRepository) ListForReport(_ context.Context) ([]domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Incident, 0, len(r.incidents))
	for _, inc := range r.incidents {
		if inc.CollectedAt == domain.TagArchive {
			continue
		}
		out = append(out, clone(inc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len reports how many incidents are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.incidents)
}

func clone(inc domain.Incident) domain.Incident {
	inc.URLs = slices.Clone(inc.URLs)
	inc.Embedding = slices.Clone(inc.Embedding)
	return inc
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
