package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

func ptr(s string) *string { return &s }

// staticEmbedder returns the same vector for every text and records what it was asked.
type staticEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (e *staticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

func (e *staticEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.texts)
}

// scriptedOracle replies with answers in order; past the end it repeats the last one.
type scriptedOracle struct {
	mu      sync.Mutex
	answers []string
	errs    map[int]error
	prompts []string
}

func (o *scriptedOracle) Complete(_ context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := len(o.prompts)
	o.prompts = append(o.prompts, prompt)
	if err, ok := o.errs[i]; ok {
		return "", err
	}
	if len(o.answers) == 0 {
		return "", fmt.Errorf("no scripted answer")
	}
	if i >= len(o.answers) {
		i = len(o.answers) - 1
	}
	return o.answers[i], nil
}

func verdictJSON(valid bool, duplicateOf int64, hangar, country string) string {
	return fmt.Sprintf(`{"is_valid": %t, "duplicate_of": %d, "airport_hangar_name": %q, "country_region": %q}`,
		valid, duplicateOf, hangar, country)
}

// fakeStore is a map-backed store with explicit ids and mutation counters.
type fakeStore struct {
	mu        sync.Mutex
	incidents map[int64]domain.Incident
	nextID    int64
	inserts   int
	updates   int
	deletes   int
	searchErr error
	insertErr error
}

func newFakeStore(seed ...domain.Incident) *fakeStore {
	s := &fakeStore{incidents: map[int64]domain.Incident{}, nextID: 1}
	for _, inc := range seed {
		s.incidents[inc.ID] = inc
		if inc.ID >= s.nextID {
			s.nextID = inc.ID + 1
		}
	}
	return s
}

func (s *fakeStore) Insert(_ context.Context, inc domain.Incident) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return domain.Incident{}, s.insertErr
	}
	inc.ID = s.nextID
	s.nextID++
	s.incidents[inc.ID] = inc
	s.inserts++
	return inc, nil
}

func (s *fakeStore) Update(_ context.Context, inc domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.incidents[inc.ID]
	if !ok {
		return domain.StoreError("update", domain.ErrNotFound)
	}
	inc.Embedding = cur.Embedding
	s.incidents[inc.ID] = inc
	s.updates++
	return nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return domain.Incident{}, domain.StoreError("get", domain.ErrNotFound)
	}
	return inc, nil
}

func (s *fakeStore) NearestNeighbors(_ context.Context, _ []float32, k int) ([]domain.Neighbor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	out := make([]domain.Neighbor, 0, len(s.incidents))
	for _, inc := range s.incidents {
		out = append(out, domain.Neighbor{Incident: inc, Similarity: 0.9})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Incident.ID < out[j].Incident.ID })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *fakeStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = map[int64]domain.Incident{}
	s.deletes++
	return nil
}

func (s *fakeStore) ListForReport(context.Context) ([]domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Incident
	for _, inc := range s.incidents {
		if inc.CollectedAt != domain.TagArchive {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) snapshot() map[int64]domain.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]domain.Incident, len(s.incidents))
	for id, inc := range s.incidents {
		inc.URLs = append([]string(nil), inc.URLs...)
		out[id] = inc
	}
	return out
}

type fakeSource struct {
	records []domain.RawRecord
	err     error
	got     []bool
}

func (f *fakeSource) Fetch(_ context.Context, req ports.FetchRequest) ([]domain.RawRecord, error) {
	f.got = append(f.got, req.Weekly)
	return f.records, f.err
}

type fakeExporter struct {
	exported [][]domain.Incident
	err      error
}

func (f *fakeExporter) Export(_ context.Context, incidents []domain.Incident) (string, error) {
	f.exported = append(f.exported, incidents)
	return "reports/test.xlsx", f.err
}

type fakeNotifier struct {
	batches [][]domain.Incident
	paths   []string
	err     error
}

func (f *fakeNotifier) NotifyNewIncidents(_ context.Context, incidents []domain.Incident, path string) error {
	f.batches = append(f.batches, incidents)
	f.paths = append(f.paths, path)
	return f.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
