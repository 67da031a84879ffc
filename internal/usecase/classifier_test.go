package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HangarWatch/internal/domain"
)

func neighborIDs(ids ...int64) []domain.Neighbor {
	out := make([]domain.Neighbor, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Neighbor{Incident: domain.Incident{ID: id, Title: "stored"}, Similarity: 0.8})
	}
	return out
}

func TestDecodeVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		answer    string
		neighbors []domain.Neighbor
		want      domain.Verdict
		wantErr   bool
	}{
		{
			name:   "novel",
			answer: verdictJSON(true, 0, " Hangar 5 ", "Canada"),
			want:   domain.Verdict{IsValid: true, AirportHangarName: "Hangar 5", CountryRegion: "Canada"},
		},
		{
			name:      "duplicate of supplied neighbor",
			answer:    verdictJSON(true, 12, "", ""),
			neighbors: neighborIDs(4, 12),
			want:      domain.Verdict{IsValid: true, DuplicateOf: 12},
		},
		{
			name:   "fenced answer",
			answer: "```json\n" + verdictJSON(false, 0, "", "") + "\n```",
			want:   domain.Verdict{},
		},
		{
			name:      "unknown neighbor",
			answer:    verdictJSON(true, 5, "", ""),
			neighbors: neighborIDs(4),
			wantErr:   true,
		},
		{name: "missing field", answer: `{"is_valid": true, "duplicate_of": 0, "airport_hangar_name": ""}`, wantErr: true},
		{name: "wrong type", answer: `{"is_valid": "yes", "duplicate_of": 0, "airport_hangar_name": "", "country_region": ""}`, wantErr: true},
		{name: "no object", answer: "I cannot decide.", wantErr: true},
		{name: "broken object", answer: `{"is_valid": true,`, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeVerdict(tc.answer, tc.neighbors)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyBuildsPromptWithNeighborIDs(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{answers: []string{verdictJSON(true, 0, "", "")}}
	c := NewDuplicateClassifier(oracle, nil)

	neighbors := []domain.Neighbor{{Incident: domain.Incident{
		ID: 42, Title: "Fire at Stansted", URLs: []string{"http://a/1", "http://b/1"},
		Location: "United Kingdom", PublishedAt: ptr("2024-01-05"),
	}}}
	candidate := domain.Candidate{
		Title:       "Stansted hangar blaze",
		URL:         "http://c/1",
		Description: ptr("Crews attended a fire"),
	}

	_, err := c.Classify(context.Background(), candidate, neighbors)
	require.NoError(t, err)
	require.Len(t, oracle.prompts, 1)

	prompt := oracle.prompts[0]
	assert.True(t, containsAll(prompt,
		"Incident ID: 42",
		"Article Links: http://a/1, http://b/1",
		"Article Date: 2024-01-05",
		"Title: Stansted hangar blaze",
		"Description: Crews attended a fire",
		"one of 42",
		`"duplicate_of": integer`,
	), prompt)
}

func TestClassifyWrapsOracleFailure(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{errs: map[int]error{0: errors.New("rate limited")}}
	_, err := NewDuplicateClassifier(oracle, nil).Classify(context.Background(), domain.Candidate{Title: "t"}, nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorContains(t, err, "rate limited")

	_, err = NewDuplicateClassifier(nil, nil).Classify(context.Background(), domain.Candidate{Title: "t"}, nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestPromptWithoutNeighbors(t *testing.T) {
	t.Parallel()

	prompt := BuildClassificationPrompt(domain.Candidate{Title: "Fire"}, nil)
	assert.Contains(t, prompt, "no stored incident is similar")
	assert.Contains(t, prompt, "return 0 (this is a NEW incident)")
	assert.NotContains(t, prompt, "Incident ID:")
}

func TestMergeFillsOnlyEmptyFields(t *testing.T) {
	t.Parallel()

	existing := domain.Incident{ID: 1, URLs: []string{"http://a/1"}, Location: "Canada"}
	merged := Merge(existing, domain.Candidate{URL: "http://b/1"}, domain.Verdict{
		IsValid: true, DuplicateOf: 1, AirportHangarName: "YYZ Hangar 2", CountryRegion: "United States",
	})

	assert.Equal(t, []string{"http://a/1", "http://b/1"}, merged.URLs)
	assert.Equal(t, "YYZ Hangar 2", merged.AirportHangarName)
	assert.Equal(t, "Canada", merged.Location)
	assert.Equal(t, []string{"http://a/1"}, existing.URLs, "merge must not alias the input")
}
