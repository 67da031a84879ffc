package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// DuplicateClassifier asks a language-model oracle whether a candidate is a genuine hangar
// fire incident and whether it repeats one of its nearest stored incidents.
type DuplicateClassifier struct {
	oracle ports.Oracle
	logger *slog.Logger
}

var _ ports.Classifier = (*DuplicateClassifier)(nil)

// NewDuplicateClassifier wires the oracle used for the one-shot verdict call.
func NewDuplicateClassifier(oracle ports.Oracle, logger *slog.Logger) *DuplicateClassifier {
	return &DuplicateClassifier{oracle: oracle, logger: logger}
}

// verdictPayload mirrors the oracle's JSON answer; pointers detect missing fields.
type verdictPayload struct {
	IsValid           *bool   `json:"is_valid"`
	DuplicateOf       *int64  `json:"duplicate_of"`
	AirportHangarName *string `json:"airport_hangar_name"`
	CountryRegion     *string `json:"country_region"`
}

// Classify builds the prompt, calls the oracle once and decodes a strict four-field verdict.
func (c *DuplicateClassifier) Classify(ctx context.Context, candidate domain.Candidate, neighbors []domain.Neighbor) (domain.Verdict, error) {
	if c.oracle == nil {
		return domain.Verdict{}, domain.ProviderError("classify", errors.New("oracle is not configured"))
	}

	prompt := BuildClassificationPrompt(candidate, neighbors)
	answer, err := c.oracle.Complete(ctx, prompt)
	if err != nil {
		return domain.Verdict{}, domain.ProviderError("classify", err)
	}

	verdict, err := DecodeVerdict(answer, neighbors)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("undecodable verdict", "url", candidate.URL, "answer", truncate(answer, 300))
		}
		return domain.Verdict{}, err
	}

	if c.logger != nil {
		c.logger.Debug("verdict",
			"url", candidate.URL,
			"is_valid", verdict.IsValid,
			"duplicate_of", verdict.DuplicateOf,
			"hangar", verdict.AirportHangarName,
			"country", verdict.CountryRegion)
	}
	return verdict, nil
}

// DecodeVerdict parses the oracle answer. Every field is required and duplicate_of must be 0
// or the id of one of the supplied neighbors.
func DecodeVerdict(answer string, neighbors []domain.Neighbor) (domain.Verdict, error) {
	raw, ok := extractJSONObject(answer)
	if !ok {
		return domain.Verdict{}, domain.DecodeError("verdict", errors.New("response holds no JSON object"))
	}

	var p verdictPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Verdict{}, domain.DecodeError("verdict", err)
	}

	var missing []string
	if p.IsValid == nil {
		missing = append(missing, "is_valid")
	}
	if p.DuplicateOf == nil {
		missing = append(missing, "duplicate_of")
	}
	if p.AirportHangarName == nil {
		missing = append(missing, "airport_hangar_name")
	}
	if p.CountryRegion == nil {
		missing = append(missing, "country_region")
	}
	if len(missing) > 0 {
		return domain.Verdict{}, domain.DecodeError("verdict", fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}

	v := domain.Verdict{
		IsValid:           *p.IsValid,
		DuplicateOf:       *p.DuplicateOf,
		AirportHangarName: strings.TrimSpace(*p.AirportHangarName),
		CountryRegion:     strings.TrimSpace(*p.CountryRegion),
	}
	if !v.Novel() && !containsNeighbor(neighbors, v.DuplicateOf) {
		return domain.Verdict{}, domain.DecodeError("verdict",
			fmt.Errorf("duplicate_of %d is not one of the %d supplied neighbors", v.DuplicateOf, len(neighbors)))
	}
	return v, nil
}

// extractJSONObject tolerates code fences and prose around the object.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

func containsNeighbor(neighbors []domain.Neighbor, id int64) bool {
	for _, n := range neighbors {
		if n.Incident.ID == id {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
